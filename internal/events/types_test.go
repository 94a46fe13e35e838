package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewLogEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewLogEvent("session-123", "test.event", map[string]interface{}{
		"key": "value",
	})
	after := time.Now().UTC()

	if event.SessionID != "session-123" {
		t.Errorf("expected SessionID 'session-123', got %s", event.SessionID)
	}
	if event.EventType != "test.event" {
		t.Errorf("expected EventType 'test.event', got %s", event.EventType)
	}
	if event.Data["key"] != "value" {
		t.Errorf("expected Data['key'] 'value', got %v", event.Data["key"])
	}

	// Verify timestamp is valid and within range
	ts, err := time.Parse(time.RFC3339Nano, event.Timestamp)
	if err != nil {
		t.Errorf("failed to parse timestamp: %v", err)
	}
	if ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp %v not in expected range [%v, %v]", ts, before, after)
	}
}

func TestLogEventJSON(t *testing.T) {
	event := NewPageLoadEvent("session-123", "file:///a/b/phantom.html", "success")

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	jsonStr := string(data)
	for _, want := range []string{
		`"session_id":"session-123"`,
		`"event_type":"page.load"`,
		`"status":"success"`,
		`"timestamp"`,
	} {
		if !strings.Contains(jsonStr, want) {
			t.Errorf("JSON missing %s: %s", want, jsonStr)
		}
	}
}

func TestIsMeta(t *testing.T) {
	tests := []struct {
		eventType string
		expected  bool
	}{
		{EventMetaSessionStart, true},
		{EventMetaSessionEnd, true},
		{EventPageLoad, false},
		{EventConsoleLog, false},
		{"meta", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			event := NewLogEvent("s", tt.eventType, nil)
			if event.IsMeta() != tt.expected {
				t.Errorf("IsMeta() for %q = %v, want %v", tt.eventType, event.IsMeta(), tt.expected)
			}
		})
	}
}

func TestNewSessionStartEvent(t *testing.T) {
	event := NewSessionStartEvent("session-123", "/a/b", "file:///a/b/phantom.html", "1.0.0")

	if event.EventType != EventMetaSessionStart {
		t.Errorf("expected EventType %s, got %s", EventMetaSessionStart, event.EventType)
	}
	if event.Data["work_dir"] != "/a/b" {
		t.Errorf("expected work_dir '/a/b', got %v", event.Data["work_dir"])
	}
	if event.Data["page_url"] != "file:///a/b/phantom.html" {
		t.Errorf("expected page_url, got %v", event.Data["page_url"])
	}
	if event.Data["runner_version"] != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %v", event.Data["runner_version"])
	}
}

func TestNewSessionEndEvent(t *testing.T) {
	event := NewSessionEndEvent("session-123", 7, "exit", 1.5)

	if event.EventType != EventMetaSessionEnd {
		t.Errorf("expected EventType %s, got %s", EventMetaSessionEnd, event.EventType)
	}
	if event.Data["exit_code"] != 7 {
		t.Errorf("expected exit_code 7, got %v", event.Data["exit_code"])
	}
	if event.Data["reason"] != "exit" {
		t.Errorf("expected reason 'exit', got %v", event.Data["reason"])
	}
	if event.Data["duration_seconds"] != 1.5 {
		t.Errorf("expected duration_seconds 1.5, got %v", event.Data["duration_seconds"])
	}
}

func TestNewConsoleEvent(t *testing.T) {
	event := NewConsoleEvent("session-123", EventConsoleWarn, "careful")

	if event.EventType != EventConsoleWarn {
		t.Errorf("expected EventType %s, got %s", EventConsoleWarn, event.EventType)
	}
	if event.Data["message"] != "careful" {
		t.Errorf("expected message 'careful', got %v", event.Data["message"])
	}
}

func TestNewBridgeEvents(t *testing.T) {
	cmd := NewBridgeCommandEvent("session-123", "doctest:exit", 3)
	if cmd.EventType != EventBridgeCommand {
		t.Errorf("expected EventType %s, got %s", EventBridgeCommand, cmd.EventType)
	}
	if cmd.Data["cmd"] != "doctest:exit" || cmd.Data["exit_code"] != 3 {
		t.Errorf("unexpected bridge command data: %v", cmd.Data)
	}

	ignored := NewBridgeIgnoredEvent("session-123", `{"cmd":"other"}`)
	if ignored.EventType != EventBridgeIgnored {
		t.Errorf("expected EventType %s, got %s", EventBridgeIgnored, ignored.EventType)
	}
	if ignored.Data["payload"] != `{"cmd":"other"}` {
		t.Errorf("unexpected payload: %v", ignored.Data["payload"])
	}
}

func TestNewRuntimeErrorEvent(t *testing.T) {
	event := NewRuntimeErrorEvent("session-123", "Uncaught Error: boom", "file:///a/phantom.html", 10, 4)

	if event.EventType != EventErrorRuntime {
		t.Errorf("expected EventType %s, got %s", EventErrorRuntime, event.EventType)
	}
	if event.Data["text"] != "Uncaught Error: boom" {
		t.Errorf("unexpected text: %v", event.Data["text"])
	}
	if event.Data["line"] != int64(10) || event.Data["column"] != int64(4) {
		t.Errorf("unexpected position: %v:%v", event.Data["line"], event.Data["column"])
	}
}
