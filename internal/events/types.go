// Package events defines the transcript event types written for a run.
package events

import (
	"strings"
	"time"
)

// LogEvent represents a single transcript event in JSONL format.
type LogEvent struct {
	Timestamp string                 `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

// NewLogEvent creates a new LogEvent with the current timestamp.
func NewLogEvent(sessionID, eventType string, data map[string]interface{}) *LogEvent {
	return &LogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
		EventType: eventType,
		Data:      data,
	}
}

// IsMeta reports whether the event belongs to the run lifecycle.
func (e *LogEvent) IsMeta() bool {
	return strings.HasPrefix(e.EventType, "meta.")
}

// Event type constants for meta events.
const (
	EventMetaSessionStart = "meta.session_start"
	EventMetaSessionEnd   = "meta.session_end"
)

// Event type constants for page events.
const (
	EventPageLoad = "page.load"
)

// Event type constants for bridge events.
const (
	EventBridgeCommand = "bridge.command"
	EventBridgeIgnored = "bridge.ignored"
)

// Event type constants for console events.
const (
	EventConsoleLog   = "console.log"
	EventConsoleWarn  = "console.warn"
	EventConsoleInfo  = "console.info"
	EventConsoleError = "console.error"
	EventConsoleDebug = "console.debug"
)

// Event type constants for error events.
const (
	EventErrorRuntime = "error.runtime"
)

// NewSessionStartEvent creates a meta.session_start event.
func NewSessionStartEvent(sessionID, workDir, pageURL, version string) *LogEvent {
	return NewLogEvent(sessionID, EventMetaSessionStart, map[string]interface{}{
		"work_dir":       workDir,
		"page_url":       pageURL,
		"runner_version": version,
		"start_time":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// NewSessionEndEvent creates a meta.session_end event.
// reason is "exit" when the page requested it, otherwise the error text.
func NewSessionEndEvent(sessionID string, exitCode int, reason string, durationSeconds float64) *LogEvent {
	return NewLogEvent(sessionID, EventMetaSessionEnd, map[string]interface{}{
		"exit_code":        exitCode,
		"reason":           reason,
		"duration_seconds": durationSeconds,
	})
}

// NewPageLoadEvent creates a page.load event.
func NewPageLoadEvent(sessionID, url, status string) *LogEvent {
	return NewLogEvent(sessionID, EventPageLoad, map[string]interface{}{
		"url":    url,
		"status": status,
	})
}

// NewConsoleEvent creates a console.* event carrying the relayed line.
func NewConsoleEvent(sessionID, eventType, message string) *LogEvent {
	return NewLogEvent(sessionID, eventType, map[string]interface{}{
		"message": message,
	})
}

// NewBridgeCommandEvent creates a bridge.command event.
func NewBridgeCommandEvent(sessionID, cmd string, exitCode int) *LogEvent {
	return NewLogEvent(sessionID, EventBridgeCommand, map[string]interface{}{
		"cmd":       cmd,
		"exit_code": exitCode,
	})
}

// NewBridgeIgnoredEvent creates a bridge.ignored event for payloads the
// runner does not act on.
func NewBridgeIgnoredEvent(sessionID, payload string) *LogEvent {
	return NewLogEvent(sessionID, EventBridgeIgnored, map[string]interface{}{
		"payload": payload,
	})
}

// NewRuntimeErrorEvent creates an error.runtime event.
func NewRuntimeErrorEvent(sessionID, text, url string, line, column int64) *LogEvent {
	return NewLogEvent(sessionID, EventErrorRuntime, map[string]interface{}{
		"text":   text,
		"url":    url,
		"line":   line,
		"column": column,
	})
}
