// Package console relays page console messages to the runner's output.
package console

import (
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"

	"github.com/ajsharma/doctest_runner/internal/events"
)

// Relay writes one line per console message to an output stream.
type Relay struct {
	out io.Writer
	mu  sync.Mutex
}

// NewRelay creates a Relay writing to out.
func NewRelay(out io.Writer) *Relay {
	return &Relay{out: out}
}

// Forward renders a console API call and writes it as a single line.
// It returns the rendered message.
func (r *Relay) Forward(ev *runtime.EventConsoleAPICalled) (string, error) {
	msg := FormatMessage(ev.Args)
	return msg, r.WriteLine(msg)
}

// WriteLine writes line followed by a newline, unmodified otherwise.
func (r *Relay) WriteLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := io.WriteString(r.out, line+"\n")
	return err
}

// ShouldRelay reports whether a console API call produces an output line.
// console.groupEnd() and console.clear() carry no message and are dropped.
func ShouldRelay(apiType runtime.APIType) bool {
	switch apiType {
	case runtime.APITypeEndGroup, runtime.APITypeClear:
		return false
	default:
		return true
	}
}

// FormatMessage joins the rendered console arguments with single spaces.
func FormatMessage(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, renderRemoteObject(arg))
	}
	return strings.Join(parts, " ")
}

// EventType maps a console API type to its transcript event type.
func EventType(apiType runtime.APIType) string {
	switch apiType {
	case runtime.APITypeWarning:
		return events.EventConsoleWarn
	case runtime.APITypeError, runtime.APITypeAssert:
		return events.EventConsoleError
	case runtime.APITypeInfo:
		return events.EventConsoleInfo
	case runtime.APITypeDebug:
		return events.EventConsoleDebug
	default:
		return events.EventConsoleLog
	}
}

// renderRemoteObject turns a CDP RemoteObject into the text a console shows.
// Strings are printed bare; other primitives keep their JSON spelling.
func renderRemoteObject(obj *runtime.RemoteObject) string {
	if obj == nil {
		return "undefined"
	}

	// Infinity, -Infinity, NaN, -0, bigint
	if obj.UnserializableValue != "" {
		return string(obj.UnserializableValue)
	}

	if obj.Value != nil {
		var s string
		if err := json.Unmarshal(obj.Value, &s); err == nil {
			return s
		}
		return string(obj.Value)
	}

	if obj.Type == runtime.TypeUndefined {
		return "undefined"
	}
	if obj.Subtype == runtime.SubtypeNull {
		return "null"
	}

	// Objects, arrays and functions
	if obj.Description != "" {
		return obj.Description
	}

	return string(obj.Type)
}
