// Package bridge implements the command channel between the harness page and
// the runner process.
//
// The page calls window.callPhantom(data). The shim installed by the runner
// serialises data to JSON and hands it to a DevTools binding, and the payload
// arrives here as a string.
package bridge

import (
	"github.com/tidwall/gjson"
)

// CmdExit is the command name the page sends to end the run.
const CmdExit = "doctest:exit"

// Command is a decoded callback message. The set of implementations is closed:
// ExitCommand and UnknownCommand.
type Command interface {
	isCommand()
}

// ExitCommand asks the runner to terminate with Code.
type ExitCommand struct {
	Code int
}

// UnknownCommand carries any command name the runner does not act on.
type UnknownCommand struct {
	Name string
}

func (ExitCommand) isCommand()    {}
func (UnknownCommand) isCommand() {}

// ParsePayload decodes a JSON callback payload.
//
// It returns false when the payload is absent or falsy (null, false, 0, ""),
// or is not valid JSON. Truthy payloads always decode to a Command; anything
// that does not name CmdExit becomes an UnknownCommand.
func ParsePayload(payload string) (Command, bool) {
	if !gjson.Valid(payload) {
		return nil, false
	}

	data := gjson.Parse(payload)
	if !truthy(data) {
		return nil, false
	}

	cmd := data.Get("cmd")
	if cmd.Type == gjson.String && cmd.Str == CmdExit {
		// A missing exitCode exits with 0.
		return ExitCommand{Code: int(data.Get("exitCode").Int())}, true
	}

	return UnknownCommand{Name: cmd.String()}, true
}

// truthy mirrors JavaScript truthiness for JSON values.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return true
	}
}
