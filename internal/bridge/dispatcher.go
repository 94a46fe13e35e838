package bridge

import (
	"context"
	"sync"
)

// Dispatcher consumes callback payloads and turns the first exit command into
// an exit code. It is safe for concurrent use.
type Dispatcher struct {
	exitCh   chan int
	exitOnce sync.Once
}

// NewDispatcher creates a Dispatcher with no pending exit.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		exitCh: make(chan int, 1),
	}
}

// Handle decodes payload and acts on it. It returns the decoded command, or
// nil when the payload was absent or falsy.
func (d *Dispatcher) Handle(payload string) Command {
	cmd, ok := ParsePayload(payload)
	if !ok {
		return nil
	}

	switch cmd := cmd.(type) {
	case ExitCommand:
		d.exitOnce.Do(func() {
			d.exitCh <- cmd.Code
		})
	case UnknownCommand:
		// ignore
	}

	return cmd
}

// Exit returns a channel that yields the exit code once the page asks to exit.
func (d *Dispatcher) Exit() <-chan int {
	return d.exitCh
}

// Wait blocks until the page asks to exit or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) (int, error) {
	select {
	case code := <-d.exitCh:
		return code, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
