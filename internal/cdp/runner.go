package cdp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ajsharma/doctest_runner/internal/bridge"
	"github.com/ajsharma/doctest_runner/internal/config"
	"github.com/ajsharma/doctest_runner/internal/console"
	"github.com/ajsharma/doctest_runner/internal/events"
	"github.com/ajsharma/doctest_runner/internal/logger"
)

// LoadStatus is the outcome of opening the harness page.
type LoadStatus string

// Load statuses reported after the harness page is opened.
const (
	LoadSuccess LoadStatus = "success"
	LoadFail    LoadStatus = "fail"
)

// ErrBrowserClosed is returned when the browser goes away before the page
// sends an exit command.
var ErrBrowserClosed = errors.New("browser closed before the page requested exit")

// EventRecorder receives transcript events. *logger.Transcript implements it.
type EventRecorder interface {
	WriteEvent(event *events.LogEvent) error
}

// Runner opens the harness page in a browser and waits for it to exit.
type Runner struct {
	config     *config.Config
	log        logrus.FieldLogger
	relay      *console.Relay
	dispatcher *bridge.Dispatcher
	recorder   EventRecorder
	sessionID  string
	version    string

	pageURL string
	loadWG  sync.WaitGroup
}

// Options configures a Runner.
type Options struct {
	// Stdout receives relayed console lines and the load-failure diagnostic.
	Stdout io.Writer
	// Logger receives operational diagnostics.
	Logger logrus.FieldLogger
	// Recorder, if set, receives a transcript of the run.
	Recorder EventRecorder
	// SessionID tags transcript events.
	SessionID string
	// Version is recorded in the session start event.
	Version string
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = logger.NewSessionID()
	}

	return &Runner{
		config:     cfg,
		log:        log,
		relay:      console.NewRelay(stdout),
		dispatcher: bridge.NewDispatcher(),
		recorder:   opts.Recorder,
		sessionID:  sessionID,
		version:    opts.Version,
	}
}

// PageURL returns the file URL of pageFile resolved against workDir.
func PageURL(workDir, pageFile string) (string, error) {
	path := pageFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, pageFile)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve page path: %w", err)
	}

	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		// Windows drive paths: file:///C:/...
		slashed = "/" + slashed
	}

	u := url.URL{Scheme: "file", Path: slashed}
	return u.String(), nil
}

// Run opens the harness page under workDir and blocks until the page sends
// an exit command, the browser goes away, or ctx is cancelled. The returned
// code is only meaningful when err is nil.
func (r *Runner) Run(ctx context.Context, workDir string) (int, error) {
	start := time.Now()

	pageURL, err := PageURL(workDir, r.config.PageFile)
	if err != nil {
		return 0, err
	}
	r.pageURL = pageURL

	allocCtx, cancelAlloc, err := NewAllocator(ctx, r.config, r.log)
	if err != nil {
		return 0, fmt.Errorf("failed to start browser: %w", err)
	}
	defer cancelAlloc()

	pageCtx, cancelPage := chromedp.NewContext(allocCtx)
	defer cancelPage()

	chromedp.ListenTarget(pageCtx, r.handleEvent)

	if err := chromedp.Run(pageCtx,
		runtime.Enable(),
		page.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(bridge.Shim).Do(ctx)
			return err
		}),
		runtime.AddBinding(bridge.BindingName),
	); err != nil {
		return 0, fmt.Errorf("failed to prepare page: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"browser": describeAllocator(r.config),
		"page":    pageURL,
		"session": r.sessionID,
	}).Info("Opening harness page")
	r.record(events.NewSessionStartEvent(r.sessionID, workDir, pageURL, r.version))

	r.loadWG.Add(1)
	go func() {
		defer r.loadWG.Done()
		status := r.open(pageCtx, pageURL)
		if pageCtx.Err() != nil {
			// Shutting down; the load was interrupted, not failed.
			return
		}
		r.reportLoad(status)
	}()

	code, err := r.wait(ctx, pageCtx)

	cancelPage()
	r.loadWG.Wait()

	reason := "exit"
	if err != nil {
		reason = err.Error()
	}
	r.record(events.NewSessionEndEvent(r.sessionID, code, reason, time.Since(start).Seconds()))

	return code, err
}

// wait blocks until an exit code arrives or one of the contexts ends.
func (r *Runner) wait(ctx, pageCtx context.Context) (int, error) {
	select {
	case code := <-r.dispatcher.Exit():
		return code, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-pageCtx.Done():
		// The exit command may have raced the browser going away.
		select {
		case code := <-r.dispatcher.Exit():
			return code, nil
		default:
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, ErrBrowserClosed
	}
}

// open navigates to pageURL and reports whether the load succeeded.
func (r *Runner) open(ctx context.Context, pageURL string) LoadStatus {
	if err := chromedp.Run(ctx, chromedp.Navigate(pageURL)); err != nil {
		r.log.WithError(err).Debug("Harness page load failed")
		return LoadFail
	}
	return LoadSuccess
}

// reportLoad handles the completion of the page load. Only a failure is
// visible on stdout.
func (r *Runner) reportLoad(status LoadStatus) {
	r.record(events.NewPageLoadEvent(r.sessionID, r.pageURL, string(status)))

	if status == LoadSuccess {
		return
	}

	line := color.RedString("Loading %s failed: %s", r.pageURL, status)
	if err := r.relay.WriteLine(line); err != nil {
		r.log.WithError(err).Warn("Failed to write load diagnostic")
	}
}

// handleEvent processes CDP events from the page target.
func (r *Runner) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if !console.ShouldRelay(ev.Type) {
			return
		}
		msg, err := r.relay.Forward(ev)
		if err != nil {
			r.log.WithError(err).Warn("Failed to relay console message")
		}
		r.record(events.NewConsoleEvent(r.sessionID, console.EventType(ev.Type), msg))

	case *runtime.EventBindingCalled:
		if ev.Name != bridge.BindingName {
			return
		}
		r.handleCallback(ev.Payload)

	case *runtime.EventExceptionThrown:
		details := ev.ExceptionDetails
		if details == nil {
			return
		}
		text := details.Text
		if details.Exception != nil && details.Exception.Description != "" {
			text = details.Exception.Description
		}
		r.log.WithFields(logrus.Fields{
			"url":  details.URL,
			"line": details.LineNumber,
		}).Warn("Uncaught exception in harness page: " + text)
		r.record(events.NewRuntimeErrorEvent(r.sessionID, text, details.URL, details.LineNumber, details.ColumnNumber))
	}
}

// handleCallback dispatches one window.callPhantom payload.
func (r *Runner) handleCallback(payload string) {
	switch cmd := r.dispatcher.Handle(payload).(type) {
	case bridge.ExitCommand:
		r.log.WithField("exit_code", cmd.Code).Debug("Harness page requested exit")
		r.record(events.NewBridgeCommandEvent(r.sessionID, bridge.CmdExit, cmd.Code))
	default:
		r.record(events.NewBridgeIgnoredEvent(r.sessionID, payload))
	}
}

// record writes an event to the transcript, if one is configured.
func (r *Runner) record(event *events.LogEvent) {
	if r.recorder == nil {
		return
	}
	// Transcript errors are non-fatal - the run continues without it
	if err := r.recorder.WriteEvent(event); err != nil {
		r.log.WithError(err).Debug("Failed to write transcript event")
	}
}
