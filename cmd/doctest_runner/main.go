// doctest_runner opens a local doctest harness page in headless Chrome and
// exits with the status code the page reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajsharma/doctest_runner/internal/cdp"
	"github.com/ajsharma/doctest_runner/internal/config"
	"github.com/ajsharma/doctest_runner/internal/logger"
	"github.com/ajsharma/doctest_runner/internal/workdir"
)

var (
	cfg        = config.DefaultConfig()
	configPath string

	// exitCode is the status requested by the harness page.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "doctest_runner [script-path]",
	Short: "Run a doctest harness page in headless Chrome",
	Long: `doctest_runner changes into the directory containing script-path, opens
phantom.html from there in headless Chrome, prints the page's console output
and exits with the code the page sends via
window.callPhantom({cmd: "doctest:exit", exitCode: N}).

script-path defaults to the doctest_runner executable itself.

Example:
  # Run tools/phantomJS/phantom.html
  doctest_runner tools/phantomJS/run.js

  # Run in a container without a sandbox, keeping a JSONL transcript
  doctest_runner --no-sandbox --transcript-dir ./runs tools/phantomJS/run.js

  # Use a Chrome that is already running with --remote-debugging-port=9222
  doctest_runner --remote-port 9222 tools/phantomJS/run.js`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"YAML config file (flags override its values)")

	// Page flags
	rootCmd.Flags().StringVar(&cfg.PageFile, "page", cfg.PageFile,
		"Harness page to open, relative to the working directory")

	// Browser flags
	rootCmd.Flags().BoolVar(&cfg.Headless, "headless", cfg.Headless,
		"Run Chrome without a window")
	rootCmd.Flags().BoolVar(&cfg.NoSandbox, "no-sandbox", cfg.NoSandbox,
		"Disable the Chrome sandbox (needed in most containers)")
	rootCmd.Flags().StringVar(&cfg.ChromePath, "chrome-path", cfg.ChromePath,
		"Chrome executable (auto-detected when empty)")
	rootCmd.Flags().StringVarP(&cfg.RemotePort, "remote-port", "p", cfg.RemotePort,
		"Attach to Chrome on this remote debugging port instead of launching one")
	rootCmd.Flags().DurationVar(&cfg.ChromeStartTimeout, "chrome-start-timeout", cfg.ChromeStartTimeout,
		"How long to wait for a remote Chrome to answer")

	// Transcript flags
	rootCmd.Flags().StringVarP(&cfg.TranscriptDir, "transcript-dir", "o", cfg.TranscriptDir,
		"Write a JSONL transcript of the run under this directory")
	rootCmd.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval,
		"Flush interval for transcript buffering")
	rootCmd.Flags().IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize,
		"Transcript buffer size in bytes")

	// Diagnostics flags
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Diagnostic log level on stderr (debug, info, warn, error)")

	// Version flag
	rootCmd.Version = config.Version

	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a sample harness page",
	Long: `Write a minimal phantom.html into dir (default: current directory).
The page runs two checks, logs TAP-style results and exits through
window.callPhantom.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		page, _ := cmd.Flags().GetString("page")

		path, err := cdp.WriteSampleHarness(dir, page, force)
		if err != nil {
			return err
		}

		fmt.Printf("Harness written to: %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing harness page")
	initCmd.Flags().String("page", config.DefaultPageFile, "File name of the harness page")
}

// applyConfigFile loads --config and re-applies any flags given on the
// command line so they take precedence over the file.
func applyConfigFile(cmd *cobra.Command) error {
	if configPath == "" {
		return nil
	}

	loaded, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}

	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	*cfg = *loaded
	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("failed to apply --%s: %w", name, err)
		}
	}
	return nil
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log, nil
}

// invocationPath returns the path the working directory is derived from.
func invocationPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return exe, nil
}

func run(cmd *cobra.Command, args []string) error {
	if err := applyConfigFile(cmd); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := withSignalCancel(context.Background(), log)
	defer cancel()

	code, err := runHarness(ctx, log, args, os.Stdout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted before the page requested exit")
		}
		return err
	}

	exitCode = code
	return nil
}

// withSignalCancel returns a context that is cancelled on SIGINT or SIGTERM.
func withSignalCancel(parent context.Context, log logrus.FieldLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			log.Warn("Received shutdown signal...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// runHarness enters the working directory derived from args, opens the
// harness page and returns the exit code the page requested.
func runHarness(ctx context.Context, log *logrus.Logger, args []string, stdout io.Writer) (int, error) {
	path, err := invocationPath(args)
	if err != nil {
		return 0, err
	}

	// Relative transcript paths are taken from where the runner was started.
	transcriptDir := cfg.TranscriptDir
	if transcriptDir != "" {
		if transcriptDir, err = filepath.Abs(transcriptDir); err != nil {
			return 0, fmt.Errorf("failed to resolve transcript directory: %w", err)
		}
	}

	dir, err := workdir.Enter(path)
	if err != nil {
		return 0, err
	}

	log.Debugf("doctest_runner %s", config.Version)
	log.WithField("dir", dir).Debug("Working directory set")

	sessionID := logger.NewSessionID()
	opts := cdp.Options{
		Stdout:    stdout,
		Logger:    log,
		SessionID: sessionID,
		Version:   config.Version,
	}

	if transcriptDir != "" {
		transcript := logger.NewTranscript(transcriptDir, sessionID)
		transcript.SetFlushInterval(cfg.FlushInterval)
		transcript.SetBufferSize(cfg.BufferSize)
		defer func() {
			if err := transcript.Close(); err != nil {
				log.WithError(err).Warn("Error closing transcript")
			}
		}()

		opts.Recorder = transcript
		log.WithField("path", transcript.Path()).Info("Writing transcript")
	}

	return cdp.NewRunner(cfg, opts).Run(ctx, dir)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
