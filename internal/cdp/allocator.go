// Package cdp drives the headless browser that hosts the harness page.
package cdp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/ajsharma/doctest_runner/internal/config"
)

// NewAllocator returns the chromedp allocator context the runner uses.
// With a remote port it attaches to that Chrome, otherwise it launches one.
func NewAllocator(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (context.Context, context.CancelFunc, error) {
	if cfg.UsesRemoteChrome() {
		info, err := WaitForChrome(ctx, cfg.RemotePort, cfg.ChromeStartTimeout)
		if err != nil {
			return nil, nil, err
		}

		log.WithFields(logrus.Fields{
			"browser": info.Browser,
			"port":    cfg.RemotePort,
		}).Info("Attaching to running Chrome")

		allocCtx, cancel := chromedp.NewRemoteAllocator(ctx, info.WebSocketDebuggerURL)
		return allocCtx, cancel, nil
	}

	execPath := cfg.ChromePath
	if execPath == "" {
		execPath = FindChrome()
	}
	if execPath != "" {
		log.WithField("path", execPath).Debug("Using Chrome executable")
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, ExecAllocatorOptions(cfg, execPath)...)
	return allocCtx, cancel, nil
}

// ExecAllocatorOptions builds the options for launching Chrome.
// An empty execPath leaves executable lookup to chromedp.
func ExecAllocatorOptions(cfg *config.Config, execPath string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := chromeFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	return opts
}

// chromeFlags returns the command-line flags layered over chromedp's defaults.
func chromeFlags(cfg *config.Config) map[string]interface{} {
	flags := map[string]interface{}{
		// Harness pages pull sibling scripts over file://
		"allow-file-access-from-files": true,
		"disable-gpu":                  true,
		"mute-audio":                   true,
	}

	if !cfg.Headless {
		flags["headless"] = false
	}
	if cfg.NoSandbox {
		flags["no-sandbox"] = true
		flags["disable-setuid-sandbox"] = true
	}

	return flags
}

// FindChrome locates the Chrome executable on the system.
// It returns an empty string if none is found.
func FindChrome() string {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			filepath.Join(os.Getenv("HOME"), "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"),
		}
	case "linux":
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		programFiles := os.Getenv("PROGRAMFILES")
		programFilesX86 := os.Getenv("PROGRAMFILES(X86)")

		paths = []string{
			filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(programFilesX86, "Google", "Chrome", "Application", "chrome.exe"),
		}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chrome", "chromium", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// describeAllocator is used in startup logging.
func describeAllocator(cfg *config.Config) string {
	if cfg.UsesRemoteChrome() {
		return fmt.Sprintf("remote Chrome on port %s", cfg.RemotePort)
	}
	if cfg.Headless {
		return "headless Chrome"
	}
	return "headful Chrome"
}
