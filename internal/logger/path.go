// Package logger provides the JSONL run transcript for doctest_runner.
package logger

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TranscriptFileName is the name of the transcript file inside a session directory.
const TranscriptFileName = "run.log"

// NewSessionID returns a fresh identifier for one runner invocation.
func NewSessionID() string {
	return uuid.New().String()
}

// sessionDirName returns the directory name for a session. Session IDs are
// UUIDs; only path separators need guarding.
func sessionDirName(sessionID string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(sessionID)
	if name == "" || name == "." || name == ".." {
		return "unknown"
	}
	return name
}

// GetTranscriptPath returns the transcript file path for a session.
func GetTranscriptPath(baseDir, sessionID string) string {
	return filepath.Join(baseDir, sessionDirName(sessionID), TranscriptFileName)
}
