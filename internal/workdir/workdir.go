// Package workdir derives the runner's working directory from its invocation path.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoDirectory is returned when the invocation path has no directory segment.
var ErrNoDirectory = errors.New("invocation path has no directory component")

// Resolve returns the directory that contains invocationPath.
//
// Backslashes are treated as separators, so Windows-style paths resolve the
// same way as slash paths. The result always uses forward slashes. A path
// directly under the root resolves to "/".
func Resolve(invocationPath string) (string, error) {
	normalized := strings.ReplaceAll(invocationPath, `\`, "/")

	segments := strings.Split(normalized, "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("%w: %q", ErrNoDirectory, invocationPath)
	}

	dir := strings.Join(segments[:len(segments)-1], "/")
	if dir == "" {
		dir = "/"
	}
	return dir, nil
}

// Enter resolves the directory of invocationPath and makes it the process's
// current working directory. It returns the new working directory as an
// absolute path, so relative invocation paths are not applied twice.
func Enter(invocationPath string) (string, error) {
	dir, err := Resolve(invocationPath)
	if err != nil {
		return "", err
	}

	if err := os.Chdir(dir); err != nil {
		return "", fmt.Errorf("failed to change working directory: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to read working directory: %w", err)
	}
	return cwd, nil
}
