// Package security guards the release pipeline against destructive commands
// and deletions outside the project tree.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside the project root.
var ErrOutsideRoot = errors.New("path is outside the project root")

var dangerousPatterns = []*regexp.Regexp{
	// Destructive filesystem ops
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/?$`),
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/`),
	regexp.MustCompile(`(?i)\brm\s+-rf\s+~`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=`),
	// fork bombs (e.g. :(){ :|:& };:)
	regexp.MustCompile(`:\(\)\s*\{`),
	// wipe disk
	regexp.MustCompile(`(?i)\bwipefs\b`),
}

// CheckAllowed returns nil if the command is allowed to run, or an error
// describing why it's blocked. Checking is conservative and not exhaustive.
func CheckAllowed(command string) error {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return errors.New("empty command")
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(cmd) {
			return errors.New("command appears destructive or unsafe")
		}
	}
	return nil
}

// WithinRoot returns nil when path is root itself or lies beneath it. Both
// are cleaned and made absolute first; symlinks are not resolved.
func WithinRoot(root, path string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}

// StrictlyWithinRoot is WithinRoot but also rejects root itself. Cleanup uses
// it so that a misconfigured directory can never remove the whole project.
func StrictlyWithinRoot(root, path string) error {
	if err := WithinRoot(root, path); err != nil {
		return err
	}
	absRoot, _ := filepath.Abs(root)
	absPath, _ := filepath.Abs(path)
	if absRoot == absPath {
		return fmt.Errorf("%w: refusing to remove the project root itself", ErrOutsideRoot)
	}
	return nil
}
