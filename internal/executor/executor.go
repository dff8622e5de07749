// Package executor runs the external tools the release pipeline drives.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

const (
	// tailSize bounds how much of a failing command's output is quoted in errors.
	tailSize = 2048
	// waitDelay bounds how long a killed command may hold its output pipes open.
	waitDelay = 2 * time.Second
)

// Executor runs shell commands in an OS-aware way.
type Executor struct {
	DryRun  bool
	Verbose bool
	Shell   string // optional override (e.g., "pwsh")
	// Env, when non-nil, is appended to the inherited environment.
	Env []string
}

// Runner is an interface for executing commands. It allows tests to inject
// fake implementations without running real shell commands.
type Runner interface {
	Execute(ctx context.Context, command string, cwd string, stdout io.Writer, stderr io.Writer) error
}

// New returns a Runner backed by the real Executor implementation.
func New(dry, verbose bool) Runner {
	return &Executor{DryRun: dry, Verbose: verbose}
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stdout  string
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command failed with exit code %d: %s", e.Code, e.Command)
	if e.Stderr != "" {
		fmt.Fprintf(&b, " (stderr=%q)", e.Stderr)
	} else if e.Stdout != "" {
		fmt.Fprintf(&b, " (stdout=%q)", e.Stdout)
	}
	return b.String()
}

func (e *ExitError) Unwrap() error { return e.Err }

// sanitizeCommand normalizes common unicode characters that often get
// inserted by editors (e.g., smart quotes, NBSP, zero-width spaces) and
// converts them to their ASCII equivalents where sensible.
func sanitizeCommand(s string) string {
	r := strings.NewReplacer(
		"\u2018", "'", // left single quote
		"\u2019", "'", // right single quote
		"\u201C", "\"", // left double quote
		"\u201D", "\"", // right double quote
		"\u00A0", " ", // NO-BREAK SPACE
		"\u200B", "", // zero width space
		"\u200E", "", // left-to-right mark
		"\u200F", "", // right-to-left mark
	)
	rp := r.Replace(s)
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, rp)
}

// Execute runs the provided command string using an OS-appropriate shell
// invocation (e.g., `bash -c` on Unix, `cmd /C` on Windows). It sanitizes
// the command, validates it for illegal characters or newlines, and then
// executes it, streaming stdout/stderr to the provided writers. Any non-zero
// exit is returned as an *ExitError.
func (e *Executor) Execute(ctx context.Context, command string, cwd string, stdout io.Writer, stderr io.Writer) error {
	var err error
	command, err = validateAndSanitize(command)
	if err != nil {
		return err
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if handled := e.handleDryRunIfNeeded(command, stdout); handled {
		return nil
	}

	shell, args := shellInvocation(command, e.Shell)
	if err := validateShellAndArgs(shell, args); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.WaitDelay = waitDelay
	if cwd != "" {
		cmd.Dir = cwd
	}
	if e.Env != nil {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}
	bout := &tailBuffer{max: tailSize}
	berr := &tailBuffer{max: tailSize}
	cmd.Stdout = io.MultiWriter(stdout, bout)
	cmd.Stderr = io.MultiWriter(stderr, berr)

	if err := cmd.Run(); err != nil {
		return checkExecutionError(ctx, err, command, bout, berr)
	}
	return nil
}

func (e *Executor) handleDryRunIfNeeded(command string, stdout io.Writer) bool {
	if e.DryRun {
		if e.Verbose {
			_, _ = fmt.Fprintf(stdout, "dry-run: %s\n", command)
		}
		return true
	}
	return false
}

func checkExecutionError(ctx context.Context, err error, command string, bout, berr *tailBuffer) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("command interrupted: %s: %w", command, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Command: command,
			Code:    exitErr.ExitCode(),
			Stdout:  strings.TrimSpace(bout.String()),
			Stderr:  strings.TrimSpace(berr.String()),
			Err:     err,
		}
	}
	return fmt.Errorf("command failed: %s: %w", command, err)
}

// shellInvocation returns the shell executable and arguments for the platform.
// Optional `override` lets callers request alternate shell (e.g., pwsh).
func shellInvocation(command string, overrideShell string) (string, []string) {
	if overrideShell != "" {
		switch overrideShell {
		case "pwsh":
			return "pwsh", []string{"-Command", command}
		case "powershell":
			// On Windows prefer the OS-provided 'powershell' if present, else
			// fall back to 'pwsh'. On non-Windows prefer 'pwsh'.
			if runtime.GOOS == "windows" {
				if p, err := exec.LookPath("powershell"); err == nil {
					return p, []string{"-Command", command}
				}
				if p, err := exec.LookPath("pwsh"); err == nil {
					return p, []string{"-Command", command}
				}
				return "powershell", []string{"-Command", command}
			}
			return "pwsh", []string{"-Command", command}
		default:
			return overrideShell, []string{"-c", command}
		}
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "bash", []string{"-c", command}
}

func validateShellAndArgs(shell string, args []string) error {
	if _, err := exec.LookPath(shell); err != nil {
		return fmt.Errorf("shell not found in PATH: %s", shell)
	}
	for i, a := range args {
		if strings.IndexFunc(a, isBadControl) != -1 {
			return fmt.Errorf("invalid shell arg[%d]: contains control characters", i)
		}
	}
	return nil
}

func isBadControl(r rune) bool {
	return r == 0 || (r < 32 && r != '\t') || r == 0x7f
}

// Sanitize normalizes common unicode characters and removes embedded
// null and other invisible runes. Exported for callers that load commands
// from hand-edited configuration.
func Sanitize(s string) string {
	return sanitizeCommand(s)
}

func validateAndSanitize(command string) (string, error) {
	command = sanitizeCommand(command)
	if err := ValidateCommand(command); err != nil {
		return "", err
	}
	return command, nil
}

// ValidateCommand checks for remaining problematic characters that will
// cause command execution to fail (e.g., newlines and control characters)
// and returns an error describing the problem if one is found.
func ValidateCommand(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("invalid command: command is empty")
	}
	if strings.Contains(s, "\n") {
		return fmt.Errorf("invalid command: contains newline characters; each command must be a single line")
	}
	if strings.IndexFunc(s, isBadControl) != -1 {
		return fmt.Errorf("invalid command: contains control characters; remove non-printable characters")
	}
	return nil
}

// Quote joins args into a single POSIX-shell-safe string.
func Quote(args ...string) string {
	return shellquote.Join(args...)
}

// SplitArgs splits a command string into tokens respecting single and double
// quotes. It falls back to whitespace splitting on unbalanced quotes.
func SplitArgs(s string) []string {
	if toks, err := shellquote.Split(s); err == nil {
		return toks
	}
	return strings.Fields(s)
}

// Program returns the executable a command line invokes, or "".
func Program(command string) string {
	toks := SplitArgs(command)
	if len(toks) == 0 {
		return ""
	}
	return toks[0]
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
