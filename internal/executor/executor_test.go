package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"
)

func unixOnly(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

func TestExecuteEcho(t *testing.T) {
	unixOnly(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	var errb bytes.Buffer
	e := &Executor{}
	if err := e.Execute(ctx, "echo hello", "", &out, &errb); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Fatalf("expected 'hello' in stdout, got: %q", out.String())
	}
}

func TestExecuteRunsInCwd(t *testing.T) {
	unixOnly(t)
	dir := t.TempDir()
	var out bytes.Buffer
	e := &Executor{}
	if err := e.Execute(context.Background(), "pwd", dir, &out, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), dir) {
		t.Fatalf("expected cwd %q, got %q", dir, out.String())
	}
}

func TestExecuteEnv(t *testing.T) {
	unixOnly(t)
	var out bytes.Buffer
	e := &Executor{Env: []string{"RELMAN_TEST_VALUE=42"}}
	if err := e.Execute(context.Background(), "echo $RELMAN_TEST_VALUE", "", &out, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "42" {
		t.Fatalf("expected env value, got %q", out.String())
	}
}

func TestExecuteFail(t *testing.T) {
	unixOnly(t)
	var out, errb bytes.Buffer
	e := &Executor{}
	err := e.Execute(context.Background(), "echo partial; echo denied >&2; exit 1", "", &out, &errb)
	if err == nil {
		t.Fatalf("expected error for failing command")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 1 || exitErr.Stderr != "denied" || exitErr.Stdout != "partial" {
		t.Fatalf("unexpected exit error: %+v", exitErr)
	}
	// output is still streamed to the caller
	if !strings.Contains(out.String(), "partial") || !strings.Contains(errb.String(), "denied") {
		t.Fatalf("expected streamed output, got stdout=%q stderr=%q", out.String(), errb.String())
	}
}

func TestExecuteCancelled(t *testing.T) {
	unixOnly(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	e := &Executor{}
	err := e.Execute(ctx, "sleep 5", "", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestDryRun(t *testing.T) {
	var out bytes.Buffer
	e := &Executor{DryRun: true, Verbose: true}
	if err := e.Execute(context.Background(), "twine upload dist/*", "", &out, nil); err != nil {
		t.Fatalf("dry-run should not error: %v", err)
	}
	if !strings.Contains(out.String(), "dry-run: twine upload dist/*") {
		t.Fatalf("expected dry-run message, got: %q", out.String())
	}
}

func TestShellInvocationOverride(t *testing.T) {
	shell, args := shellInvocation("echo hi", "pwsh")
	if shell != "pwsh" {
		t.Fatalf("expected pwsh shell, got: %s", shell)
	}
	if len(args) < 1 || args[0] != "-Command" {
		t.Fatalf("expected -Command arg for pwsh, got: %v", args)
	}

	shell, args = shellInvocation("echo hi", "sh")
	if shell != "sh" {
		t.Fatalf("expected sh shell, got: %s", shell)
	}
	if len(args) < 1 || args[0] != "-c" {
		t.Fatalf("expected -c arg for sh, got: %v", args)
	}
}

func TestQuoteAndSplit(t *testing.T) {
	q := Quote("twine", "upload", "/tmp/my dist/pkg-1.0.tar.gz")
	toks := SplitArgs(q)
	if len(toks) != 3 || toks[2] != "/tmp/my dist/pkg-1.0.tar.gz" {
		t.Fatalf("round trip failed: %q -> %v", q, toks)
	}
	if got := Program("  stubgen bimcvcovid19i -o ."); got != "stubgen" {
		t.Fatalf("Program = %q", got)
	}
	if got := Program(""); got != "" {
		t.Fatalf("Program(empty) = %q", got)
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	tb := &tailBuffer{max: 4}
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defg"))
	if tb.String() != "defg" {
		t.Fatalf("expected tail 'defg', got %q", tb.String())
	}
}
