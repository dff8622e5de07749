//go:build !windows

package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEditor(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fake-editor.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

func TestOpenEditorPassesPathAndArgs(t *testing.T) {
	d := t.TempDir()
	marker := filepath.Join(d, "marker.txt")
	script := fakeEditor(t, "printf '%s %s' \"$1\" \"$2\" > '"+marker+"'\n")
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", script+" -w")

	target := filepath.Join(d, "relman.yaml")
	require.NoError(t, OpenEditor(target))

	b, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "-w "+target, strings.TrimSpace(string(b)))
}

func TestOpenEditorPrefersVisual(t *testing.T) {
	d := t.TempDir()
	marker := filepath.Join(d, "marker.txt")
	t.Setenv("VISUAL", fakeEditor(t, "printf visual > '"+marker+"'\n"))
	t.Setenv("EDITOR", fakeEditor(t, "exit 1\n"))

	require.NoError(t, OpenEditor(filepath.Join(d, "x")))
	b, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "visual", string(b))
}

func TestOpenEditorFailure(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", fakeEditor(t, "exit 1\n"))
	assert.Error(t, OpenEditor(filepath.Join(t.TempDir(), "x")))
}

func TestOpenEditorInvalidVariable(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "'unterminated")
	assert.ErrorContains(t, OpenEditor("x"), "invalid editor")
}
