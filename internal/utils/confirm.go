// Package utils holds the small terminal helpers the CLI uses.
package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm prompts with msg on stdout and reads y/n from stdin. It returns
// false without prompting when stdin is not a terminal.
func Confirm(msg string) bool {
	if !IsInteractive() {
		return false
	}
	return ConfirmReader(msg, os.Stdin, os.Stdout)
}

// ConfirmReader prompts on w and reads the answer from r. Anything but
// "y" or "yes" is a no.
func ConfirmReader(msg string, r io.Reader, w io.Writer) bool {
	_, _ = fmt.Fprintf(w, "%s [y/N]: ", msg)
	line, _ := bufio.NewReader(r).ReadString('\n')
	resp := strings.TrimSpace(strings.ToLower(line))
	return resp == "y" || resp == "yes"
}
