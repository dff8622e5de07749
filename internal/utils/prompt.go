package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompt asks for a single line on stdin, returning def for an empty answer.
func Prompt(msg, def string) string {
	return PromptReader(msg, def, os.Stdin, os.Stdout)
}

// PromptReader prompts on w and reads a single line from r.
func PromptReader(msg, def string, r io.Reader, w io.Writer) string {
	if def != "" {
		_, _ = fmt.Fprintf(w, "%s [%s]: ", msg, def)
	} else {
		_, _ = fmt.Fprintf(w, "%s: ", msg)
	}
	line, _ := bufio.NewReader(r).ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return def
	}
	return line
}
