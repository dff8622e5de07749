// Package nameutil validates and normalises Python distribution names.
package nameutil

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// validName is the PEP 508 project name grammar.
var validName = regexp.MustCompile(`(?i)^([A-Z0-9]|[A-Z0-9][A-Z0-9._-]*[A-Z0-9])$`)

var separators = regexp.MustCompile(`[-_.]+`)

// ValidateName checks whether name is an acceptable distribution name. It
// does NOT mutate the input; use SanitizeName to strip invisible characters
// first when desired.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("invalid name: name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("invalid name: contains invalid encoding")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("invalid name: contains control character U+%04X (%q)", r, r)
		}
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid name %q: must start and end with a letter or digit and contain only letters, digits, '.', '_' and '-'", name)
	}
	return nil
}

// Normalize returns the PEP 503 normalised form of name: lower case with
// runs of '-', '_' and '.' collapsed to a single '-'.
func Normalize(name string) string {
	return strings.ToLower(separators.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// FilenameForm returns name as it appears in wheel and sdist file names:
// normalised with '_' as separator.
func FilenameForm(name string) string {
	return strings.ReplaceAll(Normalize(name), "-", "_")
}

// SameProject reports whether a and b name the same project.
func SameProject(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// SanitizeName removes common invisible/control characters and returns the
// sanitized string and a boolean indicating whether any change was made.
func SanitizeName(name string) (string, bool) {
	if name == "" {
		return name, false
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			continue
		}
		out = append(out, r)
	}
	res := strings.TrimSpace(string(out))
	return res, res != name
}
