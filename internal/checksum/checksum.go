// Package checksum computes SHA-1 digests and reads and writes sha1sums.txt
// style checksum files.
package checksum

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileName is the conventional checksum file name.
const FileName = "sha1sums.txt"

// SHA1File returns the hex SHA-1 digest of the file at path.
func SHA1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Parse reads "<digest><sep><name>" lines into a name -> digest map. An
// empty sep splits on runs of whitespace. Blank lines are skipped; a leading
// '*' on the name (sha1sum binary mode) is dropped.
func Parse(r io.Reader, sep string) (map[string]string, error) {
	out := map[string]string{}
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimRight(s.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		var parts []string
		if sep == "" {
			parts = strings.Fields(line)
		} else {
			parts = strings.Split(line, sep)
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", lineNo, len(parts))
		}
		digest := strings.ToLower(strings.TrimSpace(parts[0]))
		name := strings.TrimPrefix(strings.TrimSpace(parts[1]), "*")
		if digest == "" || name == "" {
			return nil, fmt.Errorf("line %d: empty digest or file name", lineNo)
		}
		out[name] = digest
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read checksums: %w", err)
	}
	return out, nil
}

// Read parses the checksum file at path.
func Read(path, sep string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	sums, err := Parse(f, sep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sums, nil
}

// Write stores sums at path in sha1sum format, sorted by name.
func Write(path string, sums map[string]string) error {
	names := make([]string, 0, len(sums))
	for n := range sums {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s  %s\n", sums[n], n)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// Result is the outcome of verifying a directory against a checksum map.
type Result struct {
	OK         []string
	Missing    []string
	Mismatched []string
}

// Clean reports whether every listed file was present and matched.
func (r Result) Clean() bool {
	return len(r.Missing) == 0 && len(r.Mismatched) == 0
}

// Verify hashes every file named in sums relative to dir. Results are sorted.
func Verify(dir string, sums map[string]string) (Result, error) {
	var res Result
	names := make([]string, 0, len(sums))
	for n := range sums {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		got, err := SHA1File(filepath.Join(dir, filepath.FromSlash(n)))
		switch {
		case errors.Is(err, os.ErrNotExist):
			res.Missing = append(res.Missing, n)
		case err != nil:
			return res, err
		case got == sums[n]:
			res.OK = append(res.OK, n)
		default:
			res.Mismatched = append(res.Mismatched, n)
		}
	}
	return res, nil
}
