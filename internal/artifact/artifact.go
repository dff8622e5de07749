// Package artifact discovers and describes the files a release produces:
// generated stub files and distribution archives.
package artifact

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies a distribution file.
type Kind string

// Distribution kinds.
const (
	KindSdist Kind = "sdist"
	KindWheel Kind = "wheel"
	KindOther Kind = "other"
)

// StubExt is the extension of generated type stub files.
const StubExt = ".pyi"

// Artifact is a file found in the distribution directory.
type Artifact struct {
	Name   string
	Path   string
	Kind   Kind
	Size   int64
	SHA256 string
	SHA1   string
}

// Version returns the version encoded in the file name, or "" when the name
// does not follow the sdist or wheel conventions.
func (a Artifact) Version() string {
	switch a.Kind {
	case KindWheel:
		if w, err := ParseWheelName(a.Name); err == nil {
			return w.Version
		}
	case KindSdist:
		if s, err := ParseSdistName(a.Name); err == nil {
			return s.Version
		}
	}
	return ""
}

// Classify returns the kind of a distribution file from its name.
func Classify(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".whl"):
		return KindWheel
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".zip"):
		return KindSdist
	default:
		return KindOther
	}
}

// Hash returns the SHA-256 and SHA-1 digests and size of the file at path
// in a single read.
func Hash(path string) (sha256sum, sha1sum string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", 0, err
	}
	defer func() { _ = f.Close() }()
	h256 := sha256.New()
	h1 := sha1.New()
	size, err = io.Copy(io.MultiWriter(h256, h1), f)
	if err != nil {
		return "", "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h256.Sum(nil)), hex.EncodeToString(h1.Sum(nil)), size, nil
}

// Scan lists the regular, non-hidden files directly inside distDir (the
// files a `dist/*` glob would match), classified and hashed, sorted by name.
// A missing directory yields no artifacts.
func Scan(distDir string) ([]Artifact, error) {
	entries, err := os.ReadDir(distDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", distDir, err)
	}
	var out []Artifact
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		p := filepath.Join(distDir, e.Name())
		s256, s1, size, err := Hash(p)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{
			Name:   e.Name(),
			Path:   p,
			Kind:   Classify(e.Name()),
			Size:   size,
			SHA256: s256,
			SHA1:   s1,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindStubs returns the stub files under dir, recursively, sorted.
func FindStubs(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), StubExt) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find stubs in %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}
