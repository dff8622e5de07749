// Package project reads the name and version of the Python project being
// released.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// ErrNoMetadata is returned when neither pyproject.toml nor setup.py exists.
var ErrNoMetadata = errors.New("no pyproject.toml or setup.py found")

// Metadata is what relman needs to know about the project.
type Metadata struct {
	Name    string
	Version string
	// Source names the file each field came from, e.g. "pyproject.toml".
	NameSource    string
	VersionSource string
}

type pyproject struct {
	Project struct {
		Name    string   `toml:"name"`
		Version string   `toml:"version"`
		Dynamic []string `toml:"dynamic"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

var (
	setupName    = regexp.MustCompile(`\bname\s*=\s*["']([^"']+)["']`)
	setupVersion = regexp.MustCompile(`\bversion\s*=\s*["']([^"']+)["']`)
	dunderVer    = regexp.MustCompile(`(?m)^__version__\s*=\s*["']([^"']+)["']`)
)

// Load reads project metadata from root. pyproject.toml is consulted first,
// then setup.py, then packageDir/__init__.py for a __version__ literal.
// Fields that cannot be determined statically are left empty.
func Load(root, packageDir string) (Metadata, error) {
	var md Metadata
	found := false

	b, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	switch {
	case err == nil:
		found = true
		var pp pyproject
		if err := toml.Unmarshal(b, &pp); err != nil {
			return Metadata{}, fmt.Errorf("parse pyproject.toml: %w", err)
		}
		md.setName(pp.Project.Name, "pyproject.toml")
		md.setName(pp.Tool.Poetry.Name, "pyproject.toml")
		if !slices.Contains(pp.Project.Dynamic, "version") {
			md.setVersion(pp.Project.Version, "pyproject.toml")
		}
		md.setVersion(pp.Tool.Poetry.Version, "pyproject.toml")
	case !errors.Is(err, os.ErrNotExist):
		return Metadata{}, fmt.Errorf("read pyproject.toml: %w", err)
	}

	b, err = os.ReadFile(filepath.Join(root, "setup.py"))
	switch {
	case err == nil:
		found = true
		if m := setupName.FindSubmatch(b); m != nil {
			md.setName(string(m[1]), "setup.py")
		}
		if m := setupVersion.FindSubmatch(b); m != nil {
			md.setVersion(string(m[1]), "setup.py")
		}
	case !errors.Is(err, os.ErrNotExist):
		return Metadata{}, fmt.Errorf("read setup.py: %w", err)
	}

	if !found {
		return Metadata{}, fmt.Errorf("%w in %s", ErrNoMetadata, root)
	}

	if md.Version == "" && packageDir != "" {
		initPy := filepath.Join(root, packageDir, "__init__.py")
		if b, err := os.ReadFile(initPy); err == nil {
			if m := dunderVer.FindSubmatch(b); m != nil {
				md.setVersion(string(m[1]), filepath.ToSlash(filepath.Join(packageDir, "__init__.py")))
			}
		}
	}
	return md, nil
}

func (m *Metadata) setName(v, src string) {
	if m.Name == "" && v != "" {
		m.Name, m.NameSource = v, src
	}
}

func (m *Metadata) setVersion(v, src string) {
	if m.Version == "" && v != "" {
		m.Version, m.VersionSource = v, src
	}
}
