package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestLoadSetupPy(t *testing.T) {
	root := t.TempDir()
	write(t, root, "setup.py", `from setuptools import setup, find_packages

setup(
    name="bimcvcovid19i",
    version='0.0.3',
    packages=find_packages(),
)
`)
	md, err := Load(root, "bimcvcovid19i")
	require.NoError(t, err)
	assert.Equal(t, "bimcvcovid19i", md.Name)
	assert.Equal(t, "0.0.3", md.Version)
	assert.Equal(t, "setup.py", md.VersionSource)
}

func TestLoadPyprojectTakesPrecedence(t *testing.T) {
	root := t.TempDir()
	write(t, root, "pyproject.toml", `[project]
name = "bimcvcovid19i"
version = "1.2.0"
`)
	write(t, root, "setup.py", `setup(name="other", version="9.9.9")`)

	md, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "bimcvcovid19i", md.Name)
	assert.Equal(t, "1.2.0", md.Version)
	assert.Equal(t, "pyproject.toml", md.NameSource)
}

func TestLoadDynamicVersionFallsBackToInit(t *testing.T) {
	root := t.TempDir()
	write(t, root, "pyproject.toml", `[project]
name = "bimcvcovid19i"
version = "ignored"
dynamic = ["version"]
`)
	write(t, root, "bimcvcovid19i/__init__.py", "from .data import *\n__version__ = \"0.4.0\"\n")

	md, err := Load(root, "bimcvcovid19i")
	require.NoError(t, err)
	assert.Equal(t, "0.4.0", md.Version)
	assert.Equal(t, "bimcvcovid19i/__init__.py", md.VersionSource)
}

func TestLoadPoetry(t *testing.T) {
	root := t.TempDir()
	write(t, root, "pyproject.toml", `[tool.poetry]
name = "poetic"
version = "0.1.0"
`)
	md, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "poetic", md.Name)
	assert.Equal(t, "0.1.0", md.Version)
}

func TestLoadNoMetadata(t *testing.T) {
	_, err := Load(t.TempDir(), "pkg")
	assert.True(t, errors.Is(err, ErrNoMetadata))
}

func TestLoadBadToml(t *testing.T) {
	root := t.TempDir()
	write(t, root, "pyproject.toml", "[project\nname=")
	_, err := Load(root, "")
	assert.Error(t, err)
}

func TestVersionCompare(t *testing.T) {
	assert.True(t, ParseVersion("1.0").Equal(ParseVersion("1.0.0")))
	assert.True(t, ParseVersion("1.0.0rc1").Equal(ParseVersion("1.0.0RC1")))
	assert.False(t, ParseVersion("1.0.0rc1").Semantic())

	cmp, ok := ParseVersion("0.2.0").Compare(ParseVersion("0.10.0"))
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	_, ok = ParseVersion("0.2.0").Compare(ParseVersion("dev-build"))
	assert.False(t, ok)
}
