package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectDefaults(t *testing.T) {
	root := t.TempDir()

	p, err := LoadProject(root)
	require.NoError(t, err)

	assert.Equal(t, "bimcvcovid19i", p.Package)
	assert.Equal(t, "bimcvcovid19i", p.PackageDir)
	assert.Equal(t, "dist", p.DistDir)
	assert.Equal(t, "build", p.BuildDir)
	assert.Equal(t, "pypi", p.Repository)
	assert.Equal(t, DefaultUploadCommand, p.Commands.Upload)
	assert.Contains(t, p.Mirrors, "positive")
	assert.Contains(t, p.Mirrors, "negative")
}

func TestLoadProjectFromYAML(t *testing.T) {
	root := t.TempDir()
	yml := `package: mypkg
package_dir: src/mypkg
repository: testpypi
upload_retries: 2
retry_delay: 250ms
extra_clean:
  - mypkg.egg-info
commands:
  build: python -m build
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFile), []byte(yml), 0o644))

	p, err := LoadProject(root)
	require.NoError(t, err)

	assert.Equal(t, "mypkg", p.Package)
	assert.Equal(t, "src/mypkg", p.PackageDir)
	assert.Equal(t, "testpypi", p.Repository)
	assert.Equal(t, 2, p.UploadRetries)
	assert.Equal(t, 250*time.Millisecond, p.RetryDelay)
	assert.Equal(t, []string{"mypkg.egg-info"}, p.ExtraClean)
	assert.Equal(t, "python -m build", p.Commands.Build)
	// unset commands keep their defaults
	assert.Equal(t, DefaultStubgenCommand, p.Commands.Stubgen)
}

func TestSetPackageKeepsConfiguredDir(t *testing.T) {
	p := DefaultProject(t.TempDir())
	p.fillDefaults()
	p.SetPackage("other")
	assert.Equal(t, "other", p.Package)
	assert.Equal(t, "other", p.PackageDir)

	p.PackageDir = "src/other"
	p.SetPackage("third")
	assert.Equal(t, "third", p.Package)
	assert.Equal(t, "src/other", p.PackageDir)
}

func TestLoadProjectEnvOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("RELMAN_REPOSITORY", "internal")
	t.Setenv("RELMAN_UPLOAD_RETRIES", "3")

	p, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "internal", p.Repository)
	assert.Equal(t, 3, p.UploadRetries)
}

func TestValidateRejectsEscapingDirs(t *testing.T) {
	for _, dir := range []string{"..", "../dist", "/tmp/dist", "."} {
		p := DefaultProject(t.TempDir())
		p.PackageDir = "pkg"
		p.DistDir = dir
		assert.Error(t, p.Validate(), "dist_dir %q should be rejected", dir)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	p := DefaultProject(root)
	p.PackageDir = "bimcvcovid19i"
	p.Repository = "testpypi"
	require.NoError(t, p.Save())

	loaded, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "testpypi", loaded.Repository)
	assert.Equal(t, p.RetryDelay, loaded.RetryDelay)
}
