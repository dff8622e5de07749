package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the per-project configuration file name.
const ProjectFile = "relman.yaml"

// Default commands. Placeholders are expanded by the release pipeline.
const (
	DefaultStubgenCommand = "stubgen {package_dir} -o ."
	DefaultBuildCommand   = "python setup.py sdist bdist_wheel"
	DefaultUploadCommand  = "twine upload {artifacts} -r {repository}"
)

// Commands are the external tool invocations for each pipeline step.
type Commands struct {
	Stubgen string `yaml:"stubgen"`
	Build   string `yaml:"build"`
	Upload  string `yaml:"upload"`
}

// Mirror is a WebDAV share that can be fetched with `relman fetch`.
type Mirror struct {
	URL      string `yaml:"url"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
}

// Project describes how a Python package is built and published.
type Project struct {
	Root          string            `yaml:"-"`
	Package       string            `yaml:"package"`
	PackageDir    string            `yaml:"package_dir"`
	DistDir       string            `yaml:"dist_dir"`
	BuildDir      string            `yaml:"build_dir"`
	Repository    string            `yaml:"repository"`
	Commands      Commands          `yaml:"commands"`
	UploadRetries int               `yaml:"upload_retries"`
	RetryDelay    time.Duration     `yaml:"retry_delay"`
	ExtraClean    []string          `yaml:"extra_clean"`
	KeepStubs     []string          `yaml:"keep_stubs"`
	KeepOnFailure bool              `yaml:"keep_on_failure"`
	Mirrors       map[string]Mirror `yaml:"mirrors"`
}

// DefaultProject returns the configuration matching the original release
// script for the bimcvcovid19i package.
func DefaultProject(root string) Project {
	return Project{
		Root:       root,
		Package:    "bimcvcovid19i",
		DistDir:    "dist",
		BuildDir:   "build",
		Repository: "pypi",
		Commands: Commands{
			Stubgen: DefaultStubgenCommand,
			Build:   DefaultBuildCommand,
			Upload:  DefaultUploadCommand,
		},
		RetryDelay: 5 * time.Second,
		Mirrors:    DefaultMirrors(),
	}
}

// DefaultMirrors returns the public BIMCV-COVID19+ shares.
func DefaultMirrors() map[string]Mirror {
	return map[string]Mirror{
		"positive": {
			URL:      "https://b2drop.bsc.es/public.php/webdav",
			Login:    "BIMCV-COVID19-cIter_1_2",
			Password: "maybeempty",
		},
		"negative": {
			URL:      "https://b2drop.bsc.es/public.php/webdav",
			Login:    "BIMCV-COVID19-cIter_1_2-Negative",
			Password: "maybeempty",
		},
	}
}

// LoadProject reads relman.yaml from root (when present) on top of the
// defaults and applies environment overrides.
func LoadProject(root string) (Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Project{}, err
	}
	p := DefaultProject(abs)

	b, err := os.ReadFile(filepath.Join(abs, ProjectFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Project{}, fmt.Errorf("parse %s: %w", ProjectFile, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Project{}, fmt.Errorf("read %s: %w", ProjectFile, err)
	}

	e, err := LoadEnv()
	if err != nil {
		return Project{}, err
	}
	p.ApplyEnv(e)
	p.fillDefaults()
	return p, p.Validate()
}

// ApplyEnv overrides fields that are set in the environment.
func (p *Project) ApplyEnv(e Env) {
	if e.Package != "" {
		p.Package = e.Package
	}
	if e.Repository != "" {
		p.Repository = e.Repository
	}
	if e.UploadRetries >= 0 {
		p.UploadRetries = e.UploadRetries
	}
}

// SetPackage changes the package name. The package directory follows the
// name only when it was defaulted from the old name, so a configured
// package_dir such as src/<name> is kept.
func (p *Project) SetPackage(name string) {
	if p.PackageDir == "" || p.PackageDir == p.Package {
		p.PackageDir = name
	}
	p.Package = name
}

func (p *Project) fillDefaults() {
	if p.PackageDir == "" {
		p.PackageDir = p.Package
	}
	d := DefaultProject(p.Root)
	if p.DistDir == "" {
		p.DistDir = d.DistDir
	}
	if p.BuildDir == "" {
		p.BuildDir = d.BuildDir
	}
	if p.Commands.Stubgen == "" {
		p.Commands.Stubgen = d.Commands.Stubgen
	}
	if p.Commands.Build == "" {
		p.Commands.Build = d.Commands.Build
	}
	if p.Commands.Upload == "" {
		p.Commands.Upload = d.Commands.Upload
	}
	if p.Mirrors == nil {
		p.Mirrors = d.Mirrors
	}
}

// Validate reports configuration that cannot produce a sane release.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Package) == "" {
		return errors.New("invalid config: package cannot be empty")
	}
	if strings.TrimSpace(p.Repository) == "" {
		return errors.New("invalid config: repository cannot be empty")
	}
	if p.UploadRetries < 0 {
		return fmt.Errorf("invalid config: upload_retries must be >= 0, got %d", p.UploadRetries)
	}
	for name, dir := range map[string]string{"package_dir": p.PackageDir, "dist_dir": p.DistDir, "build_dir": p.BuildDir} {
		if filepath.IsAbs(dir) {
			return fmt.Errorf("invalid config: %s must be relative to the project root: %s", name, dir)
		}
		if clean := filepath.Clean(dir); clean == "." || strings.HasPrefix(clean, "..") {
			return fmt.Errorf("invalid config: %s must be inside the project root: %s", name, dir)
		}
	}
	return nil
}

// Path resolves rel against the project root.
func (p Project) Path(rel string) string {
	return filepath.Join(p.Root, rel)
}

// Save writes the project configuration to root/relman.yaml.
func (p Project) Save() error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ProjectFile, err)
	}
	return os.WriteFile(filepath.Join(p.Root, ProjectFile), b, 0o644)
}
