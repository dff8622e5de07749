package release

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/bimcvcovid19i/relman/internal/artifact"
)

// CleanStubs deletes every stub file under the package directory that does
// not match keep_stubs, and returns the removed paths. In a dry run the paths
// are reported but not deleted.
func (p *Pipeline) CleanStubs() ([]string, error) {
	stubs, err := p.leftoverStubs()
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, s := range stubs {
		if p.opts.DryRun {
			p.lggr.Debugw("dry-run: would remove stub", "path", s)
			removed = append(removed, s)
			continue
		}
		if err := os.Remove(s); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, s)
	}
	if len(removed) > 0 {
		p.lggr.Infow("removed generated stubs", "count", len(removed), "dry_run", p.opts.DryRun)
	}
	return removed, errors.Join(errs...)
}

// handWritten reports whether stub matches a keep_stubs pattern. Patterns
// are matched against the path relative to the project root.
func (p *Pipeline) handWritten(stub string) bool {
	rel, err := filepath.Rel(p.cfg.Root, stub)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range p.cfg.KeepStubs {
		if ok, _ := path.Match(filepath.ToSlash(pattern), rel); ok {
			return true
		}
	}
	return false
}

// CleanOutputs removes the distribution and build directories and any
// configured extra paths (globs relative to the project root). Paths that do
// not exist are ignored. Returns the removed paths relative to the root.
func (p *Pipeline) CleanOutputs() ([]string, error) {
	targets, err := p.outputTargets()
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, rel := range targets {
		abs := p.cfg.Path(rel)
		if _, err := os.Lstat(abs); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if p.opts.DryRun {
			p.lggr.Infow("dry-run: would remove", "path", rel)
			removed = append(removed, rel)
			continue
		}
		if err := p.removeAll(abs); err != nil {
			errs = append(errs, err)
			continue
		}
		p.lggr.Infow("removed", "path", rel)
		removed = append(removed, rel)
	}
	return removed, errors.Join(errs...)
}

// outputTargets lists dist, build and the expanded extra_clean globs,
// relative to the project root and without duplicates.
func (p *Pipeline) outputTargets() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(rel string) {
		rel = filepath.Clean(rel)
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}
	add(p.cfg.DistDir)
	add(p.cfg.BuildDir)
	for _, pattern := range p.cfg.ExtraClean {
		if filepath.IsAbs(pattern) {
			return nil, fmt.Errorf("extra_clean entries must be relative: %s", pattern)
		}
		matches, err := filepath.Glob(p.cfg.Path(pattern))
		if err != nil {
			return nil, fmt.Errorf("extra_clean %q: %w", pattern, err)
		}
		for _, m := range matches {
			rel, err := filepath.Rel(p.cfg.Root, m)
			if err != nil {
				return nil, err
			}
			add(rel)
		}
	}
	return out, nil
}

// TreeStatus describes leftovers of a release in the working tree.
type TreeStatus struct {
	Stubs     []string
	Artifacts []artifact.Artifact
	Outputs   []string
}

// Clean reports whether no stubs or outputs remain.
func (s TreeStatus) Clean() bool {
	return len(s.Stubs) == 0 && len(s.Outputs) == 0
}

// Status reports stub files under the package directory, except those
// matching keep_stubs, and any release outputs that exist.
func (p *Pipeline) Status() (TreeStatus, error) {
	var st TreeStatus
	stubs, err := p.leftoverStubs()
	if err != nil {
		return st, err
	}
	st.Stubs = stubs
	targets, err := p.outputTargets()
	if err != nil {
		return st, err
	}
	for _, rel := range targets {
		if _, err := os.Lstat(p.cfg.Path(rel)); err == nil {
			st.Outputs = append(st.Outputs, rel)
		}
	}
	arts, err := artifact.Scan(p.cfg.Path(p.cfg.DistDir))
	if err != nil {
		return st, err
	}
	st.Artifacts = arts
	return st, nil
}

// leftoverStubs lists the stubs under the package directory that do not
// match keep_stubs.
func (p *Pipeline) leftoverStubs() ([]string, error) {
	pkgDir := p.cfg.Path(p.cfg.PackageDir)
	if _, err := os.Stat(pkgDir); err != nil {
		return nil, nil
	}
	stubs, err := artifact.FindStubs(pkgDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range stubs {
		if !p.handWritten(s) {
			out = append(out, s)
		}
	}
	return out, nil
}
