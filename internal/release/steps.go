package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avast/retry-go/v4"

	"github.com/bimcvcovid19i/relman/internal/artifact"
	"github.com/bimcvcovid19i/relman/internal/executor"
	"github.com/bimcvcovid19i/relman/internal/history"
	"github.com/bimcvcovid19i/relman/internal/nameutil"
	"github.com/bimcvcovid19i/relman/internal/project"
	"github.com/bimcvcovid19i/relman/internal/security"
)

// state carries what preflight learned into the later steps.
type state struct {
	metadata project.Metadata
}

func (p *Pipeline) preflight(ctx context.Context) (*state, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := nameutil.ValidateName(p.cfg.Package); err != nil {
		return nil, err
	}
	pkgDir := p.cfg.Path(p.cfg.PackageDir)
	fi, err := os.Stat(pkgDir)
	if err != nil {
		return nil, fmt.Errorf("package directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("package directory is not a directory: %s", pkgDir)
	}

	if err := p.checkCommands(); err != nil {
		return nil, err
	}

	st := &state{}
	md, err := project.Load(p.cfg.Root, p.cfg.PackageDir)
	switch {
	case errors.Is(err, project.ErrNoMetadata):
		p.lggr.Warnw("no project metadata found; version will be taken from the built artifacts", "root", p.cfg.Root)
	case err != nil:
		return nil, err
	default:
		st.metadata = md
		p.version = md.Version
		if md.Name != "" && !nameutil.SameProject(md.Name, p.cfg.Package) {
			p.lggr.Warnw("project name differs from configured package", "project", md.Name, "package", p.cfg.Package)
		}
	}

	if err := p.checkOutputsClean(); err != nil {
		return nil, err
	}

	if err := p.checkLeftoverStubs(); err != nil {
		return nil, err
	}

	if err := p.checkNotPublished(); err != nil {
		return nil, err
	}
	return st, ctx.Err()
}

func (p *Pipeline) checkCommands() error {
	cmds := []struct{ name, cmd string }{
		{StepStubgen, p.cfg.Commands.Stubgen},
		{StepBuild, p.cfg.Commands.Build},
	}
	if !p.opts.SkipUpload {
		cmds = append(cmds, struct{ name, cmd string }{StepUpload, p.cfg.Commands.Upload})
	}
	for _, c := range cmds {
		if err := executor.ValidateCommand(executor.Sanitize(c.cmd)); err != nil {
			return fmt.Errorf("%s command: %w", c.name, err)
		}
		if p.opts.Force {
			continue
		}
		if err := security.CheckAllowed(c.cmd); err != nil {
			return fmt.Errorf("refusing to run %s command %q: %v (use --force to override)", c.name, c.cmd, err)
		}
	}
	return nil
}

// checkOutputsClean refuses to start when dist or build already hold files:
// they would be uploaded with this release and deleted by its cleanup.
func (p *Pipeline) checkOutputsClean() error {
	for _, dir := range []string{p.cfg.DistDir, p.cfg.BuildDir} {
		abs := p.cfg.Path(dir)
		entries, err := os.ReadDir(abs)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			continue
		}
		if !p.opts.CleanFirst {
			return fmt.Errorf("%w: %s contains %d entries (remove it or use --clean-first)", ErrDirtyTree, dir, len(entries))
		}
		if p.opts.DryRun {
			p.lggr.Infow("dry-run: would remove leftover outputs", "path", dir)
			continue
		}
		if err := p.removeAll(abs); err != nil {
			return err
		}
		p.lggr.Infow("removed leftover outputs", "path", dir)
	}
	return nil
}

// checkLeftoverStubs warns about stubs left by an earlier run, for example
// one kept with --keep-on-failure. Cleanup removes them with this run's stubs.
func (p *Pipeline) checkLeftoverStubs() error {
	stubs, err := p.leftoverStubs()
	if err != nil {
		return err
	}
	if len(stubs) > 0 {
		p.lggr.Warnw("stub files left by an earlier run will be removed after this run", "count", len(stubs))
	}
	return nil
}

func (p *Pipeline) checkNotPublished() error {
	if p.store == nil || p.opts.SkipUpload || p.opts.DryRun || p.opts.AllowRepublish || p.version == "" {
		return nil
	}
	published, err := p.store.PublishedVersions(p.cfg.Package, p.cfg.Repository)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	cur := project.ParseVersion(p.version)
	for _, v := range published {
		pv := project.ParseVersion(v)
		if cur.Equal(pv) {
			return fmt.Errorf("%w: %s %s to %s (bump the version or use --allow-republish)", ErrAlreadyPublished, p.cfg.Package, p.version, p.cfg.Repository)
		}
		if cmp, ok := cur.Compare(pv); ok && cmp < 0 {
			p.lggr.Warnw("releasing a version older than one already published", "version", p.version, "published", v)
		}
	}
	return nil
}

// GenerateStubs runs the stub generator.
func (p *Pipeline) GenerateStubs(ctx context.Context) error {
	return p.exec(ctx, p.render(p.cfg.Commands.Stubgen, nil))
}

// Build runs the build command and returns the artifacts it produced. In a
// dry run no artifacts are expected.
func (p *Pipeline) Build(ctx context.Context) ([]artifact.Artifact, error) {
	if err := p.exec(ctx, p.render(p.cfg.Commands.Build, nil)); err != nil {
		return nil, err
	}
	if p.opts.DryRun {
		return nil, nil
	}
	arts, err := artifact.Scan(p.cfg.Path(p.cfg.DistDir))
	if err != nil {
		return nil, err
	}
	if len(arts) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoArtifacts, p.cfg.DistDir)
	}
	for _, a := range arts {
		p.lggr.Infow("built artifact", "file", a.Name, "kind", a.Kind, "size", a.Size, "sha256", a.SHA256)
	}
	return arts, nil
}

// afterBuild reconciles the version with the built artifacts and records them.
func (p *Pipeline) afterBuild(rep *Report, st *state) error {
	if p.opts.DryRun {
		return nil
	}
	for _, a := range rep.Artifacts {
		v := a.Version()
		if v == "" {
			continue
		}
		if p.version == "" {
			p.version = v
			continue
		}
		if !project.ParseVersion(v).Equal(project.ParseVersion(p.version)) {
			p.lggr.Warnw("artifact version differs from project metadata", "file", a.Name, "artifact", v, "metadata", p.version)
		}
	}
	if p.store != nil && p.runID != "" {
		if st.metadata.Version == "" && p.version != "" {
			if err := p.store.SetVersion(p.runID, p.version); err != nil {
				p.lggr.Warnw("could not record version", "err", err)
			}
			// the version was unknown during preflight
			if err := p.checkNotPublished(); err != nil {
				return err
			}
		}
		recs := make([]history.Artifact, 0, len(rep.Artifacts))
		for _, a := range rep.Artifacts {
			recs = append(recs, history.Artifact{Filename: a.Name, Kind: string(a.Kind), Size: a.Size, SHA256: a.SHA256, SHA1: a.SHA1})
		}
		if err := p.store.RecordArtifacts(p.runID, recs); err != nil {
			p.lggr.Warnw("could not record artifacts", "err", err)
		}
	}
	return nil
}

// Upload scans the distribution directory and uploads everything in it.
func (p *Pipeline) Upload(ctx context.Context) ([]artifact.Artifact, error) {
	var arts []artifact.Artifact
	if !p.opts.DryRun {
		var err error
		arts, err = artifact.Scan(p.cfg.Path(p.cfg.DistDir))
		if err != nil {
			return nil, err
		}
	}
	return arts, p.upload(ctx, arts)
}

func (p *Pipeline) upload(ctx context.Context, arts []artifact.Artifact) error {
	if !p.opts.DryRun && len(arts) == 0 {
		return fmt.Errorf("%w in %s", ErrNoArtifacts, p.cfg.DistDir)
	}
	if p.opts.Confirm != nil && !p.opts.DryRun {
		prompt := fmt.Sprintf("Upload %d file(s) of %s %s to %s?", len(arts), p.cfg.Package, p.version, p.cfg.Repository)
		if !p.opts.Confirm(prompt) {
			return ErrUploadDeclined
		}
	}
	cmd := p.render(p.cfg.Commands.Upload, arts)
	attempts := uint(p.cfg.UploadRetries) + 1
	return retry.Do(
		func() error { return p.exec(ctx, cmd) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.lggr.Warnw("upload failed, retrying", "attempt", n+1, "of", attempts, "err", err)
		}),
	)
}

func (p *Pipeline) exec(ctx context.Context, command string) error {
	p.lggr.Infow("running", "cmd", command)
	_, _ = fmt.Fprintf(p.opts.Stdout, "-> %s\n", command)
	return p.runner.Execute(ctx, command, p.cfg.Root, p.opts.Stdout, p.opts.Stderr)
}

func (p *Pipeline) removeAll(path string) error {
	if err := security.StrictlyWithinRoot(p.cfg.Root, path); err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
