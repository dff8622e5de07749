// Package release implements the release pipeline: generate type stubs,
// build an sdist and a wheel, upload them, then remove the generated stubs
// and the build outputs.
//
// Cleanup runs after the upload whether or not it succeeded, so a failed
// release leaves the tree as it found it. Set Options.KeepOnFailure to keep
// the outputs of a failed run for inspection.
package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bimcvcovid19i/relman/internal/artifact"
	"github.com/bimcvcovid19i/relman/internal/config"
	"github.com/bimcvcovid19i/relman/internal/executor"
	"github.com/bimcvcovid19i/relman/internal/history"
	"github.com/bimcvcovid19i/relman/internal/logger"
	"github.com/bimcvcovid19i/relman/internal/telemetry"
	"github.com/bimcvcovid19i/relman/internal/user"
)

// Step names, in execution order.
const (
	StepPreflight    = "preflight"
	StepStubgen      = "stubgen"
	StepBuild        = "build"
	StepUpload       = history.UploadStep
	StepCleanStubs   = "clean-stubs"
	StepCleanOutputs = "clean-outputs"
)

// Step outcomes.
const (
	StepOK      = history.StepOK
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// cleanupTimeout bounds cleanup after the run context was cancelled.
const cleanupTimeout = time.Minute

// Store records runs. *history.Repository implements it.
type Store interface {
	CreateRun(n history.NewRun) (string, error)
	RecordStep(s history.Step) error
	RecordArtifacts(runID string, artifacts []history.Artifact) error
	SetVersion(runID, version string) error
	FinishRun(runID, status string, runErr error) error
	PublishedVersions(pkg, repository string) ([]string, error)
}

// Options control a single run.
type Options struct {
	DryRun         bool
	SkipUpload     bool
	KeepOnFailure  bool
	CleanFirst     bool
	AllowRepublish bool
	Force          bool
	// Confirm, when set, is asked before uploading; false aborts the upload.
	Confirm func(prompt string) bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// Pipeline runs release steps for one project.
type Pipeline struct {
	cfg      config.Project
	runner   executor.Runner
	opts     Options
	store    Store
	lggr     *zap.SugaredLogger
	releaser user.Profile
	tracer   trace.Tracer

	version string
	runID   string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore records runs in s.
func WithStore(s Store) Option { return func(p *Pipeline) { p.store = s } }

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option { return func(p *Pipeline) { p.lggr = l } }

// WithReleaser records who ran the release.
func WithReleaser(u user.Profile) Option { return func(p *Pipeline) { p.releaser = u } }

// New returns a pipeline for cfg that runs commands through runner.
func New(cfg config.Project, runner executor.Runner, opts Options, with ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		runner: runner,
		opts:   opts,
		lggr:   logger.Nop(),
		tracer: telemetry.Tracer("release"),
	}
	for _, w := range with {
		w(p)
	}
	p.lggr = p.lggr.Named("release")
	if p.opts.Stdout == nil {
		p.opts.Stdout = io.Discard
	}
	if p.opts.Stderr == nil {
		p.opts.Stderr = io.Discard
	}
	return p
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Status   string
	Duration time.Duration
	Err      error
}

// Report summarises a run.
type Report struct {
	RunID        string
	Package      string
	Version      string
	Repository   string
	DryRun       bool
	Status       string
	Steps        []StepResult
	Artifacts    []artifact.Artifact
	RemovedStubs []string
	RemovedPaths []string
}

// Step returns the named step result, or nil if the step never ran.
func (r *Report) Step(name string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Run performs the full release. The returned error joins the first failing
// step's error with any cleanup error; the report is always non-nil.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	ctx, span := p.tracer.Start(ctx, "release.run", trace.WithAttributes(
		attribute.String("relman.package", p.cfg.Package),
		attribute.String("relman.repository", p.cfg.Repository),
		attribute.Bool("relman.dry_run", p.opts.DryRun),
	))
	defer span.End()

	rep := &Report{
		Package:    p.cfg.Package,
		Repository: p.cfg.Repository,
		DryRun:     p.opts.DryRun,
	}

	var st *state
	preErr := p.step(ctx, rep, StepPreflight, func(ctx context.Context) error {
		var err error
		st, err = p.preflight(ctx)
		return err
	})
	if err := p.startRun(rep); err != nil {
		// history is best effort
		p.lggr.Warnw("could not record run", "err", err)
	}
	if preErr != nil {
		// nothing was produced yet, so there is nothing to clean
		p.skip(rep, StepStubgen, StepBuild, StepUpload, StepCleanStubs, StepCleanOutputs)
		return p.finish(ctx, rep, preErr, span)
	}

	runErr := p.produce(ctx, rep, st)

	var cleanErr error
	if runErr != nil && p.opts.KeepOnFailure {
		p.lggr.Warnw("keeping release outputs after failure", "dist", p.cfg.DistDir, "build", p.cfg.BuildDir)
		p.skip(rep, StepCleanStubs, StepCleanOutputs)
	} else {
		cleanErr = p.cleanup(ctx, rep)
	}
	return p.finish(ctx, rep, errors.Join(runErr, cleanErr), span)
}

// produce runs stubgen, build and upload, stopping at the first failure.
func (p *Pipeline) produce(ctx context.Context, rep *Report, st *state) error {
	if err := p.step(ctx, rep, StepStubgen, p.GenerateStubs); err != nil {
		p.skip(rep, StepBuild, StepUpload)
		return err
	}
	err := p.step(ctx, rep, StepBuild, func(ctx context.Context) error {
		arts, err := p.Build(ctx)
		rep.Artifacts = arts
		if err != nil {
			return err
		}
		return p.afterBuild(rep, st)
	})
	if err != nil {
		p.skip(rep, StepUpload)
		return err
	}
	if p.opts.SkipUpload {
		p.skip(rep, StepUpload)
		return nil
	}
	return p.step(ctx, rep, StepUpload, func(ctx context.Context) error {
		return p.upload(ctx, rep.Artifacts)
	})
}

// cleanup always runs both cleanup steps, on a context that survives
// cancellation of the run.
func (p *Pipeline) cleanup(ctx context.Context, rep *Report) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	stubErr := p.step(cctx, rep, StepCleanStubs, func(context.Context) error {
		removed, err := p.CleanStubs()
		rep.RemovedStubs = removed
		return err
	})
	outErr := p.step(cctx, rep, StepCleanOutputs, func(context.Context) error {
		removed, err := p.CleanOutputs()
		rep.RemovedPaths = removed
		return err
	})
	return errors.Join(stubErr, outErr)
}

// step runs fn as a named, traced, timed and recorded step.
func (p *Pipeline) step(ctx context.Context, rep *Report, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "release."+name)
	defer span.End()

	p.lggr.Infow("step started", "step", name)
	start := time.Now()
	err := fn(ctx)
	res := StepResult{Name: name, Status: StepOK, Duration: time.Since(start), Err: err}
	if err != nil {
		res.Status = StepFailed
		err = fmt.Errorf("%s: %w", name, err)
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.lggr.Errorw("step failed", "step", name, "duration", res.Duration, "err", err)
	} else {
		p.lggr.Infow("step finished", "step", name, "duration", res.Duration)
	}
	p.record(rep, res)
	return err
}

func (p *Pipeline) skip(rep *Report, names ...string) {
	for _, n := range names {
		p.lggr.Debugw("step skipped", "step", n)
		p.record(rep, StepResult{Name: n, Status: StepSkipped})
	}
}

func (p *Pipeline) record(rep *Report, res StepResult) {
	rep.Steps = append(rep.Steps, res)
	if p.store == nil || p.runID == "" {
		return
	}
	hs := history.Step{
		RunID:    p.runID,
		Position: len(rep.Steps),
		Name:     res.Name,
		Status:   res.Status,
		Duration: res.Duration,
	}
	if res.Err != nil {
		hs.Error.String, hs.Error.Valid = res.Err.Error(), true
	}
	if err := p.store.RecordStep(hs); err != nil {
		p.lggr.Warnw("could not record step", "step", res.Name, "err", err)
	}
}

// startRun creates the history record and back-fills the preflight step,
// which ran before the run ID existed.
func (p *Pipeline) startRun(rep *Report) error {
	if p.store == nil {
		return nil
	}
	id, err := p.store.CreateRun(history.NewRun{
		Package:       p.cfg.Package,
		Version:       p.version,
		Repository:    p.cfg.Repository,
		DryRun:        p.opts.DryRun,
		ReleaserName:  p.releaser.Name,
		ReleaserEmail: p.releaser.Email,
	})
	if err != nil {
		return err
	}
	p.runID = id
	rep.RunID = id
	steps := rep.Steps
	rep.Steps = nil
	for _, s := range steps {
		p.record(rep, s)
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, rep *Report, err error, span trace.Span) (*Report, error) {
	rep.Version = p.version
	switch {
	case err != nil:
		rep.Status = history.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case p.opts.DryRun:
		rep.Status = history.StatusDryRun
	default:
		rep.Status = history.StatusSucceeded
	}
	span.SetAttributes(attribute.String("relman.version", p.version), attribute.String("relman.status", rep.Status))

	if p.store != nil && p.runID != "" {
		if ferr := p.store.FinishRun(p.runID, rep.Status, err); ferr != nil {
			p.lggr.Warnw("could not record run result", "run", p.runID, "err", ferr)
		}
	}
	if ctx.Err() != nil && err == nil {
		err = ctx.Err()
	}
	p.lggr.Infow("release finished", "run", rep.RunID, "package", rep.Package, "version", rep.Version, "status", rep.Status)
	return rep, err
}
