// Package history records release runs in the relman database.
package history

import (
	"database/sql"
	"time"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusDryRun    = "dry-run"
)

// UploadStep is the step name whose success marks a run's version as
// published.
const UploadStep = "upload"

// StepOK is the status of a step that completed.
const StepOK = "ok"

// Run is one execution of the release pipeline.
type Run struct {
	ID            string
	Package       string
	Version       sql.NullString
	Repository    string
	Status        string
	DryRun        bool
	ReleaserName  sql.NullString
	ReleaserEmail sql.NullString
	StartedAt     string
	FinishedAt    sql.NullString
	Error         sql.NullString
	Steps         []Step
	Artifacts     []Artifact
}

// Step is the recorded outcome of one pipeline step.
type Step struct {
	ID       int64
	RunID    string
	Position int
	Name     string
	Status   string
	Duration time.Duration
	Error    sql.NullString
}

// Artifact is a distribution file produced by a run.
type Artifact struct {
	ID       int64
	RunID    string
	Filename string
	Kind     string
	Size     int64
	SHA256   string
	SHA1     string
}
