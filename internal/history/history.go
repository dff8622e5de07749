package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository provides access to recorded release runs.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository using db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the underlying DB connection used by the Repository.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// NewRun describes a run about to start.
type NewRun struct {
	Package       string
	Version       string
	Repository    string
	DryRun        bool
	ReleaserName  string
	ReleaserEmail string
}

// CreateRun inserts a run in the running state and returns its ID.
func (r *Repository) CreateRun(n NewRun) (string, error) {
	if strings.TrimSpace(n.Package) == "" {
		return "", errors.New("invalid run: package cannot be empty")
	}
	if strings.TrimSpace(n.Repository) == "" {
		return "", errors.New("invalid run: repository cannot be empty")
	}
	id := uuid.NewString()
	_, err := r.db.Exec(`INSERT INTO runs
		(id, package, version, repository, status, dry_run, releaser_name, releaser_email, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`,
		id, n.Package, nullString(n.Version), n.Repository, StatusRunning, n.DryRun,
		nullString(n.ReleaserName), nullString(n.ReleaserEmail))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordStep appends a step outcome to the run.
func (r *Repository) RecordStep(s Step) error {
	_, err := r.db.Exec(`INSERT INTO run_steps (run_id, position, name, status, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?)`, s.RunID, s.Position, s.Name, s.Status, s.Duration.Milliseconds(), s.Error)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// RecordArtifacts stores the artifacts produced by a run in one transaction.
func (r *Repository) RecordArtifacts(runID string, artifacts []Artifact) error {
	trx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = trx.Rollback() }()
	for _, a := range artifacts {
		if _, err := trx.Exec(`INSERT INTO run_artifacts (run_id, filename, kind, size, sha256, sha1)
			VALUES (?, ?, ?, ?, ?, ?)`, runID, a.Filename, a.Kind, a.Size, a.SHA256, a.SHA1); err != nil {
			return fmt.Errorf("insert artifact: %w", err)
		}
	}
	return trx.Commit()
}

// SetVersion updates the run's version, e.g. once it is known from the built wheel.
func (r *Repository) SetVersion(runID, version string) error {
	_, err := r.db.Exec("UPDATE runs SET version = ? WHERE id = ?", nullString(version), runID)
	return err
}

// FinishRun marks the run with its final status. A nil runErr clears the error column.
func (r *Repository) FinishRun(runID, status string, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := r.db.Exec(`UPDATE runs SET status = ?, error = ?, finished_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?`, status, errText, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

const runColumns = `id, package, version, repository, status, dry_run, releaser_name, releaser_email, started_at, finished_at, error`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Package, &run.Version, &run.Repository, &run.Status, &run.DryRun,
		&run.ReleaserName, &run.ReleaserEmail, &run.StartedAt, &run.FinishedAt, &run.Error)
	return run, err
}

// GetRun returns a run with its steps and artifacts, or nil when not found.
// id may be a unique prefix of the run ID.
func (r *Repository) GetRun(id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id cannot be empty")
	}
	rows, err := r.db.Query("SELECT "+runColumns+" FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2", id, id)
	if err != nil {
		return nil, err
	}
	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
	run := matches[0]
	if run.Steps, err = r.listSteps(run.ID); err != nil {
		return nil, err
	}
	if run.Artifacts, err = r.listArtifacts(run.ID); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) listSteps(runID string) ([]Step, error) {
	rows, err := r.db.Query(`SELECT id, run_id, position, name, status, duration_ms, error
		FROM run_steps WHERE run_id = ? ORDER BY position ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Step
	for rows.Next() {
		var s Step
		var ms int64
		if err := rows.Scan(&s.ID, &s.RunID, &s.Position, &s.Name, &s.Status, &ms, &s.Error); err != nil {
			return nil, err
		}
		s.Duration = msDuration(ms)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) listArtifacts(runID string) ([]Artifact, error) {
	rows, err := r.db.Query(`SELECT id, run_id, filename, kind, size, sha256, sha1
		FROM run_artifacts WHERE run_id = ? ORDER BY filename ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.RunID, &a.Filename, &a.Kind, &a.Size, &a.SHA256, &a.SHA1); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListRuns returns runs newest first, without steps or artifacts. An empty
// pkg lists every package; limit <= 0 means no limit.
func (r *Repository) ListRuns(pkg string, limit int) ([]Run, error) {
	q := "SELECT " + runColumns + " FROM runs"
	var args []any
	if pkg != "" {
		q += " WHERE package = ?"
		args = append(args, pkg)
	}
	q += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// PublishedVersions returns the versions of pkg that were successfully
// uploaded to repository, newest first. A run counts only when it succeeded
// and its upload step completed, so build-only runs are not published.
func (r *Repository) PublishedVersions(pkg, repository string) ([]string, error) {
	rows, err := r.db.Query(`SELECT version FROM runs
		WHERE package = ? AND repository = ? AND status = ? AND dry_run = 0 AND version IS NOT NULL
		AND EXISTS (SELECT 1 FROM run_steps s WHERE s.run_id = runs.id AND s.name = ? AND s.status = ?)
		ORDER BY started_at DESC, rowid DESC`, pkg, repository, StatusSucceeded, UploadStep, StepOK)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LastPublished returns the most recent successfully uploaded version of pkg
// to repository, or "" when there is none.
func (r *Repository) LastPublished(pkg, repository string) (string, error) {
	vers, err := r.PublishedVersions(pkg, repository)
	if err != nil || len(vers) == 0 {
		return "", err
	}
	return vers[0], nil
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
