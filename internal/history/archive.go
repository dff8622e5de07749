package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/bimcvcovid19i/relman/internal/db"
)

// Export writes the runs of pkg (every package when empty), with their steps
// and artifacts, to a new standalone database at path. It refuses to
// overwrite an existing file and returns the number of runs written.
func (r *Repository) Export(path, pkg string) (int, error) {
	if _, err := os.Stat(path); err == nil {
		return 0, fmt.Errorf("export target already exists: %s", path)
	}
	runs, err := r.fullRuns(pkg)
	if err != nil {
		return 0, err
	}
	dst, err := db.Open(path)
	if err != nil {
		return 0, fmt.Errorf("create export db: %w", err)
	}
	defer func() { _ = dst.Close() }()
	return insertRuns(dst, runs)
}

// Import copies the runs recorded in the database at path into r. Runs whose
// ID is already present are skipped. Returns the number of runs imported.
func (r *Repository) Import(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("open import db: %w", err)
	}
	src, err := db.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open import db: %w", err)
	}
	runs, err := NewRepository(src).fullRuns("")
	_ = src.Close()
	if err != nil {
		return 0, err
	}
	return insertRuns(r.db, runs)
}

// fullRuns loads runs with their steps and artifacts, oldest first.
func (r *Repository) fullRuns(pkg string) ([]Run, error) {
	runs, err := r.ListRuns(pkg, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		if run.Steps, err = r.listSteps(run.ID); err != nil {
			return nil, err
		}
		if run.Artifacts, err = r.listArtifacts(run.ID); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func insertRuns(dst *sql.DB, runs []Run) (int, error) {
	trx, err := dst.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = trx.Rollback() }()

	n := 0
	for _, run := range runs {
		var exists int
		err := trx.QueryRow("SELECT 1 FROM runs WHERE id = ?", run.ID).Scan(&exists)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return 0, err
		}
		if _, err := trx.Exec(`INSERT INTO runs
			(id, package, version, repository, status, dry_run, releaser_name, releaser_email, started_at, finished_at, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Package, run.Version, run.Repository, run.Status, run.DryRun,
			run.ReleaserName, run.ReleaserEmail, run.StartedAt, run.FinishedAt, run.Error); err != nil {
			return 0, fmt.Errorf("insert run %s: %w", run.ID, err)
		}
		for _, s := range run.Steps {
			if _, err := trx.Exec(`INSERT INTO run_steps (run_id, position, name, status, duration_ms, error)
				VALUES (?, ?, ?, ?, ?, ?)`, run.ID, s.Position, s.Name, s.Status, s.Duration.Milliseconds(), s.Error); err != nil {
				return 0, fmt.Errorf("insert step: %w", err)
			}
		}
		for _, a := range run.Artifacts {
			if _, err := trx.Exec(`INSERT INTO run_artifacts (run_id, filename, kind, size, sha256, sha1)
				VALUES (?, ?, ?, ?, ?, ?)`, run.ID, a.Filename, a.Kind, a.Size, a.SHA256, a.SHA1); err != nil {
				return 0, fmt.Errorf("insert artifact: %w", err)
			}
		}
		n++
	}
	return n, trx.Commit()
}
