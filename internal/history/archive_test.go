package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRun(t *testing.T, r *Repository, pkg, version string) string {
	t.Helper()
	id, err := r.CreateRun(NewRun{Package: pkg, Version: version, Repository: "pypi", ReleaserEmail: "ci@example.com"})
	require.NoError(t, err)
	require.NoError(t, r.RecordStep(Step{RunID: id, Position: 1, Name: "build", Status: "ok", Duration: 2 * time.Second}))
	require.NoError(t, r.RecordStep(Step{RunID: id, Position: 2, Name: UploadStep, Status: StepOK}))
	require.NoError(t, r.RecordArtifacts(id, []Artifact{
		{Filename: pkg + "-" + version + ".tar.gz", Kind: "sdist", Size: 42, SHA256: "aa", SHA1: "bb"},
	}))
	require.NoError(t, r.FinishRun(id, StatusSucceeded, nil))
	return id
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newRepo(t)
	first := seedRun(t, src, "bimcvcovid19i", "0.1.0")
	seedRun(t, src, "otherpkg", "1.0.0")
	second := seedRun(t, src, "bimcvcovid19i", "0.1.1")

	path := filepath.Join(t.TempDir(), "export.db")
	n, err := src.Export(path, "bimcvcovid19i")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = src.Export(path, "")
	assert.ErrorContains(t, err, "already exists")

	dst := newRepo(t)
	n, err = dst.Import(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	runs, err := dst.ListRuns("", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	run, err := dst.GetRun(first)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "ci@example.com", run.ReleaserEmail.String)
	require.Len(t, run.Steps, 2)
	assert.Equal(t, 2*time.Second, run.Steps[0].Duration)
	require.Len(t, run.Artifacts, 1)
	assert.Equal(t, int64(42), run.Artifacts[0].Size)

	published, err := dst.PublishedVersions("bimcvcovid19i", "pypi")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.1.1", "0.1.0"}, published)

	// importing again adds nothing
	n, err = dst.Import(path)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportMissingFile(t *testing.T) {
	r := newRepo(t)
	_, err := r.Import(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
