package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimcvcovid19i/relman/internal/config"
	"github.com/bimcvcovid19i/relman/internal/logger/loggertest"
)

// sha1 of "hello\n" and "world\n"
const (
	helloSHA1 = "f572d396fae9206628714fb2ce00f72e94f2258f"
	worldSHA1 = "9591818c07e900db7e1e0bc4b884c945e6a61b24"
)

type fileInfo struct {
	name string
	size int64
	dir  bool
}

func (f fileInfo) Name() string { return f.name }
func (f fileInfo) Size() int64 { return f.size }
func (f fileInfo) Mode() fs.FileMode { return 0o644 }
func (f fileInfo) ModTime() time.Time { return time.Time{} }
func (f fileInfo) IsDir() bool { return f.dir }
func (f fileInfo) Sys() any { return nil }

type fakeRemote struct {
	files  map[string]string
	dirs   []string
	fail   map[string]int // name -> remaining failures
	reads  map[string]int
	listed error
}

func newFakeRemote(files map[string]string) *fakeRemote {
	return &fakeRemote{files: files, fail: map[string]int{}, reads: map[string]int{}}
}

func (r *fakeRemote) ReadDir(string) ([]os.FileInfo, error) {
	if r.listed != nil {
		return nil, r.listed
	}
	var out []os.FileInfo
	for name, content := range r.files {
		out = append(out, fileInfo{name: name, size: int64(len(content))})
	}
	for _, d := range r.dirs {
		out = append(out, fileInfo{name: d, dir: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (r *fakeRemote) ReadStream(name string) (io.ReadCloser, error) {
	r.reads[name]++
	if r.fail[name] > 0 {
		r.fail[name]--
		return nil, errors.New("503 Service Unavailable")
	}
	content, ok := r.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewBufferString(content)), nil
}

func newDownloader(t *testing.T, r Remote) *Downloader {
	d := New(r, loggertest.New(t))
	d.RetryDelay = time.Millisecond
	return d
}

func TestDownloadFileFresh(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "hello\n"})
	d := newDownloader(t, r)
	local := filepath.Join(t.TempDir(), "a.txt")

	ok, err := d.DownloadFile(context.Background(), "a.txt", local, helloSHA1)
	require.NoError(t, err)
	assert.True(t, ok)
	b, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
	assert.NoFileExists(t, local+".old")
}

func TestDownloadFileSkipsExisting(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "hello\n"})
	d := newDownloader(t, r)
	local := filepath.Join(t.TempDir(), "a.txt")

	// no checksum: anything already there is kept
	require.NoError(t, os.WriteFile(local, []byte("local copy"), 0o644))
	ok, err := d.DownloadFile(context.Background(), "a.txt", local, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, r.reads["a.txt"])

	// matching checksum: kept
	require.NoError(t, os.WriteFile(local, []byte("hello\n"), 0o644))
	ok, err = d.DownloadFile(context.Background(), "a.txt", local, helloSHA1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, r.reads["a.txt"])
}

func TestDownloadFileReplacesStaleCopy(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "hello\n"})
	d := newDownloader(t, r)
	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("stale"), 0o644))

	ok, err := d.DownloadFile(context.Background(), "a.txt", local, helloSHA1)
	require.NoError(t, err)
	assert.True(t, ok)
	b, _ := os.ReadFile(local)
	assert.Equal(t, "hello\n", string(b))
	assert.NoFileExists(t, local+".old")
}

func TestDownloadFileRestoresBackupOnFailure(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "hello\n"})
	r.fail["a.txt"] = 1
	d := newDownloader(t, r)
	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("stale"), 0o644))

	ok, err := d.DownloadFile(context.Background(), "a.txt", local, helloSHA1)
	require.Error(t, err)
	assert.False(t, ok)
	b, _ := os.ReadFile(local)
	assert.Equal(t, "stale", string(b))
	assert.NoFileExists(t, local+".old")
}

func TestDownloadFileRetries(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "hello\n"})
	r.fail["a.txt"] = 2
	d := newDownloader(t, r)
	d.Retries = 2
	local := filepath.Join(t.TempDir(), "a.txt")

	ok, err := d.DownloadFile(context.Background(), "a.txt", local, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, r.reads["a.txt"])
}

func TestDownloadFileMismatchIsNotAnError(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "tampered\n"})
	d := newDownloader(t, r)
	local := filepath.Join(t.TempDir(), "a.txt")

	ok, err := d.DownloadFile(context.Background(), "a.txt", local, helloSHA1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.FileExists(t, local)
}

func TestDownloadAll(t *testing.T) {
	r := newFakeRemote(map[string]string{
		"sha1sums.txt": helloSHA1 + "  a.txt\n" + worldSHA1 + "  b.txt\n" + helloSHA1 + "  gone.txt\n",
		"a.txt":        "hello\n",
		"b.txt":        "corrupt\n",
		"c.txt":        "unlisted\n",
		"webdav":       "",
	})
	r.dirs = []string{"subdir"}
	root := t.TempDir()

	sum, err := newDownloader(t, r).DownloadAll(context.Background(), root)
	require.NoError(t, err)

	dir := filepath.Join(root, SubDir)
	assert.Equal(t, dir, sum.Dir)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, sum.Downloaded)
	assert.Equal(t, []string{"b.txt"}, sum.Mismatched)
	assert.Equal(t, []string{"gone.txt"}, sum.NotDownloaded)
	assert.FileExists(t, filepath.Join(dir, "sha1sums.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "webdav"))
	assert.Zero(t, r.reads["webdav"])
	assert.Equal(t, int64(len("hello\n")+len("corrupt\n")+len("unlisted\n")), sum.Bytes)

	// a second pass only re-fetches the file that did not verify
	r.reads = map[string]int{}
	_, err = newDownloader(t, r).DownloadAll(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, r.reads["a.txt"])
	assert.Zero(t, r.reads["c.txt"])
	assert.Equal(t, 1, r.reads["b.txt"])
}

func TestDownloadAllCollectsErrors(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "hello\n", "b.txt": "world\n"})
	r.fail["a.txt"] = 5
	root := t.TempDir()

	sum, err := newDownloader(t, r).DownloadAll(context.Background(), root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.txt")
	assert.Equal(t, []string{"b.txt"}, sum.Downloaded)
}

func TestDownloadAllListError(t *testing.T) {
	r := newFakeRemote(nil)
	r.listed = errors.New("401 Unauthorized")
	_, err := newDownloader(t, r).DownloadAll(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list share")
}

func TestDownloadAllCancelled(t *testing.T) {
	r := newFakeRemote(map[string]string{"a.txt": "hello\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newDownloader(t, r).DownloadAll(ctx, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.reads["a.txt"])
}

func TestNewRemote(t *testing.T) {
	c := NewRemote(config.DefaultMirrors()["positive"])
	require.NotNil(t, c)
	var _ Remote = c
}
