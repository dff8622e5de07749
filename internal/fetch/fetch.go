// Package fetch downloads the files of a WebDAV share, such as the public
// BIMCV-COVID19+ mirrors, and checks them against the share's sha1sums.txt.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dustin/go-humanize"
	"github.com/studio-b12/gowebdav"
	"go.uber.org/zap"

	"github.com/bimcvcovid19i/relman/internal/checksum"
	"github.com/bimcvcovid19i/relman/internal/config"
	"github.com/bimcvcovid19i/relman/internal/logger"
	"github.com/bimcvcovid19i/relman/internal/security"
)

// SubDir is the directory under the download root that receives the files.
const SubDir = "original"

// skipName is the share's self-referencing entry.
const skipName = "webdav"

const (
	defaultTimeout    = 10 * time.Minute
	defaultRetryDelay = 2 * time.Second
)

// Remote is the subset of a WebDAV client the downloader needs.
// *gowebdav.Client implements it.
type Remote interface {
	ReadDir(path string) ([]os.FileInfo, error)
	ReadStream(path string) (io.ReadCloser, error)
}

// NewRemote returns a WebDAV client for the mirror.
func NewRemote(m config.Mirror) *gowebdav.Client {
	c := gowebdav.NewClient(m.URL, m.Login, m.Password)
	c.SetTimeout(defaultTimeout)
	return c
}

// Downloader copies files from a Remote to the local disk.
type Downloader struct {
	Remote Remote
	Logger *zap.SugaredLogger
	// Retries is the number of extra attempts per file.
	Retries    uint
	RetryDelay time.Duration
}

// New returns a Downloader for remote.
func New(remote Remote, lggr *zap.SugaredLogger) *Downloader {
	if lggr == nil {
		lggr = logger.Nop()
	}
	return &Downloader{Remote: remote, Logger: lggr.Named("fetch"), RetryDelay: defaultRetryDelay}
}

// DownloadFile fetches name into local. An existing local file is kept when
// no checksum is given or when it already matches sha1. Otherwise it is moved
// aside to local+".old" and restored if the download fails. It reports false
// when the downloaded file does not match sha1; that is not an error.
func (d *Downloader) DownloadFile(ctx context.Context, name, local, sha1 string) (bool, error) {
	backup := local + ".old"
	_, statErr := os.Stat(local)
	exists := statErr == nil
	if exists {
		if sha1 == "" {
			d.Logger.Debugw("already present", "file", name)
			return true, nil
		}
		got, err := checksum.SHA1File(local)
		if err != nil {
			return false, err
		}
		if got == sha1 {
			d.Logger.Debugw("already present and verified", "file", name)
			return true, nil
		}
		if err := os.Rename(local, backup); err != nil {
			return false, fmt.Errorf("back up %s: %w", local, err)
		}
	}

	size, err := d.download(ctx, name, local)
	if err != nil {
		if exists {
			_ = os.Remove(local)
			if rerr := os.Rename(backup, local); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore %s: %w", local, rerr))
			}
		}
		return false, err
	}
	_ = os.Remove(backup)
	d.Logger.Infow("downloaded", "file", name, "size", humanize.Bytes(uint64(size)))

	if sha1 == "" {
		return true, nil
	}
	got, err := checksum.SHA1File(local)
	if err != nil {
		return false, err
	}
	if got != sha1 {
		d.Logger.Warnw("checksum mismatch", "file", name, "want", sha1, "got", got)
		return false, nil
	}
	return true, nil
}

func (d *Downloader) download(ctx context.Context, name, local string) (int64, error) {
	var size int64
	err := retry.Do(
		func() error {
			n, err := d.copyOnce(name, local)
			size = n
			return err
		},
		retry.Context(ctx),
		retry.Attempts(d.Retries+1),
		retry.Delay(d.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.Logger.Warnw("download failed, retrying", "file", name, "attempt", n+1, "err", err)
		}),
	)
	return size, err
}

func (d *Downloader) copyOnce(name, local string) (int64, error) {
	rc, err := d.Remote.ReadStream(name)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	f, err := os.Create(local)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(local)
		return 0, fmt.Errorf("download %s: %w", name, err)
	}
	return n, nil
}

// Summary reports what DownloadAll did.
type Summary struct {
	Dir        string
	Downloaded []string
	Mismatched []string
	// NotDownloaded names appear in sha1sums.txt but are absent locally.
	NotDownloaded []string
	Bytes         int64
}

// DownloadAll downloads every file in the share root into root/original.
// When the share carries sha1sums.txt it is fetched first and used to verify
// the other files.
func (d *Downloader) DownloadAll(ctx context.Context, root string) (Summary, error) {
	dir := filepath.Join(root, SubDir)
	sum := Summary{Dir: dir}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sum, err
	}

	infos, err := d.Remote.ReadDir("/")
	if err != nil {
		return sum, fmt.Errorf("list share: %w", err)
	}
	names := make([]string, 0, len(infos))
	hasSums := false
	for _, fi := range infos {
		name := filepath.Base(fi.Name())
		switch {
		case fi.IsDir(), name == skipName:
			continue
		case name == checksum.FileName:
			hasSums = true
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sums := map[string]string{}
	if hasSums {
		local := filepath.Join(dir, checksum.FileName)
		if _, err := d.DownloadFile(ctx, checksum.FileName, local, ""); err != nil {
			return sum, err
		}
		if sums, err = checksum.Read(local, ""); err != nil {
			return sum, err
		}
	}

	var errs []error
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		local := filepath.Join(dir, name)
		if err := security.StrictlyWithinRoot(dir, local); err != nil {
			errs = append(errs, err)
			continue
		}
		d.Logger.Debugw("fetching", "file", name, "n", i+1, "of", len(names))
		ok, err := d.DownloadFile(ctx, name, local, sums[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sum.Downloaded = append(sum.Downloaded, name)
		if fi, err := os.Stat(local); err == nil {
			sum.Bytes += fi.Size()
		}
		if !ok {
			sum.Mismatched = append(sum.Mismatched, name)
		}
	}

	listed := make([]string, 0, len(sums))
	for name := range sums {
		listed = append(listed, name)
	}
	sort.Strings(listed)
	for _, name := range listed {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); errors.Is(err, os.ErrNotExist) {
			d.Logger.Warnw("file is listed in sha1sums.txt but has not been downloaded", "file", name)
			sum.NotDownloaded = append(sum.NotDownloaded, name)
		}
	}

	d.Logger.Infow("fetch finished", "dir", dir, "files", len(sum.Downloaded), "size", humanize.Bytes(uint64(sum.Bytes)),
		"mismatched", len(sum.Mismatched))
	return sum, errors.Join(errs...)
}
