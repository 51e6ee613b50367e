// Package fetcher implements C6, the artifact fetcher: downloading a
// remote package's primary binary into its content-addressed install
// directory and verifying its blake3 digest against the catalog's
// declared bsum. It is oblivious to the ledger; the lifecycle driver
// inserts the staged row before calling it (spec.md §4.3).
package fetcher

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/httputil"
	"github.com/soarpm/soar/internal/model"
)

// DownloadState reports progress of an in-flight download (spec.md §4.3).
type DownloadState struct {
	BytesRead  int64
	TotalBytes int64
	Terminal   bool
}

// ProgressFunc receives DownloadState updates during a download.
type ProgressFunc func(DownloadState)

// Downloader is the out-of-scope "raw byte-streaming downloader"
// collaborator (spec.md §1): given a URL and destination path, it writes
// bytes and reports progress.
type Downloader interface {
	Download(ctx context.Context, url, destPath string, onProgress ProgressFunc) error
}

// HTTPDownloader is the wired default Downloader, built on the same
// SSRF-hardened client the teacher's own transport layer uses.
type HTTPDownloader struct {
	Client *http.Client
}

// NewHTTPDownloader constructs an HTTPDownloader with the teacher's
// secure-by-default client options.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{Client: httputil.NewSecureClient(httputil.DefaultOptions())}
}

// Download streams url to destPath, creating any missing parent
// directory, reporting progress as bytes arrive.
func (h *HTTPDownloader) Download(ctx context.Context, url, destPath string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "build download request", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "download "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.IOFailed, "", "download "+url+" returned "+resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errs.Wrap(errs.IOFailed, "", "create install directory", err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "create "+destPath, err)
	}
	defer f.Close()

	total := resp.ContentLength
	counter := &countingReader{r: resp.Body}
	if onProgress != nil {
		counter.onProgress = func(n int64) {
			onProgress(DownloadState{BytesRead: n, TotalBytes: total})
		}
	}

	if _, err := io.Copy(f, counter); err != nil {
		return errs.Wrap(errs.IOFailed, "", "write "+destPath, err)
	}
	if err := f.Chmod(0o755); err != nil {
		return errs.Wrap(errs.IOFailed, "", "mark "+destPath+" executable", err)
	}
	if onProgress != nil {
		onProgress(DownloadState{BytesRead: counter.n, TotalBytes: total, Terminal: true})
	}
	return nil
}

type countingReader struct {
	r          io.Reader
	n          int64
	onProgress func(n int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.onProgress != nil {
		c.onProgress(c.n)
	}
	return n, err
}

// ContentAddressDir derives the content-addressed install directory name
// (spec.md §3: "<first-8-hex-of-blake3>-<pkg_name>").
func ContentAddressDir(blake3Hex, pkgName string) string {
	prefix := blake3Hex
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + "-" + pkgName
}

// Fetch downloads pkg's primary artifact into installDir/<pkg_name>,
// verifies its blake3 digest against pkg.BsumBlake3, and returns the
// verified digest. On mismatch the partial file is removed and
// ChecksumMismatch is returned.
func Fetch(ctx context.Context, pkg model.RemotePackage, installDir string, downloader Downloader, onProgress ProgressFunc) (string, error) {
	destPath := filepath.Join(installDir, pkg.PkgName)

	if err := downloader.Download(ctx, pkg.DownloadURL, destPath, onProgress); err != nil {
		os.Remove(destPath)
		return "", err
	}

	digest, err := computeBlake3(destPath)
	if err != nil {
		os.Remove(destPath)
		return "", errs.Wrap(errs.IOFailed, pkg.PkgName, "compute digest of "+destPath, err)
	}

	if pkg.BsumBlake3 != "" && digest != pkg.BsumBlake3 {
		os.Remove(destPath)
		return "", errs.New(errs.ChecksumMismatch, pkg.PkgName, "downloaded artifact digest "+digest+" does not match catalog bsum "+pkg.BsumBlake3)
	}

	return digest, nil
}

func computeBlake3(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
