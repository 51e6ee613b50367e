package lifecycle

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/fetcher"
	"github.com/soarpm/soar/internal/ledger"
	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/symlink"
)

// downloaderStub writes the same content to whatever destPath it's asked
// for, regardless of url, so a test can simulate re-downloading an
// updated artifact by mutating its content field between calls.
type downloaderStub struct {
	content []byte
}

func (d *downloaderStub) Download(_ context.Context, _, destPath string, onProgress fetcher.ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(destPath, d.content, 0o755); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(fetcher.DownloadState{BytesRead: int64(len(d.content)), TotalBytes: int64(len(d.content)), Terminal: true})
	}
	return nil
}

func digestOf(content []byte) string {
	h := blake3.New()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func newTestConfig(t *testing.T) *config.Config {
	root := t.TempDir()
	data := t.TempDir()
	cfg := &config.Config{
		Root:        root,
		BinDir:      filepath.Join(root, "bin"),
		CacheDir:    filepath.Join(root, "cache"),
		PackagesDir: filepath.Join(root, "packages"),
		DataDir:     data,
	}
	require.NoError(t, cfg.EnsureDirectories())
	return cfg
}

func newTestLedger(t *testing.T) *ledger.DB {
	path := filepath.Join(t.TempDir(), "core.db")
	db, err := ledger.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInstallActivatesLedgerRowAndLauncher(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)
	content := []byte("#!/bin/sh\necho hi\n")
	digest := digestOf(content)

	dl := &downloaderStub{content: content}
	d := New(cfg, led, dl, 2)

	pkg := model.RemotePackage{
		Identity:    model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"},
		Version:     "1.0.0",
		DownloadURL: "https://example.invalid/hello",
		BsumBlake3:  digest,
	}

	result, err := d.Install(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)
	require.True(t, result.IsInstalled)
	require.Equal(t, digest, result.Checksum)

	wantDir := filepath.Join(cfg.PackagesDir, digest[:8]+"-hello")
	require.Equal(t, wantDir, result.InstalledPath)

	binResolved, err := filepath.EvalSymlinks(filepath.Join(cfg.BinDir, "hello"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(wantDir, "hello"), binResolved)

	row, err := led.Get(context.Background(), pkg.Identity)
	require.NoError(t, err)
	require.True(t, row.IsInstalled)

	desktopContent, err := os.ReadFile(filepath.Join(wantDir, "hello.desktop"))
	require.NoError(t, err)
	require.Contains(t, string(desktopContent), "Name=hello")
}

func TestInstallIsIdempotentOnSameVersion(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)
	content := []byte("same content")
	digest := digestOf(content)

	dl := &downloaderStub{content: content}
	d := New(cfg, led, dl, 1)

	pkg := model.RemotePackage{
		Identity:    model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"},
		Version:     "1.0.0",
		DownloadURL: "https://example.invalid/hello",
		BsumBlake3:  digest,
	}

	first, err := d.Install(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)

	second, err := d.Install(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)
	require.Equal(t, first.InstalledPath, second.InstalledPath)
	require.Equal(t, first.InstalledDate, second.InstalledDate)
}

func TestRemoveAbortsOnForeignLauncher(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)
	content := []byte("bin content")
	digest := digestOf(content)

	dl := &downloaderStub{content: content}
	d := New(cfg, led, dl, 1)

	pkg := model.RemotePackage{
		Identity:    model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"},
		Version:     "1.0.0",
		DownloadURL: "https://example.invalid/hello",
		BsumBlake3:  digest,
	}
	_, err := d.Install(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)

	// simulate an out-of-band foreign file clobbering the launcher path
	launcherPath := filepath.Join(cfg.BinDir, "hello")
	require.NoError(t, os.Remove(launcherPath))
	require.NoError(t, os.WriteFile(launcherPath, []byte("not ours"), 0755))

	err = d.Remove(context.Background(), pkg.Identity)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errs.NotOurs, kind)

	_, err = led.Get(context.Background(), pkg.Identity)
	require.NoError(t, err, "ledger row must survive an aborted remove")
}

func TestRemoveDeletesOwnedLinksAndRow(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)
	content := []byte("bin content")
	digest := digestOf(content)

	dl := &downloaderStub{content: content}
	d := New(cfg, led, dl, 1)

	pkg := model.RemotePackage{
		Identity:    model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"},
		Version:     "1.0.0",
		DownloadURL: "https://example.invalid/hello",
		BsumBlake3:  digest,
	}
	result, err := d.Install(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)

	require.NoError(t, d.Remove(context.Background(), pkg.Identity))

	_, err = os.Lstat(result.BinPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(result.InstalledPath)
	require.True(t, os.IsNotExist(err))

	_, err = led.Get(context.Background(), pkg.Identity)
	gotKind, ok := errs.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errs.NotFound, gotKind)
}

func TestUpdateReplacesInstallDirectory(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)

	v1 := []byte("version one")
	dl := &downloaderStub{content: v1}
	d := New(cfg, led, dl, 1)

	pkg := model.RemotePackage{
		Identity:    model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"},
		Version:     "1.0.0",
		DownloadURL: "https://example.invalid/hello",
		BsumBlake3:  digestOf(v1),
	}
	first, err := d.Install(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)

	v2 := []byte("version two, longer content")
	dl.content = v2
	pkg.Version = "2.0.0"
	pkg.BsumBlake3 = digestOf(v2)

	second, err := d.Update(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.InstalledPath, second.InstalledPath)

	_, err = os.Stat(first.InstalledPath)
	require.True(t, os.IsNotExist(err), "old install directory must be cleaned up after a successful update")

	resolved, err := filepath.EvalSymlinks(filepath.Join(cfg.BinDir, "hello"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(second.InstalledPath, "hello"), resolved)
}

func TestUseRepointsLauncherOnly(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)
	content := []byte("bin content")
	digest := digestOf(content)
	dl := &downloaderStub{content: content}
	d := New(cfg, led, dl, 1)

	pkg := model.RemotePackage{
		Identity:    model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"},
		Version:     "1.0.0",
		DownloadURL: "https://example.invalid/hello",
		BsumBlake3:  digest,
	}
	result, err := d.Install(context.Background(), Target{Pkg: pkg}, nil)
	require.NoError(t, err)

	// simulate a manual repoint away from the managed target, then restore
	require.NoError(t, symlink.Remove(result.BinPath))
	require.NoError(t, d.Use(context.Background(), pkg.Identity))

	resolved, err := filepath.EvalSymlinks(result.BinPath)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(result.InstalledPath, "hello"), resolved)
}
