package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/ledger"
	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/symlink"
)

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

func TestRunRemovesDanglingOwnedLauncher(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)

	target := filepath.Join(cfg.PackagesDir, "gone-hello", "hello")
	linkPath := filepath.Join(cfg.BinDir, "hello")
	require.NoError(t, symlink.Create(target, linkPath))

	report, err := Run(context.Background(), cfg, led)
	require.NoError(t, err)
	require.Contains(t, report.DanglingSymlinks, linkPath)

	_, err = os.Lstat(linkPath)
	require.True(t, os.IsNotExist(err))
}

func TestRunLeavesLiveLauncherAlone(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)

	installDir := filepath.Join(cfg.PackagesDir, "abc12345-hello")
	require.NoError(t, os.MkdirAll(installDir, 0755))
	binPath := filepath.Join(installDir, "hello")
	require.NoError(t, os.WriteFile(binPath, []byte("x"), 0755))

	linkPath := filepath.Join(cfg.BinDir, "hello")
	require.NoError(t, symlink.Create(binPath, linkPath))

	report, err := Run(context.Background(), cfg, led)
	require.NoError(t, err)
	require.Empty(t, report.DanglingSymlinks)

	_, err = os.Lstat(linkPath)
	require.NoError(t, err)
}

func TestRunIgnoresUnownedDanglingSymlink(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)

	linkPath := filepath.Join(cfg.BinDir, "foreign")
	require.NoError(t, os.Symlink(filepath.Join(cfg.PackagesDir, "does-not-exist"), linkPath))

	report, err := Run(context.Background(), cfg, led)
	require.NoError(t, err)
	require.Empty(t, report.DanglingSymlinks)

	_, err = os.Lstat(linkPath)
	require.NoError(t, err, "a symlink soar never tagged must survive a health pass untouched")
}

func TestRunRequiresSoarSuffixForDataDirEntries(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)

	iconDir := cfg.IconDir(96)
	require.NoError(t, os.MkdirAll(iconDir, 0755))

	// owned, dangling, but missing the -soar suffix: must survive
	unsuffixed := filepath.Join(iconDir, "hello.png")
	require.NoError(t, symlink.Create(filepath.Join(cfg.PackagesDir, "gone", "hello.png"), unsuffixed))

	// owned, dangling, with the suffix: must be removed
	suffixed := filepath.Join(iconDir, "hello-soar.png")
	require.NoError(t, symlink.Create(filepath.Join(cfg.PackagesDir, "gone", "hello.png"), suffixed))

	report, err := Run(context.Background(), cfg, led)
	require.NoError(t, err)
	require.NotContains(t, report.DanglingSymlinks, unsuffixed)
	require.Contains(t, report.DanglingSymlinks, suffixed)

	_, err = os.Lstat(unsuffixed)
	require.NoError(t, err)
	_, err = os.Lstat(suffixed)
	require.True(t, os.IsNotExist(err))
}

func TestRunClearsOrphanedStagingAndDropsStagedRow(t *testing.T) {
	cfg := newTestConfig(t)
	led := newTestLedger(t)

	stageDir := filepath.Join(cfg.CacheDir, "stage", "main-hello-1-hello")
	require.NoError(t, os.MkdirAll(stageDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stageDir, "hello"), []byte("partial"), 0755))

	id := model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"}
	require.NoError(t, led.InsertStaged(context.Background(), model.InstalledPackage{Identity: id, InstalledPath: stageDir}))

	report, err := Run(context.Background(), cfg, led)
	require.NoError(t, err)
	require.Equal(t, 1, report.StagedDropped)
	require.Contains(t, report.StagingCleared, stageDir)

	_, err = os.Stat(stageDir)
	require.True(t, os.IsNotExist(err))

	staged, err := led.StagedIdentities(context.Background())
	require.NoError(t, err)
	require.Empty(t, staged)
}
