package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvRoot, "")
	t.Setenv(EnvXDGDataHome, "")
	t.Setenv(EnvXDGConfigHome, "")
	t.Setenv(EnvBin, "")
	t.Setenv(EnvDB, "")
	t.Setenv(EnvCache, "")
	t.Setenv(EnvPackage, "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, filepath.Join(home, ".local", "share", "soar"), cfg.Root)
	require.Equal(t, filepath.Join(cfg.Root, "bin"), cfg.BinDir)
	require.Equal(t, filepath.Join(cfg.Root, "db"), cfg.DBDir)
	require.Equal(t, filepath.Join(cfg.Root, "cache"), cfg.CacheDir)
	require.Equal(t, filepath.Join(cfg.Root, "packages"), cfg.PackagesDir)
	require.Equal(t, filepath.Join(cfg.Root, "repositories"), cfg.RepositoriesDir)
	require.Equal(t, filepath.Join(home, ".config", "soar", "config.json"), cfg.ConfigFile)
}

func TestLoadEnvOverride(t *testing.T) {
	home := t.TempDir()
	customRoot := filepath.Join(home, "custom-root")
	t.Setenv(EnvHome, home)
	t.Setenv(EnvRoot, customRoot)
	t.Setenv(EnvBin, filepath.Join(home, "custom-bin"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, customRoot, cfg.Root)
	require.Equal(t, filepath.Join(home, "custom-bin"), cfg.BinDir)
	require.Equal(t, filepath.Join(customRoot, "db"), cfg.DBDir)
}

func TestEnsureDirectories(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvRoot, filepath.Join(home, "root"))
	t.Setenv(EnvBin, "")
	t.Setenv(EnvDB, "")
	t.Setenv(EnvCache, "")
	t.Setenv(EnvPackage, "")
	t.Setenv(EnvXDGDataHome, filepath.Join(home, "data"))
	t.Setenv(EnvXDGConfigHome, filepath.Join(home, "config"))

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.Root, cfg.BinDir, cfg.DBDir, cfg.CacheDir, cfg.PackagesDir, cfg.RepositoriesDir} {
		require.DirExists(t, dir)
	}
}

func TestCatalogAndLedgerPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvRoot, filepath.Join(home, "root"))

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, filepath.Join(cfg.DBDir, "main.db"), cfg.CatalogDBPath("main"))
	require.Equal(t, filepath.Join(cfg.DBDir, "core.db"), cfg.LedgerDBPath())
	require.Equal(t, filepath.Join(cfg.RepositoriesDir, "main", "main.remote.bsum"), cfg.RemoteChecksumPath("main"))
}

func TestIconDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvXDGDataHome, filepath.Join(home, "data"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "data", "icons", "hicolor", "96x96", "apps"), cfg.IconDir(96))
}
