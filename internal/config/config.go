// Package config resolves the canonical directories soar operates under
// (C1: path resolver) from environment variables and XDG fallbacks, the
// way the teacher's internal/config derives TSUKU_HOME-relative paths.
// The user configuration file (C2) is loaded by internal/userconfig; its
// soar_root, soar_bin and soar_cache values are not consulted here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variable names recognized by the path resolver (spec.md §6).
const (
	EnvRoot         = "SOAR_ROOT"
	EnvBin          = "SOAR_BIN"
	EnvDB           = "SOAR_DB"
	EnvCache        = "SOAR_CACHE"
	EnvPackage      = "SOAR_PACKAGE"
	EnvRepositories = "SOAR_REPOSITORIES"

	EnvXDGConfigHome = "XDG_CONFIG_HOME"
	EnvXDGDataHome   = "XDG_DATA_HOME"
	EnvXDGCacheHome  = "XDG_CACHE_HOME"
	EnvHome          = "HOME"
	EnvUser          = "USER"
	EnvLogname       = "LOGNAME"
)

// Config holds every derived directory soar reads or writes under. All
// fields are absolute paths.
type Config struct {
	Root            string // $SOAR_ROOT, defaults to $XDG_DATA_HOME/soar
	BinDir          string // owned launcher symlinks
	DBDir           string // core.db (ledger) + per-repository catalog caches
	CacheDir        string // transient downloads
	PackagesDir     string // content-addressed install directories
	RepositoriesDir string // cached catalog metadata + remote checksum sidecars
	DataDir         string // icons/ + applications/ integration targets ($XDG_DATA_HOME)
	ConfigDir       string // directory holding config.json ($XDG_CONFIG_HOME/soar)
	ConfigFile      string // $ConfigDir/config.json
}

// homeDir resolves the user's home directory, consulting $HOME first (so
// tests can override it) and falling back to os.UserHomeDir.
func homeDir() (string, error) {
	if h := os.Getenv(EnvHome); h != "" {
		return h, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return h, nil
}

func xdgDataHome(home string) string {
	if v := os.Getenv(EnvXDGDataHome); v != "" {
		return v
	}
	return filepath.Join(home, ".local", "share")
}

func xdgConfigHome(home string) string {
	if v := os.Getenv(EnvXDGConfigHome); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

func xdgCacheHome(home string) string {
	if v := os.Getenv(EnvXDGCacheHome); v != "" {
		return v
	}
	return filepath.Join(home, ".cache")
}

// Load derives a Config from the environment: each SOAR_* variable that is
// set overrides its default (a subdirectory of the root, which itself
// defaults to $XDG_DATA_HOME/soar). Values from the user configuration
// file are not applied.
func Load() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}

	dataHome := xdgDataHome(home)
	configHome := xdgConfigHome(home)
	_ = xdgCacheHome(home)

	root := os.Getenv(EnvRoot)
	if root == "" {
		root = filepath.Join(dataHome, "soar")
	}
	root, err = Expand(root, home)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		Root:            root,
		BinDir:          envOrJoin(EnvBin, root, "bin"),
		DBDir:           envOrJoin(EnvDB, root, "db"),
		CacheDir:        envOrJoin(EnvCache, root, "cache"),
		PackagesDir:     envOrJoin(EnvPackage, root, "packages"),
		RepositoriesDir: envOrJoin(EnvRepositories, root, "repositories"),
		DataDir:         dataHome,
		ConfigDir:       filepath.Join(configHome, "soar"),
	}
	cfg.ConfigFile = filepath.Join(cfg.ConfigDir, "config.json")

	for name, val := range map[string]*string{
		EnvBin:          &cfg.BinDir,
		EnvDB:           &cfg.DBDir,
		EnvCache:        &cfg.CacheDir,
		EnvPackage:      &cfg.PackagesDir,
		EnvRepositories: &cfg.RepositoriesDir,
	} {
		if os.Getenv(name) == "" {
			continue
		}
		expanded, err := Expand(*val, home)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		*val = expanded
	}

	return cfg, nil
}

func envOrJoin(envName, root, sub string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return filepath.Join(root, sub)
}

// EnsureDirectories creates every directory this Config names.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Root, c.BinDir, c.DBDir, c.CacheDir, c.PackagesDir, c.RepositoriesDir,
		filepath.Join(c.DataDir, "icons", "hicolor"),
		filepath.Join(c.DataDir, "applications"),
		c.ConfigDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// IconDir returns the hicolor icon directory for a given square dimension,
// e.g. IconDir(96) -> "<data>/icons/hicolor/96x96/apps".
func (c *Config) IconDir(dim int) string {
	return filepath.Join(c.DataDir, "icons", "hicolor", fmt.Sprintf("%dx%d", dim, dim), "apps")
}

// ApplicationsDir returns the directory desktop-entry symlinks are placed
// under.
func (c *Config) ApplicationsDir() string {
	return filepath.Join(c.DataDir, "applications")
}

// RepositoryDir returns the cache directory for a named repository.
func (c *Config) RepositoryDir(repoName string) string {
	return filepath.Join(c.RepositoriesDir, repoName)
}

// CatalogDBPath returns the path to a repository's cached catalog sqlite
// file.
func (c *Config) CatalogDBPath(repoName string) string {
	return filepath.Join(c.DBDir, repoName+".db")
}

// LedgerDBPath returns the path to the install ledger.
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.DBDir, "core.db")
}

// RemoteChecksumPath returns the sidecar file holding a repository's last
// known remote checksum.
func (c *Config) RemoteChecksumPath(repoName string) string {
	return filepath.Join(c.RepositoryDir(repoName), repoName+".remote.bsum")
}
