// Package userconfig loads and saves the user-editable configuration file
// (C2: config store). Unlike the teacher's TOML-based settings file, soar's
// config is JSON (spec.md §6), but the load/save shape — defaults when the
// file is absent, a permission warning when it is too open, atomic
// temp-file-then-rename writes — follows the teacher's internal/userconfig
// exactly.
package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/log"
)

// RepositorySource maps a collection name to the URL it is published under.
type RepositorySource map[string]string

// Repository describes one catalog source.
type Repository struct {
	Name     string           `json:"name"`
	URL      string           `json:"url"`
	Metadata string           `json:"metadata,omitempty"`
	Sources  RepositorySource `json:"sources,omitempty"`
}

// Config represents the on-disk, user-editable configuration (config.json).
type Config struct {
	SoarRoot      string       `json:"soar_root,omitempty"`
	SoarBin       string       `json:"soar_bin,omitempty"`
	SoarCache     string       `json:"soar_cache,omitempty"`
	Repositories  []Repository `json:"repositories"`
	Parallel      *bool        `json:"parallel,omitempty"`
	ParallelLimit int          `json:"parallel_limit,omitempty"`
	SearchLimit   int          `json:"search_limit,omitempty"`
}

// DefaultParallelLimit is used when parallel_limit is unset or zero.
const DefaultParallelLimit = 4

// DefaultSearchLimit is used when search_limit is unset or zero.
const DefaultSearchLimit = 20

// DefaultConfig returns a Config with no repositories and default limits.
func DefaultConfig() *Config {
	return &Config{
		Repositories: []Repository{},
	}
}

// Load reads config.json from the path cfg.ConfigFile names. A missing file
// is not an error: defaults are returned instead.
func Load(cfg *config.Config) (*Config, error) {
	return loadFromPath(cfg.ConfigFile)
}

func loadFromPath(path string) (*Config, error) {
	userCfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return userCfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		mode := info.Mode().Perm()
		if mode&0077 != 0 {
			log.Default().Warn("config file has permissive permissions",
				"path", path,
				"mode", fmt.Sprintf("%04o", mode),
				"expected", "0600",
			)
		}
	}

	if err := json.Unmarshal(data, userCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := userCfg.Validate(); err != nil {
		return nil, err
	}

	return userCfg, nil
}

// Validate enforces invariants spec.md §6 requires of the config file:
// repository names must be unique.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Repositories))
	for _, repo := range c.Repositories {
		if repo.Name == "" {
			return fmt.Errorf("config: repository entry missing name")
		}
		if seen[repo.Name] {
			return fmt.Errorf("config: duplicate repository name %q", repo.Name)
		}
		seen[repo.Name] = true
	}
	return nil
}

// Save writes c to cfg.ConfigFile using an atomic temp-file-then-rename,
// with 0600 permissions set explicitly regardless of umask.
func (c *Config) Save(cfg *config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.saveToPath(cfg.ConfigFile)
}

func (c *Config) saveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.json.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	enc := json.NewEncoder(tmpFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// EffectiveParallelLimit returns the configured parallel_limit, or
// DefaultParallelLimit when unset.
func (c *Config) EffectiveParallelLimit() int {
	if c.ParallelLimit <= 0 {
		return DefaultParallelLimit
	}
	return c.ParallelLimit
}

// EffectiveSearchLimit returns the configured search_limit, or
// DefaultSearchLimit when unset.
func (c *Config) EffectiveSearchLimit() int {
	if c.SearchLimit <= 0 {
		return DefaultSearchLimit
	}
	return c.SearchLimit
}

// ParallelEnabled reports whether concurrent installs are enabled. Defaults
// to true when unset.
func (c *Config) ParallelEnabled() bool {
	if c.Parallel == nil {
		return true
	}
	return *c.Parallel
}

// Repository looks up a configured repository by name.
func (c *Config) Repository(name string) (Repository, bool) {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo, true
		}
	}
	return Repository{}, false
}
