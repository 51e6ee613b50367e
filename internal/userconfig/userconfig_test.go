package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soarpm/soar/internal/config"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ConfigDir:  dir,
		ConfigFile: filepath.Join(dir, "config.json"),
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg := testConfig(t)
	uc, err := Load(cfg)
	require.NoError(t, err)
	require.Empty(t, uc.Repositories)
	require.Equal(t, DefaultParallelLimit, uc.EffectiveParallelLimit())
	require.Equal(t, DefaultSearchLimit, uc.EffectiveSearchLimit())
	require.True(t, uc.ParallelEnabled())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	cfg := testConfig(t)
	uc := DefaultConfig()
	uc.Repositories = append(uc.Repositories, Repository{
		Name: "main",
		URL:  "https://example.com/catalog",
		Sources: RepositorySource{
			"bin": "https://example.com/bin",
		},
	})
	uc.ParallelLimit = 8

	require.NoError(t, uc.Save(cfg))

	info, err := os.Stat(cfg.ConfigFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(cfg)
	require.NoError(t, err)
	require.Len(t, loaded.Repositories, 1)
	require.Equal(t, "main", loaded.Repositories[0].Name)
	require.Equal(t, 8, loaded.EffectiveParallelLimit())
}

func TestValidateRejectsDuplicateRepositoryNames(t *testing.T) {
	uc := DefaultConfig()
	uc.Repositories = []Repository{
		{Name: "main", URL: "https://example.com/a"},
		{Name: "main", URL: "https://example.com/b"},
	}
	require.Error(t, uc.Validate())
}

func TestValidateRejectsUnnamedRepository(t *testing.T) {
	uc := DefaultConfig()
	uc.Repositories = []Repository{{URL: "https://example.com/a"}}
	require.Error(t, uc.Validate())
}

func TestRepositoryLookup(t *testing.T) {
	uc := DefaultConfig()
	uc.Repositories = []Repository{{Name: "main", URL: "https://example.com"}}

	repo, ok := uc.Repository("main")
	require.True(t, ok)
	require.Equal(t, "https://example.com", repo.URL)

	_, ok = uc.Repository("missing")
	require.False(t, ok)
}
