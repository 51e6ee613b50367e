package catalogsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/userconfig"
)

func newTestConfig(t *testing.T) *config.Config {
	root := t.TempDir()
	cfg := &config.Config{
		Root:            root,
		DBDir:           filepath.Join(root, "db"),
		RepositoriesDir: filepath.Join(root, "repositories"),
	}
	require.NoError(t, os.MkdirAll(cfg.DBDir, 0755))
	require.NoError(t, os.MkdirAll(cfg.RepositoriesDir, 0755))
	return cfg
}

func catalogPayload(t *testing.T) []byte {
	rows := []model.RemotePackage{{
		Identity: model.Identity{RepoName: "main", PkgID: "hello-1", PkgName: "hello"},
		Version:  "1.0.0",
	}}
	b, err := json.Marshal(rows)
	require.NoError(t, err)
	return b
}

func TestEnsureFetchesWhenCatalogMissing(t *testing.T) {
	cfg := newTestConfig(t)
	payload := catalogPayload(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	repo := userconfig.Repository{Name: "main", URL: srv.URL}
	require.NoError(t, Ensure(context.Background(), cfg, repo))

	_, err := os.Stat(cfg.CatalogDBPath("main"))
	require.NoError(t, err)
}

func TestEnsureSkipsFetchWhenSidecarMatches(t *testing.T) {
	cfg := newTestConfig(t)
	payload := catalogPayload(t)

	calls := 0
	var sidecar string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog":
			calls++
			w.Write(payload)
		case "/sum":
			w.Write([]byte(sidecar))
		}
	}))
	defer srv.Close()

	repo := userconfig.Repository{Name: "main", URL: srv.URL + "/catalog", Metadata: srv.URL + "/sum"}
	require.NoError(t, Ensure(context.Background(), cfg, repo))
	require.Equal(t, 1, calls)

	sum, err := os.ReadFile(cfg.RemoteChecksumPath("main"))
	require.NoError(t, err)
	sidecar = string(sum)

	require.NoError(t, Ensure(context.Background(), cfg, repo))
	require.Equal(t, 1, calls, "a matching sidecar checksum must skip the catalog re-fetch")
}
