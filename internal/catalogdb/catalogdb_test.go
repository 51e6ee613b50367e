package catalogdb

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarpm/soar/internal/model"
)

func seedCatalog(t *testing.T, rows []model.RemotePackage) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.db")
	data, err := json.Marshal(rows)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, Sync(ctx, path, data))

	db, err := Open(ctx, "main", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func samplePackages() []model.RemotePackage {
	return []model.RemotePackage{
		{
			Identity: model.Identity{RepoName: "main", PkgID: "foo-1", PkgName: "foo"},
			Pkg:      "foo", Name: "Foo", Version: "1.0.0", Size: 100,
			Provides: map[string]string{"target_name": "foo-bin"},
		},
		{
			Identity: model.Identity{RepoName: "main", PkgID: "foobar-1", PkgName: "foobar"},
			Pkg:      "foobar", Name: "Foobar", Version: "2.0.0", Size: 200,
		},
		{
			Identity: model.Identity{RepoName: "main", PkgID: "bar-1", PkgName: "bar"},
			Pkg:      "bar", Name: "Bar", Version: "1.5.0", Size: 50,
			Provides: map[string]string{"target_name": "FOO-shim"},
		},
	}
}

func TestLikeIsCaseSensitive(t *testing.T) {
	db := seedCatalog(t, samplePackages())
	resp, err := db.Query().WhereAnd("pkg_name", Like("foo%")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	names := []string{resp.Items[0].PkgName, resp.Items[1].PkgName}
	require.ElementsMatch(t, []string{"foo", "foobar"}, names)

	resp, err = db.Query().WhereAnd("pkg_name", Like("FOO%")).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, resp.Items)
}

func TestILikeIsCaseInsensitive(t *testing.T) {
	db := seedCatalog(t, samplePackages())
	resp, err := db.Query().WhereAnd("pkg_name", ILike("FOO%")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
}

func TestJSONWhereOrMatchesProvidesTargetName(t *testing.T) {
	db := seedCatalog(t, samplePackages())
	resp, err := db.Query().JSONWhereOr("provides", "$.target_name", Eq("foo-bin")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "foo", resp.Items[0].PkgName)
}

func TestPaginationHasNext(t *testing.T) {
	db := seedCatalog(t, samplePackages())
	resp, err := db.Query().SortBy("pkg_name", Asc).Limit(2).Page(1).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 2)
	require.True(t, resp.HasNext)

	resp2, err := db.Query().SortBy("pkg_name", Asc).Limit(2).Page(2).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, resp2.Items, 1)
	require.False(t, resp2.HasNext)
}

func TestWhereAndOrCombination(t *testing.T) {
	db := seedCatalog(t, samplePackages())
	resp, err := db.
		Query().
		WhereAnd("repo_name", Eq("main")).
		WhereOr("pkg_name", Eq("foo")).
		WhereOr("pkg_name", Eq("bar")).
		Load(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
}
