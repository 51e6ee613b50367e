package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/model"
)

func openTestLedger(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "core.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func samplePkg() model.InstalledPackage {
	return model.InstalledPackage{
		Identity:      model.Identity{RepoName: "main", PkgID: "foo-1", PkgName: "foo"},
		Pkg:           "foo",
		Version:       "1.0.0",
		Size:          1024,
		Checksum:      "abc123",
		InstalledPath: "/root/.local/share/soar/packages/abc123-foo",
		BinPath:       "/root/.local/share/soar/bin/foo",
		InstalledDate: time.Now().UTC().Truncate(time.Second),
	}
}

func TestInsertStagedThenActivate(t *testing.T) {
	db := openTestLedger(t)
	ctx := context.Background()
	pkg := samplePkg()

	require.NoError(t, db.InsertStaged(ctx, pkg))

	_, err := db.Get(ctx, pkg.Identity)
	require.Error(t, err, "staged row is not yet active")

	pkg.IsInstalled = true
	require.NoError(t, db.Activate(ctx, pkg))

	got, err := db.Get(ctx, pkg.Identity)
	require.NoError(t, err)
	require.Equal(t, pkg.Checksum, got.Checksum)
	require.True(t, got.IsInstalled)
}

func TestInsertStagedOverwritesStaleStagedRow(t *testing.T) {
	db := openTestLedger(t)
	ctx := context.Background()
	pkg := samplePkg()

	require.NoError(t, db.InsertStaged(ctx, pkg))

	pkg.Checksum = "def456"
	require.NoError(t, db.InsertStaged(ctx, pkg), "a stale staged row for the same identity must be overwritten, not rejected")

	pkg.IsInstalled = true
	require.NoError(t, db.Activate(ctx, pkg))

	got, err := db.Get(ctx, pkg.Identity)
	require.NoError(t, err)
	require.Equal(t, "def456", got.Checksum)
}

func TestDropStagedRemovesOnlyStagedRows(t *testing.T) {
	db := openTestLedger(t)
	ctx := context.Background()
	pkg := samplePkg()

	require.NoError(t, db.InsertStaged(ctx, pkg))
	require.NoError(t, db.DropStaged(ctx, pkg.Identity))

	_, err := db.Get(ctx, pkg.Identity)
	require.Error(t, err)

	staged, err := db.StagedIdentities(ctx)
	require.NoError(t, err)
	require.Empty(t, staged)

	require.NoError(t, db.Activate(ctx, pkg))
	require.NoError(t, db.DropStaged(ctx, pkg.Identity))
	_, err = db.Get(ctx, pkg.Identity)
	require.NoError(t, err, "an active row must survive DropStaged")
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	db := openTestLedger(t)
	_, err := db.Get(context.Background(), model.Identity{RepoName: "main", PkgID: "x", PkgName: "x"})
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errs.NotFound, kind)
}

func TestRemoveDeletesRow(t *testing.T) {
	db := openTestLedger(t)
	ctx := context.Background()
	pkg := samplePkg()
	require.NoError(t, db.InsertStaged(ctx, pkg))
	require.NoError(t, db.Activate(ctx, pkg))
	require.NoError(t, db.Remove(ctx, pkg.Identity))

	_, err := db.Get(ctx, pkg.Identity)
	require.Error(t, err)
}

func TestQueryLoadInstalled(t *testing.T) {
	db := openTestLedger(t)
	ctx := context.Background()
	pkg := samplePkg()
	require.NoError(t, db.InsertStaged(ctx, pkg))
	require.NoError(t, db.Activate(ctx, pkg))

	resp, err := db.Query().WhereAnd("pkg_name", Eq("foo")).Load(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "foo", resp.Items[0].PkgName)
}
