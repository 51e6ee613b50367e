// Package ledger implements C4, the read-write install ledger: the durable
// record of locally installed packages that must survive partial
// failures. Every write goes through a process-local mutex-guarded
// connection (spec.md §5); multi-row writes (remove+reinsert on update)
// run inside one transaction.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/sqlquery"
)

// Re-exported condition constructors and sort directions, so callers only
// need to import ledger for an installed-package query.
var (
	Eq      = sqlquery.Eq
	Like    = sqlquery.Like
	ILike   = sqlquery.ILike
	Gt      = sqlquery.Gt
	Lt      = sqlquery.Lt
	Between = sqlquery.Between
)

const (
	Asc  = sqlquery.Asc
	Desc = sqlquery.Desc
)

// State is the lifecycle driver's persisted row state (spec.md §4.7).
type State string

const (
	StateStaged State = "staged"
	StateActive State = "active"
)

// DB wraps the install ledger database (core.db).
type DB struct {
	mu   sync.Mutex
	conn *sql.DB
}

// Open opens (creating if absent) the ledger at path, read-write.
func Open(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errs.Wrap(errs.LedgerCorrupt, "", fmt.Sprintf("open ledger %s", path), err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, errs.Wrap(errs.LedgerCorrupt, "", "create ledger schema", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Query starts a fluent query against installed packages (spec.md §4.1's
// load_installed, identical semantics to the catalog query builder).
func (d *DB) Query() *sqlquery.Builder[model.InstalledPackage] {
	return sqlquery.New(d.conn, "packages", selectColumns, scanRow)
}

// InsertStaged inserts a STAGED row for an identity about to be
// downloaded (spec.md §4.7). A stale row left behind by a crashed prior
// run for the same identity — staged or active — is overwritten rather
// than rejected (spec.md: "a stale staged row for the same identity is
// overwritten on restart"), using the same delete-then-insert shape
// Activate uses to replace a prior row in one transaction.
func (d *DB) InsertStaged(ctx context.Context, pkg model.InstalledPackage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "begin insert-staged transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteSQL, pkg.RepoName, pkg.PkgID, pkg.PkgName); err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "clear prior row before insert-staged", err)
	}
	if _, err := tx.ExecContext(ctx, insertSQL,
		pkg.RepoName, pkg.Pkg, pkg.PkgID, pkg.PkgName, pkg.Version, pkg.Size, pkg.Checksum,
		pkg.InstalledPath, pkg.BinPath, pkg.InstalledDate, 0, boolToInt(pkg.InstalledWithFamily),
		pkg.IconPath, pkg.DesktopPath, string(StateStaged),
	); err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "insert staged row", err)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "commit insert-staged transaction", err)
	}
	return nil
}

// Activate transitions a package's row to ACTIVE, recording the final
// paths written by C7/C8/C9 (spec.md §4.7: STAGED -> ... -> ACTIVE). It
// replaces any prior row for the identity in one transaction, matching
// update's "remove(old) -> install(new)" semantics at the single-identity
// level.
func (d *DB) Activate(ctx context.Context, pkg model.InstalledPackage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "begin activate transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteSQL, pkg.RepoName, pkg.PkgID, pkg.PkgName); err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "clear prior row before activate", err)
	}
	if _, err := tx.ExecContext(ctx, insertSQL,
		pkg.RepoName, pkg.Pkg, pkg.PkgID, pkg.PkgName, pkg.Version, pkg.Size, pkg.Checksum,
		pkg.InstalledPath, pkg.BinPath, pkg.InstalledDate, 1, boolToInt(pkg.InstalledWithFamily),
		pkg.IconPath, pkg.DesktopPath, string(StateActive),
	); err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "insert active row", err)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.LedgerCorrupt, pkg.PkgName, "commit activate transaction", err)
	}
	return nil
}

// DropStaged deletes a STAGED row, used when a target FAILED or was
// cancelled before reaching ACTIVE (spec.md §4.7, §5's cancellation
// rules). It is a no-op if no staged row exists for the identity, or if
// the existing row is ACTIVE (an active row is never silently dropped).
func (d *DB) DropStaged(ctx context.Context, id model.Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.conn.ExecContext(ctx,
		`DELETE FROM packages WHERE repo_name = ? AND pkg_id = ? AND pkg_name = ? AND state = ?`,
		id.RepoName, id.PkgID, id.PkgName, string(StateStaged),
	)
	if err != nil {
		return errs.Wrap(errs.LedgerCorrupt, id.PkgName, "drop staged row", err)
	}
	return nil
}

// StagedIdentities returns the identity of every row still in the STAGED
// state. A non-empty result means a prior process crashed between
// InsertStaged and Activate/DropStaged; maintenance (C11) uses this to
// find ledger rows that need dropping alongside their orphaned staging
// directories.
func (d *DB) StagedIdentities(ctx context.Context) ([]model.Identity, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT repo_name, pkg_id, pkg_name FROM packages WHERE state = ?`, string(StateStaged),
	)
	if err != nil {
		return nil, errs.Wrap(errs.LedgerCorrupt, "", "query staged rows", err)
	}
	defer rows.Close()

	var out []model.Identity
	for rows.Next() {
		var id model.Identity
		if err := rows.Scan(&id.RepoName, &id.PkgID, &id.PkgName); err != nil {
			return nil, errs.Wrap(errs.LedgerCorrupt, "", "scan staged row", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.LedgerCorrupt, "", "iterate staged rows", err)
	}
	return out, nil
}

// Get returns the ACTIVE row for an identity, if any.
func (d *DB) Get(ctx context.Context, id model.Identity) (*model.InstalledPackage, error) {
	row := d.conn.QueryRowContext(ctx,
		selectAllSQL+` WHERE repo_name = ? AND pkg_id = ? AND pkg_name = ? AND is_installed = 1`,
		id.RepoName, id.PkgID, id.PkgName,
	)
	pkg, err := scanRowScalar(row)
	if err == sql.ErrNoRows {
		return nil, errs.New(errs.NotFound, id.PkgName, "package is not installed")
	}
	if err != nil {
		return nil, errs.Wrap(errs.LedgerCorrupt, id.PkgName, "read ledger row", err)
	}
	return &pkg, nil
}

// Remove deletes the ledger row for an identity entirely (spec.md §4.7:
// "delete the ledger row" as the final remove step, after symlinks and
// the install directory are gone).
func (d *DB) Remove(ctx context.Context, id model.Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.conn.ExecContext(ctx, deleteSQL, id.RepoName, id.PkgID, id.PkgName)
	if err != nil {
		return errs.Wrap(errs.LedgerCorrupt, id.PkgName, "remove ledger row", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const insertSQL = `
INSERT INTO packages (
	repo_name, pkg, pkg_id, pkg_name, version, size, checksum,
	installed_path, bin_path, installed_date, is_installed, installed_with_family,
	icon_path, desktop_path, state
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const deleteSQL = `DELETE FROM packages WHERE repo_name = ? AND pkg_id = ? AND pkg_name = ?`

var selectColumns = []string{
	"repo_name", "pkg", "pkg_id", "pkg_name", "version", "size", "checksum",
	"installed_path", "bin_path", "installed_date", "is_installed", "installed_with_family",
	"icon_path", "desktop_path",
}

var selectAllSQL = "SELECT " + joinColumns(selectColumns) + " FROM packages"

func joinColumns(cols []string) string {
	s := ""
	for i, c := range cols {
		if i > 0 {
			s += ", "
		}
		s += c
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInto(s rowScanner) (model.InstalledPackage, error) {
	var pkg model.InstalledPackage
	var isInstalled, withFamily int
	var installedDate time.Time
	err := s.Scan(
		&pkg.RepoName, &pkg.Pkg, &pkg.PkgID, &pkg.PkgName, &pkg.Version, &pkg.Size, &pkg.Checksum,
		&pkg.InstalledPath, &pkg.BinPath, &installedDate, &isInstalled, &withFamily,
		&pkg.IconPath, &pkg.DesktopPath,
	)
	if err != nil {
		return pkg, err
	}
	pkg.InstalledDate = installedDate
	pkg.IsInstalled = isInstalled != 0
	pkg.InstalledWithFamily = withFamily != 0
	return pkg, nil
}

func scanRow(rows *sql.Rows) (model.InstalledPackage, error) {
	return scanInto(rows)
}

func scanRowScalar(row *sql.Row) (model.InstalledPackage, error) {
	return scanInto(row)
}
