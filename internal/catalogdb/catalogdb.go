// Package catalogdb implements C3, the read-only relational index of a
// single repository's remote packages, and the fluent query builder used
// to search it. The sqlite engine and goqu query builder are wired the way
// quay-claircore's datastore/postgres package wires goqu against its own
// schema; here the dialect targets modernc.org/sqlite's pure-Go driver
// instead of lib/pq.
package catalogdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/model"
)

// DB wraps a single repository's cached catalog.
type DB struct {
	conn     *sql.DB
	repoName string
}

// Open opens the catalog at path read-only. The file must already exist;
// Sync is responsible for populating and replacing it.
func Open(ctx context.Context, repoName, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.IOFailed, repoName, fmt.Sprintf("open catalog %s", path), err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errs.Wrap(errs.IOFailed, repoName, fmt.Sprintf("ping catalog %s", path), err)
	}
	return &DB{conn: conn, repoName: repoName}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Query starts a fluent query against this catalog.
func (d *DB) Query() *QueryBuilder {
	return newQueryBuilder(d.conn, "packages")
}

// Sync rebuilds the catalog database at path from a JSON array of
// model.RemotePackage records (the bytes a catalog-fetch transport
// produces; catalogdb itself never makes network requests). It writes
// into a fresh temp file and renames it over path, so a reader never
// observes a half-written catalog.
func Sync(ctx context.Context, path string, catalogBytes []byte) error {
	var rows []model.RemotePackage
	if err := json.Unmarshal(catalogBytes, &rows); err != nil {
		return errs.Wrap(errs.Config, "", "decode catalog payload", err)
	}

	tmpPath := path + ".sync-tmp"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.IOFailed, "", "clear stale sync target", err)
	}
	conn, err := sql.Open("sqlite", "file:"+tmpPath)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "open sync target", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return errs.Wrap(errs.IOFailed, "", "create catalog schema", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "begin catalog sync transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "prepare catalog insert", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if err := insertRow(ctx, stmt, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.IOFailed, "", "commit catalog sync", err)
	}
	conn.Close()

	if err := renameOver(tmpPath, path); err != nil {
		return err
	}
	return nil
}

const insertSQL = `
INSERT INTO packages (
	repo_name, pkg, pkg_id, pkg_name, name, description, version, version_upstream,
	size, ghcr_size, bsum, shasum, download_url, ghcr_blob, ghcr_pkg, pkg_type,
	icon, desktop, rank, download_count, provides,
	homepages, src_urls, licenses, maintainers, notes, snapshots, build_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func insertRow(ctx context.Context, stmt *sql.Stmt, r model.RemotePackage) error {
	provides, err := json.Marshal(r.Provides)
	if err != nil {
		return errs.Wrap(errs.Config, r.PkgName, "marshal provides", err)
	}
	homepages, _ := json.Marshal(r.Homepages)
	srcURLs, _ := json.Marshal(r.SourceURLs)
	licenses, _ := json.Marshal(r.Licenses)
	maintainers, _ := json.Marshal(r.Maintainers)
	notes, _ := json.Marshal(r.Notes)
	snapshots, _ := json.Marshal(r.Snapshots)

	var buildJSON string
	if r.Build != nil {
		b, err := json.Marshal(r.Build)
		if err != nil {
			return errs.Wrap(errs.Config, r.PkgName, "marshal build info", err)
		}
		buildJSON = string(b)
	}

	_, err = stmt.ExecContext(ctx,
		r.RepoName, r.Pkg, r.PkgID, r.PkgName, r.Name, r.Description, r.Version, r.VersionUpstream,
		r.Size, r.GhcrSize, r.BsumBlake3, r.ShaSum256, r.DownloadURL, r.GhcrBlobURL, r.GhcrPkgURL, string(r.PkgType),
		r.IconURL, r.DesktopURL, r.Rank, r.DownloadCount, string(provides),
		string(homepages), string(srcURLs), string(licenses), string(maintainers), string(notes), string(snapshots), buildJSON,
	)
	if err != nil {
		return errs.Wrap(errs.IOFailed, r.PkgName, fmt.Sprintf("insert package %s/%s", r.RepoName, r.PkgName), err)
	}
	return nil
}

func renameOver(tmpPath, path string) error {
	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(errs.IOFailed, "", "replace catalog database", err)
	}
	return nil
}

// scanRow reads one row of the packages table, in the column order
// selectColumns returns, into a model.RemotePackage.
func scanRow(rows *sql.Rows) (model.RemotePackage, error) {
	var r model.RemotePackage
	var provides, homepages, srcURLs, licenses, maintainers, notes, snapshots, buildJSON string
	var pkgType string

	if err := rows.Scan(
		&r.RepoName, &r.Pkg, &r.PkgID, &r.PkgName, &r.Name, &r.Description, &r.Version, &r.VersionUpstream,
		&r.Size, &r.GhcrSize, &r.BsumBlake3, &r.ShaSum256, &r.DownloadURL, &r.GhcrBlobURL, &r.GhcrPkgURL, &pkgType,
		&r.IconURL, &r.DesktopURL, &r.Rank, &r.DownloadCount, &provides,
		&homepages, &srcURLs, &licenses, &maintainers, &notes, &snapshots, &buildJSON,
	); err != nil {
		return r, err
	}

	r.PkgType = model.PackageType(pkgType)
	_ = json.Unmarshal([]byte(provides), &r.Provides)
	_ = json.Unmarshal([]byte(homepages), &r.Homepages)
	_ = json.Unmarshal([]byte(srcURLs), &r.SourceURLs)
	_ = json.Unmarshal([]byte(licenses), &r.Licenses)
	_ = json.Unmarshal([]byte(maintainers), &r.Maintainers)
	_ = json.Unmarshal([]byte(notes), &r.Notes)
	_ = json.Unmarshal([]byte(snapshots), &r.Snapshots)
	if strings.TrimSpace(buildJSON) != "" {
		var b model.BuildInfo
		if err := json.Unmarshal([]byte(buildJSON), &b); err == nil {
			r.Build = &b
		}
	}
	return r, nil
}

var selectColumns = []string{
	"repo_name", "pkg", "pkg_id", "pkg_name", "name", "description", "version", "version_upstream",
	"size", "ghcr_size", "bsum", "shasum", "download_url", "ghcr_blob", "ghcr_pkg", "pkg_type",
	"icon", "desktop", "rank", "download_count", "provides",
	"homepages", "src_urls", "licenses", "maintainers", "notes", "snapshots", "build_json",
}
