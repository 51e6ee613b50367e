package catalogdb

// schema is the DDL for a repository's cached catalog. Columns cover
// model.RemotePackage's db-tagged fields, plus JSON-text columns for list
// fields tagged db:"-" (homepages, src_urls, licenses, maintainers, notes,
// snapshots) and build_json for build info; Provides is stored as raw JSON
// text so the query builder can reach into it with sqlite's
// json_extract() rather than needing a fixed subschema (spec.md §4.1's
// "ambiguous source behavior").
const schema = `
CREATE TABLE IF NOT EXISTS packages (
	repo_name        TEXT NOT NULL,
	pkg              TEXT NOT NULL,
	pkg_id           TEXT NOT NULL,
	pkg_name         TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	version          TEXT NOT NULL DEFAULT '',
	version_upstream TEXT NOT NULL DEFAULT '',
	size             INTEGER NOT NULL DEFAULT 0,
	ghcr_size        INTEGER,
	bsum             TEXT NOT NULL DEFAULT '',
	shasum           TEXT NOT NULL DEFAULT '',
	download_url     TEXT NOT NULL DEFAULT '',
	ghcr_blob        TEXT NOT NULL DEFAULT '',
	ghcr_pkg         TEXT NOT NULL DEFAULT '',
	pkg_type         TEXT NOT NULL DEFAULT '',
	icon             TEXT NOT NULL DEFAULT '',
	desktop          TEXT NOT NULL DEFAULT '',
	rank             INTEGER,
	download_count   INTEGER,
	provides         TEXT NOT NULL DEFAULT '{}',
	homepages        TEXT NOT NULL DEFAULT '[]',
	src_urls         TEXT NOT NULL DEFAULT '[]',
	licenses         TEXT NOT NULL DEFAULT '[]',
	maintainers      TEXT NOT NULL DEFAULT '[]',
	notes            TEXT NOT NULL DEFAULT '[]',
	snapshots        TEXT NOT NULL DEFAULT '[]',
	build_json       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (repo_name, pkg_id, pkg_name)
);

CREATE INDEX IF NOT EXISTS idx_packages_pkg_name ON packages(pkg_name);
CREATE INDEX IF NOT EXISTS idx_packages_pkg ON packages(pkg);
`
