package ledger

// schema is the DDL for the install ledger (C4): spec.md §6's key-column
// listing `packages(repo_name, pkg, pkg_id, pkg_name, version, size,
// checksum, installed_path, installed_with_family, bin_path,
// installed_date, is_installed)`, plus icon_path, desktop_path and state.
const schema = `
CREATE TABLE IF NOT EXISTS packages (
	repo_name             TEXT NOT NULL,
	pkg                   TEXT NOT NULL,
	pkg_id                TEXT NOT NULL,
	pkg_name              TEXT NOT NULL,
	version               TEXT NOT NULL,
	size                  INTEGER NOT NULL DEFAULT 0,
	checksum              TEXT NOT NULL,
	installed_path        TEXT NOT NULL,
	bin_path              TEXT NOT NULL DEFAULT '',
	installed_date        DATETIME NOT NULL,
	is_installed          INTEGER NOT NULL DEFAULT 0,
	installed_with_family INTEGER NOT NULL DEFAULT 0,
	icon_path             TEXT NOT NULL DEFAULT '',
	desktop_path          TEXT NOT NULL DEFAULT '',
	state                 TEXT NOT NULL DEFAULT 'staged',
	PRIMARY KEY (repo_name, pkg_id, pkg_name)
);
`
