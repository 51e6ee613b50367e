// Package model defines the data shared between the catalog, the install
// ledger, and every component that reads or writes either.
package model

import "time"

// PackageType classifies the payload shape of a remote package's primary
// artifact. The desktop integrator and portable-data wirer both branch on
// this to decide which knobs apply.
type PackageType string

const (
	// PackageTypeAppImage is a self-extracting AppImage-style bundle: an
	// ELF loader stub followed by an embedded squashfs image.
	PackageTypeAppImage PackageType = "appimage"

	// PackageTypeContainer is a single-file application image other than
	// the AppImage shape (spec.md §4.6's "container-style bundle
	// variant"). Only its config directory is writable; the portable-home
	// knob is ignored for this type.
	PackageTypeContainer PackageType = "container"

	// PackageTypeStatic is a plain static binary with no embedded
	// filesystem to inspect.
	PackageTypeStatic PackageType = "static"
)

// BuildInfo captures optional provenance for how a remote package's
// artifact was produced.
type BuildInfo struct {
	Action  string    `json:"action,omitempty"`
	ID      string    `json:"id,omitempty"`
	Date    time.Time `json:"date,omitempty"`
	LogURL  string    `json:"log_url,omitempty"`
	ScriptURL string  `json:"script_url,omitempty"`
}

// Identity is the triple that uniquely names a package across both the
// catalog and the ledger (spec.md §3: "(repo_name, pkg_id, pkg_name)").
type Identity struct {
	RepoName string `json:"repo_name" db:"repo_name"`
	PkgID    string `json:"pkg_id" db:"pkg_id"`
	PkgName  string `json:"pkg_name" db:"pkg_name"`
}

// RemotePackage is a read-only row sourced from the catalog DB (C3).
type RemotePackage struct {
	Identity

	Pkg             string            `json:"pkg" db:"pkg"` // family-qualified component, distinct from PkgName
	Name            string            `json:"name" db:"name"`
	Description     string            `json:"description" db:"description"`
	Version         string            `json:"version" db:"version"`
	VersionUpstream string            `json:"version_upstream,omitempty" db:"version_upstream"`
	Size            int64             `json:"size" db:"size"`
	GhcrSize        *int64            `json:"ghcr_size,omitempty" db:"ghcr_size"` // hosted-blob bytes, preferred for display when present
	BsumBlake3      string            `json:"bsum" db:"bsum"`
	ShaSum256       string            `json:"shasum" db:"shasum"`
	DownloadURL     string            `json:"download_url" db:"download_url"`
	GhcrBlobURL     string            `json:"ghcr_blob,omitempty" db:"ghcr_blob"`
	GhcrPkgURL      string            `json:"ghcr_pkg,omitempty" db:"ghcr_pkg"`
	PkgType         PackageType       `json:"pkg_type" db:"pkg_type"`
	IconURL         string            `json:"icon,omitempty" db:"icon"`
	DesktopURL      string            `json:"desktop,omitempty" db:"desktop"`
	Homepages       []string          `json:"homepages,omitempty" db:"-"`
	SourceURLs      []string          `json:"src_urls,omitempty" db:"-"`
	Licenses        []string          `json:"licenses,omitempty" db:"-"`
	Maintainers     []string          `json:"maintainers,omitempty" db:"-"`
	Notes           []string          `json:"notes,omitempty" db:"-"`
	Snapshots       []string          `json:"snapshots,omitempty" db:"-"`
	Build           *BuildInfo        `json:"build,omitempty" db:"-"`
	Rank            *int              `json:"rank,omitempty" db:"rank"`
	DownloadCount   *int64            `json:"download_count,omitempty" db:"download_count"`
	Provides        map[string]string `json:"provides,omitempty" db:"-"` // opaque; only target_name is ever queried
	ProvidesRaw     string            `json:"-" db:"provides"`           // raw JSON column backing Provides
}

// UpstreamMeaningful reports whether VersionUpstream carries information,
// which spec.md §3 says is only true "when version begins with the literal
// token HEAD".
func (p RemotePackage) UpstreamMeaningful() bool {
	const headToken = "HEAD"
	return len(p.Version) >= len(headToken) && p.Version[:len(headToken)] == headToken && p.VersionUpstream != ""
}

// DisplaySize returns the size to show to a user: the hosted-blob size
// when present (spec.md §3: "preferred for display when present"),
// otherwise the declared total.
func (p RemotePackage) DisplaySize() int64 {
	if p.GhcrSize != nil {
		return *p.GhcrSize
	}
	return p.Size
}

// InstalledPackage is a ledger row (C4): read-write, owned by this system.
type InstalledPackage struct {
	Identity

	Pkg                 string    `db:"pkg"`
	Version             string    `db:"version"`
	Size                int64     `db:"size"`
	Checksum            string    `db:"checksum"` // blake3 of the fetched artifact, verified
	InstalledPath       string    `db:"installed_path"`
	BinPath             string    `db:"bin_path"`
	InstalledDate       time.Time `db:"installed_date"`
	IsInstalled         bool      `db:"is_installed"`
	InstalledWithFamily bool      `db:"installed_with_family"` // advisory only; never read back to drive behavior (spec.md §9)
	IconPath            string    `db:"icon_path"`
	DesktopPath         string    `db:"desktop_path"`
}

// PackageQuery is the parsed shape of a user query string of the form
// "[<family>/]<name>[#<collection>]" (spec.md §4.2).
type PackageQuery struct {
	Name       string
	Family     string
	Collection string
}
