package main

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/soarpm/soar/internal/color"
	"github.com/soarpm/soar/internal/model"
)

// printRemoteRecord prints one catalog row as the structured
// pkg_name/pkg_id/repo_name/pkg_type/version/size fields spec.md §7
// requires, followed by a human-readable line. Color only touches the
// human line; the record fields are identical either way.
func printRemoteRecord(w *color.Writer, pkg model.RemotePackage) {
	fmt.Printf("pkg_name=%s pkg_id=%s repo_name=%s pkg_type=%s version=%s size=%s\n",
		pkg.PkgName, pkg.PkgID, pkg.RepoName, pkg.PkgType, pkg.Version, formatSize(pkg.DisplaySize()))
	fmt.Println(w.Success(fmt.Sprintf("%s/%s %s - %s", pkg.RepoName, pkg.PkgName, pkg.Version, pkg.Description)))
}

// printInstalledRecord is printRemoteRecord's ledger-row counterpart.
func printInstalledRecord(w *color.Writer, pkg model.InstalledPackage) {
	fmt.Printf("pkg_name=%s pkg_id=%s repo_name=%s version=%s size=%s installed_path=%s\n",
		pkg.PkgName, pkg.PkgID, pkg.RepoName, pkg.Version, formatSize(pkg.Size), pkg.InstalledPath)
	fmt.Println(w.Success(fmt.Sprintf("%s/%s %s installed at %s", pkg.RepoName, pkg.PkgName, pkg.Version, pkg.InstalledDate.Format("2006-01-02 15:04"))))
}

func formatSize(b int64) string {
	return humanize.IBytes(uint64(b))
}
