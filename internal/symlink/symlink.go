// Package symlink manages soar's symlink farm (C12): the relative symlinks
// placed in bin/, the icon directories, and applications/ that point back
// into content-addressed package directories, each tagged with an extended
// attribute marking it as soar-owned.
//
// The atomic-rename creation pattern here is the teacher's: see
// tsukumogami-tsuku/internal/actions/install_binaries.go's createSymlink,
// generalized from a single bin-symlink case to every kind of link soar
// places (launchers, icons, desktop entries).
package symlink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/xattr"

	"github.com/soarpm/soar/internal/errs"
)

// OwnerAttr is the extended attribute marking a symlink as soar-managed.
// Maintenance (C11) and removal only ever touch links carrying this
// attribute, so a user's own manually placed symlinks are never disturbed.
const OwnerAttr = "user.managed_by"

// OwnerValue is the value OwnerAttr is set to.
const OwnerValue = "soar"

// Create makes a relative symlink at linkPath pointing at targetPath, then
// tags it as soar-owned. The symlink is created at a temporary path and
// renamed into place, so a concurrent reader never observes a half-created
// link.
func Create(targetPath, linkPath string) error {
	if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
		return fmt.Errorf("symlink: create directory for %s: %w", linkPath, err)
	}

	relPath, err := filepath.Rel(filepath.Dir(linkPath), targetPath)
	if err != nil {
		return fmt.Errorf("symlink: compute relative path from %s to %s: %w", linkPath, targetPath, err)
	}

	tmpLink := linkPath + ".soar-tmp"
	os.Remove(tmpLink)

	if err := os.Symlink(relPath, tmpLink); err != nil {
		return fmt.Errorf("symlink: create %s -> %s: %w", tmpLink, relPath, err)
	}

	if err := markOwned(tmpLink); err != nil {
		os.Remove(tmpLink)
		return err
	}

	if err := os.Rename(tmpLink, linkPath); err != nil {
		os.Remove(tmpLink)
		return fmt.Errorf("symlink: rename %s into place: %w", tmpLink, err)
	}

	return nil
}

// markOwned sets the ownership xattr on a symlink. Extended attributes on
// symlinks themselves (rather than their targets) require the L-suffixed
// calls, since a plain Set would instead tag whatever the link resolves to.
func markOwned(linkPath string) error {
	if err := xattr.LSet(linkPath, OwnerAttr, []byte(OwnerValue)); err != nil {
		if isUnsupported(err) {
			return nil
		}
		return fmt.Errorf("symlink: mark %s as soar-owned: %w", linkPath, err)
	}
	return nil
}

// IsOwned reports whether the symlink at linkPath carries soar's ownership
// marker. A link without the attribute, or on a filesystem that doesn't
// support extended attributes, is treated as not ours.
func IsOwned(linkPath string) bool {
	val, err := xattr.LGet(linkPath, OwnerAttr)
	if err != nil {
		return false
	}
	return string(val) == OwnerValue
}

// Remove deletes linkPath if and only if it is a symlink carrying soar's
// ownership marker. Removing an unowned path is a no-op that reports
// success, matching spec.md's "never touch what we don't own" invariant.
func Remove(linkPath string) error {
	info, err := os.Lstat(linkPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("symlink: stat %s: %w", linkPath, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if !IsOwned(linkPath) {
		return nil
	}
	if err := os.Remove(linkPath); err != nil {
		return fmt.Errorf("symlink: remove %s: %w", linkPath, err)
	}
	return nil
}

// EnsureLink is the symlink farm's single primitive: it creates linkPath's
// parent directory, removes whatever currently sits at linkPath if soar is
// allowed to (see resolvesUnderPackagesRoot below), and creates a fresh
// relative symlink to targetPath. A regular file or a symlink neither owned
// by soar nor resolving under packagesRoot is left untouched and reported
// as errs.NotOurs.
func EnsureLink(targetPath, linkPath, packagesRoot string) error {
	info, err := os.Lstat(linkPath)
	switch {
	case os.IsNotExist(err):
		// nothing to reconcile
	case err != nil:
		return fmt.Errorf("symlink: stat %s: %w", linkPath, err)
	case info.Mode()&os.ModeSymlink == 0:
		return errs.New(errs.NotOurs, "", fmt.Sprintf("%s is not a symlink", linkPath))
	case IsOwned(linkPath) || resolvesUnderPackagesRoot(linkPath, packagesRoot):
		if err := os.Remove(linkPath); err != nil {
			return fmt.Errorf("symlink: remove existing %s: %w", linkPath, err)
		}
	default:
		return errs.New(errs.NotOurs, "", fmt.Sprintf("%s is not soar-owned", linkPath))
	}

	return Create(targetPath, linkPath)
}

// resolvesUnderPackagesRoot reports whether linkPath's raw (unresolved)
// target, read relative to linkPath's directory, lands under
// packagesRoot. This is the fallback ownership check spec.md's symlink
// farm primitive uses for links predating the ownership xattr, or placed
// on a filesystem that doesn't support extended attributes.
func resolvesUnderPackagesRoot(linkPath, packagesRoot string) bool {
	if packagesRoot == "" {
		return false
	}
	raw, err := os.Readlink(linkPath)
	if err != nil {
		return false
	}
	target := raw
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(linkPath), target)
	}
	target = filepath.Clean(target)
	root := filepath.Clean(packagesRoot)
	return target == root || strings.HasPrefix(target, root+string(filepath.Separator))
}

// Dangling reports whether linkPath is a symlink whose target does not
// exist. Used by maintenance (C11) to find orphaned links left behind by
// out-of-band package removal.
func Dangling(linkPath string) (bool, error) {
	info, err := os.Lstat(linkPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("symlink: stat %s: %w", linkPath, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, nil
	}
	if _, err := os.Stat(linkPath); os.IsNotExist(err) {
		return true, nil
	} else if err != nil {
		return false, fmt.Errorf("symlink: resolve target of %s: %w", linkPath, err)
	}
	return false, nil
}

// isUnsupported reports whether err indicates the filesystem doesn't
// support extended attributes at all, as opposed to a real I/O failure.
// Such filesystems (some network mounts, overlayfs configurations) should
// not make symlink creation fail outright; they just lose the ownership
// marker and fall back to path-based heuristics elsewhere.
func isUnsupported(err error) bool {
	var perr *xattr.Error
	if !errors.As(err, &perr) {
		return false
	}
	return errors.Is(perr.Err, syscall.ENOTSUP) || errors.Is(perr.Err, syscall.ENOSYS)
}
