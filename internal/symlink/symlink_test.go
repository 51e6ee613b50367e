package symlink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarpm/soar/internal/errs"
)

func TestCreateProducesRelativeLink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "packages", "abc-foo", "bin", "foo")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, os.WriteFile(target, []byte("#!/bin/sh\n"), 0755))

	link := filepath.Join(dir, "bin", "foo")
	require.NoError(t, Create(target, link))

	resolved, err := filepath.EvalSymlinks(link)
	require.NoError(t, err)
	require.Equal(t, target, resolved)

	raw, err := os.Readlink(link)
	require.NoError(t, err)
	require.False(t, filepath.IsAbs(raw))
}

func TestRemoveOnlyDeletesOwnedLinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	unowned := filepath.Join(dir, "unowned")
	require.NoError(t, os.Symlink(target, unowned))
	require.NoError(t, Remove(unowned))
	_, err := os.Lstat(unowned)
	require.NoError(t, err, "unowned symlink must survive Remove")

	owned := filepath.Join(dir, "owned")
	require.NoError(t, Create(target, owned))
	require.NoError(t, Remove(owned))
	_, err = os.Lstat(owned)
	require.True(t, os.IsNotExist(err), "owned symlink should be gone")
}

func TestRemoveMissingPathIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Remove(filepath.Join(dir, "does-not-exist")))
}

func TestDanglingDetectsMissingTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "gone")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	dangling, err := Dangling(link)
	require.NoError(t, err)
	require.True(t, dangling)
}

func TestEnsureLinkReplacesOwnedLink(t *testing.T) {
	dir := t.TempDir()
	oldTarget := filepath.Join(dir, "old")
	newTarget := filepath.Join(dir, "new")
	require.NoError(t, os.WriteFile(oldTarget, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(newTarget, []byte("y"), 0644))

	link := filepath.Join(dir, "link")
	require.NoError(t, Create(oldTarget, link))
	require.NoError(t, EnsureLink(newTarget, link, dir))

	resolved, err := filepath.EvalSymlinks(link)
	require.NoError(t, err)
	require.Equal(t, newTarget, resolved)
}

func TestEnsureLinkReplacesLinkUnderPackagesRoot(t *testing.T) {
	dir := t.TempDir()
	packagesRoot := filepath.Join(dir, "packages")
	oldTarget := filepath.Join(packagesRoot, "abc-foo", "bin", "foo")
	require.NoError(t, os.MkdirAll(filepath.Dir(oldTarget), 0755))
	require.NoError(t, os.WriteFile(oldTarget, []byte("x"), 0755))

	link := filepath.Join(dir, "bin", "foo")
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	rel, err := filepath.Rel(filepath.Dir(link), oldTarget)
	require.NoError(t, err)
	require.NoError(t, os.Symlink(rel, link))
	require.False(t, IsOwned(link))

	newTarget := filepath.Join(packagesRoot, "def-foo", "bin", "foo")
	require.NoError(t, os.MkdirAll(filepath.Dir(newTarget), 0755))
	require.NoError(t, os.WriteFile(newTarget, []byte("y"), 0755))

	require.NoError(t, EnsureLink(newTarget, link, packagesRoot))
	resolved, err := filepath.EvalSymlinks(link)
	require.NoError(t, err)
	require.Equal(t, newTarget, resolved)
}

func TestEnsureLinkRefusesForeignSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	link := filepath.Join(dir, "foreign")
	require.NoError(t, os.Symlink(target, link))

	err := EnsureLink(filepath.Join(dir, "other"), link, filepath.Join(dir, "packages"))
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errs.NotOurs, kind)
}

func TestEnsureLinkRefusesRegularFile(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(link, []byte("x"), 0644))

	err := EnsureLink(filepath.Join(dir, "other"), link, dir)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errs.NotOurs, kind)
}

func TestDanglingFalseForRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	dangling, err := Dangling(path)
	require.NoError(t, err)
	require.False(t, dangling)
}
