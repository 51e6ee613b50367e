// Package maintenance implements C11: health-check cleanup of the
// symlink farm and the download staging area (spec.md §4.7's "Health /
// maintenance" step, exposed via the `soar health` verb).
package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/ledger"
	"github.com/soarpm/soar/internal/symlink"
)

// Report summarizes what one maintenance pass removed.
type Report struct {
	DanglingSymlinks []string
	StagingCleared   []string
	StagedDropped    int
}

// Run scans every owned symlink directory for dangling links and deletes
// them, filtering data-directory entries (icons, desktop files) by their
// "-soar" suffix so a user's own unrelated symlinks are never considered,
// then clears every staging directory left under the cache (each one is
// either fully consumed on a successful install or removed on failure, so
// anything still present belongs to a process that never finished) and
// drops any ledger row stuck in STAGED for the same reason.
func Run(ctx context.Context, cfg *config.Config, led *ledger.DB) (Report, error) {
	var report Report

	launcherDir := cfg.BinDir
	dataDirs := []string{
		filepath.Join(cfg.DataDir, "icons", "hicolor"),
		cfg.ApplicationsDir(),
	}

	removed, err := sweepDangling(launcherDir, false)
	if err != nil {
		return report, err
	}
	report.DanglingSymlinks = append(report.DanglingSymlinks, removed...)

	for _, dir := range dataDirs {
		removed, err := sweepDangling(dir, true)
		if err != nil {
			return report, err
		}
		report.DanglingSymlinks = append(report.DanglingSymlinks, removed...)
	}

	staged, err := led.StagedIdentities(ctx)
	if err != nil {
		return report, err
	}
	for _, id := range staged {
		if err := led.DropStaged(ctx, id); err != nil {
			return report, err
		}
	}
	report.StagedDropped = len(staged)

	stageRoot := filepath.Join(cfg.CacheDir, "stage")
	entries, err := os.ReadDir(stageRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, fmt.Errorf("maintenance: list staging directory: %w", err)
	}
	for _, entry := range entries {
		dir := filepath.Join(stageRoot, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			return report, fmt.Errorf("maintenance: clear staging directory %s: %w", dir, err)
		}
		report.StagingCleared = append(report.StagingCleared, dir)
	}

	return report, nil
}

// sweepDangling walks root for owned symlinks whose target no longer
// exists and removes them. requireSoarSuffix restricts the sweep to
// entries named "*-soar" or "*-soar.<ext>", the marker every
// data-directory integration (C8) places; bin/ launchers carry no such
// suffix so the launcher directory sweep leaves it off.
func sweepDangling(root string, requireSoarSuffix bool) ([]string, error) {
	var removed []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if requireSoarSuffix && !hasSoarSuffix(d.Name()) {
			return nil
		}
		if !symlink.IsOwned(path) {
			return nil
		}
		dangling, err := symlink.Dangling(path)
		if err != nil {
			return fmt.Errorf("maintenance: check %s: %w", path, err)
		}
		if !dangling {
			return nil
		}
		if err := symlink.Remove(path); err != nil {
			return fmt.Errorf("maintenance: remove %s: %w", path, err)
		}
		removed = append(removed, path)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return removed, nil
}

// hasSoarSuffix reports whether name's extension-stripped stem ends in
// "-soar", matching the marker C8 writes on every icon/desktop symlink.
func hasSoarSuffix(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(stem, "-soar")
}
