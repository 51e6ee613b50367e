// Package lifecycle implements C10, the lifecycle driver: the state
// machine that turns a resolved catalog row into an active, integrated
// install by orchestrating the fetcher (C6), bundle inspector (C7),
// desktop integrator (C8), portable-data wirer (C9), and symlink farm
// (C12) as one transaction per target, recording progress in the
// install ledger (C4) along the way (spec.md §4.7).
//
// Batch concurrency follows the teacher's task-based scheduling model:
// each target is an independent unit of work, bounded by a semaphore
// the way golang.org/x/sync/errgroup's SetLimit expresses it, with the
// steps within one target (download -> verify -> inspect -> integrate
// -> commit) run strictly in sequence (spec.md §5).
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soarpm/soar/internal/bundle"
	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/desktop"
	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/fetcher"
	"github.com/soarpm/soar/internal/ledger"
	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/portable"
	"github.com/soarpm/soar/internal/symlink"
)

// Driver orchestrates package installs, updates, removals, and launcher
// re-pointing against one ledger and directory layout.
type Driver struct {
	cfg           *config.Config
	ledger        *ledger.DB
	downloader    fetcher.Downloader
	parallelLimit int
}

// New constructs a Driver. parallelLimit <= 0 disables batch parallelism
// (every target runs sequentially, spec.md §5's "parallel=false").
func New(cfg *config.Config, led *ledger.DB, downloader fetcher.Downloader, parallelLimit int) *Driver {
	return &Driver{cfg: cfg, ledger: led, downloader: downloader, parallelLimit: parallelLimit}
}

// Target is one requested install/update.
type Target struct {
	Pkg     model.RemotePackage
	Force   bool
	Options portable.Options
}

// Outcome is one target's install/update result.
type Outcome struct {
	Target Target
	Result model.InstalledPackage
	Err    error
}

// InstallBatch installs or updates every target independently, bounding
// concurrent downloads at d.parallelLimit. A failing target does not
// cancel the others (spec.md §7: "per-target errors are captured and
// reported; the batch continues").
func (d *Driver) InstallBatch(ctx context.Context, targets []Target, onProgress fetcher.ProgressFunc) []Outcome {
	outcomes := make([]Outcome, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	if d.parallelLimit > 0 {
		g.SetLimit(d.parallelLimit)
	} else {
		g.SetLimit(1)
	}

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			result, err := d.installOne(gctx, target, onProgress)
			outcomes[i] = Outcome{Target: target, Result: result, Err: err}
			return nil // per-target errors never cancel sibling tasks
		})
	}
	_ = g.Wait()
	return outcomes
}

// Install installs a single target; InstallBatch runs the same per-target
// step for several targets concurrently.
func (d *Driver) Install(ctx context.Context, target Target, onProgress fetcher.ProgressFunc) (model.InstalledPackage, error) {
	return d.installOne(ctx, target, onProgress)
}

func (d *Driver) installOne(ctx context.Context, target Target, onProgress fetcher.ProgressFunc) (model.InstalledPackage, error) {
	pkg := target.Pkg

	if !target.Force {
		if existing, err := d.ledger.Get(ctx, pkg.Identity); err == nil && existing.Version == pkg.Version {
			return *existing, nil // install∘install idempotent (spec.md §8 property 5)
		}
	}

	stagingDir := filepath.Join(d.cfg.CacheDir, "stage", fmt.Sprintf("%s-%s-%s", pkg.RepoName, pkg.PkgID, pkg.PkgName))
	if err := os.RemoveAll(stagingDir); err != nil {
		return model.InstalledPackage{}, errs.Wrap(errs.IOFailed, pkg.PkgName, "clear staging directory", err)
	}

	staged := model.InstalledPackage{
		Identity:      pkg.Identity,
		Pkg:           pkg.Pkg,
		Version:       pkg.Version,
		Size:          pkg.DisplaySize(),
		InstalledPath: stagingDir,
		InstalledDate: time.Now(),
	}
	// A STAGED row is recorded only when no ACTIVE row exists: InsertStaged
	// replaces any prior row, which would lose the old install on failure.
	if _, getErr := d.ledger.Get(ctx, pkg.Identity); getErr != nil {
		if err := d.ledger.InsertStaged(ctx, staged); err != nil {
			os.RemoveAll(stagingDir)
			return model.InstalledPackage{}, err
		}
	}

	result, err := d.stageAndIntegrate(ctx, target, stagingDir, onProgress)
	if err != nil {
		os.RemoveAll(stagingDir)
		if dropErr := d.ledger.DropStaged(ctx, pkg.Identity); dropErr != nil {
			return model.InstalledPackage{}, fmt.Errorf("%w (also failed to drop staged row: %v)", err, dropErr)
		}
		return model.InstalledPackage{}, err
	}

	if err := d.ledger.Activate(ctx, result); err != nil {
		os.RemoveAll(result.InstalledPath)
		return model.InstalledPackage{}, err
	}
	return result, nil
}

// stageAndIntegrate runs download -> verify -> inspect -> integrate for
// one target and returns the finalized ledger row, without writing it.
func (d *Driver) stageAndIntegrate(ctx context.Context, target Target, stagingDir string, onProgress fetcher.ProgressFunc) (model.InstalledPackage, error) {
	pkg := target.Pkg

	digest, err := fetcher.Fetch(ctx, pkg, stagingDir, d.downloader, onProgress)
	if err != nil {
		return model.InstalledPackage{}, err
	}

	finalDir, err := resolveInstallDir(d.cfg.PackagesDir, digest, pkg.PkgName)
	if err != nil {
		return model.InstalledPackage{}, err
	}
	if err := os.MkdirAll(filepath.Dir(finalDir), 0755); err != nil {
		return model.InstalledPackage{}, errs.Wrap(errs.IOFailed, pkg.PkgName, "create packages directory", err)
	}
	if err := os.RemoveAll(finalDir); err != nil {
		return model.InstalledPackage{}, errs.Wrap(errs.IOFailed, pkg.PkgName, "clear install directory", err)
	}
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return model.InstalledPackage{}, errs.Wrap(errs.IOFailed, pkg.PkgName, "move staged install into place", err)
	}
	if err := writeDigestMarker(finalDir, digest); err != nil {
		return model.InstalledPackage{}, err
	}

	binPath := filepath.Join(finalDir, pkg.PkgName)
	iconPath, desktopPath, err := d.resolveResources(ctx, pkg, binPath, finalDir, onProgress)
	if err != nil {
		return model.InstalledPackage{}, err
	}

	integrated, err := desktop.Integrate(d.cfg, pkg.PkgName, iconPath, desktopPath)
	if err != nil {
		return model.InstalledPackage{}, err
	}

	if err := portable.Wire(target.Options, pkg.PkgType, pkg.PkgName, binPath); err != nil {
		return model.InstalledPackage{}, err
	}

	launcherPath := filepath.Join(d.cfg.BinDir, pkg.PkgName)
	if err := symlink.EnsureLink(binPath, launcherPath, d.cfg.PackagesDir); err != nil {
		return model.InstalledPackage{}, err
	}

	return model.InstalledPackage{
		Identity:      pkg.Identity,
		Pkg:           pkg.Pkg,
		Version:       pkg.Version,
		Size:          pkg.DisplaySize(),
		Checksum:      digest,
		InstalledPath: finalDir,
		BinPath:       launcherPath,
		InstalledDate: time.Now(),
		IsInstalled:   true,
		IconPath:      integrated.IconLink,
		DesktopPath:   integrated.DesktopLink,
	}, nil
}

// resolveResources decides, per spec.md §4.4 step 5, whether the icon and
// desktop entry come from an explicit catalog URL, in-bundle extraction,
// or (for the desktop entry only) a synthesized fallback.
func (d *Driver) resolveResources(ctx context.Context, pkg model.RemotePackage, binPath, installDir string, onProgress fetcher.ProgressFunc) (iconPath, desktopPath string, err error) {
	if pkg.IconURL != "" {
		iconPath = filepath.Join(installDir, pkg.PkgName+remoteIconExt(pkg.IconURL))
		if err := d.downloader.Download(ctx, pkg.IconURL, iconPath, onProgress); err != nil {
			return "", "", err
		}
	}
	if pkg.DesktopURL != "" {
		desktopPath = filepath.Join(installDir, pkg.PkgName+".desktop")
		if err := d.downloader.Download(ctx, pkg.DesktopURL, desktopPath, onProgress); err != nil {
			return "", "", err
		}
	}

	if iconPath == "" || desktopPath == "" {
		res, bundleErr := d.extractBundleResources(pkg, binPath, installDir)
		if bundleErr != nil {
			return "", "", bundleErr
		}
		if iconPath == "" {
			iconPath = res.IconPath
		}
		if desktopPath == "" {
			desktopPath = res.DesktopPath
		}
	}

	if desktopPath == "" {
		desktopPath = filepath.Join(installDir, pkg.PkgName+".desktop")
		if err := os.WriteFile(desktopPath, []byte(bundle.SynthesizeDesktopEntry(pkg.PkgName)), 0o644); err != nil {
			return "", "", errs.Wrap(errs.IOFailed, pkg.PkgName, "write synthesized desktop entry", err)
		}
	}
	return iconPath, desktopPath, nil
}

func remoteIconExt(url string) string {
	ext := filepath.Ext(url)
	if ext == "" {
		return ".png"
	}
	return ext
}

// extractBundleResources inspects binPath as a bundle, returning an empty
// Resources value (not an error) when it isn't one: a plain static binary
// has nothing to extract.
func (d *Driver) extractBundleResources(pkg model.RemotePackage, binPath, installDir string) (bundle.Resources, error) {
	f, err := os.Open(binPath)
	if err != nil {
		return bundle.Resources{}, errs.Wrap(errs.IOFailed, pkg.PkgName, "open installed binary", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return bundle.Resources{}, errs.Wrap(errs.IOFailed, pkg.PkgName, "stat installed binary", err)
	}

	if !bundle.IsBundle(f) {
		return bundle.Resources{}, nil
	}

	fs, err := bundle.OpenFilesystem(f, info.Size())
	if err != nil {
		return bundle.Resources{}, err
	}
	return bundle.ExtractResources(fs, pkg.PkgName, installDir)
}

// Update is Install with one additional step: on success, the previous
// ACTIVE install directory (if different from the new one) is removed.
// A failed update never touches the old row (spec.md §8 property 6):
// installOne only calls ledger.Activate, which replaces the row
// atomically, after every step through integration has already
// succeeded.
func (d *Driver) Update(ctx context.Context, target Target, onProgress fetcher.ProgressFunc) (model.InstalledPackage, error) {
	previous, prevErr := d.ledger.Get(ctx, target.Pkg.Identity)

	result, err := d.installOne(ctx, target, onProgress)
	if err != nil {
		return model.InstalledPackage{}, err
	}

	if prevErr == nil && previous.InstalledPath != result.InstalledPath {
		os.RemoveAll(previous.InstalledPath)
	}
	return result, nil
}

// Remove deletes an installed package: its launcher, icon, and desktop
// symlinks (if soar owns them), its install directory, and its ledger
// row. An unowned symlink at any of those paths aborts the whole remove
// with NotOurs before anything is deleted (spec.md §4.7).
func (d *Driver) Remove(ctx context.Context, id model.Identity) error {
	row, err := d.ledger.Get(ctx, id)
	if err != nil {
		return err
	}

	links := []string{row.BinPath}
	if row.IconPath != "" {
		links = append(links, row.IconPath)
	}
	if row.DesktopPath != "" {
		links = append(links, row.DesktopPath)
	}

	for _, link := range links {
		if err := requireOwnedOrAbsent(link); err != nil {
			return err
		}
	}
	for _, link := range links {
		if err := symlink.Remove(link); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(row.InstalledPath); err != nil {
		return errs.Wrap(errs.IOFailed, id.PkgName, "remove install directory", err)
	}
	return d.ledger.Remove(ctx, id)
}

func requireOwnedOrAbsent(linkPath string) error {
	info, err := os.Lstat(linkPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "stat "+linkPath, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return errs.New(errs.NotOurs, "", linkPath+" is not a symlink")
	}
	if !symlink.IsOwned(linkPath) {
		return errs.New(errs.NotOurs, "", linkPath+" is not soar-owned")
	}
	return nil
}

// Use re-points the launcher symlink at a specific installed version's
// binary, touching no other integration (spec.md §4.7).
func (d *Driver) Use(ctx context.Context, id model.Identity) error {
	row, err := d.ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	binPath := filepath.Join(row.InstalledPath, id.PkgName)
	launcherPath := filepath.Join(d.cfg.BinDir, id.PkgName)
	return symlink.EnsureLink(binPath, launcherPath, d.cfg.PackagesDir)
}

// resolveInstallDir derives the content-addressed install directory name
// and, on an 8-hex collision with an unrelated package's content,
// progressively extends the prefix length (spec.md §9: "Implementers
// should detect collisions...and fall back to longer prefixes").
func resolveInstallDir(packagesDir, digest, pkgName string) (string, error) {
	for _, n := range []int{8, 16, 32, 64} {
		prefixLen := n
		if prefixLen > len(digest) {
			prefixLen = len(digest)
		}
		name := digest[:prefixLen] + "-" + pkgName
		dir := filepath.Join(packagesDir, name)

		existingDigest, err := readDigestMarker(dir)
		if err != nil && !os.IsNotExist(err) {
			return "", errs.Wrap(errs.IOFailed, pkgName, "probe install directory "+dir, err)
		}
		if os.IsNotExist(err) || existingDigest == digest {
			return dir, nil
		}
		if prefixLen == len(digest) {
			break
		}
	}
	return "", errs.New(errs.IOFailed, pkgName, "exhausted content-address prefix lengths resolving a collision")
}

const digestMarkerName = ".soar.bsum"

func writeDigestMarker(installDir, digest string) error {
	if err := os.WriteFile(filepath.Join(installDir, digestMarkerName), []byte(digest), 0o644); err != nil {
		return errs.Wrap(errs.IOFailed, "", "write content-address marker", err)
	}
	return nil
}

func readDigestMarker(installDir string) (string, error) {
	f, err := os.Open(filepath.Join(installDir, digestMarkerName))
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
