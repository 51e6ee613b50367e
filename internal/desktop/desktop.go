// Package desktop implements C8, the desktop integrator: normalizing an
// extracted icon to one of soar's canonical hicolor dimensions, rewriting
// a desktop entry's Icon/Exec/TryExec lines to point at soar's managed
// paths, and placing both under the user's data directory through the
// symlink farm.
//
// Image decoding and resizing follow the pattern tinyland-inc-pp's
// render package uses: image.Decode to auto-detect the format, then
// imaging.Resize with a high-quality filter, encoded back out with the
// standard library's png encoder.
package desktop

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/symlink"
)

// canonicalDimensions is the set of square hicolor sizes spec.md §4.5
// normalizes extracted icons to.
var canonicalDimensions = []int{16, 24, 32, 48, 64, 72, 80, 96, 128, 192, 256, 512}

// NearestDimension returns the canonical dimension closest to (w, h) by L1
// distance, ties broken toward the smaller dimension.
func NearestDimension(w, h int) int {
	best := canonicalDimensions[0]
	bestDist := l1Distance(w, h, best)
	for _, d := range canonicalDimensions[1:] {
		dist := l1Distance(w, h, d)
		if dist < bestDist || (dist == bestDist && d < best) {
			best = d
			bestDist = dist
		}
	}
	return best
}

func l1Distance(w, h, dim int) int {
	dw := w - dim
	if dw < 0 {
		dw = -dw
	}
	dh := h - dim
	if dh < 0 {
		dh = -dh
	}
	return dw + dh
}

// Result is what IntegrateIcon/IntegrateDesktop wrote.
type Result struct {
	Dimension  int    // the canonical square size the icon was normalized to
	IconLink   string // symlink placed under <data>/icons/hicolor/<W>x<H>/apps
	DesktopLink string // symlink placed under <data>/applications
}

// IntegrateIcon normalizes iconPath (a PNG or SVG already extracted into
// the package's install directory) and links it into the hicolor theme.
// SVGs are placed under the canonical 128x128 directory without resizing;
// PNGs are resaved in place at their normalized dimension before linking.
func IntegrateIcon(cfg *config.Config, pkgName, iconPath string) (string, int, error) {
	ext := strings.TrimPrefix(filepath.Ext(iconPath), ".")

	dim := 128
	if ext == "png" {
		content, err := os.ReadFile(iconPath)
		if err != nil {
			return "", 0, errs.Wrap(errs.IOFailed, pkgName, "read extracted icon", err)
		}
		img, _, err := image.Decode(bytes.NewReader(content))
		if err != nil {
			return "", 0, errs.Wrap(errs.BadBundle, pkgName, "decode icon", err)
		}
		bounds := img.Bounds()
		dim = NearestDimension(bounds.Dx(), bounds.Dy())

		resized := imaging.Resize(img, dim, dim, imaging.Lanczos)
		if err := imaging.Save(resized, iconPath); err != nil {
			return "", 0, errs.Wrap(errs.IOFailed, pkgName, "resave resized icon", err)
		}
	}

	linkPath := filepath.Join(cfg.IconDir(dim), pkgName+"-soar."+ext)
	if err := symlink.EnsureLink(iconPath, linkPath, cfg.PackagesDir); err != nil {
		return "", 0, err
	}
	return linkPath, dim, nil
}

// RewriteDesktopEntry applies spec.md §4.5's rewrite rules to a desktop
// entry read from srcPath: Icon= becomes Icon=<pkg_name>-soar, Exec=/
// TryExec= become <key>=<binDir>/<pkg_name>, comment lines are dropped,
// and every other line (and its order) is preserved. The rewritten entry
// replaces srcPath's content in place.
func RewriteDesktopEntry(pkgName, binDir, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return errs.Wrap(errs.IOFailed, pkgName, "open desktop entry", err)
	}
	defer f.Close()

	var out strings.Builder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "Icon="):
			out.WriteString("Icon=" + pkgName + "-soar\n")
		case strings.HasPrefix(line, "Exec="):
			out.WriteString("Exec=" + filepath.Join(binDir, pkgName) + "\n")
		case strings.HasPrefix(line, "TryExec="):
			out.WriteString("TryExec=" + filepath.Join(binDir, pkgName) + "\n")
		default:
			out.WriteString(line + "\n")
		}
	}
	if err := sc.Err(); err != nil {
		return errs.Wrap(errs.IOFailed, pkgName, "read desktop entry", err)
	}

	if err := os.WriteFile(srcPath, []byte(out.String()), 0o644); err != nil {
		return errs.Wrap(errs.IOFailed, pkgName, "rewrite desktop entry", err)
	}
	return nil
}

// IntegrateDesktop rewrites the desktop entry at desktopPath and links it
// into the applications directory.
func IntegrateDesktop(cfg *config.Config, pkgName, desktopPath string) (string, error) {
	if err := RewriteDesktopEntry(pkgName, cfg.BinDir, desktopPath); err != nil {
		return "", err
	}
	linkPath := filepath.Join(cfg.ApplicationsDir(), pkgName+"-soar.desktop")
	if err := symlink.EnsureLink(desktopPath, linkPath, cfg.PackagesDir); err != nil {
		return "", err
	}
	return linkPath, nil
}

// Integrate normalizes and links both the icon (if present) and the
// desktop entry (if present) for a package, returning the symlinks placed.
func Integrate(cfg *config.Config, pkgName, iconPath, desktopPath string) (Result, error) {
	var res Result
	if iconPath != "" {
		link, dim, err := IntegrateIcon(cfg, pkgName, iconPath)
		if err != nil {
			return Result{}, fmt.Errorf("desktop: integrate icon: %w", err)
		}
		res.IconLink = link
		res.Dimension = dim
	}
	if desktopPath != "" {
		link, err := IntegrateDesktop(cfg, pkgName, desktopPath)
		if err != nil {
			return Result{}, fmt.Errorf("desktop: integrate desktop entry: %w", err)
		}
		res.DesktopLink = link
	}
	return res, nil
}
