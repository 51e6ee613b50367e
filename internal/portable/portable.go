// Package portable implements C9, the portable-data wirer: linking a
// package's private $HOME and/or config directory alongside its binary
// per the --portable/--portable-home/--portable-config install flags
// (spec.md §4.6).
package portable

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/symlink"
)

// Options mirrors the three mutually constrained install-time flags. A
// flag is "set" when its pointer is non-nil; an empty string means the
// flag was passed with no value ("create a fresh directory alongside the
// binary").
type Options struct {
	Portable       *string
	PortableHome   *string
	PortableConfig *string
}

// Validate reports the spec.md §6 exit-code-2 condition: --portable
// combined with either of the other two flags.
func (o Options) Validate() error {
	if o.Portable != nil && (o.PortableHome != nil || o.PortableConfig != nil) {
		return errs.New(errs.Config, "", "--portable is mutually exclusive with --portable-home/--portable-config")
	}
	return nil
}

// Wire creates and links whatever private directories o requests
// alongside binPath (the real installed binary, not the bin/ launcher
// symlink). For PackageTypeContainer, the home knob is ignored per
// spec.md §4.6; only config is honored.
func Wire(o Options, pkgType model.PackageType, pkgName, binPath string) error {
	if err := o.Validate(); err != nil {
		return err
	}

	home := o.PortableHome
	cfgDir := o.PortableConfig
	if o.Portable != nil {
		home = o.Portable
		cfgDir = o.Portable
	}

	if pkgType == model.PackageTypeContainer {
		home = nil
	}

	if home != nil {
		if err := wireOne(*home, pkgName, binPath, ".home"); err != nil {
			return fmt.Errorf("portable: wire home directory: %w", err)
		}
	}
	if cfgDir != nil {
		if err := wireOne(*cfgDir, pkgName, binPath, ".config"); err != nil {
			return fmt.Errorf("portable: wire config directory: %w", err)
		}
	}
	return nil
}

// wireOne realizes one of the two knobs: base=="" creates a fresh
// directory at binPath+suffix; a non-empty base creates
// <base>/<pkgName><suffix> and symlinks it into binPath+suffix.
func wireOne(base, pkgName, binPath, suffix string) error {
	linkPath := binPath + suffix

	if base == "" {
		if err := os.MkdirAll(linkPath, 0755); err != nil {
			return fmt.Errorf("create %s: %w", linkPath, err)
		}
		return nil
	}

	target := filepath.Join(base, pkgName+suffix)
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	return symlink.EnsureLink(target, linkPath, "")
}
