// Package bundle implements C7, the bundle inspector: recognizing an
// AppImage-style self-extracting payload, locating its embedded
// squashfs image without unpacking the whole file, and extracting the
// icon, desktop entry, and appstream metadata it carries at its top
// level (spec.md §4.4).
package bundle

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/squashfs"
)

// Signature is the ELF+AppImage header spec.md §4.4 recognizes a bundle
// by (the first 16 bytes of a type-2 AppImage).
var Signature = []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01, 0x01, 0x00, 0x41, 0x49, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00}

// pngSignature is the 8-byte PNG file header.
var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

const squashfsMagic = "hsqs"

// IsBundle reports whether r's first 16 bytes match the known
// ELF+AppImage signature.
func IsBundle(r io.ReaderAt) bool {
	head := make([]byte, len(Signature))
	if _, err := r.ReadAt(head, 0); err != nil {
		return false
	}
	return bytes.Equal(head, Signature)
}

// LocateFilesystem scans r for the squashfs "hsqs" magic and returns the
// byte offset the embedded filesystem starts at. It reads in fixed
// windows so it never needs the whole file in memory; spec.md §4.4's
// "rewind the reader between scans" requirement is naturally satisfied
// since io.ReaderAt reads don't carry position state.
func LocateFilesystem(r io.ReaderAt, size int64) (int64, error) {
	const window = 1 << 20 // 1 MiB scan window
	buf := make([]byte, window+len(squashfsMagic)-1)

	for off := int64(0); off < size; off += window {
		n := int64(len(buf))
		if off+n > size {
			n = size - off
		}
		read := buf[:n]
		if _, err := r.ReadAt(read, off); err != nil && !errors.Is(err, io.EOF) {
			return 0, errs.Wrap(errs.BadBundle, "", "scan for squashfs magic", err)
		}
		if idx := bytes.Index(read, []byte(squashfsMagic)); idx != -1 {
			return off + int64(idx), nil
		}
	}
	return 0, errs.New(errs.BadBundle, "", "no embedded squashfs filesystem found")
}

// offsetReaderAt adapts an io.ReaderAt to one whose ReadAt(p, 0) begins
// base bytes into the underlying reader, so squashfs.Open can treat the
// embedded filesystem as if it started its own file.
type offsetReaderAt struct {
	r    io.ReaderAt
	base int64
}

func (o offsetReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return o.r.ReadAt(p, o.base+off)
}

// OpenFilesystem locates and opens the squashfs image embedded in r.
func OpenFilesystem(r io.ReaderAt, size int64) (*squashfs.Reader, error) {
	offset, err := LocateFilesystem(r, size)
	if err != nil {
		return nil, err
	}
	return squashfs.Open(offsetReaderAt{r: r, base: offset})
}

// Resources is what ExtractResources wrote into the install directory.
type Resources struct {
	IconPath     string // empty if no .DirIcon was found
	DesktopPath  string // empty if no *.desktop was found
	AppdataPath  string // empty if no appstream metadata was found
}

// ExtractResources enumerates fs's root directory and writes the
// top-level icon, desktop entry, and appstream metadata files it finds
// into installDir, named after pkgName (spec.md §4.4 step 3). Symlinks
// among top-level entries are resolved through fs.Lookup, which already
// rejects cycles with a typed error.
func ExtractResources(fs *squashfs.Reader, pkgName, installDir string) (Resources, error) {
	root, err := fs.Root()
	if err != nil {
		return Resources{}, err
	}
	entries, err := fs.Readdir(root)
	if err != nil {
		return Resources{}, err
	}

	var res Resources
	for _, e := range entries {
		switch {
		case e.Name == ".DirIcon":
			path, err := extractIcon(fs, e, pkgName, installDir)
			if err != nil {
				return Resources{}, err
			}
			res.IconPath = path

		case strings.HasSuffix(e.Name, ".desktop"):
			path := filepath.Join(installDir, pkgName+".desktop")
			if err := extractFile(fs, e, path); err != nil {
				return Resources{}, err
			}
			res.DesktopPath = path

		case strings.Contains(strings.ToLower(e.Name), "appdata"):
			path := filepath.Join(installDir, pkgName+".appdata.xml")
			if err := extractFile(fs, e, path); err != nil {
				return Resources{}, err
			}
			res.AppdataPath = path

		case strings.Contains(strings.ToLower(e.Name), "metainfo"):
			path := filepath.Join(installDir, pkgName+".metainfo.xml")
			if err := extractFile(fs, e, path); err != nil {
				return Resources{}, err
			}
			res.AppdataPath = path
		}
	}
	return res, nil
}

func extractIcon(fs *squashfs.Reader, e squashfs.DirEntry, pkgName, installDir string) (string, error) {
	inode, err := fs.Lookup(e.Name)
	if err != nil {
		return "", err
	}
	r, err := fs.Open(inode)
	if err != nil {
		return "", err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errs.Wrap(errs.BadBundle, pkgName, "read .DirIcon", err)
	}

	ext := "svg"
	if len(content) >= len(pngSignature) && bytes.Equal(content[:len(pngSignature)], pngSignature) {
		ext = "png"
	}

	path := filepath.Join(installDir, pkgName+"."+ext)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errs.Wrap(errs.IOFailed, pkgName, "write extracted icon", err)
	}
	return path, nil
}

func extractFile(fs *squashfs.Reader, e squashfs.DirEntry, destPath string) error {
	inode, err := fs.Lookup(e.Name)
	if err != nil {
		return err
	}
	r, err := fs.Open(inode)
	if err != nil {
		return err
	}

	f, err := os.Create(destPath)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "create "+destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return errs.Wrap(errs.IOFailed, "", "write "+destPath, err)
	}
	return nil
}

// SynthesizeDesktopEntry builds the minimal fallback desktop entry
// spec.md §4.4 step 5 describes, used when neither the bundle nor the
// catalog carries one.
func SynthesizeDesktopEntry(pkgName string) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=" + pkgName + "\n")
	b.WriteString("Icon=" + pkgName + "\n")
	b.WriteString("Exec=" + pkgName + "\n")
	b.WriteString("Categories=Utility;\n")
	return b.String()
}
