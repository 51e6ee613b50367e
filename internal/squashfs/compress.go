package squashfs

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz"

	"github.com/soarpm/soar/internal/errs"
)

// decompressBlock inflates a metadata or data block per the superblock's
// compression id. Only gzip and xz are wired; the remaining ids squashfs
// 4.0 allows (lzo, lzma, lz4, zstd) return a named, typed error instead of
// guessing at a format this reader cannot decode.
func decompressBlock(compression uint16, data []byte) ([]byte, error) {
	switch compression {
	case compGzip:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.Wrap(errs.BadBundle, "", "open gzip-compressed squashfs block", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, errs.Wrap(errs.BadBundle, "", "inflate gzip-compressed squashfs block", err)
		}
		return out, nil
	case compXz:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.Wrap(errs.BadBundle, "", "open xz-compressed squashfs block", err)
		}
		out, err := io.ReadAll(xr)
		if err != nil {
			return nil, errs.Wrap(errs.BadBundle, "", "inflate xz-compressed squashfs block", err)
		}
		return out, nil
	case compLzo, compLzma, compLz4, compZstd:
		return nil, errs.New(errs.BadBundle, "", "unsupported squashfs compression")
	default:
		return nil, errs.New(errs.BadBundle, "", "unknown squashfs compression id")
	}
}
