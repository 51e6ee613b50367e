package squashfs

import (
	"bytes"
	"io"

	"github.com/soarpm/soar/internal/errs"
)

// fileReader materializes a regular file inode's content: the direct
// data blocks listed in inode.blockSizes, followed by the fragment-tail
// bytes when the inode has one. Content is buffered in full rather than
// streamed lazily, which is acceptable for the single-binary and
// desktop/icon payloads this reader is used for.
func (rd *Reader) fileReader(inode Inode) (io.Reader, error) {
	var out bytes.Buffer
	off := inode.blocksStart
	blockSize := uint64(rd.sb.BlockSize)
	remaining := inode.fileSize

	for _, b := range inode.blockSizes {
		n := blockSize
		if remaining < n {
			n = remaining
		}
		data := make([]byte, b.size)
		if b.size > 0 {
			if _, err := rd.r.ReadAt(data, int64(off)); err != nil {
				return nil, errs.Wrap(errs.BadBundle, "", "read squashfs data block", err)
			}
		}
		if !b.uncompressed {
			dec, err := rd.decompress(data)
			if err != nil {
				return nil, err
			}
			data = dec
		}
		if uint64(len(data)) > n {
			data = data[:n]
		}
		out.Write(data)
		off += uint64(b.size)
		remaining -= n
	}

	if inode.fragIndex != 0xffffffff && remaining > 0 {
		frag, err := rd.fragment(inode.fragIndex)
		if err != nil {
			return nil, err
		}
		data := make([]byte, frag.size)
		if frag.size > 0 {
			if _, err := rd.r.ReadAt(data, int64(frag.start)); err != nil {
				return nil, errs.Wrap(errs.BadBundle, "", "read squashfs fragment block", err)
			}
		}
		if !frag.uncompressed {
			dec, err := rd.decompress(data)
			if err != nil {
				return nil, err
			}
			data = dec
		}
		start := inode.blockOffset
		end := uint64(start) + remaining
		if end > uint64(len(data)) {
			return nil, errs.New(errs.BadBundle, "", "fragment tail exceeds decompressed fragment size")
		}
		out.Write(data[start:end])
	}

	return bytes.NewReader(out.Bytes()), nil
}
