package squashfs

import (
	"encoding/binary"
	"io"

	"github.com/soarpm/soar/internal/errs"
)

// readIndexedTable reads a squashfs "indexed table": an array of 8-byte
// metadata-block pointers stored uncompressed at tableStart, each
// pointing at a metadata block packed with up to entriesPerBlock
// fixed-size records. The id table and the fragment table are both this
// shape, differing only in entry size and count.
func readIndexedTable(r io.ReaderAt, sb superblock, decompress func([]byte) ([]byte, error), tableStart uint64, entryCount int, entrySize int) ([][]byte, error) {
	if entryCount == 0 {
		return nil, nil
	}
	entriesPerBlock := metadataBlockSize / entrySize
	blockCount := (entryCount + entriesPerBlock - 1) / entriesPerBlock

	ptrs := make([]uint64, blockCount)
	ptrBuf := make([]byte, 8*blockCount)
	if _, err := r.ReadAt(ptrBuf, int64(tableStart)); err != nil {
		return nil, errs.Wrap(errs.BadBundle, "", "read indexed table pointers", err)
	}
	for i := range ptrs {
		ptrs[i] = binary.LittleEndian.Uint64(ptrBuf[i*8 : i*8+8])
	}

	entries := make([][]byte, 0, entryCount)
	for _, blockOff := range ptrs {
		buf, err := readRawMetadataBlock(r, decompress, blockOff)
		if err != nil {
			return nil, err
		}
		for off := 0; off+entrySize <= len(buf) && len(entries) < entryCount; off += entrySize {
			entries = append(entries, buf[off:off+entrySize])
		}
	}
	return entries, nil
}

func readRawMetadataBlock(r io.ReaderAt, decompress func([]byte) ([]byte, error), off uint64) ([]byte, error) {
	var hdr [2]byte
	if _, err := r.ReadAt(hdr[:], int64(off)); err != nil {
		return nil, errs.Wrap(errs.BadBundle, "", "read table metadata block header", err)
	}
	h := binary.LittleEndian.Uint16(hdr[:])
	size := h & 0x7fff
	uncompressed := h&0x8000 != 0

	payload := make([]byte, size)
	if size > 0 {
		if _, err := r.ReadAt(payload, int64(off)+2); err != nil {
			return nil, errs.Wrap(errs.BadBundle, "", "read table metadata block payload", err)
		}
	}
	if uncompressed {
		return payload, nil
	}
	return decompress(payload)
}

func readIDTable(r io.ReaderAt, sb superblock) ([]uint32, error) {
	raw, err := readIndexedTable(r, sb, func(b []byte) ([]byte, error) { return decompressBlock(sb.Compression, b) }, sb.IDTableStart, int(sb.NoIDs), 4)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, len(raw))
	for i, b := range raw {
		ids[i] = binary.LittleEndian.Uint32(b)
	}
	return ids, nil
}

func (rd *Reader) idLookup(index uint16) uint32 {
	if int(index) >= len(rd.ids) {
		return 0
	}
	return rd.ids[index]
}

// fragmentEntry is one row of the fragment table: the archive offset and
// on-disk size (with its own uncompressed bit) of a fragment block.
type fragmentEntry struct {
	start        uint64
	size         uint32
	uncompressed bool
}

func (rd *Reader) fragment(index uint32) (fragmentEntry, error) {
	if rd.fragments == nil && rd.sb.FragCount > 0 {
		raw, err := readIndexedTable(rd.r, rd.sb, rd.decompress, rd.sb.FragTableStart, int(rd.sb.FragCount), 16)
		if err != nil {
			return fragmentEntry{}, err
		}
		entries := make([]fragmentEntry, len(raw))
		for i, b := range raw {
			start := binary.LittleEndian.Uint64(b[0:8])
			sizeField := binary.LittleEndian.Uint32(b[8:12])
			entries[i] = fragmentEntry{
				start:        start,
				size:         sizeField &^ (1 << 24),
				uncompressed: sizeField&(1<<24) != 0,
			}
		}
		rd.fragments = entries
	}
	if int(index) >= len(rd.fragments) {
		return fragmentEntry{}, errs.New(errs.BadBundle, "", "fragment index out of range")
	}
	return rd.fragments[index], nil
}
