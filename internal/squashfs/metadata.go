package squashfs

import (
	"encoding/binary"
	"io"

	"github.com/soarpm/soar/internal/errs"
)

// metadataBlockSize is squashfs's fixed uncompressed metadata block size.
const metadataBlockSize = 8192

// readMetadataBlock reads one metadata block starting at archive offset
// off: a little-endian 2-byte header (high bit set means the payload
// that follows is stored uncompressed, low 15 bits are its length) plus
// the payload itself. It returns the decompressed payload and the
// archive offset immediately following the block.
func (rd *Reader) readMetadataBlock(off uint64) ([]byte, uint64, error) {
	var hdr [2]byte
	if _, err := rd.r.ReadAt(hdr[:], int64(off)); err != nil {
		return nil, 0, errs.Wrap(errs.BadBundle, "", "read metadata block header", err)
	}
	h := binary.LittleEndian.Uint16(hdr[:])
	size := h & 0x7fff
	uncompressed := h&0x8000 != 0

	payload := make([]byte, size)
	if size > 0 {
		if _, err := rd.r.ReadAt(payload, int64(off)+2); err != nil {
			return nil, 0, errs.Wrap(errs.BadBundle, "", "read metadata block payload", err)
		}
	}

	next := off + 2 + uint64(size)
	if uncompressed {
		return payload, next, nil
	}
	out, err := rd.decompress(payload)
	if err != nil {
		return nil, 0, err
	}
	return out, next, nil
}

// metadataCursor is a sequential reader over the inode or directory
// table, transparently crossing metadata block boundaries the way
// squashfs's own (block, offset) inode refs are meant to be dereferenced.
type metadataCursor struct {
	rd      *Reader
	blockAt uint64 // archive offset of the current metadata block
	buf     []byte
	pos     int
}

func (rd *Reader) newMetadataCursor(block uint64, offset uint16) (*metadataCursor, error) {
	buf, _, err := rd.readMetadataBlock(block)
	if err != nil {
		return nil, err
	}
	if int(offset) > len(buf) {
		return nil, errs.New(errs.BadBundle, "", "metadata offset beyond block")
	}
	return &metadataCursor{rd: rd, blockAt: block, buf: buf, pos: int(offset)}, nil
}

func (c *metadataCursor) read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if c.pos >= len(c.buf) {
			nextBlock := c.blockAt
			// advance past the block we just consumed
			_, next, err := c.rd.readMetadataBlockOffsetOnly(c.blockAt)
			if err != nil {
				return nil, err
			}
			if next == nextBlock {
				return nil, errs.Wrap(errs.BadBundle, "", "metadata cursor stalled", io.ErrUnexpectedEOF)
			}
			buf, _, err := c.rd.readMetadataBlock(next)
			if err != nil {
				return nil, err
			}
			c.blockAt = next
			c.buf = buf
			c.pos = 0
			continue
		}
		take := n - len(out)
		if avail := len(c.buf) - c.pos; avail < take {
			take = avail
		}
		out = append(out, c.buf[c.pos:c.pos+take]...)
		c.pos += take
	}
	return out, nil
}

// readMetadataBlockOffsetOnly returns just the next-block archive offset
// for a block already read, without re-decompressing its payload twice.
func (rd *Reader) readMetadataBlockOffsetOnly(off uint64) ([]byte, uint64, error) {
	var hdr [2]byte
	if _, err := rd.r.ReadAt(hdr[:], int64(off)); err != nil {
		return nil, 0, errs.Wrap(errs.BadBundle, "", "read metadata block header", err)
	}
	h := binary.LittleEndian.Uint16(hdr[:])
	size := h & 0x7fff
	return nil, off + 2 + uint64(size), nil
}

func (c *metadataCursor) readUint16() (uint16, error) {
	b, err := c.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *metadataCursor) readUint32() (uint32, error) {
	b, err := c.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *metadataCursor) readUint64() (uint64, error) {
	b, err := c.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *metadataCursor) readInt16() (int16, error) {
	v, err := c.readUint16()
	return int16(v), err
}
