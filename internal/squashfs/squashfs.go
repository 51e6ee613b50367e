// Package squashfs implements the minimal read-only subset of the
// squashfs 4.0 on-disk format needed by the bundle inspector (C7) to
// enumerate a root directory and stream selected file contents without
// extracting the whole image: the superblock, the id table, a
// metadata-block reader, basic/extended directory inodes, and
// basic/extended file inodes.
package squashfs

import (
	"encoding/binary"
	"io"

	"github.com/soarpm/soar/internal/errs"
)

const magic = 0x73717368 // "hsqs" little-endian

// Compression ids from the squashfs superblock.
const (
	compGzip = 1
	compLzma = 2
	compLzo  = 3
	compXz   = 4
	compLz4  = 5
	compZstd = 6
)

// superblock is the 96-byte squashfs 4.0 superblock.
type superblock struct {
	Magic             uint32
	InodeCount        uint32
	ModTime           uint32
	BlockSize         uint32
	FragCount         uint32
	Compression       uint16
	BlockLog          uint16
	Flags             uint16
	NoIDs             uint16
	SMajor            uint16
	SMinor            uint16
	RootInode         uint64
	BytesUsed         uint64
	IDTableStart      uint64
	XattrIDTableStart uint64
	InodeTableStart   uint64
	DirTableStart     uint64
	FragTableStart    uint64
	ExportTableStart  uint64
}

const superblockSize = 96

// Reader is an open, read-only squashfs image.
type Reader struct {
	r        io.ReaderAt
	sb       superblock
	ids      []uint32
	root     inodeRef
	fragments []fragmentEntry
}

// inodeRef is the packed (metadata-block-start, offset) pair squashfs
// uses to address an inode within the inode table.
type inodeRef struct {
	block uint64
	off   uint16
}

func unpackInodeRef(v uint64) inodeRef {
	return inodeRef{block: v >> 16, off: uint16(v & 0xffff)}
}

// Open parses the superblock of r and returns a Reader positioned at the
// root directory.
func Open(r io.ReaderAt) (*Reader, error) {
	buf := make([]byte, superblockSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, errs.Wrap(errs.BadBundle, "", "read squashfs superblock", err)
	}

	sb := superblock{
		Magic:             binary.LittleEndian.Uint32(buf[0:4]),
		InodeCount:        binary.LittleEndian.Uint32(buf[4:8]),
		ModTime:           binary.LittleEndian.Uint32(buf[8:12]),
		BlockSize:         binary.LittleEndian.Uint32(buf[12:16]),
		FragCount:         binary.LittleEndian.Uint32(buf[16:20]),
		Compression:       binary.LittleEndian.Uint16(buf[20:22]),
		BlockLog:          binary.LittleEndian.Uint16(buf[22:24]),
		Flags:             binary.LittleEndian.Uint16(buf[24:26]),
		NoIDs:             binary.LittleEndian.Uint16(buf[26:28]),
		SMajor:            binary.LittleEndian.Uint16(buf[28:30]),
		SMinor:            binary.LittleEndian.Uint16(buf[30:32]),
		RootInode:         binary.LittleEndian.Uint64(buf[32:40]),
		BytesUsed:         binary.LittleEndian.Uint64(buf[40:48]),
		IDTableStart:      binary.LittleEndian.Uint64(buf[48:56]),
		XattrIDTableStart: binary.LittleEndian.Uint64(buf[56:64]),
		InodeTableStart:   binary.LittleEndian.Uint64(buf[64:72]),
		DirTableStart:     binary.LittleEndian.Uint64(buf[72:80]),
		FragTableStart:    binary.LittleEndian.Uint64(buf[80:88]),
		ExportTableStart:  binary.LittleEndian.Uint64(buf[88:96]),
	}

	if sb.Magic != magic {
		return nil, errs.New(errs.BadBundle, "", "not a squashfs image: bad magic")
	}
	if sb.SMajor != 4 {
		return nil, errs.New(errs.BadBundle, "", "unsupported squashfs version")
	}

	switch sb.Compression {
	case compGzip, compXz:
	default:
		return nil, errs.New(errs.BadBundle, "", "unsupported squashfs compression id")
	}

	ids, err := readIDTable(r, sb)
	if err != nil {
		return nil, err
	}

	return &Reader{r: r, sb: sb, ids: ids, root: unpackInodeRef(sb.RootInode)}, nil
}

// decompress dispatches a metadata or data block to the codec named by
// the superblock's compression id. gzip and xz are supported; lzo, lzma,
// lz4 and zstd report a clear BadBundle error rather than silently
// truncating.
func (rd *Reader) decompress(compressed []byte) ([]byte, error) {
	return decompressBlock(rd.sb.Compression, compressed)
}

// Root returns the root directory's inode.
func (rd *Reader) Root() (Inode, error) {
	return rd.readInode(rd.root)
}

// Readdir lists dir's entries.
func (rd *Reader) Readdir(dir Inode) ([]DirEntry, error) {
	if dir.Type != TypeDirectory {
		return nil, errs.New(errs.BadBundle, "", "not a directory")
	}
	return rd.readDirectory(dir)
}

// Open returns a reader over a regular file inode's content.
func (rd *Reader) Open(f Inode) (io.Reader, error) {
	if f.Type != TypeFile {
		return nil, errs.New(errs.BadBundle, "", "not a regular file")
	}
	return rd.fileReader(f)
}

// ReadSymlink returns a symlink inode's target path (relative, as stored).
func (rd *Reader) ReadSymlink(s Inode) (string, error) {
	if s.Type != TypeSymlink {
		return "", errs.New(errs.BadBundle, "", "not a symlink")
	}
	return s.SymlinkTarget, nil
}

// Lookup walks names from the root directory, following symlinks up to a
// fixed depth and failing with BadBundle on a cycle.
func (rd *Reader) Lookup(names ...string) (Inode, error) {
	current, err := rd.Root()
	if err != nil {
		return Inode{}, err
	}

	const maxSymlinkHops = 8
	visited := map[string]bool{}

	for _, name := range names {
		if current.Type != TypeDirectory {
			return Inode{}, errs.New(errs.BadBundle, "", "path component is not a directory")
		}
		entries, err := rd.Readdir(current)
		if err != nil {
			return Inode{}, err
		}

		var next *Inode
		for _, e := range entries {
			if e.Name != name {
				continue
			}
			child, err := rd.readInode(e.InodeRef)
			if err != nil {
				return Inode{}, err
			}
			next = &child
			break
		}
		if next == nil {
			return Inode{}, errs.New(errs.NotFound, "", "no such entry: "+name)
		}

		hops := 0
		for next.Type == TypeSymlink {
			hops++
			if hops > maxSymlinkHops {
				return Inode{}, errs.New(errs.BadBundle, "", "symlink recursion exceeded depth limit")
			}
			key := next.SymlinkTarget
			if visited[key] {
				return Inode{}, errs.New(errs.BadBundle, "", "symlink cycle detected")
			}
			visited[key] = true
			resolved, err := rd.Lookup(splitPath(next.SymlinkTarget)...)
			if err != nil {
				return Inode{}, err
			}
			next = &resolved
		}
		current = *next
	}
	return current, nil
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	if start < len(p) {
		parts = append(parts, p[start:])
	}
	return parts
}
