package squashfs

// On-disk inode type tags (squashfs 4.0). Types 8-14 are the "extended"
// variants of types 1-7, carrying the same data plus xattr/hardlink
// bookkeeping this reader does not need to expose.
const (
	onDiskDir         = 1
	onDiskFile        = 2
	onDiskSymlink     = 3
	onDiskBlockDev    = 4
	onDiskCharDev     = 5
	onDiskFifo        = 6
	onDiskSocket      = 7
	onDiskExtDir      = 8
	onDiskExtFile     = 9
	onDiskExtSymlink  = 10
	onDiskExtBlockDev = 11
	onDiskExtCharDev  = 12
	onDiskExtFifo     = 13
	onDiskExtSocket   = 14
)

// Type is the reader-facing inode classification: the extended/basic
// on-disk distinction collapses to the same Type, since callers of this
// package never need to know which variant backed a given entry.
type Type int

const (
	TypeDirectory Type = iota
	TypeFile
	TypeSymlink
	TypeOther
)

// Inode is a decoded squashfs inode, with enough of the basic or
// extended variant's fields resolved to satisfy Readdir/Open/ReadSymlink.
type Inode struct {
	Type Type
	Mode uint16
	UID  uint32
	GID  uint32

	// directory fields
	dirBlockStart uint32
	dirOffset     uint16
	dirFileSize   uint32

	// file fields
	blocksStart uint64
	fragIndex   uint32
	blockOffset uint32
	fileSize    uint64

	// symlink
	SymlinkTarget string

	// file block list, one entry per full block (absent for the
	// fragment-tail bytes, if any)
	blockSizes []blockEntry
}

func (rd *Reader) readInode(ref inodeRef) (Inode, error) {
	cur, err := rd.newMetadataCursor(rd.sb.InodeTableStart+ref.block, ref.off)
	if err != nil {
		return Inode{}, err
	}

	typ, err := cur.readUint16()
	if err != nil {
		return Inode{}, err
	}
	mode, err := cur.readUint16()
	if err != nil {
		return Inode{}, err
	}
	uidIdx, err := cur.readUint16()
	if err != nil {
		return Inode{}, err
	}
	gidIdx, err := cur.readUint16()
	if err != nil {
		return Inode{}, err
	}
	if _, err := cur.readUint32(); err != nil { // mtime
		return Inode{}, err
	}
	if _, err := cur.readUint32(); err != nil { // inode_number
		return Inode{}, err
	}

	inode := Inode{Mode: mode, UID: rd.idLookup(uidIdx), GID: rd.idLookup(gidIdx)}

	switch typ {
	case onDiskDir:
		blockStart, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		if _, err := cur.readUint32(); err != nil { // hard_link_count
			return Inode{}, err
		}
		fileSize, err := cur.readUint16()
		if err != nil {
			return Inode{}, err
		}
		offset, err := cur.readUint16()
		if err != nil {
			return Inode{}, err
		}
		if _, err := cur.readUint32(); err != nil { // parent_inode
			return Inode{}, err
		}
		inode.Type = TypeDirectory
		inode.dirBlockStart = blockStart
		inode.dirFileSize = uint32(fileSize)
		inode.dirOffset = offset
		return inode, nil

	case onDiskExtDir:
		if _, err := cur.readUint32(); err != nil { // nlink
			return Inode{}, err
		}
		fileSize, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		blockStart, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		if _, err := cur.readUint32(); err != nil { // parent_inode
			return Inode{}, err
		}
		idxCount, err := cur.readUint16()
		if err != nil {
			return Inode{}, err
		}
		offset, err := cur.readUint16()
		if err != nil {
			return Inode{}, err
		}
		if _, err := cur.readUint32(); err != nil { // xattr
			return Inode{}, err
		}
		if err := skipDirIndex(cur, idxCount); err != nil {
			return Inode{}, err
		}
		inode.Type = TypeDirectory
		inode.dirBlockStart = blockStart
		inode.dirFileSize = fileSize
		inode.dirOffset = offset
		return inode, nil

	case onDiskFile:
		blocksStart, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		fragIndex, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		blockOffset, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		fileSize, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		inode.Type = TypeFile
		inode.blocksStart = uint64(blocksStart)
		inode.fragIndex = fragIndex
		inode.blockOffset = blockOffset
		inode.fileSize = uint64(fileSize)
		if err := rd.readBlockSizes(cur, &inode); err != nil {
			return Inode{}, err
		}
		return inode, nil

	case onDiskExtFile:
		blocksStart, err := cur.readUint64()
		if err != nil {
			return Inode{}, err
		}
		fileSize, err := cur.readUint64()
		if err != nil {
			return Inode{}, err
		}
		if _, err := cur.readUint64(); err != nil { // sparse
			return Inode{}, err
		}
		if _, err := cur.readUint32(); err != nil { // hard_link_count
			return Inode{}, err
		}
		fragIndex, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		blockOffset, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		if _, err := cur.readUint32(); err != nil { // xattr_idx
			return Inode{}, err
		}
		inode.Type = TypeFile
		inode.blocksStart = blocksStart
		inode.fragIndex = fragIndex
		inode.blockOffset = blockOffset
		inode.fileSize = fileSize
		if err := rd.readBlockSizes(cur, &inode); err != nil {
			return Inode{}, err
		}
		return inode, nil

	case onDiskSymlink, onDiskExtSymlink:
		if _, err := cur.readUint32(); err != nil { // hard_link_count
			return Inode{}, err
		}
		targetSize, err := cur.readUint32()
		if err != nil {
			return Inode{}, err
		}
		target, err := cur.read(int(targetSize))
		if err != nil {
			return Inode{}, err
		}
		inode.Type = TypeSymlink
		inode.SymlinkTarget = string(target)
		return inode, nil

	default:
		inode.Type = TypeOther
		return inode, nil
	}
}

func skipDirIndex(cur *metadataCursor, count uint16) error {
	for i := uint16(0); i < count; i++ {
		if _, err := cur.readUint32(); err != nil { // index
			return err
		}
		if _, err := cur.readUint32(); err != nil { // start
			return err
		}
		nameSize, err := cur.readUint32()
		if err != nil {
			return err
		}
		if _, err := cur.read(int(nameSize) + 1); err != nil {
			return err
		}
	}
	return nil
}

// blockEntry is one of the per-block compressed-size entries a file inode
// is followed by: bit 24 set means the block is stored uncompressed, the
// low 24 bits are its size on disk.
type blockEntry struct {
	size         uint32
	uncompressed bool
}

func (rd *Reader) readBlockSizes(cur *metadataCursor, inode *Inode) error {
	if inode.fileSize == 0 {
		return nil
	}
	blockSize := uint64(rd.sb.BlockSize)
	fullBlocks := inode.fileSize / blockSize
	hasFragment := inode.fragIndex != 0xffffffff
	if !hasFragment && inode.fileSize%blockSize != 0 {
		fullBlocks++
	}

	blocks := make([]blockEntry, 0, fullBlocks)
	for i := uint64(0); i < fullBlocks; i++ {
		raw, err := cur.readUint32()
		if err != nil {
			return err
		}
		blocks = append(blocks, blockEntry{size: raw &^ (1 << 24), uncompressed: raw&(1<<24) != 0})
	}
	inode.blockSizes = blocks
	return nil
}
