package squashfs

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name     string
	Type     Type
	InodeRef inodeRef
}

// readDirectory decodes the directory table entries for dir, starting at
// (DirTableStart+dirBlockStart, dirOffset) and reading dirFileSize-3
// bytes of header+entry records (squashfs's own historical "+3" overhead
// convention for a directory inode's file_size field).
func (rd *Reader) readDirectory(dir Inode) ([]DirEntry, error) {
	if dir.dirFileSize < 3 {
		return nil, nil
	}

	cur, err := rd.newMetadataCursor(rd.sb.DirTableStart+uint64(dir.dirBlockStart), dir.dirOffset)
	if err != nil {
		return nil, err
	}

	remaining := int(dir.dirFileSize) - 3
	var entries []DirEntry

	for remaining > 0 {
		count, err := cur.readUint32()
		if err != nil {
			return nil, err
		}
		startBlock, err := cur.readUint32()
		if err != nil {
			return nil, err
		}
		baseInodeNum, err := cur.readUint32()
		if err != nil {
			return nil, err
		}
		remaining -= 12

		for i := uint32(0); i <= count; i++ {
			offset, err := cur.readUint16()
			if err != nil {
				return nil, err
			}
			inoOffset, err := cur.readInt16()
			if err != nil {
				return nil, err
			}
			onDiskType, err := cur.readUint16()
			if err != nil {
				return nil, err
			}
			nameSize, err := cur.readUint16()
			if err != nil {
				return nil, err
			}
			name, err := cur.read(int(nameSize) + 1)
			if err != nil {
				return nil, err
			}
			remaining -= 8 + int(nameSize) + 1

			_ = baseInodeNum
			_ = inoOffset
			entries = append(entries, DirEntry{
				Name:     string(name),
				Type:     entryType(onDiskType),
				InodeRef: inodeRef{block: uint64(startBlock), off: offset},
			})
		}
	}
	return entries, nil
}

func entryType(onDisk uint16) Type {
	switch onDisk {
	case onDiskDir, onDiskExtDir:
		return TypeDirectory
	case onDiskFile, onDiskExtFile:
		return TypeFile
	case onDiskSymlink, onDiskExtSymlink:
		return TypeSymlink
	default:
		return TypeOther
	}
}
