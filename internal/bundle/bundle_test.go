package bundle

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarpm/soar/internal/squashfs"
)

func TestIsBundleMatchesSignature(t *testing.T) {
	buf := append(append([]byte{}, Signature...), make([]byte, 16)...)
	require.True(t, IsBundle(bytes.NewReader(buf)))
}

func TestIsBundleRejectsNonMatch(t *testing.T) {
	buf := make([]byte, 32)
	require.False(t, IsBundle(bytes.NewReader(buf)))
}

func TestLocateFilesystemFindsMagicOffset(t *testing.T) {
	buf := make([]byte, 4096)
	copy(buf[1000:], "hsqs")

	off, err := LocateFilesystem(bytes.NewReader(buf), int64(len(buf)))
	require.NoError(t, err)
	require.Equal(t, int64(1000), off)
}

func TestLocateFilesystemNoMagicFails(t *testing.T) {
	buf := make([]byte, 4096)
	_, err := LocateFilesystem(bytes.NewReader(buf), int64(len(buf)))
	require.Error(t, err)
}

func TestSynthesizeDesktopEntryShape(t *testing.T) {
	entry := SynthesizeDesktopEntry("hello")
	require.Contains(t, entry, "Type=Application")
	require.Contains(t, entry, "Name=hello")
	require.Contains(t, entry, "Icon=hello")
	require.Contains(t, entry, "Exec=hello")
	require.Contains(t, entry, "Categories=Utility;")
}

type testFile struct {
	name    string
	content []byte
}

// buildSquashfsImage assembles a minimal squashfs 4.0 image holding a
// root directory of files, using the same uncompressed-block convention
// internal/squashfs's own tests use, so ExtractResources can be
// exercised against it without a real compressor.
func buildSquashfsImage(files []testFile) []byte {
	const (
		idTablePtrOff = 96
		idBlockOff    = 104
		dataOff       = 110
	)

	offsets := make([]int, len(files))
	dataSize := 0
	for i, f := range files {
		offsets[i] = dataOff + dataSize
		dataSize += len(f.content)
	}

	buf := make([]byte, dataOff+dataSize)
	binary.LittleEndian.PutUint64(buf[idTablePtrOff:], idBlockOff)
	binary.LittleEndian.PutUint16(buf[idBlockOff:], 0x8000|4)
	binary.LittleEndian.PutUint32(buf[idBlockOff+2:], 0)
	for i, f := range files {
		copy(buf[offsets[i]:], f.content)
	}

	inodeTableStart := dataOff + dataSize

	rootRec := make([]byte, 32)
	binary.LittleEndian.PutUint16(rootRec[0:], 1) // onDiskDir
	binary.LittleEndian.PutUint16(rootRec[2:], 0o40755)
	binary.LittleEndian.PutUint32(rootRec[12:], 1) // inode_number
	binary.LittleEndian.PutUint32(rootRec[16:], 0) // dir block_start
	binary.LittleEndian.PutUint32(rootRec[20:], uint32(len(files)))

	fileRecs := make([][]byte, len(files))
	fileOff := make([]int, len(files))
	cursor := 32
	for i, f := range files {
		rec := make([]byte, 36)
		binary.LittleEndian.PutUint16(rec[0:], 2) // onDiskFile
		binary.LittleEndian.PutUint16(rec[2:], 0o100644)
		binary.LittleEndian.PutUint32(rec[12:], uint32(i+2)) // inode_number
		binary.LittleEndian.PutUint32(rec[16:], uint32(offsets[i]))
		binary.LittleEndian.PutUint32(rec[20:], 0xffffffff) // frag_index none
		binary.LittleEndian.PutUint32(rec[28:], uint32(len(f.content)))
		binary.LittleEndian.PutUint32(rec[32:], uint32(len(f.content))|(1<<24))
		fileRecs[i] = rec
		fileOff[i] = cursor
		cursor += len(rec)
	}

	inodePayload := append([]byte{}, rootRec...)
	for _, r := range fileRecs {
		inodePayload = append(inodePayload, r...)
	}

	dirEntriesPayload := []byte{}
	for i, f := range files {
		entry := make([]byte, 8+len(f.name))
		binary.LittleEndian.PutUint16(entry[0:], uint16(fileOff[i]))
		binary.LittleEndian.PutUint16(entry[2:], uint16(int16(i+1))) // inode_number_offset (base=1)
		binary.LittleEndian.PutUint16(entry[4:], 2)                  // onDiskFile
		binary.LittleEndian.PutUint16(entry[6:], uint16(len(f.name)-1))
		copy(entry[8:], f.name)
		dirEntriesPayload = append(dirEntriesPayload, entry...)
	}
	dirHeader := make([]byte, 12)
	binary.LittleEndian.PutUint32(dirHeader[0:], uint32(len(files)-1))
	binary.LittleEndian.PutUint32(dirHeader[4:], 0)
	binary.LittleEndian.PutUint32(dirHeader[8:], 1)
	dirPayload := append(dirHeader, dirEntriesPayload...)

	rootRec[24] = byte((len(dirPayload) + 3) & 0xff)
	rootRec[25] = byte(((len(dirPayload) + 3) >> 8) & 0xff)
	// rebuild inodePayload since rootRec was mutated in place after append copied it
	inodePayload = append([]byte{}, rootRec...)
	for _, r := range fileRecs {
		inodePayload = append(inodePayload, r...)
	}

	inodeBlock := make([]byte, 2+len(inodePayload))
	binary.LittleEndian.PutUint16(inodeBlock, 0x8000|uint16(len(inodePayload)))
	copy(inodeBlock[2:], inodePayload)

	dirTableStart := inodeTableStart + len(inodeBlock)
	dirBlock := make([]byte, 2+len(dirPayload))
	binary.LittleEndian.PutUint16(dirBlock, 0x8000|uint16(len(dirPayload)))
	copy(dirBlock[2:], dirPayload)

	total := dirTableStart + len(dirBlock)
	full := make([]byte, total)
	copy(full, buf)
	copy(full[inodeTableStart:], inodeBlock)
	copy(full[dirTableStart:], dirBlock)

	sb := make([]byte, 96)
	binary.LittleEndian.PutUint32(sb[0:], 0x73717368)
	binary.LittleEndian.PutUint32(sb[4:], uint32(len(files)+1))
	binary.LittleEndian.PutUint32(sb[12:], 131072)
	binary.LittleEndian.PutUint16(sb[20:], 1) // gzip id, unused (all blocks uncompressed)
	binary.LittleEndian.PutUint16(sb[26:], 1) // no_ids
	binary.LittleEndian.PutUint16(sb[28:], 4) // s_major
	binary.LittleEndian.PutUint64(sb[32:], 0) // root_inode
	binary.LittleEndian.PutUint64(sb[40:], uint64(total))
	binary.LittleEndian.PutUint64(sb[48:], idTablePtrOff)
	binary.LittleEndian.PutUint64(sb[64:], uint64(inodeTableStart))
	binary.LittleEndian.PutUint64(sb[72:], uint64(dirTableStart))
	copy(full, sb)

	return full
}

func TestExtractResourcesWritesIconAndDesktop(t *testing.T) {
	pngContent := append(append([]byte{}, pngSignature...), []byte("...fakepng...")...)
	desktopContent := []byte("[Desktop Entry]\nType=Application\nIcon=hello\nExec=hello\n")

	img := buildSquashfsImage([]testFile{
		{name: ".DirIcon", content: pngContent},
		{name: "hello.desktop", content: desktopContent},
	})

	fs, err := squashfs.Open(bytes.NewReader(img))
	require.NoError(t, err)

	installDir := t.TempDir()
	res, err := ExtractResources(fs, "hello", installDir)
	require.NoError(t, err)
	require.Equal(t, installDir+"/hello.png", res.IconPath)
	require.Equal(t, installDir+"/hello.desktop", res.DesktopPath)
}
