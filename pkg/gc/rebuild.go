// Package gc provides GameCube-specific structures and functionality.
// This file contains the rebuilder that serializes the virtual file tree
// back into a structurally valid disc image.
package gc

import (
	"bytes"
	"fmt"

	"github.com/jamesbrq/gcmtools/pkg/common"
)

// Layout holds the alignment parameters of the container. Callers targeting
// variant layouts can override the defaults.
type Layout struct {
	SectorAlign uint32 // alignment of newly placed file data
	BlobAlign   uint32 // alignment of the apploader and executable
	TrimAlign   uint32 // alignment of the final image length
}

// DefaultLayout returns the standard GameCube alignments
func DefaultLayout() Layout {
	return Layout{
		SectorAlign: 2048,
		BlobAlign:   32,
		TrimAlign:   32768,
	}
}

// flatEntry is one table record in the filtered (post-sys-exclusion) index
// space, produced by a pre-order walk with name-sorted children.
type flatEntry struct {
	name   string
	path   string
	dir    bool
	file   *FileNode
	parent uint32
	next   uint32

	// assigned placement for files
	dataOffset uint32
	dataSize   uint32
	modified   bool
}

// Rebuild walks the tree, assigns data offsets, re-encodes the table and
// name strings, patches the header pointers and returns a new image buffer.
// The original image is never mutated. Any error aborts the rebuild; no
// partial buffer is ever returned.
func (d *Disc) Rebuild(layout Layout) ([]byte, error) {
	entries, err := d.flattenTree()
	if err != nil {
		return nil, err
	}

	nameOffsets, nameTable, err := buildNameTable(entries)
	if err != nil {
		return nil, err
	}
	tableSize, err := common.SafeIntToUint32(len(entries)*fstRecordSize + len(nameTable))
	if err != nil {
		return nil, fmt.Errorf("table size: %w", err)
	}

	blobs, dolMoved, err := d.placeSystemBlobs(layout)
	if err != nil {
		return nil, err
	}

	cursor, err := d.assignFileOffsets(entries, blobs, tableSize, layout)
	if err != nil {
		return nil, err
	}

	total := d.header.FSTOffset + tableSize
	if cursor > total {
		total = cursor
	}
	for _, b := range blobs {
		if end := b.Offset + b.Size; end > total {
			total = end
		}
	}
	for _, e := range entries {
		if e.dir {
			continue
		}
		if end := e.dataOffset + e.dataSize; end > total {
			total = end
		}
	}
	total = common.AlignUp(total, layout.TrimAlign)

	out := make([]byte, total)
	d.writeSystemBlobs(out, blobs)

	// Header pointer patches go on top of the boot blob content. The table
	// offset is rewritten with its unchanged value; the executable pointer
	// moves only when the executable itself was modified.
	putBE32(out, fstOffsetField, d.header.FSTOffset)
	putBE32(out, fstSizeField, tableSize)
	putBE32(out, fstMaxSizeField, tableSize)
	if dolMoved {
		putBE32(out, dolOffsetField, blobs[3].Offset)
	}

	for _, e := range entries {
		if e.dir || e.file == nil {
			continue
		}
		switch src := e.file.Source.(type) {
		case OriginalSource:
			copyRegion(out, e.dataOffset, d.image, src.Offset, e.dataSize)
		case ModifiedSource:
			copy(out[e.dataOffset:], src.Data)
		}
	}

	writeTable(out, d.header.FSTOffset, entries, nameOffsets, nameTable)

	common.LogDebug(common.DebugHeaderFields, be32(out, dolOffsetField), d.header.FSTOffset, tableSize)
	return out, nil
}

// flattenTree produces the serialization order: a pre-order walk from the
// root with children in byte name order, skipping the entire sys subtree.
func (d *Disc) flattenTree() ([]flatEntry, error) {
	entries := []flatEntry{{dir: true}}

	var walk func(dir *DirNode, dirIndex uint32, prefix string) error
	walk = func(dir *DirNode, dirIndex uint32, prefix string) error {
		for _, name := range dir.SortedNames() {
			if prefix == "" && name == SysDir {
				continue
			}
			path := name
			if prefix != "" {
				path = prefix + "/" + name
			}
			index, err := common.SafeIntToUint32(len(entries))
			if err != nil {
				return fmt.Errorf("table index: %w", err)
			}
			switch child := dir.Children[name].(type) {
			case *DirNode:
				entries = append(entries, flatEntry{name: name, path: path, dir: true, parent: dirIndex})
				if err := walk(child, index, path); err != nil {
					return err
				}
				entries[index].next = uint32(len(entries))
			case *FileNode:
				entries = append(entries, flatEntry{name: name, path: path, file: child, parent: dirIndex})
			}
		}
		return nil
	}

	if err := walk(d.tree.root, 0, ""); err != nil {
		return nil, err
	}
	entries[0].next = uint32(len(entries))
	return entries, nil
}

// buildNameTable assigns each distinct non-root name one offset into a
// contiguous null-terminated string region. Identical names at different
// tree positions share one entry.
func buildNameTable(entries []flatEntry) (map[string]uint32, []byte, error) {
	offsets := make(map[string]uint32)
	var table bytes.Buffer
	for _, e := range entries[1:] {
		if _, ok := offsets[e.name]; ok {
			continue
		}
		off, err := common.SafeIntToUint32(table.Len())
		if err != nil {
			return nil, nil, fmt.Errorf("name table: %w", err)
		}
		if off > 0xFFFFFF {
			return nil, nil, fmt.Errorf("name table overflow at %s: offset 0x%X exceeds 24 bits", e.name, off)
		}
		offsets[e.name] = off
		table.WriteString(e.name)
		table.WriteByte(0)
	}
	return offsets, table.Bytes(), nil
}

// placeSystemBlobs computes the four fixed regions in strictly sequential
// order, independent of the table free-space cursor. The returned flag
// reports whether the executable moved and the header pointer must be
// rewritten.
func (d *Disc) placeSystemBlobs(layout Layout) ([]SystemFile, bool, error) {
	sys, _ := d.tree.root.Children[SysDir].(*DirNode)
	if sys == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrMissingNode, SysDir)
	}

	size := func(name string, fixed uint32) (uint32, bool, error) {
		file, ok := sys.Children[name].(*FileNode)
		if !ok {
			return 0, false, fmt.Errorf("%w: %s/%s", ErrMissingNode, SysDir, name)
		}
		if src, modified := file.Source.(ModifiedSource); modified {
			n, err := common.SafeIntToUint32(len(src.Data))
			return n, true, err
		}
		return fixed, false, nil
	}

	bootSize, _, err := size(SysBootName, BootHeaderSize)
	if err != nil {
		return nil, false, err
	}
	if bootSize < BootHeaderSize {
		return nil, false, fmt.Errorf("%s/%s: %d bytes, need at least 0x%X", SysDir, SysBootName, bootSize, BootHeaderSize)
	}
	infoSize, _, err := size(SysDiscInfoName, DiscInfoSize)
	if err != nil {
		return nil, false, err
	}

	originalApploader, err := d.apploaderSize()
	if err != nil {
		return nil, false, err
	}
	apploaderSize, _, err := size(SysApploaderName, originalApploader)
	if err != nil {
		return nil, false, err
	}
	apploaderOffset := common.AlignUp(DiscInfoOffset+infoSize, layout.BlobAlign)

	dolSize, dolModified, err := size(SysDOLName, d.dol.TotalSize())
	if err != nil {
		return nil, false, err
	}
	// An unmodified executable keeps its original pointer: its code may hold
	// baked-in absolute references that must not silently shift.
	dolOffset := d.header.DOLOffset
	if dolModified {
		dolOffset = common.AlignUp(apploaderOffset+apploaderSize, layout.BlobAlign)
	}

	return []SystemFile{
		{Name: SysBootName, Offset: 0, Size: bootSize},
		{Name: SysDiscInfoName, Offset: DiscInfoOffset, Size: infoSize},
		{Name: SysApploaderName, Offset: apploaderOffset, Size: apploaderSize},
		{Name: SysDOLName, Offset: dolOffset, Size: dolSize},
	}, dolModified, nil
}

// assignFileOffsets resolves every file's placement. Precedence: unmodified
// originals keep their region verbatim; modified payloads reuse a retained
// original slot when they fit; everything else goes to the sector-aligned
// free-space cursor, first-fit in traversal-encounter order.
func (d *Disc) assignFileOffsets(entries []flatEntry, blobs []SystemFile, tableSize uint32, layout Layout) (uint32, error) {
	maxUsed := d.header.FSTOffset + tableSize
	for _, b := range blobs {
		if end := b.Offset + b.Size; end > maxUsed {
			maxUsed = end
		}
	}

	var pending []int
	for i := range entries {
		e := &entries[i]
		if e.dir || e.file == nil {
			continue
		}
		switch src := e.file.Source.(type) {
		case OriginalSource:
			e.dataOffset = src.Offset
			e.dataSize = src.Size
		case ModifiedSource:
			e.modified = true
			n, err := common.SafeIntToUint32(len(src.Data))
			if err != nil {
				return 0, fmt.Errorf("%s: %w", e.path, err)
			}
			e.dataSize = n
			if e.file.hasHint && n <= e.file.hintSize {
				// Freed tail bytes of the old slot are not tracked; the whole
				// original region stays reserved.
				e.dataOffset = e.file.hintOffset
				common.LogDebug(common.DebugOffsetReused, e.dataOffset, e.path)
			} else {
				pending = append(pending, i)
				continue
			}
		default:
			return 0, fmt.Errorf("%s: unknown file source", e.path)
		}
		if end := e.dataOffset + hintSpan(e); end > maxUsed {
			maxUsed = end
		}
	}

	cursor := common.AlignUp(maxUsed, layout.SectorAlign)
	for _, i := range pending {
		e := &entries[i]
		e.dataOffset = cursor
		cursor = common.AlignUp(e.dataOffset+e.dataSize, layout.SectorAlign)
		common.LogDebug(common.DebugOffsetAssigned, e.dataOffset, e.dataSize, e.path)
	}
	return cursor, nil
}

// hintSpan returns the byte span an assigned entry keeps reserved: the full
// original slot for reused placements, the data size otherwise.
func hintSpan(e *flatEntry) uint32 {
	if e.modified && e.file.hasHint && e.dataSize <= e.file.hintSize {
		return e.file.hintSize
	}
	return e.dataSize
}

// writeSystemBlobs emits the four fixed regions, copying unmodified blobs
// from the source image at their computed placements.
func (d *Disc) writeSystemBlobs(out []byte, blobs []SystemFile) {
	sys, _ := d.tree.root.Children[SysDir].(*DirNode)
	sources := []uint32{0, DiscInfoOffset, ApploaderOffset, d.header.DOLOffset}
	for i, b := range blobs {
		file, _ := sys.Children[b.Name].(*FileNode)
		if src, ok := file.Source.(ModifiedSource); ok {
			copy(out[b.Offset:], src.Data)
		} else {
			copyRegion(out, b.Offset, d.image, sources[i], b.Size)
		}
	}
}

// writeTable encodes the record array and name region at the table offset
func writeTable(out []byte, offset uint32, entries []flatEntry, nameOffsets map[string]uint32, nameTable []byte) {
	for i, e := range entries {
		base := int(offset) + i*fstRecordSize
		var w0, w1, w2 uint32
		if e.dir {
			w0 = uint32(tagDirectory)<<24 | nameOffsets[e.name]
			w1 = e.parent
			w2 = e.next
		} else {
			w0 = nameOffsets[e.name]
			w1 = e.dataOffset
			w2 = e.dataSize
		}
		putBE32(out, base, w0)
		putBE32(out, base+4, w1)
		putBE32(out, base+8, w2)
	}
	copy(out[int(offset)+len(entries)*fstRecordSize:], nameTable)
}

// copyRegion copies size bytes between buffers, clamping at both ends so a
// short source image never panics the rebuild.
func copyRegion(dst []byte, dstOff uint32, src []byte, srcOff, size uint32) {
	if int64(srcOff) >= int64(len(src)) || int64(dstOff) >= int64(len(dst)) {
		return
	}
	n := int64(size)
	if avail := int64(len(src)) - int64(srcOff); n > avail {
		n = avail
	}
	if avail := int64(len(dst)) - int64(dstOff); n > avail {
		n = avail
	}
	copy(dst[dstOff:int64(dstOff)+n], src[srcOff:int64(srcOff)+n])
}
