// Package gc provides GameCube-specific structures and functionality.
// This file contains the disc image header reader and the parsed disc model
// tying together the DOL executable, the file-system table and the virtual
// file tree.
package gc

import (
	"errors"
	"fmt"

	"github.com/jamesbrq/gcmtools/pkg/common"
)

// Fixed layout constants for GameCube disc images
const (
	BootHeaderSize     = 0x440 // boot.bin
	DiscInfoOffset     = 0x440 // bi2.bin
	DiscInfoSize       = 0x2000
	ApploaderOffset    = 0x2440 // apploader.img
	ApploaderHeaderLen = 0x20

	// Big-endian uint32 header fields inside boot.bin
	dolOffsetField  = 0x420
	fstOffsetField  = 0x424
	fstSizeField    = 0x428
	fstMaxSizeField = 0x42C

	// Apploader size field, relative to the apploader image start
	apploaderSizeField = 0x14
)

// Reserved top-level directory exposing the four fixed system files
const (
	SysDir           = "sys"
	SysBootName      = "boot.bin"
	SysDiscInfoName  = "bi2.bin"
	SysApploaderName = "apploader.img"
	SysDOLName       = "main.dol"
)

// ErrShortImage indicates the input buffer ends before a required region
var ErrShortImage = errors.New("image too short")

// DiscHeader holds the header fields locating the executable and the table
type DiscHeader struct {
	DOLOffset  uint32 // Offset of the main executable (main.dol)
	FSTOffset  uint32 // Offset of the file-system table
	FSTSize    uint32 // Byte size of the file-system table
	FSTMaxSize uint32 // Duplicate size field, kept equal to FSTSize on rebuild
}

// SystemFile describes one of the four fixed, table-independent regions
type SystemFile struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Disc represents one parsed disc image: the raw buffer, the header-derived
// fields, the executable section model and the mutable virtual file tree.
// A Disc is owned by a single parse/mutate/rebuild sequence and is not safe
// for concurrent use.
type Disc struct {
	image  []byte
	header DiscHeader
	dol    *DOL
	tree   *FileTree
	system []SystemFile
}

// ParseHeader decodes the fixed-offset header fields from the boot header.
// It fails only when the buffer is shorter than the minimum header region.
func ParseHeader(image []byte) (*DiscHeader, error) {
	if len(image) < BootHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least 0x%X", ErrShortImage, len(image), BootHeaderSize)
	}
	return &DiscHeader{
		DOLOffset:  be32(image, dolOffsetField),
		FSTOffset:  be32(image, fstOffsetField),
		FSTSize:    be32(image, fstSizeField),
		FSTMaxSize: be32(image, fstMaxSizeField),
	}, nil
}

// ParseDisc decodes a complete disc image: header, executable section table,
// file-system table, and the virtual file tree built from it. The buffer is
// only read; all mutation happens on the returned Disc.
func ParseDisc(image []byte) (*Disc, error) {
	header, err := ParseHeader(image)
	if err != nil {
		return nil, err
	}

	if int64(header.DOLOffset)+DOLHeaderSize > int64(len(image)) {
		return nil, fmt.Errorf("%w: executable header at 0x%X", ErrShortImage, header.DOLOffset)
	}
	dol, err := ParseDOL(image[header.DOLOffset:])
	if err != nil {
		return nil, err
	}

	records, err := ParseFST(image, header.FSTOffset, header.FSTSize)
	if err != nil {
		return nil, err
	}

	tree := NewFileTree()
	if err := tree.populate(records); err != nil {
		return nil, err
	}

	d := &Disc{
		image:  image,
		header: *header,
		dol:    dol,
		tree:   tree,
	}

	apploaderSize, err := d.apploaderSize()
	if err != nil {
		return nil, err
	}
	d.system = []SystemFile{
		{Name: SysBootName, Offset: 0, Size: BootHeaderSize},
		{Name: SysDiscInfoName, Offset: DiscInfoOffset, Size: DiscInfoSize},
		{Name: SysApploaderName, Offset: ApploaderOffset, Size: apploaderSize},
		{Name: SysDOLName, Offset: header.DOLOffset, Size: dol.TotalSize()},
	}
	for _, sys := range d.system {
		common.LogDebug(common.DebugSystemBlob, sys.Name, sys.Offset, sys.Size)
		tree.seedSystemFile(sys.Name, sys.Offset, sys.Size)
	}
	common.LogDebug(common.DebugHeaderFields, header.DOLOffset, header.FSTOffset, header.FSTSize)

	return d, nil
}

// apploaderSize computes the apploader image size from its internal header
// field plus the fixed header length.
func (d *Disc) apploaderSize() (uint32, error) {
	field := ApploaderOffset + apploaderSizeField
	if field+4 > len(d.image) {
		return 0, fmt.Errorf("%w: apploader header at 0x%X", ErrShortImage, ApploaderOffset)
	}
	return be32(d.image, field) + ApploaderHeaderLen, nil
}

// Header returns the decoded header fields
func (d *Disc) Header() DiscHeader {
	return d.header
}

// DOL returns the executable section model
func (d *Disc) DOL() *DOL {
	return d.dol
}

// Tree returns the virtual file tree for direct traversal
func (d *Disc) Tree() *FileTree {
	return d.tree
}

// SystemFiles returns the four fixed system regions in placement order
func (d *Disc) SystemFiles() []SystemFile {
	return d.system
}

// Lookup returns the node at path, or false when absent
func (d *Disc) Lookup(path string) (Node, bool) {
	return d.tree.Lookup(path)
}

// MkdirParents creates every missing component of path as a directory
func (d *Disc) MkdirParents(path string) (*DirNode, error) {
	return d.tree.MkdirParents(path)
}

// PutFile inserts or replaces the file at path with new content
func (d *Disc) PutFile(path string, data []byte) error {
	return d.tree.PutFile(path, ModifiedSource{Data: data})
}

// RemovePath detaches the leaf at path from its parent
func (d *Disc) RemovePath(path string) error {
	return d.tree.RemovePath(path)
}

// FileData returns a copy of the current content of the file at path,
// reading original-backed files out of the source image.
func (d *Disc) FileData(path string) ([]byte, error) {
	node, ok := d.tree.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingNode, path)
	}
	file, ok := node.(*FileNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a directory", ErrPathConflict, path)
	}
	switch src := file.Source.(type) {
	case OriginalSource:
		end := int64(src.Offset) + int64(src.Size)
		if end > int64(len(d.image)) {
			return nil, fmt.Errorf("%w: %s data at 0x%X+0x%X", ErrShortImage, path, src.Offset, src.Size)
		}
		data := make([]byte, src.Size)
		copy(data, d.image[src.Offset:end])
		return data, nil
	case ModifiedSource:
		data := make([]byte, len(src.Data))
		copy(data, src.Data)
		return data, nil
	default:
		return nil, fmt.Errorf("unknown file source for %s", path)
	}
}

// be32 reads a big-endian uint32 at off. Bounds are the caller's concern.
func be32(b []byte, off int) uint32 {
	return uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])
}

// putBE32 writes a big-endian uint32 at off
func putBE32(b []byte, off int, v uint32) {
	b[off] = byte(v >> 24)
	b[off+1] = byte(v >> 16)
	b[off+2] = byte(v >> 8)
	b[off+3] = byte(v)
}
