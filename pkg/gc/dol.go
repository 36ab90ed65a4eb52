// Package gc provides GameCube-specific structures and functionality.
// This file contains the DOL executable section model.
package gc

import (
	"errors"
	"fmt"

	"github.com/jamesbrq/gcmtools/pkg/common"
)

// DOL header layout: three parallel big-endian uint32 arrays covering
// 7 text sections followed by 11 data sections.
const (
	DOLHeaderSize = 0x100

	dolTextCount = 7
	dolDataCount = 11

	dolOffsetsBase   = 0x00
	dolAddressesBase = 0x48
	dolSizesBase     = 0x90
	dolBSSAddrField  = 0xD8
	dolBSSSizeField  = 0xDC
	dolEntryField    = 0xE0
	dolHeaderTail    = 0xE4 // padding up to DOLHeaderSize
)

// ErrUnmappedAddress indicates a value outside every section's range
var ErrUnmappedAddress = errors.New("unmapped executable address")

// SectionDescriptor describes one contiguous region of the executable
type SectionDescriptor struct {
	FileOffset  uint32 // Offset within the DOL image
	LoadAddress uint32 // Virtual address the section is loaded to
	Size        uint32 // Byte size; zero marks an unused slot
}

// DOL models the main executable's section layout. The BSS region and entry
// point carry no file mapping; they are recorded alongside the sections.
type DOL struct {
	Text       [dolTextCount]SectionDescriptor
	Data       [dolDataCount]SectionDescriptor
	BSSAddress uint32
	BSSSize    uint32
	EntryPoint uint32
}

// ParseDOL decodes the section table from the start of data. Non-zero bytes
// in the header tail after the known fields are advisory only.
func ParseDOL(data []byte) (*DOL, error) {
	if len(data) < DOLHeaderSize {
		return nil, fmt.Errorf("%w: DOL header needs 0x%X bytes, have %d", ErrShortImage, DOLHeaderSize, len(data))
	}

	dol := &DOL{}
	for i := 0; i < dolTextCount; i++ {
		dol.Text[i] = SectionDescriptor{
			FileOffset:  be32(data, dolOffsetsBase+4*i),
			LoadAddress: be32(data, dolAddressesBase+4*i),
			Size:        be32(data, dolSizesBase+4*i),
		}
	}
	for i := 0; i < dolDataCount; i++ {
		dol.Data[i] = SectionDescriptor{
			FileOffset:  be32(data, dolOffsetsBase+4*(dolTextCount+i)),
			LoadAddress: be32(data, dolAddressesBase+4*(dolTextCount+i)),
			Size:        be32(data, dolSizesBase+4*(dolTextCount+i)),
		}
	}
	dol.BSSAddress = be32(data, dolBSSAddrField)
	dol.BSSSize = be32(data, dolBSSSizeField)
	dol.EntryPoint = be32(data, dolEntryField)

	for off := dolHeaderTail; off < DOLHeaderSize; off++ {
		if data[off] != 0 {
			common.LogDebug(common.DebugDOLTailNonZero, off)
			break
		}
	}

	return dol, nil
}

// Sections returns all section descriptors, text first, including unused slots
func (d *DOL) Sections() []SectionDescriptor {
	sections := make([]SectionDescriptor, 0, dolTextCount+dolDataCount)
	sections = append(sections, d.Text[:]...)
	sections = append(sections, d.Data[:]...)
	return sections
}

// TotalSize returns the executable's file size: the maximum end offset over
// all sections with nonzero size.
func (d *DOL) TotalSize() uint32 {
	var total uint32
	for _, s := range d.Sections() {
		if s.Size == 0 {
			continue
		}
		if end := s.FileOffset + s.Size; end > total {
			total = end
		}
	}
	return total
}

// AddressToOffset maps a load address to its file offset. Addresses outside
// every section are a hard error.
func (d *DOL) AddressToOffset(addr uint32) (uint32, error) {
	for _, s := range d.Sections() {
		if s.Size == 0 {
			continue
		}
		if addr >= s.LoadAddress && addr < s.LoadAddress+s.Size {
			return s.FileOffset + (addr - s.LoadAddress), nil
		}
	}
	return 0, fmt.Errorf("%w: address 0x%08X", ErrUnmappedAddress, addr)
}

// OffsetToAddress maps a file offset to its load address. Offsets outside
// every section are a hard error.
func (d *DOL) OffsetToAddress(off uint32) (uint32, error) {
	for _, s := range d.Sections() {
		if s.Size == 0 {
			continue
		}
		if off >= s.FileOffset && off < s.FileOffset+s.Size {
			return s.LoadAddress + (off - s.FileOffset), nil
		}
	}
	return 0, fmt.Errorf("%w: offset 0x%08X", ErrUnmappedAddress, off)
}
