// Package gc provides test fixtures shared by the disc, table and rebuild tests.
package gc

import (
	"testing"
)

// Fixture layout: a 64 KiB zero-filled image with the DOL at 0x4000, the
// table at 0x6000 and file data from 0x8000.
const (
	testImageSize = 0x10000
	testDOLOffset = 0x4000
	testFSTOffset = 0x6000
)

// fstEntry describes one table record of the fixture; a and b are
// (dataOffset, dataSize) for files or (parentIndex, nextIndex) for
// directories.
type fstEntry struct {
	dir  bool
	name string
	a, b uint32
}

// encodeTestFST encodes an implicit root record followed by the given
// entries, names appended in record order.
func encodeTestFST(entries []fstEntry) []byte {
	count := uint32(len(entries) + 1)
	records := make([]byte, count*fstRecordSize)
	var names []byte

	putBE32(records, 0, uint32(tagDirectory)<<24)
	putBE32(records, 4, 0)
	putBE32(records, 8, count)

	for i, e := range entries {
		base := (i + 1) * fstRecordSize
		w0 := uint32(len(names))
		if e.dir {
			w0 |= uint32(tagDirectory) << 24
		}
		putBE32(records, base, w0)
		putBE32(records, base+4, e.a)
		putBE32(records, base+8, e.b)
		names = append(names, e.name...)
		names = append(names, 0)
	}
	return append(records, names...)
}

// buildTestImage assembles the canonical fixture:
//
//	A.BIN        file at 0x8000, 16 bytes
//	DATA/        directory
//	DATA/B.BIN   file at 0x8800, 32 bytes
//	DATA/EMPTY/  empty directory
//	Z.BIN        file at 0x9000, 8 bytes
func buildTestImage(t *testing.T) []byte {
	t.Helper()
	image := make([]byte, testImageSize)

	// boot header fields
	putBE32(image, dolOffsetField, testDOLOffset)
	putBE32(image, fstOffsetField, testFSTOffset)

	// apploader size field: 0x1B0 + 0x20 header = 0x1D0 total
	putBE32(image, ApploaderOffset+apploaderSizeField, 0x1B0)

	// DOL header: one text and one data section
	dol := image[testDOLOffset:]
	putBE32(dol, dolOffsetsBase, 0x100)
	putBE32(dol, dolAddressesBase, 0x80003100)
	putBE32(dol, dolSizesBase, 0x20)
	putBE32(dol, dolOffsetsBase+4*dolTextCount, 0x120)
	putBE32(dol, dolAddressesBase+4*dolTextCount, 0x80004000)
	putBE32(dol, dolSizesBase+4*dolTextCount, 0x10)
	putBE32(dol, dolBSSAddrField, 0x80005000)
	putBE32(dol, dolBSSSizeField, 0x400)
	putBE32(dol, dolEntryField, 0x80003110)

	fst := encodeTestFST([]fstEntry{
		{name: "A.BIN", a: 0x8000, b: 16},
		{dir: true, name: "DATA", a: 0, b: 5},
		{name: "B.BIN", a: 0x8800, b: 32},
		{dir: true, name: "EMPTY", a: 2, b: 5},
		{name: "Z.BIN", a: 0x9000, b: 8},
	})
	copy(image[testFSTOffset:], fst)
	putBE32(image, fstSizeField, uint32(len(fst)))
	putBE32(image, fstMaxSizeField, uint32(len(fst)))

	fillTestData(image, 0x8000, 16, 0xAA)
	fillTestData(image, 0x8800, 32, 0xBB)
	fillTestData(image, 0x9000, 8, 0xCC)

	return image
}

func fillTestData(image []byte, offset, size int, b byte) {
	for i := 0; i < size; i++ {
		image[offset+i] = b
	}
}

func parseTestDisc(t *testing.T, image []byte) *Disc {
	t.Helper()
	disc, err := ParseDisc(image)
	if err != nil {
		t.Fatalf("ParseDisc() failed: %v", err)
	}
	return disc
}
