// Package gc provides GameCube-specific structures and functionality.
// This file contains the file-system table (FST) parser.
package gc

import (
	"fmt"
)

const (
	fstRecordSize = 12

	tagFile      = 0
	tagDirectory = 1
)

// TableRecord is one decoded 12-byte table entry plus its reconstructed path.
// Files carry (DataOffset, DataSize); directories carry (ParentIndex,
// NextIndex) where NextIndex is one past the directory's last descendant.
type TableRecord struct {
	IsDir       bool
	NameOffset  uint32
	Name        string
	Path        string
	DataOffset  uint32
	DataSize    uint32
	ParentIndex uint32
	NextIndex   uint32
}

// ParseFST decodes the dense record array and name string table at the given
// region of the image into a flat record list with reconstructed paths.
// Table order is a pre-order depth-first traversal; record 0 is the root and
// carries the entry count in its third field.
func ParseFST(image []byte, offset, size uint32) ([]TableRecord, error) {
	end := int64(offset) + int64(size)
	if end > int64(len(image)) {
		return nil, fmt.Errorf("%w: table at 0x%X+0x%X", ErrShortImage, offset, size)
	}
	if size < fstRecordSize {
		return nil, fmt.Errorf("table too small: %d bytes", size)
	}
	table := image[offset:end]

	count := be32(table, 8)
	if count == 0 || int64(count)*fstRecordSize > int64(size) {
		return nil, fmt.Errorf("table entry count %d exceeds table size %d", count, size)
	}
	names := table[count*fstRecordSize:]

	records := make([]TableRecord, count)
	records[0] = TableRecord{
		IsDir:       true,
		ParentIndex: be32(table, 4),
		NextIndex:   count,
	}

	// Stack of (directory index, next index) frames for path reconstruction.
	// Frames are popped once the walk passes their subtree-skip pointer.
	type frame struct {
		index uint32
		next  uint32
		path  string
	}
	stack := []frame{{index: 0, next: count, path: ""}}

	for i := uint32(1); i < count; i++ {
		base := int(i * fstRecordSize)
		w0 := be32(table, base)
		w1 := be32(table, base+4)
		w2 := be32(table, base+8)

		tag := w0 >> 24
		if tag != tagFile && tag != tagDirectory {
			return nil, fmt.Errorf("record %d: unknown tag 0x%02X", i, tag)
		}

		rec := TableRecord{
			IsDir:      tag == tagDirectory,
			NameOffset: w0 & 0xFFFFFF,
		}
		name, err := readTableName(names, rec.NameOffset)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rec.Name = name

		for len(stack) > 1 && stack[len(stack)-1].next <= i {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		if parent.path == "" {
			rec.Path = name
		} else {
			rec.Path = parent.path + "/" + name
		}

		if rec.IsDir {
			rec.ParentIndex = w1
			rec.NextIndex = w2
			if rec.NextIndex <= i || rec.NextIndex > count {
				return nil, fmt.Errorf("record %d: next index %d out of range", i, rec.NextIndex)
			}
			stack = append(stack, frame{index: i, next: rec.NextIndex, path: rec.Path})
		} else {
			rec.DataOffset = w1
			rec.DataSize = w2
		}
		records[i] = rec
	}

	return records, nil
}

// readTableName reads a null-terminated string from the name region
func readTableName(names []byte, offset uint32) (string, error) {
	if int64(offset) >= int64(len(names)) {
		return "", fmt.Errorf("name offset 0x%X outside name table", offset)
	}
	for end := offset; end < uint32(len(names)); end++ {
		if names[end] == 0 {
			return string(names[offset:end]), nil
		}
	}
	return "", fmt.Errorf("unterminated name at offset 0x%X", offset)
}
