// Package common provides tests for utility functions
package common

import (
	"testing"
)

func TestAlignUp(t *testing.T) {
	testCases := []struct {
		name     string
		value    uint32
		align    uint32
		expected uint32
	}{
		{"already aligned", 0x8000, 2048, 0x8000},
		{"round up", 0x8001, 2048, 0x8800},
		{"one below boundary", 0x87FF, 2048, 0x8800},
		{"zero value", 0, 2048, 0},
		{"align 32", 0x2610, 32, 0x2620},
		{"align 1 is identity", 1337, 1, 1337},
		{"align 0 is identity", 1337, 0, 1337},
		{"trim alignment", 0x9800, 32768, 0x10000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := AlignUp(tc.value, tc.align)
			if result != tc.expected {
				t.Errorf("AlignUp(0x%X, %d) = 0x%X, want 0x%X", tc.value, tc.align, result, tc.expected)
			}
		})
	}
}

func TestGetSizeInSectors(t *testing.T) {
	testCases := []struct {
		name       string
		sizeBytes  uint32
		sectorSize uint32
		expected   uint32
	}{
		{"exact sectors", 4096, 2048, 2},
		{"partial sector rounds up", 4097, 2048, 3},
		{"single byte", 1, 2048, 1},
		{"zero bytes", 0, 2048, 0},
		{"zero sector size", 4096, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := GetSizeInSectors(tc.sizeBytes, tc.sectorSize)
			if result != tc.expected {
				t.Errorf("GetSizeInSectors(%d, %d) = %d, want %d", tc.sizeBytes, tc.sectorSize, result, tc.expected)
			}
		})
	}
}
