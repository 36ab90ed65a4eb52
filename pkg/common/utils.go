package common

// AlignUp rounds value up to the next multiple of align.
// An align of 0 or 1 returns the value unchanged.
func AlignUp(value, align uint32) uint32 {
	if align <= 1 {
		return value
	}
	rem := value % align
	if rem == 0 {
		return value
	}
	return value + align - rem
}

// GetSizeInSectors calculates the number of sectors needed for a given size in bytes
func GetSizeInSectors(sizeBytes, sectorSize uint32) uint32 {
	if sectorSize == 0 {
		return 0
	}
	return (sizeBytes + sectorSize - 1) / sectorSize
}
