package format

import "fmt"

// PrivEntry is a decoded private item header.
type PrivEntry struct {
	Canary      uint16
	Item        uint16
	Size        uint32
	PaddingData uint16
	PaddingHdr  uint16
}

// ReadPrivEntry decodes the private item header at off. Only the buffer
// bounds are checked here; canary and list-ordering checks belong to the
// walk, which knows the partition's boundaries.
func ReadPrivEntry(b []byte, off int) (PrivEntry, error) {
	if off < 0 || off+PrivEntrySize > len(b) {
		return PrivEntry{}, fmt.Errorf("item header at 0x%x: truncated: %w", off, ErrFormat)
	}
	return PrivEntry{
		Canary:      ReadU16(b, off+PrivEntryCanaryOffset),
		Item:        ReadU16(b, off+PrivEntryItemOffset),
		Size:        ReadU32(b, off+PrivEntrySizeOffset),
		PaddingData: ReadU16(b, off+PrivEntryPaddingDataOffset),
		PaddingHdr:  ReadU16(b, off+PrivEntryPaddingHdrOffset),
	}, nil
}

// WritePrivEntry stages a private item header at off. The caller publishes
// it afterwards by advancing the partition free offset with a release
// store; until then no walker can reach the header.
func WritePrivEntry(b []byte, off int, e PrivEntry) {
	PutU16(b, off+PrivEntryCanaryOffset, e.Canary)
	PutU16(b, off+PrivEntryItemOffset, e.Item)
	PutU32(b, off+PrivEntrySizeOffset, e.Size)
	PutU16(b, off+PrivEntryPaddingDataOffset, e.PaddingData)
	PutU16(b, off+PrivEntryPaddingHdrOffset, e.PaddingHdr)
	PutU32(b, off+PrivEntrySize-4, 0) // reserved
}
