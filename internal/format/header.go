package format

import "fmt"

// Header captures the static fields of the heap header needed at bring-up.
// The live bump fields (free_offset, available) are read directly from the
// mapping at each use, since peers mutate them outside our control.
type Header struct {
	Initialized uint32
	FreeOffset  uint32
	Available   uint32
	Reserved    uint32
	SBLVersion  uint32
}

// ParseHeader validates and extracts the heap header from the start of the
// primary region.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("heap header: %d bytes, need %d: %w", len(b), HeaderSize, ErrFormat)
	}
	h := Header{
		Initialized: ReadU32(b, HdrInitializedOffset),
		FreeOffset:  ReadU32(b, HdrFreeOffsetOffset),
		Available:   ReadU32(b, HdrAvailableOffset),
		Reserved:    ReadU32(b, HdrReservedOffset),
		SBLVersion:  VersionAt(b, SBLVersionIndex),
	}
	if h.Initialized != 1 {
		return Header{}, fmt.Errorf("heap header: not initialized by boot loader: %w", ErrFormat)
	}
	if h.Reserved != 0 {
		return Header{}, fmt.Errorf("heap header: reserved field 0x%x nonzero: %w", h.Reserved, ErrFormat)
	}
	return h, nil
}

// VersionAt reads slot i of the header's version vector.
func VersionAt(b []byte, i int) uint32 {
	return ReadU32(b, HdrVersionOffset+4*i)
}

// ProtocolVersion extracts the heap protocol version from an SBL version
// vector entry (its high 16 bits).
func ProtocolVersion(sblVersion uint32) uint32 {
	return sblVersion >> 16
}

// TocEntryOffset returns the offset of global slot item within the region.
func TocEntryOffset(item int) int {
	return HdrTocOffset + item*GlobalEntrySize
}
