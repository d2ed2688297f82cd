package format

import (
	"bytes"
	"fmt"
)

// PartHeader is a decoded partition header. It is re-read from the live
// bytes on every access; a peer may still be initializing the partition,
// so nothing here may be cached across operations.
type PartHeader struct {
	Host0        uint16
	Host1        uint16
	Size         uint32
	FreeUncached uint32
	FreeCached   uint32
}

// ParsePartHeader validates the partition header at off against the table
// entry that references it. Magic, the host pair (order-sensitive), the
// size echo, and the forward free offset are all checked, matching the
// validation every caller must repeat before touching partition contents.
func ParsePartHeader(b []byte, off int, entry PtableEntry) (PartHeader, error) {
	if off < 0 || off+PartHeaderSize > len(b) {
		return PartHeader{}, fmt.Errorf("partition header at 0x%x: truncated: %w", off, ErrFormat)
	}
	if !bytes.Equal(b[off+PartMagicOffset:off+PartMagicOffset+PartMagicSize], PartMagic) {
		return PartHeader{}, fmt.Errorf("partition header at 0x%x: bad magic % x: %w",
			off, b[off+PartMagicOffset:off+PartMagicOffset+PartMagicSize], ErrFormat)
	}
	h := PartHeader{
		Host0:        ReadU16(b, off+PartHost0Offset),
		Host1:        ReadU16(b, off+PartHost1Offset),
		Size:         ReadU32(b, off+PartSizeOffset),
		FreeUncached: ReadU32(b, off+PartFreeUncachedOffset),
		FreeCached:   ReadU32(b, off+PartFreeCachedOffset),
	}
	if h.Host0 != entry.Host0 {
		return PartHeader{}, fmt.Errorf("partition header at 0x%x: host0 %d != %d: %w",
			off, h.Host0, entry.Host0, ErrFormat)
	}
	if h.Host1 != entry.Host1 {
		return PartHeader{}, fmt.Errorf("partition header at 0x%x: host1 %d != %d: %w",
			off, h.Host1, entry.Host1, ErrFormat)
	}
	if h.Size != entry.Size {
		return PartHeader{}, fmt.Errorf("partition header at 0x%x: size %d != table entry size %d: %w",
			off, h.Size, entry.Size, ErrFormat)
	}
	if h.FreeUncached > h.Size {
		return PartHeader{}, fmt.Errorf("partition header at 0x%x: free uncached %d beyond size %d: %w",
			off, h.FreeUncached, h.Size, ErrFormat)
	}
	return h, nil
}
