package format

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNoPtable indicates the partition table magic is absent. Callers on
// the legacy protocol treat this as "no partitioning in effect" and fall
// back to the global heap; callers that require a table escalate it.
var ErrNoPtable = errors.New("format: no partition table")

// Ptable describes a validated partition table. Off is the table's offset
// within the primary region; entries are decoded on demand with EntryAt so
// each access reads the live bytes.
type Ptable struct {
	Off        int
	NumEntries uint32
}

// PtableEntry is one decoded partition table entry.
type PtableEntry struct {
	Offset    uint32
	Size      uint32
	Flags     uint32
	Host0     uint16
	Host1     uint16
	Cacheline uint32
}

// PtableOffset returns the fixed offset of the partition table within a
// primary region of the given size.
func PtableOffset(regionSize int) int {
	return regionSize - PtableOffsetFromEnd
}

// ParsePtable locates and validates the partition table of the primary
// region. A missing magic yields ErrNoPtable; a bad version or a table
// whose entries do not fit the region yields ErrFormat.
func ParsePtable(b []byte) (Ptable, error) {
	off := PtableOffset(len(b))
	if off < 0 || off+PtableHeaderSize > len(b) {
		return Ptable{}, fmt.Errorf("ptable: region too small (%d bytes): %w", len(b), ErrNoPtable)
	}
	if !bytes.Equal(b[off+PtableMagicOffset:off+PtableMagicOffset+PtableMagicSize], PtableMagic) {
		return Ptable{}, ErrNoPtable
	}
	version := ReadU32(b, off+PtableVersionOffset)
	if version != PtableVersion {
		return Ptable{}, fmt.Errorf("ptable: unsupported version %d: %w", version, ErrFormat)
	}
	n := ReadU32(b, off+PtableNumEntriesOffset)
	if end := off + PtableHeaderSize + int(n)*PtableEntrySize; end > len(b) || end < off {
		return Ptable{}, fmt.Errorf("ptable: %d entries overrun region: %w", n, ErrFormat)
	}
	return Ptable{Off: off, NumEntries: n}, nil
}

// EntryAt decodes entry i of the table from the live bytes.
func (pt Ptable) EntryAt(b []byte, i int) (PtableEntry, error) {
	if i < 0 || uint32(i) >= pt.NumEntries {
		return PtableEntry{}, fmt.Errorf("ptable: entry %d of %d: %w", i, pt.NumEntries, ErrFormat)
	}
	off := pt.Off + PtableHeaderSize + i*PtableEntrySize
	return PtableEntry{
		Offset:    ReadU32(b, off+PtableEntryOffsetOffset),
		Size:      ReadU32(b, off+PtableEntrySizeOffset),
		Flags:     ReadU32(b, off+PtableEntryFlagsOffset),
		Host0:     ReadU16(b, off+PtableEntryHost0Offset),
		Host1:     ReadU16(b, off+PtableEntryHost1Offset),
		Cacheline: ReadU32(b, off+PtableEntryCachelineOffset),
	}, nil
}

// ItemCount resolves the highest accepted item number for the heap. When a
// valid item-count descriptor follows the last table entry its num_items
// field wins; otherwise the default applies.
func (pt Ptable) ItemCount(b []byte) uint32 {
	off := pt.Off + PtableHeaderSize + int(pt.NumEntries)*PtableEntrySize
	if off < 0 || off+InfoSize > len(b) {
		return DefaultItemCount
	}
	if !bytes.Equal(b[off+InfoMagicOffset:off+InfoMagicOffset+InfoMagicSize], InfoMagic) {
		return DefaultItemCount
	}
	return uint32(ReadU16(b, off+InfoNumItemsOffset))
}
