// Package verify provides validation functions for shared heap image
// structures. These helpers are used in tests and tooling to ensure heap
// invariants are maintained.
package verify

import (
	"errors"
	"fmt"

	"github.com/soclabs/smemkit/internal/format"
)

// Error types for different validation failures.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(data []byte) error {
	if err := Header(data); err != nil {
		return err
	}
	if err := Ptable(data); err != nil {
		return err
	}
	if err := Partitions(data); err != nil {
		return err
	}
	return GlobalToc(data)
}

// Header validates the heap header structure and invariants.
func Header(data []byte) error {
	if len(data) < format.HeaderSize {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("region too small: %d bytes (need %d)", len(data), format.HeaderSize),
			Offset:  -1,
		}
	}

	if v := format.ReadU32(data, format.HdrInitializedOffset); v != 1 {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("initialized field is %d (expected 1)", v),
			Offset:  format.HdrInitializedOffset,
		}
	}

	if v := format.ReadU32(data, format.HdrReservedOffset); v != 0 {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("reserved field is 0x%X (expected 0)", v),
			Offset:  format.HdrReservedOffset,
		}
	}

	proto := format.ProtocolVersion(format.VersionAt(data, format.SBLVersionIndex))
	if proto != format.HeapVersion && proto != format.GlobalPartVersion {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("unsupported protocol version: %d", proto),
			Offset:  format.HdrVersionOffset + 4*format.SBLVersionIndex,
		}
	}

	freeOffset := int(format.ReadU32(data, format.HdrFreeOffsetOffset))
	available := int(format.ReadU32(data, format.HdrAvailableOffset))
	if freeOffset < format.HeaderSize || freeOffset > len(data) {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("free offset 0x%X outside [0x%X, 0x%X]", freeOffset, format.HeaderSize, len(data)),
			Offset:  format.HdrFreeOffsetOffset,
		}
	}
	if available > len(data) {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("available 0x%X exceeds region size 0x%X", available, len(data)),
			Offset:  format.HdrAvailableOffset,
			Details: map[string]interface{}{
				"available":   available,
				"region_size": len(data),
			},
		}
	}

	return nil
}

// Ptable validates the partition table, when one is present. A region
// without a table is valid under the legacy protocol.
func Ptable(data []byte) error {
	pt, err := format.ParsePtable(data)
	if errors.Is(err, format.ErrNoPtable) {
		if format.ProtocolVersion(format.VersionAt(data, format.SBLVersionIndex)) == format.GlobalPartVersion {
			return &ValidationError{
				Type:    "Ptable",
				Message: "protocol version 12 requires a partition table",
				Offset:  format.PtableOffset(len(data)),
			}
		}
		return nil
	}
	if err != nil {
		return &ValidationError{
			Type:    "Ptable",
			Message: err.Error(),
			Offset:  format.PtableOffset(len(data)),
		}
	}

	seen := make(map[[2]uint16]int)
	for i := 0; i < int(pt.NumEntries); i++ {
		entry, err := pt.EntryAt(data, i)
		if err != nil {
			return &ValidationError{
				Type:    "Ptable",
				Message: err.Error(),
				Offset:  pt.Off,
			}
		}
		if entry.Offset == 0 || entry.Size == 0 {
			continue
		}

		end := int(entry.Offset) + int(entry.Size)
		if int(entry.Offset) < format.HeaderSize || end > format.PtableOffset(len(data)) {
			return &ValidationError{
				Type:    "Ptable",
				Message: fmt.Sprintf("entry %d: partition [0x%X, 0x%X) outside the usable region", i, entry.Offset, end),
				Offset:  pt.Off,
				Details: map[string]interface{}{
					"entry": i,
					"host0": entry.Host0,
					"host1": entry.Host1,
				},
			}
		}

		hosts := [2]uint16{entry.Host0, entry.Host1}
		if prev, ok := seen[hosts]; ok {
			return &ValidationError{
				Type:    "Ptable",
				Message: fmt.Sprintf("entry %d: duplicate host pair %d:%d (first at entry %d)", i, entry.Host0, entry.Host1, prev),
				Offset:  pt.Off,
			}
		}
		seen[hosts] = i
	}

	return nil
}

// Partitions validates every partition header against its table entry and
// walks both item lists checking canaries and bounds.
func Partitions(data []byte) error {
	pt, err := format.ParsePtable(data)
	if errors.Is(err, format.ErrNoPtable) {
		return nil
	}
	if err != nil {
		return err
	}

	for i := 0; i < int(pt.NumEntries); i++ {
		entry, err := pt.EntryAt(data, i)
		if err != nil {
			return err
		}
		if entry.Offset == 0 || entry.Size == 0 {
			continue
		}
		if err := partition(data, i, entry); err != nil {
			return err
		}
	}
	return nil
}

// partition checks one partition: header echo, bump pointer ordering, and
// both item lists.
func partition(data []byte, index int, entry format.PtableEntry) error {
	off := int(entry.Offset)
	hdr, err := format.ParsePartHeader(data, off, entry)
	if err != nil {
		return &ValidationError{
			Type:    "Partition",
			Message: fmt.Sprintf("entry %d: %v", index, err),
			Offset:  off,
		}
	}

	if hdr.FreeCached < hdr.FreeUncached || hdr.FreeCached > entry.Size {
		return &ValidationError{
			Type:    "Partition",
			Message: fmt.Sprintf("entry %d: free offsets out of order (uncached 0x%X, cached 0x%X, size 0x%X)", index, hdr.FreeUncached, hdr.FreeCached, entry.Size),
			Offset:  off + format.PartFreeUncachedOffset,
		}
	}

	pos := off + format.PartHeaderSize
	end := off + int(hdr.FreeUncached)
	for pos < end && pos+format.PrivEntrySize < end {
		e, err := format.ReadPrivEntry(data, pos)
		if err != nil {
			return err
		}
		if e.Canary != format.Canary {
			return &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("entry %d: invalid canary 0x%04X", index, e.Canary),
				Offset:  pos,
				Details: map[string]interface{}{
					"item": e.Item,
				},
			}
		}
		next := pos + format.PrivEntrySize + int(e.PaddingHdr) + int(e.Size)
		if next <= pos || next > end {
			return &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("entry %d: item %d at 0x%X overruns the free offset", index, e.Item, pos),
				Offset:  pos,
			}
		}
		pos = next
	}

	// Cached list, walked backward from the partition end.
	cached := off + int(hdr.FreeCached)
	pend := off + int(entry.Size)
	if cached == pend {
		return nil
	}
	step := int(format.AlignTo(format.PrivEntrySize, entry.Cacheline))
	pos = pend - step
	for pos > cached {
		e, err := format.ReadPrivEntry(data, pos)
		if err != nil {
			return err
		}
		if e.Canary != format.Canary {
			return &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("entry %d: invalid canary 0x%04X", index, e.Canary),
				Offset:  pos,
				Details: map[string]interface{}{
					"item": e.Item,
				},
			}
		}
		next := pos - int(e.Size) - step
		if next >= pos || next < cached-step {
			return &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("entry %d: cached item %d at 0x%X underruns the free offset", index, e.Item, pos),
				Offset:  pos,
			}
		}
		pos = next
	}

	return nil
}

// GlobalToc validates the allocated slots of the global table: offsets and
// sizes must stay within the region (aux-tagged slots are skipped, their
// region is not part of this image).
func GlobalToc(data []byte) error {
	if len(data) < format.HeaderSize {
		return &ValidationError{
			Type:    "GlobalToc",
			Message: "region too small for the slot table",
			Offset:  -1,
		}
	}
	for i := 0; i < format.DefaultItemCount; i++ {
		slot := format.TocEntryOffset(i)
		if format.ReadU32(data, slot+format.GlobalEntryAllocatedOffset) == 0 {
			continue
		}
		if format.ReadU32(data, slot+format.GlobalEntryAuxBaseOffset)&format.AuxBaseMask != 0 {
			continue
		}

		off := int(format.ReadU32(data, slot+format.GlobalEntryOffsetOffset))
		size := int(format.ReadU32(data, slot+format.GlobalEntrySizeOffset))
		if off < format.HeaderSize || off+size > len(data) {
			return &ValidationError{
				Type:    "GlobalToc",
				Message: fmt.Sprintf("item %d: [0x%X, 0x%X) outside the region", i, off, off+size),
				Offset:  slot,
			}
		}
		if size%format.AllocAlign != 0 {
			return &ValidationError{
				Type:    "GlobalToc",
				Message: fmt.Sprintf("item %d: size %d not 8-byte aligned", i, size),
				Offset:  slot,
			}
		}
	}
	return nil
}
