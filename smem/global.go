package smem

import (
	"fmt"

	"github.com/soclabs/smemkit/internal/buf"
	"github.com/soclabs/smemkit/internal/format"
)

// allocGlobal allocates an item in the legacy global heap: the item number
// is the slot index, and space is carved off the header's bump pointer.
func (h *Heap) allocGlobal(item uint16, size uint32) error {
	b := h.regions[0].Data
	slot := format.TocEntryOffset(int(item))

	if format.ReadU32(b, slot+format.GlobalEntryAllocatedOffset) != 0 {
		return ErrExists
	}

	// 64-bit rounding keeps a size near the uint32 ceiling above the
	// available count instead of wrapping below it.
	aligned := format.Align8(size)
	available := format.ReadU32(b, format.HdrAvailableOffset)
	if aligned > uint64(available) {
		return ErrOutOfMemory
	}

	freeOffset := format.ReadU32(b, format.HdrFreeOffsetOffset)
	format.PutU32(b, slot+format.GlobalEntryOffsetOffset, freeOffset)
	format.PutU32(b, slot+format.GlobalEntrySizeOffset, uint32(aligned))

	// Publish: the release store of the allocated flag makes the staged
	// slot visible as a unit to peers reading without the lock.
	format.PutU32Release(b, slot+format.GlobalEntryAllocatedOffset, 1)

	format.PutU32(b, format.HdrFreeOffsetOffset, freeOffset+uint32(aligned))
	format.PutU32(b, format.HdrAvailableOffset, available-uint32(aligned))
	return nil
}

// getGlobal resolves an item from the legacy slot table. The slot's
// aux-base tag picks the mapped region its offset is relative to; tag 0
// matches the default region.
func (h *Heap) getGlobal(item uint16) ([]byte, error) {
	b := h.regions[0].Data
	slot := format.TocEntryOffset(int(item))

	if format.ReadU32(b, slot+format.GlobalEntryAllocatedOffset) == 0 {
		return nil, ErrNotFound
	}

	auxBase := format.ReadU32(b, slot+format.GlobalEntryAuxBaseOffset) & format.AuxBaseMask
	region, ok := h.regionFor(auxBase)
	if !ok {
		return nil, fmt.Errorf("smem: item %d: no region with aux base 0x%x: %w", item, auxBase, ErrNotFound)
	}

	off := int(format.ReadU32(b, slot+format.GlobalEntryOffsetOffset))
	size := int(format.ReadU32(b, slot+format.GlobalEntrySizeOffset))
	if !buf.InRange(off, size, 0, len(region.Data)) {
		return nil, fmt.Errorf("smem: item %d at 0x%x size %d overruns region: %w", item, off, size, ErrFormat)
	}
	return region.Data[off : off+size], nil
}

// freeSpaceGlobal reports the legacy heap's remaining-bytes counter,
// sanity-checked against the primary region size.
func (h *Heap) freeSpaceGlobal() (uint32, error) {
	b := h.regions[0].Data
	available := format.ReadU32(b, format.HdrAvailableOffset)
	if int(available) > len(b) {
		return 0, fmt.Errorf("smem: available %d exceeds region size %d: %w", available, len(b), ErrFormat)
	}
	return available, nil
}

// itemsGlobal lists every allocated slot of the legacy table.
func (h *Heap) itemsGlobal() ([]ItemInfo, error) {
	b := h.regions[0].Data
	var items []ItemInfo
	for i := 0; i < int(h.itemCount) && i < format.DefaultItemCount; i++ {
		slot := format.TocEntryOffset(i)
		if format.ReadU32(b, slot+format.GlobalEntryAllocatedOffset) == 0 {
			continue
		}
		items = append(items, ItemInfo{
			Item: uint16(i),
			Size: format.ReadU32(b, slot+format.GlobalEntrySizeOffset),
		})
	}
	return items, nil
}
