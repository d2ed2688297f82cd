package smem

import (
	"github.com/soclabs/smemkit/internal/buf"
	"github.com/soclabs/smemkit/internal/format"
)

// allocPrivate bump-allocates an item in the forward (uncached) sub-region
// of a partition. The walk to the free boundary doubles as the duplicate
// check; a canary mismatch or a step that regresses aborts the whole
// operation, because every later offset would be derived from the corrupt
// entry.
func (h *Heap) allocPrivate(entry format.PtableEntry, item uint16, size uint32) error {
	p, err := h.partition(entry)
	if err != nil {
		return err
	}
	if err := p.checkLayout(); err != nil {
		return err
	}

	off := p.uncachedStart()
	end := p.uncachedEnd()
	cached := p.cachedStart()

	for off < end && off+format.PrivEntrySize < end {
		e, err := format.ReadPrivEntry(p.b, off)
		if err != nil {
			return err
		}
		if e.Canary != format.Canary {
			return p.corrupt("invalid canary at 0x%x: %w", off, ErrCorrupt)
		}
		if e.Item == item {
			return ErrExists
		}
		next, ok := buf.AddOverflowSafe(off, format.PrivEntrySize+int(e.PaddingHdr)+int(e.Size))
		if !ok || next <= off {
			return p.corrupt("entry at 0x%x does not advance: %w", off, ErrCorrupt)
		}
		off = next
	}
	if off > end {
		return p.corrupt("entry list overruns free offset 0x%x: %w", end, ErrCorrupt)
	}

	// The new entry must not grow into the cached region. The sum runs
	// in 64 bits so a size near the uint32 ceiling fails here instead of
	// wrapping and writing a zero-length entry.
	aligned := format.Align8(size)
	allocSize := format.PrivEntrySize + aligned
	if uint64(off)+allocSize > uint64(cached) {
		return ErrOutOfSpace
	}

	format.WritePrivEntry(p.b, off, format.PrivEntry{
		Canary:      format.Canary,
		Item:        item,
		Size:        uint32(aligned),
		PaddingData: uint16(aligned - uint64(size)),
		PaddingHdr:  0,
	})

	// Publish: the release store of the free offset makes the staged
	// header reachable. Peers that read without taking the lock still see
	// a consistent list.
	format.PutU32Release(p.b, p.off+format.PartFreeUncachedOffset, p.hdr.FreeUncached+uint32(allocSize))
	return nil
}

// getPrivate looks an item up in a partition, walking the forward list
// first and the cached backward list second. The returned slice is the
// usable payload: the stored size minus the declared data padding.
func (h *Heap) getPrivate(entry format.PtableEntry, item uint16) ([]byte, error) {
	p, err := h.partition(entry)
	if err != nil {
		return nil, err
	}
	if err := p.checkLayout(); err != nil {
		return nil, err
	}

	off := p.uncachedStart()
	end := p.uncachedEnd()
	cached := p.cachedStart()

	for off < end && off+format.PrivEntrySize < end {
		e, err := format.ReadPrivEntry(p.b, off)
		if err != nil {
			return nil, err
		}
		if e.Canary != format.Canary {
			return nil, p.corrupt("invalid canary at 0x%x: %w", off, ErrCorrupt)
		}
		if e.Item == item {
			return p.uncachedPayload(off, e, end)
		}
		next, ok := buf.AddOverflowSafe(off, format.PrivEntrySize+int(e.PaddingHdr)+int(e.Size))
		if !ok || next <= off {
			return nil, p.corrupt("entry at 0x%x does not advance: %w", off, ErrCorrupt)
		}
		off = next
	}
	if off > end {
		return nil, p.corrupt("entry list overruns free offset 0x%x: %w", end, ErrCorrupt)
	}

	// Not in the uncached list; search the cached list, which a peer may
	// have populated even though this side never allocates there.
	if cached == p.end {
		return nil, ErrNotFound
	}

	off = p.firstCached()
	if !buf.InRange(cached, 0, end, p.end) ||
		!buf.InRange(off, format.PrivEntrySize, cached, p.end) {
		return nil, p.corrupt("cached region out of bounds (first 0x%x, free 0x%x): %w", off, cached, ErrFormat)
	}

	step := int(format.AlignTo(format.PrivEntrySize, p.entry.Cacheline))
	for off > cached {
		e, err := format.ReadPrivEntry(p.b, off)
		if err != nil {
			return nil, err
		}
		if e.Canary != format.Canary {
			return nil, p.corrupt("invalid canary at 0x%x: %w", off, ErrCorrupt)
		}
		if e.Item == item {
			return p.cachedPayload(off, e, cached)
		}
		next := off - int(e.Size) - step
		if next >= off {
			return nil, p.corrupt("cached entry at 0x%x does not advance: %w", off, ErrCorrupt)
		}
		off = next
	}
	if off < p.off {
		return nil, p.corrupt("cached list underruns partition start: %w", ErrCorrupt)
	}
	return nil, ErrNotFound
}

// uncachedPayload validates and slices the payload of a matched forward
// entry. The span must lie past the entry header and within the forward
// free boundary.
func (p part) uncachedPayload(off int, e format.PrivEntry, end int) ([]byte, error) {
	usable, err := p.usableSize(off, e)
	if err != nil {
		return nil, err
	}
	itemOff := off + format.PrivEntrySize + int(e.PaddingHdr)
	if !buf.InRange(itemOff, usable, off, end) {
		return nil, p.corrupt("item %d payload at 0x%x size %d out of bounds: %w",
			e.Item, itemOff, usable, ErrCorrupt)
	}
	return p.b[itemOff : itemOff+usable], nil
}

// cachedPayload validates and slices the payload of a matched cached
// entry, which sits immediately before its header.
func (p part) cachedPayload(off int, e format.PrivEntry, cached int) ([]byte, error) {
	usable, err := p.usableSize(off, e)
	if err != nil {
		return nil, err
	}
	itemOff := off - int(e.Size)
	if !buf.InRange(itemOff, usable, cached, off) {
		return nil, p.corrupt("item %d payload at 0x%x size %d out of bounds: %w",
			e.Item, itemOff, usable, ErrCorrupt)
	}
	return p.b[itemOff : itemOff+usable], nil
}

// usableSize derives the payload size of a matched entry: the stored size
// minus the declared padding, both of which are sanity-checked against
// the partition size before anything is sliced with them.
func (p part) usableSize(off int, e format.PrivEntry) (int, error) {
	if e.Size >= p.entry.Size || uint32(e.PaddingData) >= e.Size {
		return 0, p.corrupt("item %d at 0x%x has bad size %d (padding %d): %w",
			e.Item, off, e.Size, e.PaddingData, ErrCorrupt)
	}
	return int(e.Size) - int(e.PaddingData), nil
}

// freeSpacePrivate reports the bytes left in the partition's free pool,
// the gap between the two bump pointers.
func (h *Heap) freeSpacePrivate(entry format.PtableEntry) (uint32, error) {
	p, err := h.partition(entry)
	if err != nil {
		return 0, err
	}
	if p.hdr.FreeCached < p.hdr.FreeUncached {
		return 0, p.corrupt("free offsets out of order (uncached %d, cached %d): %w",
			p.hdr.FreeUncached, p.hdr.FreeCached, ErrFormat)
	}
	free := p.hdr.FreeCached - p.hdr.FreeUncached
	if free > p.entry.Size {
		return 0, p.corrupt("free %d exceeds partition size %d: %w", free, p.entry.Size, ErrFormat)
	}
	return free, nil
}

// ItemInfo describes one allocated item found by Items.
type ItemInfo struct {
	Item   uint16
	Size   uint32 // usable payload bytes
	Cached bool   // true when the item lives in the backward sub-region
}

// itemsPrivate walks both sub-regions of a partition and lists every
// allocated item.
func (h *Heap) itemsPrivate(entry format.PtableEntry) ([]ItemInfo, error) {
	p, err := h.partition(entry)
	if err != nil {
		return nil, err
	}
	if err := p.checkLayout(); err != nil {
		return nil, err
	}

	var items []ItemInfo
	off := p.uncachedStart()
	end := p.uncachedEnd()
	for off < end && off+format.PrivEntrySize < end {
		e, err := format.ReadPrivEntry(p.b, off)
		if err != nil {
			return nil, err
		}
		if e.Canary != format.Canary {
			return nil, p.corrupt("invalid canary at 0x%x: %w", off, ErrCorrupt)
		}
		usable, err := p.usableSize(off, e)
		if err != nil {
			return nil, err
		}
		items = append(items, ItemInfo{Item: e.Item, Size: uint32(usable)})
		next, ok := buf.AddOverflowSafe(off, format.PrivEntrySize+int(e.PaddingHdr)+int(e.Size))
		if !ok || next <= off {
			return nil, p.corrupt("entry at 0x%x does not advance: %w", off, ErrCorrupt)
		}
		off = next
	}

	cached := p.cachedStart()
	if cached == p.end {
		return items, nil
	}
	off = p.firstCached()
	if !buf.InRange(off, format.PrivEntrySize, cached, p.end) {
		return nil, p.corrupt("cached region out of bounds: %w", ErrFormat)
	}
	step := int(format.AlignTo(format.PrivEntrySize, p.entry.Cacheline))
	for off > cached {
		e, err := format.ReadPrivEntry(p.b, off)
		if err != nil {
			return nil, err
		}
		if e.Canary != format.Canary {
			return nil, p.corrupt("invalid canary at 0x%x: %w", off, ErrCorrupt)
		}
		usable, err := p.usableSize(off, e)
		if err != nil {
			return nil, err
		}
		items = append(items, ItemInfo{Item: e.Item, Size: uint32(usable), Cached: true})
		next := off - int(e.Size) - step
		if next >= off {
			return nil, p.corrupt("cached entry at 0x%x does not advance: %w", off, ErrCorrupt)
		}
		off = next
	}
	return items, nil
}
