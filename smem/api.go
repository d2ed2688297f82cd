package smem

import "github.com/soclabs/smemkit/internal/format"

// Alloc reserves space for an item of the given size, on behalf of the
// peer identified by host (HostNone for the global heap). The item number
// becomes permanently bound to the space: the on-media format has no free
// operation. The newly allocated payload is not initialized; treat its
// content as undefined until written.
//
// The entire operation runs under the cross-processor lock; ErrLockTimeout
// means nothing was modified.
func (h *Heap) Alloc(host Host, item uint16, size uint32) error {
	if err := h.ready(); err != nil {
		return err
	}
	if item < format.ItemLastFixed {
		return ErrReserved
	}
	if uint32(item) >= h.itemCount {
		return ErrOutOfRange
	}

	release, err := h.lock.Acquire(h.timeout)
	if err != nil {
		return err
	}
	defer release()

	if entry := h.route(host); entry != nil {
		return h.allocPrivate(*entry, item, size)
	}
	return h.allocGlobal(item, size)
}

// Get looks an item up and returns its payload as a slice aliasing the
// shared window. The length is the item's usable size: the allocated size
// minus its declared padding.
func (h *Heap) Get(host Host, item uint16) ([]byte, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	if uint32(item) >= h.itemCount {
		return nil, ErrOutOfRange
	}

	release, err := h.lock.Acquire(h.timeout)
	if err != nil {
		return nil, err
	}
	defer release()

	if entry := h.route(host); entry != nil {
		return h.getPrivate(*entry, item)
	}
	return h.getGlobal(item)
}

// FreeSpace reports the bytes available for allocation in the heap an
// operation for host would route to. Clients use it as a cheap signal
// that new allocations have appeared.
func (h *Heap) FreeSpace(host Host) (uint32, error) {
	if err := h.ready(); err != nil {
		return 0, err
	}

	release, err := h.lock.Acquire(h.timeout)
	if err != nil {
		return 0, err
	}
	defer release()

	if entry := h.route(host); entry != nil {
		return h.freeSpacePrivate(*entry)
	}
	return h.freeSpaceGlobal()
}

// Items lists the allocated items visible to host, for inspection
// tooling.
func (h *Heap) Items(host Host) ([]ItemInfo, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}

	release, err := h.lock.Acquire(h.timeout)
	if err != nil {
		return nil, err
	}
	defer release()

	if entry := h.route(host); entry != nil {
		return h.itemsPrivate(*entry)
	}
	return h.itemsGlobal()
}

// route picks the partition an operation for host uses: the peer's own
// partition when one was enumerated, else the global-type partition under
// protocol version 12, else nil for the legacy global heap.
func (h *Heap) route(host Host) *format.PtableEntry {
	if host < format.HostCount && h.parts[host] != nil {
		return h.parts[host]
	}
	return h.global
}
