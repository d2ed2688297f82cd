package smem

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/soclabs/smemkit/internal/buf"
	"github.com/soclabs/smemkit/internal/format"
	"github.com/soclabs/smemkit/internal/mmfile"
)

// Host identifies a processor (or logical owner) participating in the
// shared memory system.
type Host uint16

const (
	// HostApps is the application processor, the default local host.
	HostApps Host = format.HostApps

	// HostNone routes an operation to the global heap (or the global
	// partition) instead of a peer partition.
	HostNone Host = 0xffff
)

// Options configures Heap construction.
type Options struct {
	// LocalHost is the host identity partitions are enumerated for.
	// Zero is HostApps, which is what it defaults to anyway.
	LocalHost Host

	// Lock is the cross-processor lock guarding the heap. When nil a
	// process-local lock is used; that is only correct when no other
	// process or processor touches the window.
	Lock Lock

	// LockTimeout bounds each lock acquisition. Zero means
	// DefaultLockTimeout.
	LockTimeout time.Duration

	// Base is the physical base address tag of the primary window when
	// opening from a file. Secondary windows carry their tag in Region.
	Base uint32

	// AuxPath optionally names a second image file to map as the
	// auxiliary window, with AuxBase as its tag.
	AuxPath string
	AuxBase uint32

	// ReadOnly maps image files read-only, for inspection tooling.
	// Alloc against a read-only mapping faults, so leave this unset for
	// anything that allocates.
	ReadOnly bool
}

// Heap is the handle to a shared memory heap. It holds the mapped regions,
// the cross-processor lock, and the partition entries resolved at
// bring-up. Construction validates the boot loader's initialization and
// performs the protocol version dispatch; every subsequent operation
// re-validates the structures it touches, because peers mutate the window
// outside this process's control.
//
// A Heap is torn down as a unit with Close (for example across a
// suspend/resume cycle) and must then be rebuilt; operations against a
// closed handle return ErrNotReady.
type Heap struct {
	regions []Region
	lock    Lock
	timeout time.Duration

	local     Host
	global    *format.PtableEntry
	parts     [format.HostCount]*format.PtableEntry
	itemCount uint32
	protocol  uint32

	closed   atomic.Bool
	cleanups []func() error
}

// New builds a Heap over one or two already-mapped regions. The first
// region is the primary window holding the heap header and the partition
// table.
func New(regions []Region, opts Options) (*Heap, error) {
	if len(regions) < 1 || len(regions) > 2 {
		return nil, fmt.Errorf("smem: %d regions, want 1 or 2: %w", len(regions), ErrNotReady)
	}
	hdr, err := format.ParseHeader(regions[0].Data)
	if err != nil {
		return nil, err
	}

	h := &Heap{
		regions: regions,
		lock:    opts.Lock,
		timeout: opts.LockTimeout,
		local:   opts.LocalHost,
	}
	if h.lock == nil {
		h.lock = NewLocalLock()
	}
	if h.timeout == 0 {
		h.timeout = DefaultLockTimeout
	}

	// Three-way protocol dispatch on the boot loader version slot.
	h.protocol = format.ProtocolVersion(hdr.SBLVersion)
	switch h.protocol {
	case format.GlobalPartVersion:
		if err := h.setGlobalPartition(); err != nil {
			return nil, err
		}
	case format.HeapVersion:
		h.itemCount = format.DefaultItemCount
	default:
		return nil, fmt.Errorf("smem: unsupported protocol version %d (sbl 0x%x): %w",
			h.protocol, hdr.SBLVersion, ErrFormat)
	}

	if err := h.enumeratePartitions(h.local); err != nil {
		return nil, err
	}
	return h, nil
}

// OpenFile maps a heap image file (and optionally a second auxiliary
// image) as the shared window and builds a Heap over it. Peers simulated
// as other processes mapping the same file observe allocations exactly as
// peer processors observe the physical window.
func OpenFile(path string, opts Options) (*Heap, error) {
	doMap := mmfile.MapRW
	if opts.ReadOnly {
		doMap = mmfile.Map
	}

	data, cleanup, err := doMap(path)
	if err != nil {
		return nil, fmt.Errorf("smem: map %s: %w", path, err)
	}
	regions := []Region{{AuxBase: opts.Base, Data: data}}
	cleanups := []func() error{cleanup}

	if opts.AuxPath != "" {
		aux, auxCleanup, err := doMap(opts.AuxPath)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("smem: map %s: %w", opts.AuxPath, err)
		}
		regions = append(regions, Region{AuxBase: opts.AuxBase, Data: aux})
		cleanups = append(cleanups, auxCleanup)
	}

	h, err := New(regions, opts)
	if err != nil {
		for _, c := range cleanups {
			c()
		}
		return nil, err
	}
	h.cleanups = cleanups
	return h, nil
}

// Close tears the handle down: every mapping is released and every
// subsequent operation returns ErrNotReady. Bring-up after a suspend
// cycle constructs a fresh Heap.
func (h *Heap) Close() error {
	if h == nil || h.closed.Swap(true) {
		return nil
	}
	var errs []error
	for _, c := range h.cleanups {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ItemCount returns the highest accepted item number for this heap.
func (h *Heap) ItemCount() uint32 { return h.itemCount }

// Protocol returns the detected heap protocol version (11 legacy heap,
// 12 global partition).
func (h *Heap) Protocol() uint32 { return h.protocol }

// Regions returns the mapped windows. The slices alias live shared
// memory.
func (h *Heap) Regions() []Region {
	out := make([]Region, len(h.regions))
	copy(out, h.regions)
	return out
}

// PartitionInfo describes one private partition resolved at bring-up, for
// inspection tooling.
type PartitionInfo struct {
	Host0, Host1 Host
	Offset       uint32
	Size         uint32
	Cacheline    uint32
	Global       bool
}

// Partitions lists the partitions this handle resolved: the peer
// partitions enumerated for the local host, plus the global-type partition
// under protocol version 12.
func (h *Heap) Partitions() []PartitionInfo {
	var out []PartitionInfo
	for _, entry := range h.parts {
		if entry == nil {
			continue
		}
		out = append(out, PartitionInfo{
			Host0:     Host(entry.Host0),
			Host1:     Host(entry.Host1),
			Offset:    entry.Offset,
			Size:      entry.Size,
			Cacheline: entry.Cacheline,
		})
	}
	if h.global != nil {
		out = append(out, PartitionInfo{
			Host0:     Host(h.global.Host0),
			Host1:     Host(h.global.Host1),
			Offset:    h.global.Offset,
			Size:      h.global.Size,
			Cacheline: h.global.Cacheline,
			Global:    true,
		})
	}
	return out
}

func (h *Heap) ready() error {
	if h == nil || h.closed.Load() || len(h.regions) == 0 {
		return ErrNotReady
	}
	return nil
}

// setGlobalPartition locates the global-type partition, required under
// protocol version 12, and resolves the boot-set item count. A missing
// partition table is a hard failure here.
func (h *Heap) setGlobalPartition() error {
	b := h.regions[0].Data
	pt, err := format.ParsePtable(b)
	if err != nil {
		return fmt.Errorf("smem: global partition: %w", err)
	}

	for i := 0; i < int(pt.NumEntries); i++ {
		entry, err := pt.EntryAt(b, i)
		if err != nil {
			return err
		}
		if entry.Offset == 0 || entry.Size == 0 {
			continue
		}
		if entry.Host0 != format.GlobalHost || entry.Host1 != format.GlobalHost {
			continue
		}
		if _, err := h.partition(entry); err != nil {
			return err
		}
		h.global = &entry
		h.itemCount = pt.ItemCount(b)
		return nil
	}
	return fmt.Errorf("smem: missing entry for global partition: %w", ErrFormat)
}

// enumeratePartitions resolves the partition table entry for every remote
// peer of localHost. At most one partition may resolve to a given peer.
// A heap without a partition table is fine; the legacy global heap serves
// instead.
func (h *Heap) enumeratePartitions(localHost Host) error {
	b := h.regions[0].Data
	pt, err := format.ParsePtable(b)
	if errors.Is(err, format.ErrNoPtable) {
		return nil
	}
	if err != nil {
		return err
	}

	for i := 0; i < int(pt.NumEntries); i++ {
		entry, err := pt.EntryAt(b, i)
		if err != nil {
			return err
		}
		if entry.Offset == 0 || entry.Size == 0 {
			continue
		}

		var remote Host
		switch {
		case Host(entry.Host0) == localHost:
			remote = Host(entry.Host1)
		case Host(entry.Host1) == localHost:
			remote = Host(entry.Host0)
		default:
			continue
		}

		if remote >= format.HostCount {
			return fmt.Errorf("smem: partition %d: bad remote host %d: %w", i, remote, ErrFormat)
		}
		if h.parts[remote] != nil {
			return fmt.Errorf("smem: partition %d: duplicate partition for host %d: %w", i, remote, ErrFormat)
		}
		if _, err := h.partition(entry); err != nil {
			return err
		}
		h.parts[remote] = &entry
	}
	return nil
}

// partition re-validates a partition against its table entry and returns a
// bounded view of it. Callers must not reuse the view across operations:
// a peer may still be initializing the partition, so validation reads the
// live header every time.
func (h *Heap) partition(entry format.PtableEntry) (part, error) {
	b := h.regions[0].Data
	off := int(entry.Offset)
	end, ok := buf.AddOverflowSafe(off, int(entry.Size))
	if !ok || end > len(b) {
		return part{}, fmt.Errorf("smem: partition at 0x%x size %d overruns region: %w",
			entry.Offset, entry.Size, ErrFormat)
	}
	hdr, err := format.ParsePartHeader(b, off, entry)
	if err != nil {
		return part{}, err
	}
	return part{b: b, off: off, end: end, entry: entry, hdr: hdr}, nil
}
