package smem_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclabs/smemkit/internal/format"
	"github.com/soclabs/smemkit/smem"
	"github.com/soclabs/smemkit/smem/builder"
)

// newPartitionedImage builds a 1 MiB image with a 64 KiB partition shared
// between the application processor and host 5, and returns the image plus
// the partition's offset within it.
func newPartitionedImage(t *testing.T) ([]byte, int) {
	t.Helper()
	b, err := builder.Build(builder.Options{
		RegionSize: 1 << 20,
		Partitions: []builder.PartitionSpec{
			{Host0: 0, Host1: 5, Size: 64 * 1024, Cacheline: 64},
		},
	})
	require.NoError(t, err)

	ptableOff := len(b) - format.PtableOffsetFromEnd
	entryOff := ptableOff + format.PtableHeaderSize
	partOff := int(format.ReadU32(b, entryOff+format.PtableEntryOffsetOffset))
	require.NotZero(t, partOff)
	return b, partOff
}

func openHeap(t *testing.T, b []byte, opts smem.Options) *smem.Heap {
	t.Helper()
	h, err := smem.New([]smem.Region{{Data: b}}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestAllocGetRoundTrip(t *testing.T) {
	b, partOff := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	require.NoError(t, h.Alloc(5, 10, 100))

	p, err := h.Get(5, 10)
	require.NoError(t, err)
	require.Len(t, p, 100)
	for i := range p {
		p[i] = byte(i)
	}

	// The payload lives inside the peer's partition window.
	assert.True(t, bytes.Contains(b[partOff:partOff+64*1024], p))

	// A second handle over the same window sees the item, the way a peer
	// processor would.
	peer := openHeap(t, b, smem.Options{LocalHost: 5})
	q, err := peer.Get(smem.HostApps, 10)
	require.NoError(t, err)
	require.Len(t, q, 100)
	assert.Equal(t, p, q)
}

func TestAllocConsumesHeaderAndAlignment(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	before, err := h.FreeSpace(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(64*1024-format.PartHeaderSize), before)

	require.NoError(t, h.Alloc(5, 10, 100))

	after, err := h.FreeSpace(5)
	require.NoError(t, err)
	// 16 bytes of entry header plus the payload rounded up to 8.
	assert.Equal(t, uint32(120), before-after)
}

func TestAllocItemBounds(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	for item := uint16(0); item < 8; item++ {
		assert.ErrorIs(t, h.Alloc(5, item, 16), smem.ErrReserved, "item %d", item)
	}
	assert.ErrorIs(t, h.Alloc(5, uint16(h.ItemCount()), 16), smem.ErrOutOfRange)

	_, err := h.Get(5, uint16(h.ItemCount()))
	assert.ErrorIs(t, err, smem.ErrOutOfRange)
}

func TestAllocExistingItem(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	require.NoError(t, h.Alloc(5, 10, 100))
	before, err := h.FreeSpace(5)
	require.NoError(t, err)

	assert.ErrorIs(t, h.Alloc(5, 10, 100), smem.ErrExists)
	assert.ErrorIs(t, h.Alloc(5, 10, 4000), smem.ErrExists)

	after, err := h.FreeSpace(5)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed alloc must not consume space")
}

func TestAllocOutOfSpace(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	assert.ErrorIs(t, h.Alloc(5, 10, 64*1024), smem.ErrOutOfSpace)

	// The failed allocation must leave no trace.
	_, err := h.Get(5, 10)
	assert.ErrorIs(t, err, smem.ErrNotFound)

	free, err := h.FreeSpace(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(64*1024-format.PartHeaderSize), free)
}

func TestAllocSizeNearUint32Ceiling(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	// Rounding such a size to 8 wraps in 32 bits; the allocation must
	// fail cleanly rather than bind the item to a zero-length entry.
	assert.ErrorIs(t, h.Alloc(5, 10, 0xffffffff), smem.ErrOutOfSpace)
	assert.ErrorIs(t, h.Alloc(5, 10, 0xfffffff9), smem.ErrOutOfSpace)

	_, err := h.Get(5, 10)
	assert.ErrorIs(t, err, smem.ErrNotFound)

	free, err := h.FreeSpace(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(64*1024-format.PartHeaderSize), free)

	// The id stays usable, and the heap stays coherent afterwards.
	require.NoError(t, h.Alloc(5, 10, 32))
	assert.ErrorIs(t, h.Alloc(5, 10, 32), smem.ErrExists)
	p, err := h.Get(5, 10)
	require.NoError(t, err)
	assert.Len(t, p, 32)
}

func TestGetUnknownItem(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	_, err := h.Get(5, 200)
	assert.ErrorIs(t, err, smem.ErrNotFound)
}

func TestCorruptCanaryAbortsWalk(t *testing.T) {
	b, partOff := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	require.NoError(t, h.Alloc(5, 10, 100))

	// Smash the canary of the first forward entry.
	b[partOff+format.PartHeaderSize] = 0xde

	_, err := h.Get(5, 10)
	assert.ErrorIs(t, err, smem.ErrCorrupt)
	assert.ErrorIs(t, h.Alloc(5, 11, 16), smem.ErrCorrupt)
}

func TestCachedItemLookup(t *testing.T) {
	b, partOff := newPartitionedImage(t)

	// A peer allocated a cached item: its header sits nearest the
	// partition end, aligned to the cacheline, with the data below it.
	const psize = 64 * 1024
	hdrOff := partOff + psize - 64
	format.WritePrivEntry(b, hdrOff, format.PrivEntry{
		Canary:      format.Canary,
		Item:        77,
		Size:        32,
		PaddingData: 4,
	})
	format.PutU32(b, partOff+format.PartFreeCachedOffset, psize-96)

	h := openHeap(t, b, smem.Options{})
	p, err := h.Get(5, 77)
	require.NoError(t, err)
	assert.Len(t, p, 28)

	items, err := h.Items(5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint16(77), items[0].Item)
	assert.Equal(t, uint32(28), items[0].Size)
	assert.True(t, items[0].Cached)

	// A smashed cached canary aborts every lookup that reaches the
	// backward list.
	b[hdrOff] = 0xde
	_, err = h.Get(5, 200)
	assert.ErrorIs(t, err, smem.ErrCorrupt)
}

func TestItemsListsForwardEntries(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	require.NoError(t, h.Alloc(5, 10, 100))
	require.NoError(t, h.Alloc(5, 11, 8))

	items, err := h.Items(5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint16(10), items[0].Item)
	assert.Equal(t, uint32(100), items[0].Size)
	assert.False(t, items[0].Cached)
	assert.Equal(t, uint16(11), items[1].Item)
}

func TestGlobalPartitionServesUnknownHosts(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h := openHeap(t, b, smem.Options{})

	// Host 9 has no partition of its own and falls through to the
	// global-type partition, as does HostNone.
	require.NoError(t, h.Alloc(9, 50, 24))
	p, err := h.Get(smem.HostNone, 50)
	require.NoError(t, err)
	assert.Len(t, p, 24)
}

func TestLegacyGlobalHeap(t *testing.T) {
	b, err := builder.Build(builder.Options{RegionSize: 1 << 20, Protocol: 11})
	require.NoError(t, err)
	h := openHeap(t, b, smem.Options{})

	free, err := h.FreeSpace(smem.HostNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<20-format.HeaderSize), free)

	require.NoError(t, h.Alloc(smem.HostNone, 20, 50))

	// The legacy slot table records only the aligned size.
	p, err := h.Get(smem.HostNone, 20)
	require.NoError(t, err)
	assert.Len(t, p, 56)

	after, err := h.FreeSpace(smem.HostNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(56), free-after)

	assert.ErrorIs(t, h.Alloc(smem.HostNone, 20, 50), smem.ErrExists)
	assert.ErrorIs(t, h.Alloc(smem.HostNone, 21, 1<<21), smem.ErrOutOfMemory)
	assert.ErrorIs(t, h.Alloc(smem.HostNone, 21, 0xfffffffa), smem.ErrOutOfMemory,
		"8-byte rounding near the uint32 ceiling must not wrap below available")
	_, err = h.Get(smem.HostNone, 21)
	assert.ErrorIs(t, err, smem.ErrNotFound)

	items, err := h.Items(smem.HostNone)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint16(20), items[0].Item)
	assert.Equal(t, uint32(56), items[0].Size)
}

func TestAuxRegionLookup(t *testing.T) {
	b, err := builder.Build(builder.Options{RegionSize: 1 << 20, Protocol: 11})
	require.NoError(t, err)
	aux := make([]byte, 4096)

	// A slot written by a peer into the auxiliary window: the tag in
	// aux_base says which mapping the offset is relative to.
	slot := format.TocEntryOffset(30)
	format.PutU32(b, slot+format.GlobalEntryOffsetOffset, 16)
	format.PutU32(b, slot+format.GlobalEntrySizeOffset, 32)
	format.PutU32(b, slot+format.GlobalEntryAuxBaseOffset, 0x80000000)
	format.PutU32Release(b, slot+format.GlobalEntryAllocatedOffset, 1)

	h, err := smem.New([]smem.Region{
		{Data: b},
		{AuxBase: 0x80000000, Data: aux},
	}, smem.Options{})
	require.NoError(t, err)
	defer h.Close()

	p, err := h.Get(smem.HostNone, 30)
	require.NoError(t, err)
	require.Len(t, p, 32)

	copy(p, "aux window payload")
	assert.Equal(t, []byte("aux window payload"), aux[16:16+18])

	// The payload resolves through the auxiliary window's base tag.
	phys, ok := h.VirtToPhys(p)
	require.True(t, ok)
	assert.Equal(t, uint64(0x80000000+16), phys)
}

func TestLockTimeout(t *testing.T) {
	b, _ := newPartitionedImage(t)
	lock := smem.NewLocalLock()
	h := openHeap(t, b, smem.Options{Lock: lock, LockTimeout: 10 * time.Millisecond})

	release, err := lock.Acquire(time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, h.Alloc(5, 10, 16), smem.ErrLockTimeout)
	_, err = h.Get(5, 10)
	assert.ErrorIs(t, err, smem.ErrLockTimeout)

	release()
	assert.NoError(t, h.Alloc(5, 10, 16))
}

func TestClosedHeap(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h, err := smem.New([]smem.Region{{Data: b}}, smem.Options{})
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "closing twice is fine")

	assert.ErrorIs(t, h.Alloc(5, 10, 16), smem.ErrNotReady)
	_, err = h.Get(5, 10)
	assert.ErrorIs(t, err, smem.ErrNotReady)
	_, err = h.FreeSpace(5)
	assert.ErrorIs(t, err, smem.ErrNotReady)
}

func TestVirtToPhys(t *testing.T) {
	b, _ := newPartitionedImage(t)
	h, err := smem.New([]smem.Region{{AuxBase: 0x86000000, Data: b}}, smem.Options{})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Alloc(5, 10, 100))
	p, err := h.Get(5, 10)
	require.NoError(t, err)

	phys, ok := h.VirtToPhys(p)
	require.True(t, ok)
	assert.Greater(t, phys, uint64(0x86000000))
	assert.Less(t, phys, uint64(0x86000000)+uint64(len(b)))

	_, ok = h.VirtToPhys(make([]byte, 8))
	assert.False(t, ok, "foreign memory must not resolve")
}

func TestBringUpRejectsBadImages(t *testing.T) {
	t.Run("uninitialized", func(t *testing.T) {
		b := make([]byte, 1<<20)
		_, err := smem.New([]smem.Region{{Data: b}}, smem.Options{})
		assert.ErrorIs(t, err, smem.ErrFormat)
	})

	t.Run("unsupported version", func(t *testing.T) {
		b, err := builder.Build(builder.Options{RegionSize: 1 << 20, Protocol: 11})
		require.NoError(t, err)
		format.PutU32(b, format.HdrVersionOffset+4*format.SBLVersionIndex, 9<<16)
		_, err = smem.New([]smem.Region{{Data: b}}, smem.Options{})
		assert.ErrorIs(t, err, smem.ErrFormat)
	})

	t.Run("missing global partition", func(t *testing.T) {
		b, err := builder.Build(builder.Options{RegionSize: 1 << 20, Protocol: 11})
		require.NoError(t, err)
		// Version 12 with no partition table at all is a hard failure.
		format.PutU32(b, format.HdrVersionOffset+4*format.SBLVersionIndex, 12<<16)
		_, err = smem.New([]smem.Region{{Data: b}}, smem.Options{})
		assert.Error(t, err)
	})

	t.Run("no regions", func(t *testing.T) {
		_, err := smem.New(nil, smem.Options{})
		assert.ErrorIs(t, err, smem.ErrNotReady)
	})
}

func TestBringUpRejectsBadPartitions(t *testing.T) {
	t.Run("remote host out of range", func(t *testing.T) {
		b, err := builder.Build(builder.Options{
			RegionSize: 1 << 20,
			Partitions: []builder.PartitionSpec{{Host0: 0, Host1: 13, Size: 4096}},
		})
		require.NoError(t, err)
		_, err = smem.New([]smem.Region{{Data: b}}, smem.Options{})
		assert.ErrorIs(t, err, smem.ErrFormat)
	})

	t.Run("duplicate partition", func(t *testing.T) {
		b, err := builder.Build(builder.Options{
			RegionSize: 1 << 20,
			Partitions: []builder.PartitionSpec{
				{Host0: 0, Host1: 5, Size: 4096},
				{Host0: 5, Host1: 0, Size: 4096},
			},
		})
		require.NoError(t, err)
		_, err = smem.New([]smem.Region{{Data: b}}, smem.Options{})
		assert.ErrorIs(t, err, smem.ErrFormat)
	})

	t.Run("header does not echo table entry", func(t *testing.T) {
		b, partOff := newPartitionedImage(t)
		format.PutU16(b, partOff+format.PartHost1Offset, 6)
		_, err := smem.New([]smem.Region{{Data: b}}, smem.Options{})
		assert.ErrorIs(t, err, smem.ErrFormat)
	})
}

func TestErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		smem.ErrNotReady, smem.ErrReserved, smem.ErrOutOfRange,
		smem.ErrExists, smem.ErrNotFound, smem.ErrOutOfSpace,
		smem.ErrOutOfMemory, smem.ErrLockTimeout, smem.ErrFormat,
		smem.ErrCorrupt,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v vs %v", a, b)
			}
		}
	}
}
