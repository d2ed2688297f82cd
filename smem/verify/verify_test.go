package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soclabs/smemkit/internal/format"
	"github.com/soclabs/smemkit/smem/builder"
)

func validImage(t *testing.T) []byte {
	t.Helper()
	b, err := builder.Build(builder.Options{
		RegionSize: 1 << 20,
		Partitions: []builder.PartitionSpec{
			{Host0: 0, Host1: 5, Size: 64 * 1024},
		},
	})
	require.NoError(t, err)
	return b
}

// TestAllInvariants_Valid tests that a freshly built image passes.
func TestAllInvariants_Valid(t *testing.T) {
	data := validImage(t)

	err := AllInvariants(data)
	require.NoError(t, err, "Fresh image should pass validation")
}

// TestHeader_NotInitialized tests detection of a missing boot-loader init.
func TestHeader_NotInitialized(t *testing.T) {
	data := validImage(t)

	format.PutU32(data, format.HdrInitializedOffset, 0)

	err := Header(data)
	require.Error(t, err, "Uninitialized header should fail validation")
	require.Contains(t, err.Error(), "initialized field")
}

// TestHeader_BadVersion tests detection of an unsupported protocol version.
func TestHeader_BadVersion(t *testing.T) {
	data := validImage(t)

	format.PutU32(data, format.HdrVersionOffset+4*format.SBLVersionIndex, 7<<16)

	err := Header(data)
	require.Error(t, err, "Unknown protocol version should fail validation")
	require.Contains(t, err.Error(), "unsupported protocol version")
}

// TestHeader_TooSmall tests detection of a truncated region.
func TestHeader_TooSmall(t *testing.T) {
	err := Header(make([]byte, 64))
	require.Error(t, err)
	require.Contains(t, err.Error(), "too small")
}

// TestPtable_MissingUnderV12 tests that version 12 demands a table.
func TestPtable_MissingUnderV12(t *testing.T) {
	data := validImage(t)

	// Wipe the table magic while keeping the version at 12.
	copy(data[format.PtableOffset(len(data)):], []byte{0, 0, 0, 0})

	err := Ptable(data)
	require.Error(t, err, "Version 12 without a table should fail validation")
	require.Contains(t, err.Error(), "requires a partition table")
}

// TestPtable_DuplicateHostPair tests detection of duplicated entries.
func TestPtable_DuplicateHostPair(t *testing.T) {
	data := validImage(t)

	// Clone entry 0 over entry 1 (the global partition's slot).
	pt := format.PtableOffset(len(data)) + format.PtableHeaderSize
	copy(data[pt+format.PtableEntrySize:pt+2*format.PtableEntrySize], data[pt:pt+format.PtableEntrySize])

	err := Ptable(data)
	require.Error(t, err, "Duplicate host pair should fail validation")
	require.Contains(t, err.Error(), "duplicate host pair")
}

// TestPartitions_BadCanary tests detection of a corrupted item header.
func TestPartitions_BadCanary(t *testing.T) {
	data := validImage(t)

	pt, err := format.ParsePtable(data)
	require.NoError(t, err)
	entry, err := pt.EntryAt(data, 0)
	require.NoError(t, err)

	// Fake an allocated item with a smashed canary.
	itemOff := int(entry.Offset) + format.PartHeaderSize
	format.WritePrivEntry(data, itemOff, format.PrivEntry{
		Canary: 0xdead,
		Item:   10,
		Size:   8,
	})
	format.PutU32(data, int(entry.Offset)+format.PartFreeUncachedOffset, format.PartHeaderSize+format.PrivEntrySize+8)

	err = Partitions(data)
	require.Error(t, err, "Bad canary should fail validation")
	require.Contains(t, err.Error(), "invalid canary")
}

// TestPartitions_BadCachedCanary tests detection of a corrupted item
// header in the backward (cached) list.
func TestPartitions_BadCachedCanary(t *testing.T) {
	data := validImage(t)

	pt, err := format.ParsePtable(data)
	require.NoError(t, err)
	entry, err := pt.EntryAt(data, 0)
	require.NoError(t, err)

	// One cached item: header nearest the partition end, aligned to the
	// cacheline, data below it, free_cached at the data's bottom.
	step := int(format.AlignTo(format.PrivEntrySize, entry.Cacheline))
	hdrOff := int(entry.Offset) + int(entry.Size) - step
	format.WritePrivEntry(data, hdrOff, format.PrivEntry{
		Canary: format.Canary,
		Item:   20,
		Size:   32,
	})
	format.PutU32(data, int(entry.Offset)+format.PartFreeCachedOffset, entry.Size-uint32(step)-32)

	require.NoError(t, Partitions(data), "intact cached list should pass validation")

	data[hdrOff] = 0xde

	err = Partitions(data)
	require.Error(t, err, "Bad cached canary should fail validation")
	require.Contains(t, err.Error(), "invalid canary")
}

// TestPartitions_FreeOffsetsOutOfOrder tests detection of crossed bump pointers.
func TestPartitions_FreeOffsetsOutOfOrder(t *testing.T) {
	data := validImage(t)

	pt, err := format.ParsePtable(data)
	require.NoError(t, err)
	entry, err := pt.EntryAt(data, 0)
	require.NoError(t, err)

	format.PutU32(data, int(entry.Offset)+format.PartFreeCachedOffset, 0)

	err = Partitions(data)
	require.Error(t, err, "Crossed free offsets should fail validation")
	require.Contains(t, err.Error(), "out of order")
}

// TestGlobalToc_SlotOutOfBounds tests detection of a slot pointing outside
// the region.
func TestGlobalToc_SlotOutOfBounds(t *testing.T) {
	data := validImage(t)

	slot := format.TocEntryOffset(20)
	format.PutU32(data, slot+format.GlobalEntryOffsetOffset, uint32(len(data)))
	format.PutU32(data, slot+format.GlobalEntrySizeOffset, 64)
	format.PutU32(data, slot+format.GlobalEntryAllocatedOffset, 1)

	err := GlobalToc(data)
	require.Error(t, err, "Slot beyond the region should fail validation")
	require.Contains(t, err.Error(), "outside the region")
}

// TestGlobalToc_SkipsAuxSlots tests that aux-tagged slots are not bounds
// checked against this region.
func TestGlobalToc_SkipsAuxSlots(t *testing.T) {
	data := validImage(t)

	slot := format.TocEntryOffset(21)
	format.PutU32(data, slot+format.GlobalEntryOffsetOffset, uint32(len(data)))
	format.PutU32(data, slot+format.GlobalEntrySizeOffset, 64)
	format.PutU32(data, slot+format.GlobalEntryAuxBaseOffset, 0x80000000)
	format.PutU32(data, slot+format.GlobalEntryAllocatedOffset, 1)

	require.NoError(t, GlobalToc(data))
}
