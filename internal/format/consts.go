// Package format houses the low-level layout of the shared memory heap.
// Every multi-byte field on media is little-endian regardless of the host
// processor, since processors of different endianness share the region.
// The goal is to keep the parsing focused, allocation-free where possible,
// and independent from the public API so higher-level packages can
// orchestrate the data in a more ergonomic form.
package format

var (
	// PtableMagic is the four-byte magic at the start of the partition
	// table ("$TOC").
	PtableMagic = []byte{0x24, 0x54, 0x4f, 0x43}

	// PartMagic is the four-byte magic at the start of every partition
	// header ("$PRT").
	PartMagic = []byte{0x24, 0x50, 0x52, 0x54}

	// InfoMagic is the four-byte magic of the item-count descriptor that
	// may follow the last partition table entry ("SIII").
	InfoMagic = []byte{0x53, 0x49, 0x49, 0x49}
)

const (
	// Canary is the sentinel stored in every private item header. The two
	// bytes are identical, so it reads the same on either byte order.
	Canary = 0xa5a5

	// AllocAlign is the alignment of every allocation payload size.
	AllocAlign = 8

	// AllocAlignMask is AllocAlign - 1, for rounding.
	AllocAlignMask = AllocAlign - 1
)

// Heap header, found at the start of the primary region.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	0x000   64    proc_comm[4] (legacy communication slots, preserved)
//	0x040   128   version[32] (per-subsystem versions; slot 7 is the SBL)
//	0x0C0   4     initialized (must be 1)
//	0x0C4   4     free_offset (first unallocated byte in the region)
//	0x0C8   4     available (bytes left for allocation)
//	0x0CC   4     reserved (must be 0)
//	0x0D0   8192  toc[512] (global slot table, 16 bytes per slot)
const (
	ProcCommSize  = 16
	ProcCommCount = 4

	// VersionEntryCount is the number of slots in the version vector.
	VersionEntryCount = 32

	HdrVersionOffset     = ProcCommSize * ProcCommCount // 0x040
	HdrInitializedOffset = 0x0C0
	HdrFreeOffsetOffset  = 0x0C4
	HdrAvailableOffset   = 0x0C8
	HdrReservedOffset    = 0x0CC
	HdrTocOffset         = 0x0D0

	// SBLVersionIndex is the version vector slot holding the boot loader
	// version. Its high 16 bits select the heap protocol version.
	SBLVersionIndex = 7

	// HeapVersion is the protocol version using only the legacy global heap.
	HeapVersion = 11

	// GlobalPartVersion is the protocol version that replaces the global
	// heap with a global-type partition and a boot-set item count.
	GlobalPartVersion = 12
)

// Global slot (one toc[] element).
//
//	0x00  4  allocated (nonzero once the slot is published)
//	0x04  4  offset (from the base of the slot's region)
//	0x08  4  size (8-byte aligned)
//	0x0C  4  aux_base (region tag; 0 selects the default region,
//	         bits 1:0 are reserved and masked off)
const (
	GlobalEntryAllocatedOffset = 0x00
	GlobalEntryOffsetOffset    = 0x04
	GlobalEntrySizeOffset      = 0x08
	GlobalEntryAuxBaseOffset   = 0x0C

	GlobalEntrySize = 16

	// AuxBaseMask strips the two reserved low bits from aux_base.
	AuxBaseMask = 0xfffffffc

	// DefaultItemCount is the size of the global slot table and the
	// default highest accepted item number.
	DefaultItemCount = 512

	// ItemLastFixed is the number of leading items reserved for the boot
	// loader; allocation of items below this is rejected.
	ItemLastFixed = 8
)

// HeaderSize is the full size of the heap header including the slot table.
const HeaderSize = HdrTocOffset + DefaultItemCount*GlobalEntrySize // 8400

// Partition table, located PtableOffsetFromEnd bytes before the end of the
// primary region.
//
//	0x00  4   magic "$TOC"
//	0x04  4   version (must be 1)
//	0x08  4   num_entries
//	0x0C  20  reserved
//	0x20  ..  entries (48 bytes each)
const (
	PtableMagicOffset      = 0x00
	PtableMagicSize        = 4
	PtableVersionOffset    = 0x04
	PtableNumEntriesOffset = 0x08

	PtableHeaderSize = 0x20
	PtableVersion    = 1

	// PtableOffsetFromEnd is the distance of the partition table from the
	// end of the primary region.
	PtableOffsetFromEnd = 4096
)

// Partition table entry.
//
//	0x00  4   offset of the partition within the primary region
//	0x04  4   size of the partition
//	0x08  4   flags (unused)
//	0x0C  2   host0
//	0x0E  2   host1
//	0x10  4   cacheline (alignment of cached item headers)
//	0x14  28  reserved
const (
	PtableEntryOffsetOffset    = 0x00
	PtableEntrySizeOffset      = 0x04
	PtableEntryFlagsOffset     = 0x08
	PtableEntryHost0Offset     = 0x0C
	PtableEntryHost1Offset     = 0x0E
	PtableEntryCachelineOffset = 0x10

	PtableEntrySize = 48
)

// Partition header, at the start of each partition.
//
//	0x00  4   magic "$PRT"
//	0x04  2   host0
//	0x06  2   host1
//	0x08  4   size of the partition
//	0x0C  4   offset_free_uncached (forward bump pointer)
//	0x10  4   offset_free_cached (backward bump pointer)
//	0x14  12  reserved
const (
	PartMagicOffset        = 0x00
	PartMagicSize          = 4
	PartHost0Offset        = 0x04
	PartHost1Offset        = 0x06
	PartSizeOffset         = 0x08
	PartFreeUncachedOffset = 0x0C
	PartFreeCachedOffset   = 0x10

	PartHeaderSize = 32
)

// Private item entry. Uncached entries are immediately followed by
// padding_hdr bytes and then the data; cached entries sit after their
// data, with headers aligned to the partition's cacheline.
//
//	0x00  2  canary (0xa5a5)
//	0x02  2  item
//	0x04  4  size of the data, including padding bytes
//	0x08  2  padding_data (bytes of padding after the data)
//	0x0A  2  padding_hdr (bytes between the header and the data)
//	0x0C  4  reserved
const (
	PrivEntryCanaryOffset      = 0x00
	PrivEntryItemOffset        = 0x02
	PrivEntrySizeOffset        = 0x04
	PrivEntryPaddingDataOffset = 0x08
	PrivEntryPaddingHdrOffset  = 0x0A

	PrivEntrySize = 16
)

// Item-count descriptor (region info), found directly after the last
// partition table entry.
//
//	0x00  4  magic "SIII"
//	0x04  4  size of the region
//	0x08  4  base address of the region
//	0x0C  4  reserved
//	0x10  2  num_items (highest accepted item number)
const (
	InfoMagicOffset    = 0x00
	InfoMagicSize      = 4
	InfoSizeOffset     = 0x04
	InfoBaseAddrOffset = 0x08
	InfoNumItemsOffset = 0x10

	InfoSize = 18
)

// Host identifiers.
const (
	// HostApps is the identifier of the application processor, the local
	// host on whose behalf partitions are enumerated by default.
	HostApps = 0

	// GlobalHost is the reserved identifier that marks the global-type
	// partition (host0 == host1 == GlobalHost).
	GlobalHost = 0xfffe

	// HostCount is the maximum number of hosts in a system.
	HostCount = 13
)
