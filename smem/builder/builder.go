package builder

import (
	"fmt"
	"os"

	"github.com/soclabs/smemkit/internal/format"
)

// pageSize is the carve granularity for partitions within the region.
const pageSize = 4096

// PartitionSpec describes one private partition to carve out of the
// primary region.
type PartitionSpec struct {
	Host0, Host1 uint16
	Size         uint32 // rounded up to a 4 KiB multiple
	Cacheline    uint32 // alignment of cached item headers; 0 means 64
}

// Options configures a built image.
type Options struct {
	// RegionSize is the total size of the primary region.
	RegionSize uint32

	// Protocol selects the heap protocol version written into the boot
	// loader slot of the version vector: 11 for the legacy global heap,
	// 12 for partitions plus a global-type partition. Zero means 12.
	Protocol uint32

	// Partitions are the private partitions to carve (version 12 only).
	Partitions []PartitionSpec

	// GlobalSize is the size of the global-type partition (version 12).
	// Zero means 64 KiB.
	GlobalSize uint32

	// NumItems, when nonzero, writes an item-count descriptor after the
	// partition table entries, overriding the default 512 item cap.
	NumItems uint16
}

// Build returns a freshly initialized heap image.
func Build(opts Options) ([]byte, error) {
	if opts.Protocol == 0 {
		opts.Protocol = format.GlobalPartVersion
	}
	switch opts.Protocol {
	case format.HeapVersion, format.GlobalPartVersion:
	default:
		return nil, fmt.Errorf("builder: unsupported protocol version %d", opts.Protocol)
	}

	size := int(opts.RegionSize)
	if size < format.HeaderSize+format.PtableOffsetFromEnd {
		return nil, fmt.Errorf("builder: region size %d below minimum %d",
			size, format.HeaderSize+format.PtableOffsetFromEnd)
	}
	b := make([]byte, size)

	// Heap header. The slot table starts out zeroed (nothing allocated).
	format.PutU32(b, format.HdrInitializedOffset, 1)
	format.PutU32(b, format.HdrVersionOffset+4*format.SBLVersionIndex, opts.Protocol<<16)
	format.PutU32(b, format.HdrFreeOffsetOffset, format.HeaderSize)

	if opts.Protocol == format.HeapVersion {
		if len(opts.Partitions) > 0 {
			return nil, fmt.Errorf("builder: partitions require protocol version %d", format.GlobalPartVersion)
		}
		format.PutU32(b, format.HdrAvailableOffset, uint32(size-format.HeaderSize))
		return b, nil
	}

	// Version 12: carve partitions downward from the partition table,
	// global partition last (nearest the header).
	specs := opts.Partitions
	globalSize := opts.GlobalSize
	if globalSize == 0 {
		globalSize = 64 * 1024
	}
	specs = append(append([]PartitionSpec{}, specs...), PartitionSpec{
		Host0: format.GlobalHost,
		Host1: format.GlobalHost,
		Size:  globalSize,
	})

	ptableOff := format.PtableOffset(size)
	tableSpace := size - ptableOff - format.PtableHeaderSize
	if need := len(specs)*format.PtableEntrySize + format.InfoSize; need > tableSpace {
		return nil, fmt.Errorf("builder: %d partitions do not fit the table", len(specs))
	}

	copy(b[ptableOff:], format.PtableMagic)
	format.PutU32(b, ptableOff+format.PtableVersionOffset, format.PtableVersion)
	format.PutU32(b, ptableOff+format.PtableNumEntriesOffset, uint32(len(specs)))

	cursor := ptableOff
	for i, spec := range specs {
		psize := int(format.AlignTo(spec.Size, pageSize))
		if psize < format.PartHeaderSize {
			return nil, fmt.Errorf("builder: partition %d size %d too small", i, spec.Size)
		}
		cursor -= psize
		if cursor < format.HeaderSize {
			return nil, fmt.Errorf("builder: partition %d does not fit the region", i)
		}
		cacheline := spec.Cacheline
		if cacheline == 0 {
			cacheline = 64
		}

		eo := ptableOff + format.PtableHeaderSize + i*format.PtableEntrySize
		format.PutU32(b, eo+format.PtableEntryOffsetOffset, uint32(cursor))
		format.PutU32(b, eo+format.PtableEntrySizeOffset, uint32(psize))
		format.PutU16(b, eo+format.PtableEntryHost0Offset, spec.Host0)
		format.PutU16(b, eo+format.PtableEntryHost1Offset, spec.Host1)
		format.PutU32(b, eo+format.PtableEntryCachelineOffset, cacheline)

		copy(b[cursor:], format.PartMagic)
		format.PutU16(b, cursor+format.PartHost0Offset, spec.Host0)
		format.PutU16(b, cursor+format.PartHost1Offset, spec.Host1)
		format.PutU32(b, cursor+format.PartSizeOffset, uint32(psize))
		format.PutU32(b, cursor+format.PartFreeUncachedOffset, format.PartHeaderSize)
		format.PutU32(b, cursor+format.PartFreeCachedOffset, uint32(psize))
	}

	if opts.NumItems != 0 {
		io := ptableOff + format.PtableHeaderSize + len(specs)*format.PtableEntrySize
		copy(b[io:], format.InfoMagic)
		format.PutU32(b, io+format.InfoSizeOffset, opts.RegionSize)
		format.PutU16(b, io+format.InfoNumItemsOffset, opts.NumItems)
	}

	// Nothing is allocatable from the legacy header under version 12;
	// the global partition serves instead.
	format.PutU32(b, format.HdrAvailableOffset, 0)
	return b, nil
}

// WriteFile builds an image and writes it to path, ready to be mapped as
// a shared window.
func WriteFile(path string, opts Options) error {
	b, err := Build(opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
