package smem

import (
	"fmt"

	"github.com/soclabs/smemkit/internal/buf"
	"github.com/soclabs/smemkit/internal/format"
)

// part is a bounded, freshly validated view of one partition. Positions
// are offsets into the primary region with the partition end as the hard
// bound; every step of a walk re-checks them, since the list lives in
// memory a peer can scribble on at any time.
type part struct {
	b     []byte
	off   int // partition start within the region
	end   int // partition end (off + table entry size)
	entry format.PtableEntry
	hdr   format.PartHeader
}

// uncachedStart is the offset of the first forward (uncached) entry.
func (p part) uncachedStart() int { return p.off + format.PartHeaderSize }

// uncachedEnd is the forward free offset: one past the last forward entry.
func (p part) uncachedEnd() int { return p.off + int(p.hdr.FreeUncached) }

// cachedStart is the backward free offset: the lowest byte of the cached
// (backward) sub-region. The span between uncachedEnd and cachedStart is
// the partition's free pool.
func (p part) cachedStart() int { return p.off + int(p.hdr.FreeCached) }

// firstCached is the offset of the cached entry nearest the partition end,
// where the backward walk begins.
func (p part) firstCached() int {
	return p.end - int(format.AlignTo(format.PrivEntrySize, p.entry.Cacheline))
}

// checkLayout verifies the relationship between the two bump pointers
// before any walk trusts them: the forward free offset must lie between
// the partition start and the backward free offset, which in turn must not
// pass the partition end.
func (p part) checkLayout() error {
	if !buf.InRange(p.uncachedEnd(), 0, p.off, p.cachedStart()) || p.cachedStart() > p.end {
		return fmt.Errorf("smem: partition %d:%d: free offsets out of order (uncached %d, cached %d, size %d): %w",
			p.hdr.Host0, p.hdr.Host1, p.hdr.FreeUncached, p.hdr.FreeCached, p.entry.Size, ErrFormat)
	}
	return nil
}

// corrupt builds the walk-abort error for a partition, identifying the
// host pair the way peers know it.
func (p part) corrupt(msg string, args ...any) error {
	prefix := fmt.Sprintf("smem: partition %d:%d: ", p.hdr.Host0, p.hdr.Host1)
	return fmt.Errorf(prefix+msg, args...)
}
