package smem

import (
	"errors"

	"github.com/soclabs/smemkit/internal/format"
)

var (
	// ErrNotReady indicates the handle is not initialized or has been
	// torn down; the caller should retry after bring-up.
	ErrNotReady = errors.New("smem: not ready")

	// ErrReserved indicates an allocation of one of the leading items
	// only the boot loader may create.
	ErrReserved = errors.New("smem: item reserved for boot loader")

	// ErrOutOfRange indicates an item number at or above the heap's
	// accepted item count.
	ErrOutOfRange = errors.New("smem: item out of range")

	// ErrExists indicates the item is already allocated.
	ErrExists = errors.New("smem: item already allocated")

	// ErrNotFound indicates a lookup miss.
	ErrNotFound = errors.New("smem: item not found")

	// ErrOutOfSpace indicates a partition's free area cannot hold the
	// requested allocation.
	ErrOutOfSpace = errors.New("smem: partition out of space")

	// ErrOutOfMemory indicates the legacy global heap is exhausted.
	ErrOutOfMemory = errors.New("smem: global heap exhausted")

	// ErrLockTimeout indicates the cross-processor lock could not be
	// acquired within the timeout. Nothing was modified; the caller may
	// retry.
	ErrLockTimeout = errors.New("smem: lock acquisition timed out")
)

// Structural errors surface from the layout layer unchanged so that
// errors.Is works across the package boundary.
var (
	// ErrFormat indicates a static structural mismatch (magic, version,
	// or size inconsistency). Not expected to self-heal.
	ErrFormat = format.ErrFormat

	// ErrCorrupt indicates a canary or list-ordering violation found
	// mid-walk. Distinct from ErrFormat because it can indicate a live
	// race with a misbehaving peer.
	ErrCorrupt = format.ErrCorrupt
)
