// Package smem manages an allocate-only heap in memory shared by the
// independent processors of a system-on-chip.
//
// # Overview
//
// The heap lives in one or two fixed memory windows that every processor
// maps. Software on any processor can reserve a numbered "item" of memory
// and any other processor can discover and read it, using only the mapped
// window, a cross-processor lock, and the on-media binary layout (all
// multi-byte fields little-endian, whatever the host byte order).
//
// Two heap protocols exist, selected by the boot loader version stored in
// the heap header's version vector:
//
//   - Version 11 (legacy): a single global heap with a fixed table of 512
//     slots at the start of the primary window.
//   - Version 12: private partitions described by a partition table 4 KiB
//     from the end of the primary window, plus a global-type partition
//     replacing the legacy heap. Each partition holds two bump-allocated
//     item lists: a forward "uncached" list growing from the partition
//     start and a backward "cached" list growing from its end. The gap
//     between the two free offsets is the free pool.
//
// Allocation never frees: once an item number is bound to space, it stays
// bound for the life of the region.
//
// # Key Types
//
//   - Heap: the handle over the mapped regions, built once at bring-up
//     and torn down as a unit (suspend/resume rebuilds it)
//   - Region: one mapped window with its base-address tag
//   - Lock: the cross-processor mutual exclusion primitive
//   - ItemInfo: an allocated item found by a listing walk
//
// # Opening a Heap
//
//	h, err := smem.OpenFile("/dev/shm/smem.img", smem.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	if err := h.Alloc(5, 42, 128); err != nil { ... }
//	payload, err := h.Get(5, 42)
//
// # Trust Model
//
// Every structure is parsed in place over memory that cooperating peers
// mutate outside this process's control. Each operation therefore
// re-validates whatever it touches: magics, host pairs, size echoes,
// free-offset ordering, and the canary in every walked item header.
// Canary and bounds checks are corruption detectors, not an adversarial
// defense; there is no authentication of peer writes.
package smem
