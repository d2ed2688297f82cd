// Package hwlock provides a cross-process implementation of the heap lock.
//
// On silicon the heap is guarded by a hardware spinlock at a well-known
// index, shared by every processor. On a development rig the processors
// are plain OS processes mapping the same image file, so an exclusive file
// lock on a sidecar path gives the same mutual exclusion with the same
// acquire/timeout shape.
package hwlock
