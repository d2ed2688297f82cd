// Package builder writes freshly initialized shared heap images: the work
// the boot loader performs on real silicon before any processor touches
// the window. It exists for tests, development rigs, and the smemctl
// build command.
//
// A built image contains the heap header (initialized flag, version
// vector, bump fields, empty slot table) and, for the partitioned
// protocol, the partition table with its partition headers and an
// optional item-count descriptor.
package builder
