package format

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// PutU32Release stores v at off in little-endian form with release
// semantics: every plain write issued before the call is visible to any
// observer that sees the new value, including a peer processor reading the
// mapping without taking the heap lock. This is the publication step of the
// stage-then-publish pattern used for the global slot's allocated flag and
// the partition free offsets.
//
// off must be 4-byte aligned within the mapping. Heap and partition headers
// are page-aligned on media, so every published field satisfies this.
func PutU32Release(b []byte, off int, v uint32) {
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], v)
	p := (*uint32)(unsafe.Pointer(&b[off]))
	atomic.StoreUint32(p, binary.NativeEndian.Uint32(le[:]))
}
