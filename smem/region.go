package smem

import "unsafe"

// Region is one mapped memory window of the shared heap. AuxBase is the
// window's base-address tag: global slots carry it to say which window
// their offset is relative to, and 0 always matches the default (primary)
// window. Systems have one or two regions.
type Region struct {
	AuxBase uint32
	Data    []byte
}

// regionFor resolves an aux-base tag to a mapped region. Tag 0 matches the
// first region encountered, which is the primary window.
func (h *Heap) regionFor(auxBase uint32) (Region, bool) {
	for _, r := range h.regions {
		if r.AuxBase == auxBase || auxBase == 0 {
			return r, true
		}
	}
	return Region{}, false
}

// VirtToPhys resolves a payload slice previously returned by Get back to
// its physical address, by locating the mapped region containing it. The
// second return is false when p lies outside every region.
func (h *Heap) VirtToPhys(p []byte) (uint64, bool) {
	if h == nil || len(p) == 0 {
		return 0, false
	}
	pp := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	for _, r := range h.regions {
		if len(r.Data) == 0 {
			continue
		}
		base := uintptr(unsafe.Pointer(unsafe.SliceData(r.Data)))
		if pp >= base && pp < base+uintptr(len(r.Data)) {
			return uint64(r.AuxBase) + uint64(pp-base), true
		}
	}
	return 0, false
}
