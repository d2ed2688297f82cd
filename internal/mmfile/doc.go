// Package mmfile provides helpers for mapping heap image files into
// memory. On unix hosts the mappings are real shared mmaps, so separate
// processes over the same file observe each other's writes the way peer
// processors observe a physical window; elsewhere only a read-only
// snapshot fallback is available.
package mmfile
