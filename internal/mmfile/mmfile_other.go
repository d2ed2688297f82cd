//go:build !unix

package mmfile

import (
	"errors"
	"os"
)

// ErrUnsupported indicates shared mappings are unavailable on this platform.
var ErrUnsupported = errors.New("mmfile: shared mappings not supported on this platform")

// Map reads the entire file when mmap is not available. Good enough for
// inspection tooling; the view is a snapshot, not a live window.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}

// MapRW requires a real shared mapping and has no portable fallback:
// a private copy would silently break the cross-process publication
// guarantees the allocator depends on.
func MapRW(path string) ([]byte, func() error, error) {
	return nil, nil, ErrUnsupported
}

// Sync is a no-op for the snapshot fallback.
func Sync(data []byte) error { return nil }
