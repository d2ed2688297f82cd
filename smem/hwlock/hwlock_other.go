//go:build !unix

package hwlock

import (
	"errors"
	"time"

	"github.com/soclabs/smemkit/smem"
)

// ErrUnsupported reports that file locks are unavailable on this platform.
var ErrUnsupported = errors.New("hwlock: not supported on this platform")

// FileLock is a placeholder on platforms without flock.
type FileLock struct{}

var _ smem.Lock = (*FileLock)(nil)

// Open fails with ErrUnsupported.
func Open(path string) (*FileLock, error) {
	return nil, ErrUnsupported
}

// Acquire implements smem.Lock.
func (l *FileLock) Acquire(timeout time.Duration) (func(), error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (l *FileLock) Close() error { return nil }
