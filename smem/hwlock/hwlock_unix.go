//go:build unix

package hwlock

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/soclabs/smemkit/smem"
)

// retryInterval is how often a contended acquire re-attempts the flock.
const retryInterval = time.Millisecond

// FileLock implements smem.Lock with an exclusive flock on a sidecar file.
type FileLock struct {
	f *os.File
}

var _ smem.Lock = (*FileLock)(nil)

// Open creates (or reuses) the lock file at path. Conventionally this is
// the heap image path with a ".lock" suffix.
func Open(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("hwlock: open %s: %w", path, err)
	}
	return &FileLock{f: f}, nil
}

// Acquire implements smem.Lock. The flock is taken non-blocking and
// retried until the deadline so a wedged holder surfaces as
// smem.ErrLockTimeout rather than a hang.
func (l *FileLock) Acquire(timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(l.f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return l.release, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			return nil, fmt.Errorf("hwlock: flock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, smem.ErrLockTimeout
		}
		time.Sleep(retryInterval)
	}
}

func (l *FileLock) release() {
	// Errors here leave the lock held until Close; nothing useful to do
	// with them mid-operation.
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}

// Close releases the lock file. Any flock still held is dropped by the
// kernel with the descriptor.
func (l *FileLock) Close() error {
	return l.f.Close()
}
