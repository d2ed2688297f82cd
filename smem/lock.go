package smem

import "time"

// DefaultLockTimeout bounds the wait for the cross-processor lock. A peer
// holding the lock longer than this is considered wedged.
const DefaultLockTimeout = time.Second

// Lock is the mutual-exclusion primitive guarding the shared heap against
// concurrent mutation by other processors. On silicon this is a hardware
// spinlock at a well-known index; on a development rig it can be a file
// lock (see the hwlock package) or a process-local lock.
type Lock interface {
	// Acquire blocks until the lock is held or the timeout expires, in
	// which case it returns ErrLockTimeout. On success it returns the
	// release function; every operation wraps its whole critical section
	// between the two.
	Acquire(timeout time.Duration) (release func(), err error)
}

// LocalLock is a process-local Lock for tests and single-process rigs
// where no other processor shares the window.
type LocalLock struct {
	ch chan struct{}
}

// NewLocalLock returns an unheld LocalLock.
func NewLocalLock() *LocalLock {
	return &LocalLock{ch: make(chan struct{}, 1)}
}

// Acquire implements Lock.
func (l *LocalLock) Acquire(timeout time.Duration) (func(), error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case l.ch <- struct{}{}:
		return func() { <-l.ch }, nil
	case <-t.C:
		return nil, ErrLockTimeout
	}
}
