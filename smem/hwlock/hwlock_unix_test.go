//go:build unix

package hwlock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclabs/smemkit/smem"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smem.lock")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	release, err := l.Acquire(time.Second)
	require.NoError(t, err)
	release()

	// Reacquirable after release.
	release, err = l.Acquire(time.Second)
	require.NoError(t, err)
	release()
}

func TestContentionTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smem.lock")

	holder, err := Open(path)
	require.NoError(t, err)
	defer holder.Close()
	waiter, err := Open(path)
	require.NoError(t, err)
	defer waiter.Close()

	release, err := holder.Acquire(time.Second)
	require.NoError(t, err)

	// flock is per-descriptor, so a second open descriptor contends the
	// way a second process would.
	_, err = waiter.Acquire(20 * time.Millisecond)
	assert.ErrorIs(t, err, smem.ErrLockTimeout)

	release()
	release, err = waiter.Acquire(time.Second)
	require.NoError(t, err)
	release()
}
