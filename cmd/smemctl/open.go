package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/soclabs/smemkit/smem"
	"github.com/soclabs/smemkit/smem/hwlock"
)

var localHost uint16

func init() {
	rootCmd.PersistentFlags().
		Uint16Var(&localHost, "local-host", 0, "Host identity to enumerate partitions for")
}

// openImage maps a heap image with a sidecar file lock, so concurrent
// smemctl invocations against the same image exclude each other the way
// processors exclude each other on the hardware lock.
func openImage(path string, readOnly bool) (*smem.Heap, func(), error) {
	lock, err := hwlock.Open(path + ".lock")
	if err != nil {
		return nil, nil, err
	}

	slog.Debug("opening image", "path", path, "read_only", readOnly, "local_host", localHost)
	h, err := smem.OpenFile(path, smem.Options{
		LocalHost: smem.Host(localHost),
		Lock:      lock,
		ReadOnly:  readOnly,
	})
	if err != nil {
		lock.Close()
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	cleanup := func() {
		h.Close()
		lock.Close()
	}
	return h, cleanup, nil
}

// parseHost accepts a numeric host id or the word "none" for the global
// heap.
func parseHost(s string) (smem.Host, error) {
	if s == "none" || s == "global" {
		return smem.HostNone, nil
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad host %q: %w", s, err)
	}
	return smem.Host(n), nil
}

func parseItem(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad item %q: %w", s, err)
	}
	return uint16(n), nil
}
