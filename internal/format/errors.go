package format

import "errors"

var (
	// ErrFormat indicates a static structural mismatch: a bad magic,
	// version, size field, or a structure that does not fit its buffer.
	// Not expected to self-heal; callers abort the current operation.
	ErrFormat = errors.New("format: structural mismatch")

	// ErrCorrupt indicates a canary or list-ordering invariant violated
	// mid-walk. Distinct from ErrFormat because it can indicate a live
	// race with a misbehaving peer rather than a static misconfiguration.
	ErrCorrupt = errors.New("format: corrupt structure")
)
