// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"errors"
	"sync"
)

var (
	// ErrValidation is returned for missing or mismatched arguments and for
	// formats the driver rejects.
	ErrValidation = errors.New("sound: invalid request")

	// ErrCapability is recorded when a line lacks an optional control.
	// It is never returned from an operation.
	ErrCapability = errors.New("sound: control not supported")

	// ErrBackendAllocation is returned when the driver cannot create a
	// line or buffer.
	ErrBackendAllocation = errors.New("sound: backend allocation failed")

	// ErrDecode wraps codec failures.
	ErrDecode = errors.New("sound: decode failed")

	ErrNoSource = errors.New("sound: no such source")
	ErrClosed   = errors.New("sound: library is closed")
)

// Diagnostics keeps the most recent failure seen by a Library, including
// non-fatal ones such as capability loss. A nil *Diagnostics discards
// everything.
type Diagnostics struct {
	mu    sync.Mutex
	last  error
	count int
}

func (d *Diagnostics) Record(err error) {
	if d == nil || err == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = err
	d.count++
}

// Last returns the most recent error, or nil.
func (d *Diagnostics) Last() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.last
}

// Count is the number of errors recorded since the last Reset.
func (d *Diagnostics) Count() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.count
}

func (d *Diagnostics) Reset() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = nil
	d.count = 0
}
