// Package deviceio implements the DeviceReader capability set from
// spec.md §4.1: open one device, yield an unbounded lazy sequence of
// FrameEnvelopes, with a timeout-bounded read that never blocks longer
// than requested and is interruptible by Stop.
package deviceio

import (
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

// Reader is the capability set every concrete device reader implements.
// It replaces ad-hoc inheritance (spec.md §9) with a small interface: a
// camera reader and an audio reader hold no code in common beyond this
// contract.
type Reader interface {
	// Start acquires the device with its descriptor's parameters.
	// Returns capturemodel.ErrDeviceUnavailable if the device cannot be
	// opened, capturemodel.ErrParamsRejected if the requested mode is
	// unsupported.
	Start() error

	// Read returns one envelope, or (nil, nil) on timeout. It never
	// blocks longer than timeout and is interruptible by Stop.
	Read(timeout time.Duration) (*capturemodel.FrameEnvelope, error)

	// Stop releases all device resources. Idempotent, safe after any
	// state, including before Start.
	Stop()

	// IsActive reflects whether Start succeeded and Stop has not been
	// called since.
	IsActive() bool
}

// state is the reader lifecycle from spec.md §4.1: created -> started ->
// stopped, monotone, with Read legal only in started.
type state int

const (
	stateCreated state = iota
	stateStarted
	stateStopped
)
