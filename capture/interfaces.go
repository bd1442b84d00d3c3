// Package capture implements the sender worker, aggregating receiver, and
// multi-sender orchestrator from spec.md §4.4–§4.6: the glue between a
// deviceio.Reader and a busio.Publisher/Subscriber, independent of any
// concrete transport so it can be unit tested against fakes.
package capture

import (
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

// Reader is the subset of deviceio.Reader the sender depends on.
type Reader interface {
	Start() error
	Read(timeout time.Duration) (*capturemodel.FrameEnvelope, error)
	Stop()
	IsActive() bool
}

// Publisher is the subset of busio.Publisher the sender depends on.
type Publisher interface {
	Start() error
	Send(env capturemodel.FrameEnvelope) error
	Stop()
}

// Subscriber is the subset of busio.Subscriber the receiver depends on.
type Subscriber interface {
	Start() error
	Receive() (*capturemodel.FrameEnvelope, error)
	Stop()
}

// Proxy is the subset of busio.Proxy the orchestrator depends on.
type Proxy interface {
	Start() error
	Stop()
	IsActive() bool
}
