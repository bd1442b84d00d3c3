package capturemodel

import "errors"

// Sentinel errors surfaced to callers, per the error taxonomy: a reader
// failing to open its device, a descriptor requesting an unsupported
// mode, a publisher dropping a frame at HWM, a subscriber receiving a
// tag it doesn't know how to reconstruct, a sink giving up on a segment,
// and a receiver giving up on completing a tuple. capture.Receiver reports
// that last case as a nil tuple and does not return ErrAggregationExhausted.
var (
	ErrDeviceUnavailable    = errors.New("capturemodel: device unavailable")
	ErrParamsRejected       = errors.New("capturemodel: device parameters rejected")
	ErrDropped              = errors.New("capturemodel: frame dropped")
	ErrUnknownDevice        = errors.New("capturemodel: unknown device kind")
	ErrSegmentFailed        = errors.New("capturemodel: segment failed")
	ErrAggregationExhausted = errors.New("capturemodel: aggregation exhausted")

	// ErrDuplicateDeviceName is raised at startup when a live device set
	// has two descriptors sharing a name (the aggregation key).
	ErrDuplicateDeviceName = errors.New("capturemodel: duplicate device name")
)
