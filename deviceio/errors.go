package deviceio

import "errors"

// errDeviceStalled is returned by FakeReader on its failNth Read, simulating
// a device that has stopped producing frames and cannot be recovered by
// retrying Read. The ffmpeg-backed readers report such failures as
// capturemodel.ErrDeviceUnavailable instead.
var errDeviceStalled = errors.New("deviceio: device stalled")
