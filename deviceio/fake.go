package deviceio

import (
	"sync"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

// FakeReader is a deterministic, in-memory Reader used by tests and by
// environments without camera/ffmpeg access. It generates synthetic
// frames on a fixed cadence instead of decoding a real device, but
// implements the exact same state machine and timeout contract as the
// ffmpeg-backed readers.
type FakeReader struct {
	device   capturemodel.DeviceDescriptor
	interval time.Duration

	mu      sync.Mutex
	st      state
	seq     int
	failNth int // if > 0, Read raises a permanent error on this call number
}

// NewFakeReader returns a FakeReader for device that emits one frame
// every interval. If failNth > 0, the failNth call to Read returns a
// non-timeout error, simulating a permanent device error.
func NewFakeReader(device capturemodel.DeviceDescriptor, interval time.Duration, failNth int) *FakeReader {
	return &FakeReader{device: device, interval: interval, failNth: failNth}
}

func (r *FakeReader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.st == stateStarted {
		return nil
	}
	r.st = stateStarted
	return nil
}

func (r *FakeReader) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st == stateStarted
}

func (r *FakeReader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st = stateStopped
}

func (r *FakeReader) Read(timeout time.Duration) (*capturemodel.FrameEnvelope, error) {
	r.mu.Lock()
	if r.st != stateStarted {
		r.mu.Unlock()
		return nil, nil
	}
	r.seq++
	seq := r.seq
	fail := r.failNth > 0 && seq == r.failNth
	r.mu.Unlock()

	_, _, done := runWithTimeout(timeout, func() (struct{}, error) {
		time.Sleep(r.interval)
		return struct{}{}, nil
	})
	if !done {
		return nil, nil
	}

	if fail {
		r.mu.Lock()
		r.st = stateStopped
		r.mu.Unlock()
		return nil, errDeviceStalled
	}

	start := time.Now()
	shape, dtype, payload := syntheticPayload(r.device, seq)
	end := time.Now()

	return &capturemodel.FrameEnvelope{
		Device: r.device,
		Payload: capturemodel.FramePayload{
			Shape: shape,
			Dtype: dtype,
			Bytes: payload,
		},
		StartReadTS: start,
		EndReadTS:   end,
	}, nil
}

func syntheticPayload(device capturemodel.DeviceDescriptor, seq int) ([]int, capturemodel.DType, []byte) {
	switch device.Kind {
	case capturemodel.DeviceKindAudio:
		n := device.Audio.SampleRate / 100 // 10ms of samples
		if n == 0 {
			n = 1
		}
		buf := make([]byte, n*device.Audio.Channels*2)
		for i := range buf {
			buf[i] = byte((seq + i) % 256)
		}
		return []int{n, device.Audio.Channels}, capturemodel.DTypeInt16, buf
	default:
		w, h := device.Camera.Width, device.Camera.Height
		buf := make([]byte, h*w*3)
		for i := range buf {
			buf[i] = byte((seq + i) % 256)
		}
		return []int{h, w, 3}, capturemodel.DTypeUint8, buf
	}
}
