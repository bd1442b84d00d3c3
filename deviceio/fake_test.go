package deviceio

import (
	"errors"
	"testing"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

func camDevice() capturemodel.DeviceDescriptor {
	return capturemodel.DeviceDescriptor{
		DeviceID: "d0", Name: "camA", Kind: capturemodel.DeviceKindCamera,
		Camera: capturemodel.CameraParams{Width: 640, Height: 480, FPS: 30, PixelFormat: "bgr24"},
	}
}

func micDevice() capturemodel.DeviceDescriptor {
	return capturemodel.DeviceDescriptor{
		DeviceID: "m0", Name: "micA", Kind: capturemodel.DeviceKindAudio,
		Audio: capturemodel.AudioParams{Channels: 1, SampleRate: 48000, SampleSize: 16},
	}
}

func TestFakeReaderLifecycle(t *testing.T) {
	r := NewFakeReader(camDevice(), time.Millisecond, 0)
	if r.IsActive() {
		t.Fatal("reader should not be active before Start")
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.IsActive() {
		t.Fatal("reader should be active after Start")
	}
	r.Stop()
	if r.IsActive() {
		t.Fatal("reader should not be active after Stop")
	}
}

func TestFakeReaderReadBeforeStartReturnsNil(t *testing.T) {
	r := NewFakeReader(camDevice(), time.Millisecond, 0)
	env, err := r.Read(10 * time.Millisecond)
	if err != nil || env != nil {
		t.Fatalf("expected (nil, nil) before Start, got (%v, %v)", env, err)
	}
}

func TestFakeReaderProducesCameraShape(t *testing.T) {
	device := camDevice()
	r := NewFakeReader(device, time.Millisecond, 0)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	env, err := r.Read(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if env == nil {
		t.Fatal("expected a frame, got timeout")
	}
	wantLen := device.Camera.Height * device.Camera.Width * 3
	if env.Payload.ByteLen() != wantLen || len(env.Payload.Bytes) != wantLen {
		t.Fatalf("unexpected payload length: got %d want %d", len(env.Payload.Bytes), wantLen)
	}
	if env.EndReadTS.Before(env.StartReadTS) {
		t.Fatal("EndReadTS must not precede StartReadTS")
	}
}

func TestFakeReaderProducesAudioShape(t *testing.T) {
	device := micDevice()
	r := NewFakeReader(device, time.Millisecond, 0)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	env, err := r.Read(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if env == nil {
		t.Fatal("expected a frame, got timeout")
	}
	if env.Device.Kind != capturemodel.DeviceKindAudio {
		t.Fatalf("expected audio device, got %v", env.Device.Kind)
	}
}

func TestFakeReaderReadTimesOutWithoutBlockingForever(t *testing.T) {
	r := NewFakeReader(camDevice(), 100*time.Millisecond, 0)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	env, err := r.Read(5 * time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if env != nil {
		t.Fatal("expected timeout (nil envelope) for a short read budget")
	}
}

func TestFakeReaderPermanentFailureStopsReader(t *testing.T) {
	r := NewFakeReader(camDevice(), time.Millisecond, 2)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	if _, err := r.Read(50 * time.Millisecond); err != nil {
		t.Fatalf("first read should succeed: %v", err)
	}
	_, err := r.Read(50 * time.Millisecond)
	if !errors.Is(err, errDeviceStalled) {
		t.Fatalf("expected errDeviceStalled on second read, got %v", err)
	}
	if r.IsActive() {
		t.Fatal("reader should deactivate itself after a permanent failure")
	}
}

func TestFakeReaderSatisfiesReaderInterface(t *testing.T) {
	var _ Reader = NewFakeReader(camDevice(), time.Millisecond, 0)
}
