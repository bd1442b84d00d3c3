package liveview

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

type fakeEncoder struct{}

func (fakeEncoder) Encode(env capturemodel.FrameEnvelope) ([]byte, time.Duration, error) {
	return []byte{0x00, 0x01}, 33 * time.Millisecond, nil
}

func TestAddDeviceRejectsDuplicateRegistration(t *testing.T) {
	v := NewWebRTCLiveView()
	cap := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000}

	if _, err := v.AddDevice("camA", cap, fakeEncoder{}); err != nil {
		t.Fatalf("first AddDevice: %v", err)
	}
	if _, err := v.AddDevice("camA", cap, fakeEncoder{}); err == nil {
		t.Fatal("expected error re-registering camA")
	}
}

func TestTrackReturnsNilForUnregisteredDevice(t *testing.T) {
	v := NewWebRTCLiveView()
	if tr := v.Track("missing"); tr != nil {
		t.Fatal("expected nil track for unregistered device")
	}
}

func TestPublishSkipsUnregisteredDevices(t *testing.T) {
	v := NewWebRTCLiveView()
	// No devices registered; Publish must not panic on an unknown name.
	v.Publish(map[string]capturemodel.FrameEnvelope{
		"camA": {Device: capturemodel.DeviceDescriptor{Name: "camA"}},
	})
}
