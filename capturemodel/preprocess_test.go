package capturemodel

import (
	"bytes"
	"testing"
)

func testCameraEnvelope(h, w, c int) FrameEnvelope {
	buf := make([]byte, h*w*c)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return FrameEnvelope{
		Device: DeviceDescriptor{
			DeviceID: "d0", Name: "camA", Kind: DeviceKindCamera,
			Camera: CameraParams{Width: w, Height: h, FPS: 30, PixelFormat: "bgr24"},
		},
		Payload: FramePayload{Shape: []int{h, w, c}, Dtype: DTypeUint8, Bytes: buf},
	}
}

func TestRotate180Involution(t *testing.T) {
	env := testCameraEnvelope(4, 6, 3)
	once, err := ApplyPreprocessing(PreprocessRotate180, env)
	if err != nil {
		t.Fatalf("rotate180: %v", err)
	}
	twice, err := ApplyPreprocessing(PreprocessRotate180, once)
	if err != nil {
		t.Fatalf("rotate180 again: %v", err)
	}
	if !bytes.Equal(twice.Payload.Bytes, env.Payload.Bytes) {
		t.Fatal("rotate_180 twice should be identity")
	}
	if twice.Payload.Shape[0] != env.Payload.Shape[0] || twice.Payload.Shape[1] != env.Payload.Shape[1] {
		t.Fatal("rotate_180 twice should preserve shape")
	}
}

func TestRotateCWThenCCWIsIdentity(t *testing.T) {
	env := testCameraEnvelope(4, 6, 3)
	cw, err := ApplyPreprocessing(PreprocessRotate90CW, env)
	if err != nil {
		t.Fatalf("rotate cw: %v", err)
	}
	back, err := ApplyPreprocessing(PreprocessRotate90CCW, cw)
	if err != nil {
		t.Fatalf("rotate ccw: %v", err)
	}
	if !bytes.Equal(back.Payload.Bytes, env.Payload.Bytes) {
		t.Fatal("rotate_90_cw then rotate_90_ccw should be identity")
	}
	if back.Payload.Shape[0] != env.Payload.Shape[0] || back.Payload.Shape[1] != env.Payload.Shape[1] {
		t.Fatalf("shape not restored: got %v want %v", back.Payload.Shape, env.Payload.Shape)
	}
}

func TestRotateCWFourTimesIsIdentity(t *testing.T) {
	env := testCameraEnvelope(4, 6, 3)
	cur := env
	for i := 0; i < 4; i++ {
		var err error
		cur, err = ApplyPreprocessing(PreprocessRotate90CW, cur)
		if err != nil {
			t.Fatalf("rotate cw iter %d: %v", i, err)
		}
	}
	if !bytes.Equal(cur.Payload.Bytes, env.Payload.Bytes) {
		t.Fatal("rotate_90_cw^4 should be identity")
	}
	if cur.Payload.Shape[0] != env.Payload.Shape[0] || cur.Payload.Shape[1] != env.Payload.Shape[1] {
		t.Fatal("rotate_90_cw^4 should restore shape")
	}
}

func TestRotateSwapsDimensions(t *testing.T) {
	env := testCameraEnvelope(480, 640, 3) // H=480 W=640
	cw, err := ApplyPreprocessing(PreprocessRotate90CW, env)
	if err != nil {
		t.Fatalf("rotate cw: %v", err)
	}
	if cw.Payload.Shape[0] != 640 || cw.Payload.Shape[1] != 480 {
		t.Fatalf("expected swapped shape [640 480 3], got %v", cw.Payload.Shape)
	}
}

func TestApplyPreprocessingNoneAndAudioPassThrough(t *testing.T) {
	cam := testCameraEnvelope(2, 2, 3)
	out, err := ApplyPreprocessing(PreprocessNone, cam)
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if &out.Payload != &cam.Payload && !bytes.Equal(out.Payload.Bytes, cam.Payload.Bytes) {
		t.Fatal("PreprocessNone must not alter payload bytes")
	}

	audio := FrameEnvelope{
		Device:  DeviceDescriptor{DeviceID: "m0", Name: "micA", Kind: DeviceKindAudio, Audio: AudioParams{Channels: 1, SampleRate: 48000, SampleSize: 16}},
		Payload: FramePayload{Shape: []int{10, 1}, Dtype: DTypeInt16, Bytes: make([]byte, 20)},
	}
	out, err = ApplyPreprocessing(PreprocessRotate90CW, audio)
	if err != nil {
		t.Fatalf("audio passthrough: %v", err)
	}
	if !bytes.Equal(out.Payload.Bytes, audio.Payload.Bytes) {
		t.Fatal("audio payload must pass through rotation ops unchanged")
	}
}

func TestOpForDeviceDefaultsToNone(t *testing.T) {
	ops := map[string]PreprocessingOp{"camA": PreprocessRotate90CW}
	if got := OpForDevice(ops, "camB"); got != PreprocessNone {
		t.Fatalf("expected PreprocessNone for absent entry, got %q", got)
	}
	if got := OpForDevice(ops, "camA"); got != PreprocessRotate90CW {
		t.Fatalf("expected PreprocessRotate90CW, got %q", got)
	}
}

func TestValidateDeviceSetRejectsDuplicateNames(t *testing.T) {
	devices := []DeviceDescriptor{
		{DeviceID: "d0", Name: "camA", Kind: DeviceKindCamera, Camera: CameraParams{Width: 640, Height: 480, FPS: 30, PixelFormat: "bgr24"}},
		{DeviceID: "d1", Name: "camA", Kind: DeviceKindCamera, Camera: CameraParams{Width: 640, Height: 480, FPS: 30, PixelFormat: "bgr24"}},
	}
	if err := ValidateDeviceSet(devices); err == nil {
		t.Fatal("expected error for duplicate device names")
	}
}
