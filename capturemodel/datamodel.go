// Package capturemodel holds the value types shared by every layer of the
// capture/transport core: device descriptors, the frame envelope, the
// preprocessing enum, and media sink specs. Nothing in this package talks
// to a socket, a device, or a file.
package capturemodel

import (
	"fmt"
	"time"
)

// DeviceKind is a closed tag identifying what a device is. It replaces
// dynamic type-name dispatch with an explicit, exhaustively-switched enum.
type DeviceKind string

const (
	DeviceKindCamera DeviceKind = "camera"
	DeviceKindAudio  DeviceKind = "audio"
)

// CameraParams holds the kind-specific parameters for a camera device.
type CameraParams struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	PixelFormat string `json:"pixel_format"`
}

// Validate enforces the bounds from spec.md §3.
func (p CameraParams) Validate() error {
	switch {
	case p.Width < 640 || p.Width > 3840:
		return fmt.Errorf("%w: width %d out of [640,3840]", ErrParamsRejected, p.Width)
	case p.Height < 480 || p.Height > 2160:
		return fmt.Errorf("%w: height %d out of [480,2160]", ErrParamsRejected, p.Height)
	case p.FPS < 15 || p.FPS > 120:
		return fmt.Errorf("%w: fps %d out of [15,120]", ErrParamsRejected, p.FPS)
	case p.PixelFormat == "":
		return fmt.Errorf("%w: pixel_format required", ErrParamsRejected)
	}
	return nil
}

// AudioParams holds the kind-specific parameters for an audio device.
type AudioParams struct {
	Channels   int `json:"channels"`
	SampleRate int `json:"sample_rate"`
	SampleSize int `json:"sample_size"`
}

// Validate enforces the bounds from spec.md §3.
func (p AudioParams) Validate() error {
	switch {
	case p.Channels < 1:
		return fmt.Errorf("%w: channels %d must be >= 1", ErrParamsRejected, p.Channels)
	case p.SampleRate < 8000 || p.SampleRate > 192000:
		return fmt.Errorf("%w: sample_rate %d out of [8000,192000]", ErrParamsRejected, p.SampleRate)
	case p.SampleSize < 8 || p.SampleSize > 32:
		return fmt.Errorf("%w: sample_size %d out of [8,32]", ErrParamsRejected, p.SampleSize)
	}
	return nil
}

// DeviceDescriptor identifies one physical device. Name is the
// aggregation key used by the receiver and must be unique within a live
// device set (see ValidateDeviceSet).
type DeviceDescriptor struct {
	DeviceID string     `json:"device_id"`
	Name     string     `json:"name"`
	Kind     DeviceKind `json:"kind"`

	Camera CameraParams `json:"camera,omitempty"`
	Audio  AudioParams  `json:"audio,omitempty"`
}

// Validate checks the struct-level invariants for one descriptor in
// isolation (uniqueness across a set is checked by ValidateDeviceSet).
func (d DeviceDescriptor) Validate() error {
	if d.DeviceID == "" {
		return fmt.Errorf("%w: device_id must not be empty", ErrParamsRejected)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrParamsRejected)
	}
	switch d.Kind {
	case DeviceKindCamera:
		return d.Camera.Validate()
	case DeviceKindAudio:
		return d.Audio.Validate()
	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownDevice, d.Kind)
	}
}

// ValidateDeviceSet enforces spec.md §3's invariant: each name appears at
// most once in a live device set.
func ValidateDeviceSet(devices []DeviceDescriptor) error {
	seen := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateDeviceName, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// DType is the element type of a FramePayload's contiguous buffer.
type DType string

const (
	DTypeUint8   DType = "uint8"
	DTypeInt16   DType = "int16"
	DTypeFloat32 DType = "float32"
)

// FramePayload is a contiguous, row-major pixel or sample buffer plus the
// shape needed to interpret it. It never carries a second copy of the
// header metadata — shape and dtype ARE the only metadata the payload
// needs, exactly as wired on the bus (spec.md §6).
type FramePayload struct {
	Shape []int  `json:"shape"`
	Dtype DType  `json:"dtype"`
	Bytes []byte `json:"-"`
}

// ElemSize returns the size in bytes of one element of Dtype.
func (d DType) ElemSize() int {
	switch d {
	case DTypeUint8:
		return 1
	case DTypeInt16:
		return 2
	case DTypeFloat32:
		return 4
	default:
		return 0
	}
}

// Len returns the product of Shape, i.e. the element count.
func (p FramePayload) Len() int {
	n := 1
	for _, s := range p.Shape {
		n *= s
	}
	return n
}

// ByteLen returns the expected buffer length for Shape x Dtype.
func (p FramePayload) ByteLen() int {
	return p.Len() * p.Dtype.ElemSize()
}

// FrameEnvelope is the immutable record emitted per capture. It is
// created once by a sender worker, serialized once, and then dropped;
// within a process it is exclusively owned by its current holder, and
// handing it to a channel transfers that ownership.
type FrameEnvelope struct {
	Device      DeviceDescriptor
	Payload     FramePayload
	StartReadTS time.Time
	EndReadTS   time.Time
}

// Clone returns a deep copy of the envelope's payload bytes, so a
// receiver can hold its own buffer independent of whatever produced it.
func (f FrameEnvelope) Clone() FrameEnvelope {
	out := f
	out.Payload.Bytes = append([]byte(nil), f.Payload.Bytes...)
	out.Payload.Shape = append([]int(nil), f.Payload.Shape...)
	return out
}

// PreprocessingOp is the closed enum of frame transforms a sender may
// apply before publishing. Only camera payloads are affected; audio
// payloads always pass through unchanged.
type PreprocessingOp string

const (
	PreprocessNone        PreprocessingOp = "none"
	PreprocessRotate90CW  PreprocessingOp = "rotate_90_cw"
	PreprocessRotate90CCW PreprocessingOp = "rotate_90_ccw"
	PreprocessRotate180   PreprocessingOp = "rotate_180"
)

// MediaSpec immutably describes a sink target.
type MediaSpec struct {
	OutputDir        string
	FileNameTemplate string
	Container        string
	Codec            string
	FPS              int
	DurationSeconds  int
}

// Validate enforces spec.md §3's MediaSpec invariants (output directory
// existence is checked by the sink at construction, not here).
func (m MediaSpec) Validate() error {
	if m.FPS < 1 {
		return fmt.Errorf("media spec: fps %d must be >= 1", m.FPS)
	}
	if m.DurationSeconds < 1 {
		return fmt.Errorf("media spec: duration %d must be >= 1s", m.DurationSeconds)
	}
	if m.OutputDir == "" {
		return fmt.Errorf("media spec: output dir required")
	}
	return nil
}

// FramesNeeded is fps * duration_seconds, the fixed length of a segment.
func (m MediaSpec) FramesNeeded() int {
	return m.FPS * m.DurationSeconds
}
