// Package busio implements the two transport endpoints and the XSUB/XPUB
// bus proxy from spec.md §4.2-4.3: a publisher and subscriber that move a
// FrameEnvelope between processes as a two-frame message, and a proxy
// that decouples N publishers from M subscribers.
//
// The socket layer is github.com/go-zeromq/zmq4, a pure-Go ZeroMQ
// implementation that supplies the PUB/SUB/XSUB/XPUB socket types without
// a cgo dependency on libzmq. The proxy forwards with its own two-goroutine
// pump rather than zmq4.Proxy, and HWM, non-blocking send and
// receive-timeout are enforced with bounded Go channels in the publisher
// and subscriber, not with zmq4 socket options.
package busio

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

// wireHeader is frame 1 of the two-part bus message, exactly as specified
// in spec.md §6.
type wireHeader struct {
	StartReadTimestamp float64        `json:"start_read_timestamp"`
	EndReadTimestamp   float64        `json:"end_read_timestamp"`
	Frame              wireFrameShape `json:"frame"`
	Device             wireDevice     `json:"device"`
}

type wireFrameShape struct {
	Shape []int  `json:"shape"`
	Dtype string `json:"dtype"`
}

type wireDevice struct {
	Kind       capturemodel.DeviceKind `json:"type"`
	Parameters json.RawMessage         `json:"parameters"`
}

type wireDeviceParams struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`

	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	FPS         int    `json:"fps,omitempty"`
	PixelFormat string `json:"pixel_format,omitempty"`

	Channels   int `json:"channels,omitempty"`
	SampleRate int `json:"sample_rate,omitempty"`
	SampleSize int `json:"sample_size,omitempty"`
}

// encodeHeader builds frame 1 from a FrameEnvelope.
func encodeHeader(env capturemodel.FrameEnvelope) ([]byte, error) {
	params := wireDeviceParams{
		DeviceID: env.Device.DeviceID,
		Name:     env.Device.Name,
	}
	switch env.Device.Kind {
	case capturemodel.DeviceKindCamera:
		params.Width = env.Device.Camera.Width
		params.Height = env.Device.Camera.Height
		params.FPS = env.Device.Camera.FPS
		params.PixelFormat = env.Device.Camera.PixelFormat
	case capturemodel.DeviceKindAudio:
		params.Channels = env.Device.Audio.Channels
		params.SampleRate = env.Device.Audio.SampleRate
		params.SampleSize = env.Device.Audio.SampleSize
	default:
		return nil, fmt.Errorf("%w: %q", capturemodel.ErrUnknownDevice, env.Device.Kind)
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("busio: marshal device params: %w", err)
	}

	hdr := wireHeader{
		StartReadTimestamp: float64(env.StartReadTS.UnixNano()) / 1e9,
		EndReadTimestamp:   float64(env.EndReadTS.UnixNano()) / 1e9,
		Frame: wireFrameShape{
			Shape: env.Payload.Shape,
			Dtype: string(env.Payload.Dtype),
		},
		Device: wireDevice{
			Kind:       env.Device.Kind,
			Parameters: paramsJSON,
		},
	}
	return json.Marshal(hdr)
}

// peekKind extracts the device.type discriminator from a raw header
// without a full unmarshal, using gjson, matching the "table lookup on a
// kind tag" requirement from spec.md §9 (no reflection-based dispatch).
func peekKind(raw []byte) (capturemodel.DeviceKind, bool) {
	res := gjson.GetBytes(raw, "device.type")
	if !res.Exists() || res.String() == "" {
		return "", false
	}
	return capturemodel.DeviceKind(res.String()), true
}

// decodeEnvelope reconstructs a FrameEnvelope from the two wire frames.
func decodeEnvelope(header []byte, payload []byte) (capturemodel.FrameEnvelope, error) {
	kind, ok := peekKind(header)
	if !ok {
		return capturemodel.FrameEnvelope{}, fmt.Errorf("%w: missing device.type", capturemodel.ErrUnknownDevice)
	}

	var hdr wireHeader
	if err := json.Unmarshal(header, &hdr); err != nil {
		return capturemodel.FrameEnvelope{}, fmt.Errorf("busio: unmarshal header: %w", err)
	}

	var params wireDeviceParams
	if err := json.Unmarshal(hdr.Device.Parameters, &params); err != nil {
		return capturemodel.FrameEnvelope{}, fmt.Errorf("busio: unmarshal device params: %w", err)
	}

	device := capturemodel.DeviceDescriptor{
		DeviceID: params.DeviceID,
		Name:     params.Name,
		Kind:     kind,
	}
	switch kind {
	case capturemodel.DeviceKindCamera:
		device.Camera = capturemodel.CameraParams{
			Width: params.Width, Height: params.Height, FPS: params.FPS, PixelFormat: params.PixelFormat,
		}
	case capturemodel.DeviceKindAudio:
		device.Audio = capturemodel.AudioParams{
			Channels: params.Channels, SampleRate: params.SampleRate, SampleSize: params.SampleSize,
		}
	default:
		return capturemodel.FrameEnvelope{}, fmt.Errorf("%w: %q", capturemodel.ErrUnknownDevice, kind)
	}

	fp := capturemodel.FramePayload{
		Shape: hdr.Frame.Shape,
		Dtype: capturemodel.DType(hdr.Frame.Dtype),
		Bytes: payload,
	}
	if fp.ByteLen() != len(payload) {
		return capturemodel.FrameEnvelope{}, fmt.Errorf("busio: payload length %d does not match shape %v x %s", len(payload), fp.Shape, fp.Dtype)
	}

	return capturemodel.FrameEnvelope{
		Device:      device,
		Payload:     fp,
		StartReadTS: secondsToTime(hdr.StartReadTimestamp),
		EndReadTS:   secondsToTime(hdr.EndReadTimestamp),
	}, nil
}
