package deviceio

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// FFmpegCameraReader decodes a v4l2 camera device to raw bgr24 frames via
// an ffmpeg subprocess, grounded on client.StreamProcess's ffmpeg
// invocation shape. Each Read call yields exactly one
// Width*Height*3-byte frame.
type FFmpegCameraReader struct {
	device     capturemodel.DeviceDescriptor
	devicePath string // e.g. "/dev/video0"
	proc       *ffmpegProcess
	frameSize  int
}

// NewFFmpegCameraReader builds a reader for device, which must be a
// camera-kind descriptor, decoding from devicePath (a v4l2 node).
func NewFFmpegCameraReader(device capturemodel.DeviceDescriptor, devicePath string, log *logx.Logger) (*FFmpegCameraReader, error) {
	if device.Kind != capturemodel.DeviceKindCamera {
		return nil, fmt.Errorf("%w: %s is not a camera device", capturemodel.ErrUnknownDevice, device.Name)
	}
	if err := device.Camera.Validate(); err != nil {
		return nil, err
	}
	cam := device.Camera
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-framerate", strconv.Itoa(cam.FPS),
		"-video_size", fmt.Sprintf("%dx%d", cam.Width, cam.Height),
		"-i", devicePath,
		"-pix_fmt", "bgr24",
		"-f", "rawvideo",
		"-",
	}
	frameSize := cam.Width * cam.Height * 3
	return &FFmpegCameraReader{
		device:     device,
		devicePath: devicePath,
		proc:       newFFmpegProcess(device.Name, args, frameSize, log),
		frameSize:  frameSize,
	}, nil
}

func (r *FFmpegCameraReader) Start() error { return r.proc.start() }
func (r *FFmpegCameraReader) Stop()        { r.proc.stop() }
func (r *FFmpegCameraReader) IsActive() bool { return r.proc.isActive() }

func (r *FFmpegCameraReader) Read(timeout time.Duration) (*capturemodel.FrameEnvelope, error) {
	start := time.Now()
	buf, err, done := readFrameWithTimeout(r.proc, timeout)
	if !done {
		return nil, nil
	}
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: camera %s pipe closed: %v", capturemodel.ErrDeviceUnavailable, r.device.Name, err)
		}
		return nil, fmt.Errorf("%w: camera %s: %v", capturemodel.ErrDeviceUnavailable, r.device.Name, err)
	}
	end := time.Now()

	return &capturemodel.FrameEnvelope{
		Device: r.device,
		Payload: capturemodel.FramePayload{
			Shape: []int{r.device.Camera.Height, r.device.Camera.Width, 3},
			Dtype: capturemodel.DTypeUint8,
			Bytes: buf,
		},
		StartReadTS: start,
		EndReadTS:   end,
	}, nil
}
