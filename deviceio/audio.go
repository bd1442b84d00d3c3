package deviceio

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// audioChunkSeconds is the fixed chunk duration an AudioReader reads per
// Read call; spec.md leaves audio framing up to the reader as long as
// each chunk is self-describing via Shape.
const audioChunkSeconds = 0.02

// FFmpegAudioReader decodes an ALSA audio device to raw signed 16-bit
// PCM via an ffmpeg subprocess, grounded on client.AudioArgs's ffmpeg
// invocation shape.
type FFmpegAudioReader struct {
	device    capturemodel.DeviceDescriptor
	alsaHW    string // e.g. "hw:1,0"
	proc      *ffmpegProcess
	chunkSize int // bytes per Read call
	samples   int // samples per channel per Read call
}

// NewFFmpegAudioReader builds a reader for device, which must be an
// audio-kind descriptor, decoding from alsaHW (an ALSA hw id).
func NewFFmpegAudioReader(device capturemodel.DeviceDescriptor, alsaHW string, log *logx.Logger) (*FFmpegAudioReader, error) {
	if device.Kind != capturemodel.DeviceKindAudio {
		return nil, fmt.Errorf("%w: %s is not an audio device", capturemodel.ErrUnknownDevice, device.Name)
	}
	if err := device.Audio.Validate(); err != nil {
		return nil, err
	}
	a := device.Audio
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "alsa",
		"-ar", strconv.Itoa(a.SampleRate),
		"-ac", strconv.Itoa(a.Channels),
		"-i", alsaHW,
		"-f", "s16le",
		"-",
	}
	samples := int(float64(a.SampleRate) * audioChunkSeconds)
	if samples < 1 {
		samples = 1
	}
	chunkSize := samples * a.Channels * 2
	return &FFmpegAudioReader{
		device:    device,
		alsaHW:    alsaHW,
		proc:      newFFmpegProcess(device.Name, args, chunkSize, log),
		chunkSize: chunkSize,
		samples:   samples,
	}, nil
}

func (r *FFmpegAudioReader) Start() error   { return r.proc.start() }
func (r *FFmpegAudioReader) Stop()          { r.proc.stop() }
func (r *FFmpegAudioReader) IsActive() bool { return r.proc.isActive() }

func (r *FFmpegAudioReader) Read(timeout time.Duration) (*capturemodel.FrameEnvelope, error) {
	start := time.Now()
	buf, err, done := readFrameWithTimeout(r.proc, timeout)
	if !done {
		return nil, nil
	}
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: audio %s pipe closed: %v", capturemodel.ErrDeviceUnavailable, r.device.Name, err)
		}
		return nil, fmt.Errorf("%w: audio %s: %v", capturemodel.ErrDeviceUnavailable, r.device.Name, err)
	}
	end := time.Now()

	return &capturemodel.FrameEnvelope{
		Device: r.device,
		Payload: capturemodel.FramePayload{
			Shape: []int{r.samples, r.device.Audio.Channels},
			Dtype: capturemodel.DTypeInt16,
			Bytes: buf,
		},
		StartReadTS: start,
		EndReadTS:   end,
	}, nil
}
