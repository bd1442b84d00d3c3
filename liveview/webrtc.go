// Package liveview implements the two live-view consumers from
// SPEC_FULL.md §4.8: a WebRTC bridge and a WebSocket/MJPEG fallback, both
// pure consumers of the aggregating receiver's tuples. Grounded on
// webrtc/sfu.go's room/peer registry shape (applied one layer up, to
// devices instead of publishers) and on the richinsley-bunghole
// reference's TrackLocalStaticSample + WriteSample pattern.
package liveview

import (
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// FrameEncoder turns one device's raw FrameEnvelope into an
// already-codec-encoded media sample payload. Encoding itself (H264/VP8
// for video, Opus for audio) is out of this package's scope — it is
// supplied by the caller, keeping the bridge itself a thin, testable
// layer over pion's track API rather than a transcoding pipeline.
type FrameEncoder interface {
	Encode(env capturemodel.FrameEnvelope) (payload []byte, duration time.Duration, err error)
}

// deviceTrack pairs a device's shared TrackLocalStaticSample (bindable to
// any number of peer connections at once — pion's fan-out, not ours)
// with the encoder that feeds it.
type deviceTrack struct {
	track   *webrtc.TrackLocalStaticSample
	encoder FrameEncoder
}

// WebRTCLiveView bridges the aggregating receiver's tuples onto one
// outbound TrackLocalStaticSample per device. A signaling layer (not
// provided here, out of this module's scope) is responsible for calling
// Track(name) and adding it to each subscribing PeerConnection.
type WebRTCLiveView struct {
	mu     sync.RWMutex
	tracks map[string]*deviceTrack
	log    *logx.Logger
}

// NewWebRTCLiveView returns an empty bridge; devices are registered with
// AddDevice as they come online.
func NewWebRTCLiveView() *WebRTCLiveView {
	return &WebRTCLiveView{
		tracks: make(map[string]*deviceTrack),
		log:    logx.New("liveview:webrtc"),
	}
}

// AddDevice registers a device's codec capability and encoder, creating
// its shared track. Calling it twice for the same name is an error.
func (v *WebRTCLiveView) AddDevice(name string, capability webrtc.RTPCodecCapability, encoder FrameEncoder) (*webrtc.TrackLocalStaticSample, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.tracks[name]; exists {
		return nil, fmt.Errorf("liveview: device %q already registered", name)
	}

	track, err := webrtc.NewTrackLocalStaticSample(capability, name, "periphery-capture")
	if err != nil {
		return nil, fmt.Errorf("liveview: create track for %q: %w", name, err)
	}
	v.tracks[name] = &deviceTrack{track: track, encoder: encoder}
	return track, nil
}

// Track returns the shared track for name, or nil if not registered —
// the handle a signaling layer adds to each new PeerConnection.
func (v *WebRTCLiveView) Track(name string) *webrtc.TrackLocalStaticSample {
	v.mu.RLock()
	defer v.mu.RUnlock()
	dt, ok := v.tracks[name]
	if !ok {
		return nil
	}
	return dt.track
}

// Publish encodes and writes one tuple's envelopes to their respective
// tracks. Devices in tuple with no registered track are skipped; a
// per-device encode failure is logged and does not block the others.
func (v *WebRTCLiveView) Publish(tuple map[string]capturemodel.FrameEnvelope) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for name, env := range tuple {
		dt, ok := v.tracks[name]
		if !ok {
			continue
		}
		payload, duration, err := dt.encoder.Encode(env)
		if err != nil {
			v.log.Warn("encode failed", map[string]any{"device": name, "err": err})
			continue
		}
		if err := dt.track.WriteSample(media.Sample{Data: payload, Duration: duration}); err != nil {
			v.log.Debug("write sample failed, no subscribers or peer gone", map[string]any{"device": name, "err": err})
		}
	}
}
