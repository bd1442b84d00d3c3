package capture

import (
	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// Tuple is "one envelope per device", keyed by device name, the unit the
// aggregating receiver emits.
type Tuple map[string]capturemodel.FrameEnvelope

// Receiver presents consumers with one-envelope-per-device tuples from a
// Subscriber, optionally time-aligned across devices (spec.md §4.5).
type Receiver struct {
	sub         Subscriber
	deviceNames map[string]struct{}
	synced      bool
	log         *logx.Logger

	baselines map[string]int64 // device name -> EndReadTS unix nanos, only used when synced
}

// NewReceiver builds a Receiver over sub that aggregates exactly the
// device names in deviceNames. If synced is true, subsequent tuples are
// time-aligned per the synchronized-mode algorithm.
func NewReceiver(sub Subscriber, deviceNames []string, synced bool) *Receiver {
	names := make(map[string]struct{}, len(deviceNames))
	for _, n := range deviceNames {
		names[n] = struct{}{}
	}
	return &Receiver{
		sub:         sub,
		deviceNames: names,
		synced:      synced,
		log:         logx.New("receiver"),
		baselines:   make(map[string]int64),
	}
}

// Read runs the aggregation algorithm from spec.md §4.5: it collects one
// envelope per configured device name, retrying receives up to
// maxAttempts times, and returns nil if the set can't be completed within
// that budget.
func (r *Receiver) Read(maxAttempts int) (Tuple, error) {
	pending := make(Tuple, len(r.deviceNames))
	attemptsLeft := maxAttempts

	for len(pending) < len(r.deviceNames) && attemptsLeft > 0 {
		env, err := r.sub.Receive()
		if err != nil {
			return nil, err
		}
		if env == nil {
			attemptsLeft--
			continue
		}
		if _, wanted := r.deviceNames[env.Device.Name]; !wanted {
			continue
		}

		if r.synced && len(r.baselines) == len(r.deviceNames) {
			if !r.acceptSynced(*env) {
				attemptsLeft--
				continue
			}
		}

		if _, dup := pending[env.Device.Name]; dup {
			attemptsLeft--
		}
		pending[env.Device.Name] = *env
	}

	if len(pending) < len(r.deviceNames) {
		return nil, nil
	}

	if r.synced {
		r.updateBaselines(pending)
	}
	return pending, nil
}

// acceptSynced implements the drain-until-caught-up rule: an envelope
// from a device whose end_read_ts is earlier than the max recorded
// baseline is discarded rather than accepted into pending.
func (r *Receiver) acceptSynced(env capturemodel.FrameEnvelope) bool {
	maxBaseline := r.maxBaseline()
	return env.EndReadTS.UnixNano() >= maxBaseline
}

func (r *Receiver) maxBaseline() int64 {
	var max int64
	for _, ts := range r.baselines {
		if ts > max {
			max = ts
		}
	}
	return max
}

func (r *Receiver) updateBaselines(t Tuple) {
	for name, env := range t {
		r.baselines[name] = env.EndReadTS.UnixNano()
	}
}
