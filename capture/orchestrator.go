package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// senderUnit bundles a constructed Sender with the device name it was
// built for, so the orchestrator can report which one failed.
type senderUnit struct {
	name   string
	sender *Sender
}

// Orchestrator boots a Proxy plus N Senders as a single unit and tears
// them down in reverse order, per spec.md §4.6.
type Orchestrator struct {
	proxy   Proxy
	units   []senderUnit
	log     *logx.Logger

	mu      sync.Mutex
	started bool
}

// NewOrchestrator builds an Orchestrator over proxy and one Sender per name
// in devices. ops maps device name to a preprocessing op; an entry naming a
// device not present in devices is a construction error, and an absent
// entry defaults to capturemodel.PreprocessNone (both per spec.md §4.6).
//
// build is called here, once per device, to construct that device's
// Sender; none of them is started until Start. If build fails for any
// device, NewOrchestrator returns that error and no Orchestrator.
func NewOrchestrator(proxy Proxy, devices []string, build func(name string, op capturemodel.PreprocessingOp) (*Sender, error), ops map[string]capturemodel.PreprocessingOp) (*Orchestrator, error) {
	deviceSet := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		deviceSet[d] = struct{}{}
	}
	for name := range ops {
		if _, ok := deviceSet[name]; !ok {
			return nil, fmt.Errorf("capture: preprocessing op given for unknown device %q", name)
		}
	}

	units := make([]senderUnit, 0, len(devices))
	for _, name := range devices {
		op := ops[name]
		if op == "" {
			op = capturemodel.PreprocessNone
		}
		sender, err := build(name, op)
		if err != nil {
			return nil, fmt.Errorf("capture: build sender %q: %w", name, err)
		}
		units = append(units, senderUnit{name: name, sender: sender})
	}

	return &Orchestrator{proxy: proxy, units: units, log: logx.New("orchestrator")}, nil
}

// Start starts the proxy, waits for it to report active, then starts
// every sender. If any sender fails to start, already-started senders
// and the proxy are stopped before returning the error.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return fmt.Errorf("capture: orchestrator already started")
	}

	if err := o.proxy.Start(); err != nil {
		return fmt.Errorf("capture: proxy start: %w", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !o.proxy.IsActive() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !o.proxy.IsActive() {
		o.proxy.Stop()
		return fmt.Errorf("capture: proxy did not report active before timeout")
	}

	started := make([]senderUnit, 0, len(o.units))
	for _, u := range o.units {
		if err := u.sender.StartProcess(); err != nil {
			for _, s := range started {
				s.sender.StopProcess(2 * time.Second)
			}
			o.proxy.Stop()
			return fmt.Errorf("capture: sender %q start: %w", u.name, err)
		}
		started = append(started, u)
	}

	o.started = true
	o.log.Info("started", map[string]any{"senders": len(o.units)})
	return nil
}

// Stop stops senders concurrently with a per-worker timeout, then stops
// the proxy — reverse order from Start, matching spec.md §4.6's shutdown
// invariant that no sender or proxy process remains afterward.
func (o *Orchestrator) Stop(timeout time.Duration) {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	units := o.units
	o.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(units))
	for _, u := range units {
		u := u
		go func() {
			defer wg.Done()
			u.sender.StopProcess(timeout)
		}()
	}
	wg.Wait()

	o.proxy.Stop()
	o.log.Info("stopped", nil)
}
