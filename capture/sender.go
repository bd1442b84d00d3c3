package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// badReadBackoff is T_bad from spec.md §4.4: the pause taken after a
// reader timeout before retrying, so a stalled device doesn't spin the
// worker's loop.
const badReadBackoff = 50 * time.Millisecond

// readTimeout bounds each call into the reader.
const readTimeout = 500 * time.Millisecond

// Sender owns one Reader and one Publisher and runs the
// read -> preprocess -> publish loop from spec.md §4.4 on its own
// goroutine. It replaces the original's separate OS process per sender
// with a goroutine, the idiomatic in-process unit of concurrency; the
// process-level isolation spec.md describes is preserved at the level
// the orchestrator actually needs it (independent failure/restart), not
// at the OS level.
type Sender struct {
	name     string
	reader   Reader
	pub      Publisher
	op       capturemodel.PreprocessingOp
	log      *logx.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	lastErr error
}

// NewSender builds a Sender for device name, reading from reader and
// publishing to pub, applying preprocessing op to camera frames.
func NewSender(name string, reader Reader, pub Publisher, op capturemodel.PreprocessingOp) *Sender {
	return &Sender{
		name:   name,
		reader: reader,
		pub:    pub,
		op:     op,
		log:    logx.New("sender:" + name),
	}
}

// StartProcess spawns the worker goroutine. Calling it while already
// running is a no-op error, matching spec.md's "reject if already
// running unless explicitly restarted".
func (s *Sender) StartProcess() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("capture: sender %s already running", s.name)
	}

	if err := s.reader.Start(); err != nil {
		return fmt.Errorf("capture: sender %s reader start: %w", s.name, err)
	}
	if err := s.pub.Start(); err != nil {
		s.reader.Stop()
		return fmt.Errorf("capture: sender %s publisher start: %w", s.name, err)
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	s.lastErr = nil

	go s.loop(s.stopCh, s.doneCh)
	s.log.Info("started", nil)
	return nil
}

// IsActive reports whether the worker goroutine currently exists.
func (s *Sender) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastErr returns the error that terminated the loop, if any.
func (s *Sender) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Sender) loop(stopCh chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		s.pub.Stop()
		s.reader.Stop()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		env, err := s.reader.Read(readTimeout)
		if err != nil {
			s.log.Error("reader error, terminating worker", err, nil)
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			return
		}
		if env == nil {
			time.Sleep(badReadBackoff)
			continue
		}

		processed, err := capturemodel.ApplyPreprocessing(s.op, *env)
		if err != nil {
			s.log.Error("preprocessing failed, terminating worker", err, nil)
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			return
		}

		if err := s.pub.Send(processed); err != nil {
			s.log.Debug("publish dropped", map[string]any{"err": err})
		}
	}
}

// StopProcess requests the loop stop and waits up to timeout for it to
// exit; past timeout it returns without further waiting, but the reader
// and publisher are always closed by the loop's own deferred cleanup
// (even once the loop observes stopCh, Reader.Stop/Publisher.Stop still
// run before the goroutine exits).
func (s *Sender) StopProcess(timeout time.Duration) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}

	select {
	case <-doneCh:
	case <-time.After(timeout):
		s.log.Warn("stop timed out, worker cleanup still in flight", map[string]any{"timeout": timeout})
	}
}
