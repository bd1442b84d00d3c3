package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

// fakeReader is an in-memory Reader that yields each envelope of a fixed
// queue once, then reports timeouts (or failErr), useful for sender tests
// without real devices.
type fakeReader struct {
	mu      sync.Mutex
	queue   []capturemodel.FrameEnvelope
	idx     int
	active  bool
	failErr error // if set, Read returns this error once the queue is exhausted
}

func (r *fakeReader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	return nil
}

func (r *fakeReader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
}

func (r *fakeReader) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *fakeReader) Read(timeout time.Duration) (*capturemodel.FrameEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil, nil
	}
	if r.idx >= len(r.queue) {
		if r.failErr != nil {
			return nil, r.failErr
		}
		return nil, nil
	}
	env := r.queue[r.idx]
	r.idx++
	return &env, nil
}

// fakePublisher records every envelope it's sent, optionally dropping
// the Nth one.
type fakePublisher struct {
	mu      sync.Mutex
	started bool
	sent    []capturemodel.FrameEnvelope
	dropAt  int // 1-indexed; 0 disables
	n       int
}

func (p *fakePublisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
	return nil
}

func (p *fakePublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
}

func (p *fakePublisher) Send(env capturemodel.FrameEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	if p.dropAt != 0 && p.n == p.dropAt {
		return capturemodel.ErrDropped
	}
	p.sent = append(p.sent, env)
	return nil
}

func (p *fakePublisher) snapshot() []capturemodel.FrameEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturemodel.FrameEnvelope, len(p.sent))
	copy(out, p.sent)
	return out
}

// fakeSubscriber hands out envelopes from a queue, returning (nil, nil)
// once exhausted (a receive timeout).
type fakeSubscriber struct {
	mu    sync.Mutex
	queue []capturemodel.FrameEnvelope
	idx   int
}

func (s *fakeSubscriber) Start() error { return nil }
func (s *fakeSubscriber) Stop()        {}

func (s *fakeSubscriber) Receive() (*capturemodel.FrameEnvelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.queue) {
		return nil, nil
	}
	env := s.queue[s.idx]
	s.idx++
	return &env, nil
}

// fakeProxy is an in-memory Proxy stand-in that reports active
// immediately after Start.
type fakeProxy struct {
	mu     sync.Mutex
	active bool
	failStart error
}

func (p *fakeProxy) Start() error {
	if p.failStart != nil {
		return p.failStart
	}
	p.mu.Lock()
	p.active = true
	p.mu.Unlock()
	return nil
}

func (p *fakeProxy) Stop() {
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()
}

func (p *fakeProxy) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

var errFakeReaderStalled = errors.New("fakeReader: stalled")
