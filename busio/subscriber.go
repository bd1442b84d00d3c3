package busio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// Subscriber is the inbound transport endpoint from spec.md §4.2: it
// connects a SUB socket to the bus proxy's XPUB with an empty-prefix
// (receive-all) subscription, and makes the receive loop interruptible by
// racing a background reader against a timeout rather than blocking the
// caller indefinitely.
type Subscriber struct {
	endpoint      string
	recvTimeout   time.Duration
	hwm           int
	log           *logx.Logger

	sock zmq4.Socket

	inbox  chan capturemodel.FrameEnvelope
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active bool
}

// NewSubscriber creates a Subscriber connecting to endpoint with a
// per-receive timeout and an inbound mailbox capacity of hwm.
func NewSubscriber(endpoint string, recvTimeout time.Duration, hwm int) *Subscriber {
	return &Subscriber{
		endpoint:    endpoint,
		recvTimeout: recvTimeout,
		hwm:         hwm,
		log:         logx.New("Subscriber@" + endpoint),
	}
}

// Start connects the inbound socket and begins the background fill loop.
func (s *Subscriber) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return fmt.Errorf("busio: subscriber %s already started", s.endpoint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sock := zmq4.NewSub(ctx)
	if err := sock.Dial(s.endpoint); err != nil {
		cancel()
		return fmt.Errorf("busio: subscriber dial %s: %w", s.endpoint, err)
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		_ = sock.Close()
		cancel()
		return fmt.Errorf("busio: subscribe: %w", err)
	}

	s.sock = sock
	s.cancel = cancel
	s.inbox = make(chan capturemodel.FrameEnvelope, s.hwm)
	s.active = true

	s.wg.Add(1)
	go s.fill(ctx)

	s.log.Info("started", map[string]any{"recv_timeout": s.recvTimeout, "hwm": s.hwm})
	return nil
}

func (s *Subscriber) fill(ctx context.Context) {
	defer s.wg.Done()
	for {
		msg, err := s.sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("receive error", map[string]any{"err": err})
			continue
		}
		if len(msg.Frames) != 2 {
			s.log.Warn("malformed message, expected 2 frames", map[string]any{"got": len(msg.Frames)})
			continue
		}
		env, err := decodeEnvelope(msg.Frames[0], msg.Frames[1])
		if err != nil {
			s.log.Warn("decode failed", map[string]any{"err": err})
			continue
		}
		select {
		case s.inbox <- env:
		default:
			// inbound HWM reached: the transport drops the message, as
			// spec.md §5 requires for over-HWM receives.
			s.log.Debug("dropped frame, inbound HWM reached", map[string]any{"device": env.Device.Name})
		}
	}
}

// Receive returns the next envelope or (nil, nil) on timeout. It never
// blocks longer than the configured receive timeout and is interrupted
// promptly by Stop.
func (s *Subscriber) Receive() (*capturemodel.FrameEnvelope, error) {
	s.mu.Lock()
	active := s.active
	inbox := s.inbox
	s.mu.Unlock()

	if !active {
		return nil, fmt.Errorf("busio: subscriber not started")
	}

	select {
	case env, ok := <-inbox:
		if !ok {
			return nil, fmt.Errorf("busio: subscriber stopped")
		}
		return &env, nil
	case <-time.After(s.recvTimeout):
		return nil, nil
	}
}

// Stop closes the socket and context; idempotent.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	sock := s.sock
	cancel := s.cancel
	inbox := s.inbox
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sock != nil {
		_ = sock.Close()
	}
	s.wg.Wait()
	// fill has exited, so nothing sends on inbox any more; closing it wakes
	// any Receive still waiting.
	if inbox != nil {
		close(inbox)
	}
	s.log.Info("stopped", nil)
}
