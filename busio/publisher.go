package busio

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// Publisher is the outbound transport endpoint from spec.md §4.2: it connects
// a PUB socket to the bus proxy's XSUB and never blocks the sender
// worker that owns it. Backpressure is enforced with an
// application-level bounded mailbox of capacity Q (the HWM) rather than
// relying on the socket's own high-water mark, so the drop-on-full
// behavior is observable and testable independent of the transport's
// internal buffering.
type Publisher struct {
	endpoint string
	hwm      int
	log      *logx.Logger

	sock zmq4.Socket

	mailbox chan capturemodel.FrameEnvelope

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active bool
}

// NewPublisher creates a Publisher that will connect to endpoint (e.g.
// "tcp://127.0.0.1:5555") with outbound mailbox capacity hwm.
func NewPublisher(endpoint string, hwm int) *Publisher {
	return &Publisher{
		endpoint: endpoint,
		hwm:      hwm,
		log:      logx.New("Publisher@" + endpoint),
	}
}

// Start binds/connects the outbound socket and begins the background
// drain loop. Calling Start twice without Stop is a programming error.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return fmt.Errorf("busio: publisher %s already started", p.endpoint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sock := zmq4.NewPub(ctx)
	if err := sock.Dial(p.endpoint); err != nil {
		cancel()
		return fmt.Errorf("busio: publisher dial %s: %w", p.endpoint, err)
	}

	p.sock = sock
	p.cancel = cancel
	p.mailbox = make(chan capturemodel.FrameEnvelope, p.hwm)
	p.active = true

	p.wg.Add(1)
	go p.drain()

	p.log.Info("started", map[string]any{"hwm": p.hwm})
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for env := range p.mailbox {
		header, err := encodeHeader(env)
		if err != nil {
			p.log.Error("encode header failed", err, nil)
			continue
		}
		msg := zmq4.NewMsgFrom(header, env.Payload.Bytes)
		if err := p.sock.Send(msg); err != nil {
			p.log.Warn("send failed", map[string]any{"err": err})
		}
	}
}

// Send is non-blocking: on a full outbound mailbox it drops the frame and
// returns ErrDropped, never stalling the sender worker. It never blocks
// longer than appending to a full buffered channel takes, i.e. never.
func (p *Publisher) Send(env capturemodel.FrameEnvelope) error {
	p.mu.Lock()
	active := p.active
	mailbox := p.mailbox
	p.mu.Unlock()

	if !active {
		return fmt.Errorf("busio: publisher not started")
	}

	select {
	case mailbox <- env:
		return nil
	default:
		p.log.Debug("dropped frame at HWM", map[string]any{"device": env.Device.Name})
		return capturemodel.ErrDropped
	}
}

// Stop closes the socket and context; idempotent.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	mailbox := p.mailbox
	sock := p.sock
	cancel := p.cancel
	p.mu.Unlock()

	close(mailbox)
	p.wg.Wait()
	if sock != nil {
		_ = sock.Close()
	}
	if cancel != nil {
		cancel()
	}
	p.log.Info("stopped", nil)
}
