package busio

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"

	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// Proxy is the in-process XSUB/XPUB bus proxy from spec.md §4.3: it binds
// an XSUB socket facing senders and an XPUB socket facing consumers, and
// forwards subscription and data messages between them without
// reordering or reframing. Start blocks until both binds succeed.
type Proxy struct {
	host       string
	subPort    int
	pubPort    int
	log        *logx.Logger

	xsub zmq4.Socket
	xpub zmq4.Socket

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	active bool
}

// NewProxy creates a Proxy that will bind its XSUB socket on subPort and
// its XPUB socket on pubPort of host.
func NewProxy(host string, subPort, pubPort int) *Proxy {
	return &Proxy{
		host:    host,
		subPort: subPort,
		pubPort: pubPort,
		log:     logx.New(fmt.Sprintf("Proxy@%s:%d->%d", host, subPort, pubPort)),
	}
}

// IsActive reports whether the proxy has been started and not stopped.
func (p *Proxy) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Start binds both sockets and launches the forwarding loop. A bind
// failure is fatal to the proxy and returned to the caller, per spec.md
// §4.3's failure policy.
func (p *Proxy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return fmt.Errorf("busio: proxy already started")
	}

	ctx, cancel := context.WithCancel(context.Background())

	xsub := zmq4.NewXSub(ctx)
	subEndpoint := fmt.Sprintf("tcp://%s:%d", p.host, p.subPort)
	if err := xsub.Listen(subEndpoint); err != nil {
		cancel()
		return fmt.Errorf("busio: proxy bind xsub %s: %w", subEndpoint, err)
	}

	xpub := zmq4.NewXPub(ctx)
	pubEndpoint := fmt.Sprintf("tcp://%s:%d", p.host, p.pubPort)
	if err := xpub.Listen(pubEndpoint); err != nil {
		_ = xsub.Close()
		cancel()
		return fmt.Errorf("busio: proxy bind xpub %s: %w", pubEndpoint, err)
	}

	p.xsub, p.xpub = xsub, xpub
	p.cancel = cancel
	p.done = make(chan struct{})
	p.active = true

	// Manual two-directional pump rather than a library-level zmq.proxy
	// call: data frames flow xsub -> xpub (publisher to consumer), and
	// subscription frames flow xpub -> xsub (consumer to publisher), with
	// no reordering or reframing on either leg.
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		p.pump(ctx, xsub, xpub, "data")
	}()
	go func() {
		defer pumps.Done()
		p.pump(ctx, xpub, xsub, "subscription")
	}()

	go func() {
		defer close(p.done)
		pumps.Wait()
	}()

	p.log.Info("started", map[string]any{"xsub": subEndpoint, "xpub": pubEndpoint})
	return nil
}

// pump forwards every message received on src to dst, unmodified and in
// order, until ctx is cancelled or the socket is closed.
func (p *Proxy) pump(ctx context.Context, src, dst zmq4.Socket, direction string) {
	for {
		msg, err := src.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Debug("pump receive error", map[string]any{"direction": direction, "err": err})
			continue
		}
		if err := dst.Send(msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Debug("pump send error", map[string]any{"direction": direction, "err": err})
		}
	}
}

// Stop closes both sockets, unblocking the forwarding loop; idempotent.
func (p *Proxy) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	cancel := p.cancel
	xsub, xpub := p.xsub, p.xpub
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if xsub != nil {
		_ = xsub.Close()
	}
	if xpub != nil {
		_ = xpub.Close()
	}
	if done != nil {
		<-done
	}
	p.log.Info("stopped", nil)
}
