package liveview

import (
	"encoding/binary"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// wsClient is one connected viewer tab, grounded on
// websocket.WebsocketClient: a Conn plus a buffered outbound Send
// channel drained by its own WritePump.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WSMotionJPEGView is the fallback live-view transport used when no
// WebRTC signaling peer is present: it multiplexes every device's
// JPEG-encoded frames as length-prefixed binary WS frames to any
// connected viewer, grounded on websocket.Hub's register/unregister/
// broadcast shape applied to a single global room instead of per-game
// rooms.
type WSMotionJPEGView struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
	log      *logx.Logger
}

// NewWSMotionJPEGView returns an empty view; viewers connect via
// ServeHTTP.
func NewWSMotionJPEGView() *WSMotionJPEGView {
	return &WSMotionJPEGView{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1 << 20,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logx.New("liveview:ws"),
	}
}

// ServeHTTP upgrades the connection and registers it as a viewer until
// the socket closes.
func (v *WSMotionJPEGView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := v.upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.log.Warn("upgrade failed", map[string]any{"err": err})
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, 32)}

	v.mu.Lock()
	v.clients[c] = struct{}{}
	v.mu.Unlock()

	go v.writePump(c)
	v.readPump(c)
}

func (v *WSMotionJPEGView) readPump(c *wsClient) {
	defer v.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (v *WSMotionJPEGView) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return
		}
	}
}

func (v *WSMotionJPEGView) unregister(c *wsClient) {
	v.mu.Lock()
	if _, ok := v.clients[c]; ok {
		delete(v.clients, c)
		close(c.send)
	}
	v.mu.Unlock()
}

// Publish encodes every camera envelope in tuple as JPEG and broadcasts
// it to all connected viewers as `<2-byte name length><name><jpeg bytes>`.
// A viewer whose send buffer is full has the frame dropped for it, never
// blocking the publisher — the same drop-on-full policy the bus
// publisher's and subscriber's bounded mailboxes use.
func (v *WSMotionJPEGView) Publish(tuple map[string]capturemodel.FrameEnvelope) {
	for name, env := range tuple {
		if env.Device.Kind != capturemodel.DeviceKindCamera {
			continue
		}
		mat, err := gocv.NewMatFromBytes(env.Payload.Shape[0], env.Payload.Shape[1], gocv.MatTypeCV8UC3, env.Payload.Bytes)
		if err != nil {
			v.log.Warn("decode failed", map[string]any{"device": name, "err": err})
			continue
		}
		buf, err := gocv.IMEncode(".jpg", mat)
		mat.Close()
		if err != nil {
			v.log.Warn("encode failed", map[string]any{"device": name, "err": err})
			continue
		}
		v.broadcast(name, buf.GetBytes())
		buf.Close()
	}
}

func (v *WSMotionJPEGView) broadcast(deviceName string, jpeg []byte) {
	msg := make([]byte, 2+len(deviceName)+len(jpeg))
	binary.BigEndian.PutUint16(msg[0:2], uint16(len(deviceName)))
	copy(msg[2:], deviceName)
	copy(msg[2+len(deviceName):], jpeg)

	v.mu.Lock()
	defer v.mu.Unlock()
	for c := range v.clients {
		select {
		case c.send <- msg:
		default:
			v.log.Debug("dropped frame, viewer send buffer full", map[string]any{"device": deviceName})
		}
	}
}
