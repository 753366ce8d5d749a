// Package ws relays frames over a WebSocket. Each transmission is one binary
// message holding one gray level byte per frame. Relay is the matching
// server side: it echoes every message back to its sender.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/syncutil"
)

const channelName = "ws"

// Config configures a WebSocket channel.
type Config struct {
	URL              string        `yaml:"url" toml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" toml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	// ReceiveTimeout bounds the wait for a message. Zero waits until the
	// context ends.
	ReceiveTimeout time.Duration `yaml:"receive_timeout" toml:"receive_timeout"`
}

// DefaultConfig returns the timeouts used by the CLI.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://127.0.0.1:8765/frames",
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReceiveTimeout:   5 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("ws: url is required")
	}
	if c.HandshakeTimeout < 0 || c.WriteTimeout < 0 || c.ReceiveTimeout < 0 {
		return errors.New("ws: timeouts must not be negative")
	}
	return nil
}

// Channel implements framesignal.Channel on a WebSocket connection.
type Channel struct {
	conn    *websocket.Conn
	inbox   chan []byte
	done    chan struct{}
	readErr error
	config  Config
	writeMu syncutil.Mutex
	stateMu syncutil.RWMutex
	closed  bool
}

// Dial connects to config.URL.
func Dial(ctx context.Context, config Config) (*Channel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	dialer := *websocket.DefaultDialer
	if config.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = config.HandshakeTimeout
	}
	conn, resp, err := dialer.DialContext(ctx, config.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, framesignal.NewChannelError("dial "+config.URL, channelName, err, framesignal.ErrorTypeTransient)
	}
	return newChannel(conn, config), nil
}

func newChannel(conn *websocket.Conn, config Config) *Channel {
	c := &Channel{
		conn:   conn,
		config: config,
		inbox:  make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Channel) readLoop() {
	defer close(c.done)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			c.stateMu.Lock()
			c.readErr = err
			c.stateMu.Unlock()
			return
		}
		if mt != websocket.BinaryMessage {
			framesignal.Debugf("ws: ignoring message type %d", mt)
			continue
		}
		select {
		case c.inbox <- data:
		default:
			// drop the oldest so a slow reader sees the newest transmission
			select {
			case <-c.inbox:
			default:
			}
			c.inbox <- data
		}
	}
}

// Transmit sends bits as one binary message. Messages that arrived before
// are discarded.
func (c *Channel) Transmit(ctx context.Context, bits bitseq.Bits, format framesignal.FrameFormat) error {
	if err := c.usable("transmit"); err != nil {
		return err
	}
	if err := format.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.drainInbox()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, framesignal.BitsToLuminance(bits)); err != nil {
		return framesignal.NewChannelError("write", channelName, err, framesignal.ErrorTypeTransient)
	}
	framesignal.Debugf("ws: sent %d frames", len(bits))
	return nil
}

// Receive waits for the next binary message.
func (c *Channel) Receive(ctx context.Context) (bitseq.Bits, error) {
	if err := c.usable("receive"); err != nil {
		return nil, err
	}

	var timeout <-chan time.Time
	if c.config.ReceiveTimeout > 0 {
		timer := time.NewTimer(c.config.ReceiveTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case msg := <-c.inbox:
		framesignal.Debugf("ws: received %d frames", len(msg))
		return framesignal.LuminanceToBits(msg), nil
	case <-c.done:
		select {
		case msg := <-c.inbox:
			return framesignal.LuminanceToBits(msg), nil
		default:
		}
		return nil, c.connectionLost("receive")
	case <-timeout:
		return nil, framesignal.NewChannelTimeoutError("receive", channelName)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a close frame and closes the connection.
func (c *Channel) Close() error {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return nil
	}
	c.closed = true
	c.stateMu.Unlock()

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	if err != nil {
		return fmt.Errorf("ws close failed: %w", err)
	}
	return nil
}

func (c *Channel) usable(op string) error {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.closed {
		return framesignal.NewChannelClosedError(op, channelName)
	}
	return nil
}

func (c *Channel) connectionLost(op string) error {
	c.stateMu.RLock()
	err := c.readErr
	c.stateMu.RUnlock()
	if err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return framesignal.NewChannelClosedError(op, channelName)
	}
	return framesignal.NewChannelError(op, channelName, err, framesignal.ErrorTypePermanent)
}

func (c *Channel) drainInbox() {
	for {
		select {
		case <-c.inbox:
		default:
			return
		}
	}
}

// Relay is an http.Handler that echoes every message to its sender after
// passing it through Transform.
type Relay struct {
	// Transform rewrites each message before it is echoed. Nil echoes
	// unchanged.
	Transform func([]byte) []byte
	conns     map[*websocket.Conn]struct{}
	upgrader  websocket.Upgrader
	mu        syncutil.RWMutex
	closed    bool
}

// NewRelay creates a relay that accepts connections from any origin.
func NewRelay() *Relay {
	return &Relay{
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and echoes until the peer goes away.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		framesignal.Debugf("ws relay: upgrade from %s failed: %v", req.RemoteAddr, err)
		return
	}
	if !r.track(conn) {
		_ = conn.Close()
		return
	}
	defer r.untrack(conn)

	framesignal.Debugf("ws relay: %s connected", req.RemoteAddr)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			framesignal.Debugf("ws relay: %s gone: %v", req.RemoteAddr, err)
			return
		}
		if r.Transform != nil && mt == websocket.BinaryMessage {
			data = r.Transform(data)
		}
		if err := conn.WriteMessage(mt, data); err != nil {
			framesignal.Debugf("ws relay: write to %s: %v", req.RemoteAddr, err)
			return
		}
	}
}

// Connections returns the number of connected peers.
func (r *Relay) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close disconnects every peer and refuses new ones.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for conn := range r.conns {
		_ = conn.Close()
	}
	clear(r.conns)
	return nil
}

func (r *Relay) track(conn *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.conns[conn] = struct{}{}
	return true
}

func (r *Relay) untrack(conn *websocket.Conn) {
	r.mu.Lock()
	delete(r.conns, conn)
	r.mu.Unlock()
	_ = conn.Close()
}
