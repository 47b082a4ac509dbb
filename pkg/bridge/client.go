package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/csikit/go-csi/pkg/csi"
)

const (
	handshakeTimeout = 10 * time.Second
	defaultAckWait   = 5 * time.Second
)

// ErrAckTimeout indicates the bridge daemon did not acknowledge a control
// request in time.
var ErrAckTimeout = errors.New("bridge: ack timeout")

// Client is a csi.Driver backed by a remote capture daemon. All writes to the
// connection are serialized; all reads happen on one goroutine, so the frame
// callback is only ever invoked from a single context.
type Client struct {
	url    string
	logger *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	cb      csi.FrameCallback
	pending map[string]chan envelope
	closed  bool

	// capturing gates frame dispatch; dispatchMu lets SetCaptureEnabled
	// wait out an in-flight callback so the driver quiescence contract
	// holds even when frames are already buffered on the connection.
	capturing  atomic.Bool
	dispatchMu sync.RWMutex

	ackWait time.Duration
	done    chan struct{}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAckTimeout overrides how long control requests wait for the daemon.
func WithAckTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.ackWait = d
	}
}

// Dial connects to the bridge daemon and starts the read loop.
func Dial(url string, logger *slog.Logger, opts ...ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		url:     url,
		logger:  logger,
		pending: make(map[string]chan envelope),
		ackWait: defaultAckWait,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect %s: %w", url, err)
	}
	c.conn = conn

	go c.readLoop()

	logger.Info("bridge connected", "url", url)
	return c, nil
}

// ApplyConfig pushes the capture configuration to the daemon.
func (c *Client) ApplyConfig(cfg csi.Config) error {
	return c.request(envelope{Type: typeConfig, Config: &cfg})
}

// RegisterFrameCallback installs the callback invoked from the read loop.
func (c *Client) RegisterFrameCallback(cb csi.FrameCallback) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return csi.ErrClosed
	}
	c.cb = cb
	return nil
}

// SetCaptureEnabled starts or stops capture on the daemon. Disabling first
// stops local frame dispatch and waits for any in-flight callback, so no
// frame is delivered after a successful call returns. If the daemon rejects
// the stop, dispatch is restored so an enabled controller keeps receiving
// frames.
func (c *Client) SetCaptureEnabled(enabled bool) error {
	var wasCapturing bool
	if !enabled {
		// The read loop holds the read lock while dispatching, so taking
		// the write lock waits out any in-flight callback.
		c.dispatchMu.Lock()
		wasCapturing = c.capturing.Load()
		c.capturing.Store(false)
		c.dispatchMu.Unlock()
	}

	if err := c.request(envelope{Type: typeCapture, Enabled: &enabled}); err != nil {
		if !enabled && wasCapturing {
			c.capturing.Store(true)
		}
		return err
	}

	if enabled {
		c.capturing.Store(true)
	}
	return nil
}

// request sends a control message and waits for its ack.
func (c *Client) request(msg envelope) error {
	msg.ID = uuid.NewString()

	ch := make(chan envelope, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return csi.ErrClosed
	}
	c.pending[msg.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	if err := c.writeJSON(msg); err != nil {
		return fmt.Errorf("bridge: send %s: %w", msg.Type, err)
	}

	select {
	case ack := <-ch:
		if !ack.OK {
			return fmt.Errorf("bridge: %s rejected: %s", msg.Type, ack.Error)
		}
		return nil
	case <-time.After(c.ackWait):
		return fmt.Errorf("%w: %s", ErrAckTimeout, msg.Type)
	case <-c.done:
		return csi.ErrClosed
	}
}

func (c *Client) writeJSON(msg envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	for {
		var msg envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Error("bridge read failed", "err", err)
			}
			return
		}

		switch msg.Type {
		case typeAck:
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				ch <- msg
			}

		case typeFrame:
			if msg.Frame == nil {
				continue
			}
			c.dispatchMu.RLock()
			if c.capturing.Load() {
				c.mu.Lock()
				cb := c.cb
				c.mu.Unlock()
				if cb != nil {
					raw := msg.Frame.toRaw()
					cb(&raw)
				}
			}
			c.dispatchMu.RUnlock()

		default:
			c.logger.Warn("bridge: unknown message type", "type", msg.Type)
		}
	}
}

// Close stops frame dispatch and tears down the connection. Further driver
// calls fail with csi.ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.capturing.Store(false)
	close(c.done)

	err := c.conn.Close()
	c.logger.Info("bridge disconnected", "url", c.url)
	return err
}

// Ensure Client implements csi.Driver.
var _ csi.Driver = (*Client)(nil)
