package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/tabchat/pkg/idx"
)

type outbound struct {
	data       []byte
	closeAfter bool
}

// Conn is one client connection. It starts unauthenticated and is bound to
// a user at most once.
type Conn struct {
	ID         string
	RemoteAddr string

	gw        *Gateway
	transport Transport
	logger    *slog.Logger

	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	userID   string
	username string
}

func newConn(gw *Gateway, t Transport) *Conn {
	id := idx.New().String()
	remote := t.RemoteAddr()
	return &Conn{
		ID:         id,
		RemoteAddr: remote,
		gw:         gw,
		transport:  t,
		logger:     gw.logger.With("conn_id", id, "remote_addr", remote),
		send:       make(chan outbound, gw.cfg.SendQueue),
		done:       make(chan struct{}),
	}
}

func (c *Conn) Gateway() *Gateway { return c.gw }

func (c *Conn) Logger() *slog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func (c *Conn) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Conn) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Conn) Authenticated() bool { return c.UserID() != "" }

// Closed is closed once the connection has shut down.
func (c *Conn) Closed() <-chan struct{} { return c.done }

// Close shuts the connection down. It is safe to call repeatedly.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.transport.Close()
	})
}

// enqueue hands data to the writer. A full queue marks a slow consumer and
// closes the connection instead of blocking the caller.
func (c *Conn) enqueue(msg outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.Logger().Warn("closing slow consumer", "queue", cap(c.send))
		c.Close()
		return false
	}
}

// Send queues a raw frame.
func (c *Conn) Send(data []byte) bool {
	return c.enqueue(outbound{data: data})
}

func (c *Conn) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			if err := c.transport.WriteMessage(msg.data); err != nil {
				c.Logger().Debug("write failed", "error", err)
				c.Close()
				return
			}
			if msg.closeAfter {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

type frame struct {
	Cmd      string          `json:"cmd"`
	Val      any             `json:"val"`
	Listener json.RawMessage `json:"listener,omitempty"`
}

func encodeFrame(cmd string, val any, listener json.RawMessage) ([]byte, error) {
	return json.Marshal(frame{Cmd: cmd, Val: val, Listener: listener})
}

// Reply sends a command payload echoing the request's listener.
func (c *Conn) Reply(req Request, cmd string, val any) error {
	data, err := encodeFrame(cmd, val, req.Listener)
	if err != nil {
		return err
	}
	c.Send(data)
	return nil
}

// Status sends a statuscode frame echoing the request's listener.
func (c *Conn) Status(req Request, code Code) {
	c.sendStatus(code, req.Listener, false)
}

func (c *Conn) sendStatus(code Code, listener json.RawMessage, closeAfter bool) {
	data, err := encodeFrame("statuscode", code.String(), listener)
	if err != nil {
		return
	}
	c.enqueue(outbound{data: data, closeAfter: closeAfter})
}
