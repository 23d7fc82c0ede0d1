package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	ErrClosed            = errors.New("gateway: closed")
	ErrAlreadyBound      = errors.New("gateway: connection already authenticated")
	ErrConnNotRegistered = errors.New("gateway: connection not registered")
)

// DefaultCommands is the command allow-list.
var DefaultCommands = []string{
	"ping", "version_chk", "get_ulist", "authpswd",
	"get_profile", "get_home", "get_post",
}

// DefaultDisabled lists commands refused until an operator enables them.
var DefaultDisabled = []string{"gmsg", "gvar"}

type Config struct {
	// MaxFrameBytes bounds an inbound frame; larger frames get TooLarge.
	MaxFrameBytes  int           `env:"GATEWAY_MAX_FRAME_BYTES,default=1000"`
	CommandTimeout time.Duration `env:"GATEWAY_COMMAND_TIMEOUT,default=10s"`
	SendQueue      int           `env:"GATEWAY_SEND_QUEUE,default=64"`

	Allowed  []string
	Disabled []string
}

func (c *Config) applyDefaults() {
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = 1000
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 10 * time.Second
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 64
	}
	if c.Allowed == nil {
		c.Allowed = DefaultCommands
	}
	if c.Disabled == nil {
		c.Disabled = DefaultDisabled
	}
}

// Gateway owns the connection registry and routes frames to handlers.
type Gateway struct {
	cfg      Config
	logger   *slog.Logger
	handlers map[string]Handler
	allowed  map[string]struct{}
	disabled map[string]struct{}

	mu     sync.RWMutex
	conns  map[*Conn]struct{}
	byUser map[string]map[*Conn]struct{}
	closed bool
}

// New builds a gateway. Every allow-listed command that is not disabled
// must have a handler.
func New(cfg Config, handlers map[string]Handler, logger *slog.Logger) (*Gateway, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		cfg:      cfg,
		logger:   logger,
		handlers: handlers,
		allowed:  make(map[string]struct{}, len(cfg.Allowed)),
		disabled: make(map[string]struct{}, len(cfg.Disabled)),
		conns:    make(map[*Conn]struct{}),
		byUser:   make(map[string]map[*Conn]struct{}),
	}
	for _, cmd := range cfg.Disabled {
		g.disabled[cmd] = struct{}{}
	}

	var missing []string
	for _, cmd := range cfg.Allowed {
		g.allowed[cmd] = struct{}{}
		if _, off := g.disabled[cmd]; off {
			continue
		}
		if handlers[cmd] == nil {
			missing = append(missing, cmd)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("gateway: no handler for %s", strings.Join(missing, ", "))
	}
	return g, nil
}

// Serve runs one connection until the transport fails, ctx is cancelled or
// the gateway closes. It blocks.
func (g *Gateway) Serve(ctx context.Context, t Transport) {
	c := newConn(g, t)
	if err := g.register(c); err != nil {
		_ = t.Close()
		return
	}
	defer g.unregister(c)
	defer c.Close()

	go c.writeLoop()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.Logger().Debug("gateway connection opened")
	for {
		data, err := t.ReadMessage()
		if err != nil {
			c.Logger().Debug("gateway connection closed", "reason", err)
			return
		}
		g.handleFrame(ctx, c, data)
	}
}

func (g *Gateway) register(c *Conn) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	g.conns[c] = struct{}{}
	return nil
}

// unregister removes c from every index. It is a no-op for connections that
// were never registered or already removed.
func (g *Gateway) unregister(c *Conn) {
	g.mu.Lock()
	_, present := g.conns[c]
	delete(g.conns, c)

	userID := c.UserID()
	if set, ok := g.byUser[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(g.byUser, userID)
		}
	}
	g.mu.Unlock()

	if present && userID != "" {
		g.BroadcastCommand("ulist", g.UserList())
	}
}

// Bind authenticates c as the given user and indexes it.
func (g *Gateway) Bind(c *Conn, userID, username string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.conns[c]; !ok {
		return ErrConnNotRegistered
	}

	c.mu.Lock()
	if c.userID != "" {
		c.mu.Unlock()
		return ErrAlreadyBound
	}
	c.userID = userID
	c.username = username
	c.logger = c.logger.With("user_id", userID)
	c.mu.Unlock()

	set, ok := g.byUser[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		g.byUser[userID] = set
	}
	set[c] = struct{}{}
	return nil
}

func (g *Gateway) snapshot() []*Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		out = append(out, c)
	}
	return out
}

func (g *Gateway) userConns(userID string) []*Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.byUser[userID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Broadcast queues data on every registered connection and returns how many
// accepted it. Sends happen outside the registry lock.
func (g *Gateway) Broadcast(data []byte) int {
	n := 0
	for _, c := range g.snapshot() {
		if c.Send(data) {
			n++
		}
	}
	return n
}

// BroadcastCommand encodes {cmd, val} and broadcasts it.
func (g *Gateway) BroadcastCommand(cmd string, val any) int {
	data, err := encodeFrame(cmd, val, nil)
	if err != nil {
		g.logger.Error("failed to encode broadcast", "cmd", cmd, "error", err)
		return 0
	}
	return g.Broadcast(data)
}

// SendToUser queues data on every connection bound to userID. Unknown users
// are a no-op.
func (g *Gateway) SendToUser(userID string, data []byte) int {
	n := 0
	for _, c := range g.userConns(userID) {
		if c.Send(data) {
			n++
		}
	}
	return n
}

// UserList renders the distinct authenticated usernames as "a;b;".
func (g *Gateway) UserList() string {
	g.mu.RLock()
	names := make([]string, 0, len(g.byUser))
	for _, set := range g.byUser {
		for c := range set {
			names = append(names, c.Username())
			break
		}
	}
	g.mu.RUnlock()

	slices.Sort(names)
	names = slices.Compact(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(';')
	}
	return b.String()
}

func (g *Gateway) IsOnline(userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byUser[userID]) > 0
}

// Kick sends Kicked to each of the user's connections and closes them once
// the status is written.
func (g *Gateway) Kick(userID string) int {
	conns := g.userConns(userID)
	for _, c := range conns {
		c.sendStatus(CodeKicked, nil, true)
	}
	return len(conns)
}

// Len returns the number of registered connections.
func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// Close refuses new connections and closes every open one.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	for _, c := range g.snapshot() {
		c.Close()
	}
}
