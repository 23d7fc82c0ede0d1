package gateway

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/httpx"
	"github.com/gorilla/websocket"
)

type WebSocketConfig struct {
	// AllowedOrigins lists accepted Origin headers. Empty means same-origin
	// only; "*" accepts any origin.
	AllowedOrigins []string

	ReadLimit    int64
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (c *WebSocketConfig) applyDefaults() {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// WebSocketHandler upgrades requests and serves them on a gateway.
type WebSocketHandler struct {
	gw       *Gateway
	cfg      WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(gw *Gateway, cfg WebSocketConfig) *WebSocketHandler {
	cfg.applyDefaults()
	h := &WebSocketHandler{gw: gw, cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(cfg.AllowedOrigins) > 0 {
		h.upgrader.CheckOrigin = h.checkOrigin
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if slices.Contains(h.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	t := newWSTransport(ws, h.cfg, httpx.IPKeyExtractor(r))
	defer t.Close()

	// The connection outlives request cancellation; shutdown goes through
	// Gateway.Close.
	ctx := context.WithoutCancel(r.Context())
	h.gw.Serve(ctx, t)
}

type wsTransport struct {
	ws     *websocket.Conn
	cfg    WebSocketConfig
	remote string

	stop      chan struct{}
	closeOnce sync.Once
}

func newWSTransport(ws *websocket.Conn, cfg WebSocketConfig, remote string) *wsTransport {
	t := &wsTransport{ws: ws, cfg: cfg, remote: remote, stop: make(chan struct{})}

	// Oversize frames beyond the gateway limit still arrive so they can be
	// answered with TooLarge; the read limit only stops abuse.
	ws.SetReadLimit(cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(2 * cfg.PingInterval))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(2 * cfg.PingInterval))
	})

	go t.keepalive()
	return t
}

func (t *wsTransport) keepalive() {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(t.cfg.WriteTimeout)
			if err := t.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				_ = t.Close()
				return
			}
		case <-t.stop:
			return
		}
	}
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := t.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *wsTransport) WriteMessage(data []byte) error {
	_ = t.ws.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	return t.ws.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stop)
		deadline := time.Now().Add(time.Second)
		_ = t.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = t.ws.Close()
	})
	return err
}

func (t *wsTransport) RemoteAddr() string { return t.remote }
