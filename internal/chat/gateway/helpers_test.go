package gateway_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/gateway"
	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/internal/chat/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/cryptox"
	"github.com/aussiebroadwan/tabchat/pkg/envelope"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "gateway-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// pipeTransport is an in-memory Transport driven by the test.
type pipeTransport struct {
	remote string
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipeTransport(remote string, outBuf int) *pipeTransport {
	return &pipeTransport{
		remote: remote,
		in:     make(chan []byte),
		out:    make(chan []byte, outBuf),
		closed: make(chan struct{}),
	}
}

func (p *pipeTransport) ReadMessage() ([]byte, error) {
	select {
	case m := <-p.in:
		return m, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeTransport) WriteMessage(data []byte) error {
	select {
	case p.out <- data:
		return nil
	case <-p.closed:
		return io.ErrClosedPipe
	}
}

func (p *pipeTransport) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeTransport) RemoteAddr() string { return p.remote }

type reply struct {
	Cmd      string          `json:"cmd"`
	Val      json.RawMessage `json:"val"`
	Listener json.RawMessage `json:"listener"`
}

func (r reply) String(t *testing.T) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(r.Val, &s))
	return s
}

type client struct {
	t    *testing.T
	pipe *pipeTransport
	done chan struct{}
}

func (c *client) send(frame string) {
	c.t.Helper()
	select {
	case c.pipe.in <- []byte(frame):
	case <-time.After(2 * time.Second):
		c.t.Fatal("timed out sending frame")
	}
}

func (c *client) recv() reply {
	c.t.Helper()
	select {
	case data := <-c.pipe.out:
		var r reply
		require.NoError(c.t, json.Unmarshal(data, &r), string(data))
		return r
	case <-time.After(2 * time.Second):
		c.t.Fatal("timed out waiting for frame")
	}
	return reply{}
}

func (c *client) expectStatus(code gateway.Code) reply {
	c.t.Helper()
	r := c.recv()
	require.Equal(c.t, "statuscode", r.Cmd)
	require.Equal(c.t, code.String(), r.String(c.t))
	return r
}

// recvCmd skips frames until one with cmd arrives.
func (c *client) recvCmd(cmd string) reply {
	c.t.Helper()
	for {
		r := c.recv()
		if r.Cmd == cmd {
			return r
		}
	}
}

func (c *client) close() {
	_ = c.pipe.Close()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		c.t.Fatal("connection did not shut down")
	}
}

type harness struct {
	GW       *gateway.Gateway
	Clock    *clock.FakeClock
	Store    *sqlite.Store
	Sessions *service.SessionService
	Users    *service.UserService
	Posts    *service.PostService
}

func newHarness(t *testing.T, cfg gateway.Config, extra map[string]gateway.Handler) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := envelope.NewFileKeyStore(t.TempDir())
	require.NoError(t, err)
	raw := make([]byte, 32)
	_, err = rand.Read(raw)
	require.NoError(t, err)
	env := envelope.New(envelope.EnvProvider{Key: base64.URLEncoding.EncodeToString(raw)}, keys, slogx.Discard())
	require.NoError(t, env.Load(context.Background()))

	fc := clock.Fake(time.UnixMilli(time.Now().UnixMilli()).UTC())
	limiter := ratelimit.NewMemory(fc)

	sessions := &service.SessionService{Store: st, Clock: fc}
	guard := &service.Guard{Sessions: sessions, Store: st, Limiter: limiter, Clock: fc}
	users := &service.UserService{Store: st, Sessions: sessions, Sealer: env, Clock: fc}
	posts := &service.PostService{Store: st, Clock: fc}

	handlers := gateway.Handlers(gateway.Services{Users: users, Guard: guard, Posts: posts, Limiter: limiter})
	for cmd, h := range extra {
		handlers[cmd] = h
	}

	gw, err := gateway.New(cfg, handlers, slogx.Discard())
	require.NoError(t, err)
	t.Cleanup(gw.Close)

	users.Presence = gw
	posts.Broadcaster = gw

	return &harness{GW: gw, Clock: fc, Store: st, Sessions: sessions, Users: users, Posts: posts}
}

func (h *harness) connect(t *testing.T, remote string) *client {
	t.Helper()
	return h.connectWith(t, newPipeTransport(remote, 64))
}

func (h *harness) connectWith(t *testing.T, p *pipeTransport) *client {
	t.Helper()
	c := &client{t: t, pipe: p, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		h.GW.Serve(context.Background(), p)
	}()
	t.Cleanup(func() { _ = p.Close() })
	return c
}

func (h *harness) login(t *testing.T, c *client, username string) {
	t.Helper()
	c.send(`{"cmd":"authpswd","val":{"username":"` + username + `","pswd":"hunter2"}}`)
	r := c.recvCmd("authpswd")
	require.NotEmpty(t, r.Val)
	h.Clock.Advance(gateway.LoginCooldown)
}
