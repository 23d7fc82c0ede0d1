package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/gateway"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresHandlers(t *testing.T) {
	t.Parallel()

	_, err := gateway.New(gateway.Config{}, map[string]gateway.Handler{}, slogx.Discard())
	require.ErrorContains(t, err, "ping")

	noop := func(context.Context, *gateway.Conn, gateway.Request) error { return nil }
	_, err = gateway.New(gateway.Config{Allowed: []string{"ping", "gmsg"}}, map[string]gateway.Handler{"ping": noop}, nil)
	require.NoError(t, err, "disabled commands need no handler")
}

func TestFraming(t *testing.T) {
	t.Parallel()
	h := newHarness(t, gateway.Config{}, nil)
	c := h.connect(t, "10.0.0.1")

	t.Run("ping echoes listener", func(t *testing.T) {
		c.send(`{"cmd":"ping","val":"","listener":"abc"}`)
		r := c.expectStatus(gateway.CodeOK)
		require.JSONEq(t, `"abc"`, string(r.Listener))
	})

	t.Run("no listener means none echoed", func(t *testing.T) {
		c.send(`{"cmd":"ping"}`)
		r := c.expectStatus(gateway.CodeOK)
		require.Empty(t, r.Listener)
	})

	t.Run("direct unwraps once", func(t *testing.T) {
		c.send(`{"cmd":"direct","val":{"cmd":"ping","val":"","listener":"inner"}}`)
		r := c.expectStatus(gateway.CodeOK)
		require.JSONEq(t, `"inner"`, string(r.Listener))

		c.send(`{"cmd":"direct","val":{"cmd":"ping","listener":"inner"},"listener":"outer"}`)
		r = c.expectStatus(gateway.CodeOK)
		require.JSONEq(t, `"outer"`, string(r.Listener))

		c.send(`{"cmd":"direct","val":{"cmd":"direct","val":{"cmd":"ping"}}}`)
		c.expectStatus(gateway.CodeInvalid)
	})

	t.Run("syntax errors", func(t *testing.T) {
		for _, bad := range []string{`not json`, `{"val":1}`, `{"cmd":5}`, `{"cmd":"direct","val":"x"}`, `[]`} {
			c.send(bad)
			c.expectStatus(gateway.CodeSyntax)
		}
	})

	t.Run("too large aborts the frame only", func(t *testing.T) {
		big := `{"cmd":"ping","val":"` + strings.Repeat("x", 1000) + `"}`
		c.send(big)
		c.expectStatus(gateway.CodeTooLarge)

		c.send(`{"cmd":"ping"}`)
		c.expectStatus(gateway.CodeOK)
	})

	t.Run("disabled and unknown commands", func(t *testing.T) {
		c.send(`{"cmd":"gmsg","val":"hi"}`)
		c.expectStatus(gateway.CodeDisabled)

		c.send(`{"cmd":"nope","listener":1}`)
		r := c.expectStatus(gateway.CodeInvalid)
		require.JSONEq(t, `1`, string(r.Listener))
	})

	t.Run("version check", func(t *testing.T) {
		c.send(`{"cmd":"version_chk"}`)
		r := c.recv()
		require.Equal(t, "vers", r.Cmd)
		require.Equal(t, gateway.ProtocolVersion, r.String(t))
		c.expectStatus(gateway.CodeOK)
	})
}

func TestHandlerFaults(t *testing.T) {
	t.Parallel()

	extra := map[string]gateway.Handler{
		"ping": func(context.Context, *gateway.Conn, gateway.Request) error { panic("boom") },
		"get_home": func(context.Context, *gateway.Conn, gateway.Request) error {
			return errors.New("store down")
		},
		"get_post": func(ctx context.Context, _ *gateway.Conn, _ gateway.Request) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	h := newHarness(t, gateway.Config{CommandTimeout: 20 * time.Millisecond}, extra)
	c := h.connect(t, "10.0.0.2")

	c.send(`{"cmd":"ping"}`)
	c.expectStatus(gateway.CodeInternal)

	c.send(`{"cmd":"get_home"}`)
	c.expectStatus(gateway.CodeInternal)

	c.send(`{"cmd":"get_post","val":"x"}`)
	c.expectStatus(gateway.CodeInternal)

	// connection survives
	c.send(`{"cmd":"get_ulist"}`)
	require.Equal(t, "ulist", c.recv().Cmd)
}

func TestAuthPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, gateway.Config{}, nil)

	alice, err := h.Users.Signup(ctx, "alice", "hunter2", "")
	require.NoError(t, err)
	_, err = h.Users.Signup(ctx, "banned", "hunter2", "")
	require.NoError(t, err)
	banned, err := h.Users.Lookup(ctx, "banned")
	require.NoError(t, err)
	require.NoError(t, h.Store.Users().SetBanned(ctx, banned.ID, true))

	watcher := h.connect(t, "10.0.1.1")
	c := h.connect(t, "10.0.1.2")

	attempt := func(val string) {
		c.send(`{"cmd":"authpswd","val":` + val + `,"listener":"auth"}`)
	}

	t.Run("datatype", func(t *testing.T) {
		attempt(`"alice"`)
		c.expectStatus(gateway.CodeDatatype)
		attempt(`{"username":"alice"}`)
		c.expectStatus(gateway.CodeDatatype)
	})

	t.Run("failures", func(t *testing.T) {
		cases := []struct {
			val  string
			code gateway.Code
		}{
			{`{"username":"ghost","pswd":"x"}`, gateway.CodeIDNotFound},
			{`{"username":"banned","pswd":"hunter2"}`, gateway.CodeBanned},
			{`{"username":"alice","pswd":"wrong"}`, gateway.CodeInvalidPassword},
			{`{"username":"alice","token":"bogus"}`, gateway.CodeUnauthenticated},
		}
		for _, tc := range cases {
			attempt(tc.val)
			c.expectStatus(tc.code)
			h.Clock.Advance(gateway.LoginCooldown)
		}
		require.False(t, h.GW.IsOnline(alice.ID))
	})

	t.Run("rate limited per address", func(t *testing.T) {
		attempt(`{"username":"alice","pswd":"wrong"}`)
		c.expectStatus(gateway.CodeInvalidPassword)
		attempt(`{"username":"alice","pswd":"hunter2"}`)
		c.expectStatus(gateway.CodeRateLimit)
		h.Clock.Advance(gateway.LoginCooldown)
	})

	t.Run("success binds and broadcasts ulist", func(t *testing.T) {
		attempt(`{"username":"alice","pswd":"hunter2"}`)
		r := c.recv()
		require.Equal(t, "authpswd", r.Cmd)
		require.JSONEq(t, `"auth"`, string(r.Listener))

		var val struct {
			Session      domain.Session `json:"session"`
			User         domain.Profile `json:"user"`
			RequiresTOTP bool           `json:"requiresTotp"`
		}
		require.NoError(t, json.Unmarshal(r.Val, &val))
		require.NotEmpty(t, val.Session.Token)
		require.Equal(t, alice.ID, val.User.ID)
		require.False(t, val.RequiresTOTP)

		require.Equal(t, "alice;", c.recvCmd("ulist").String(t))
		require.Equal(t, "alice;", watcher.recvCmd("ulist").String(t))
		require.True(t, h.GW.IsOnline(alice.ID))
		h.Clock.Advance(gateway.LoginCooldown)

		attempt(`{"username":"alice","pswd":"hunter2"}`)
		c.expectStatus(gateway.CodeAlreadyAuthenticated)
		h.Clock.Advance(gateway.LoginCooldown)

		t.Run("token login on a second device", func(t *testing.T) {
			second := h.connect(t, "10.0.1.3")
			second.send(`{"cmd":"authpswd","val":{"username":"alice","token":"` + val.Session.Token + `"}}`)
			r := second.recvCmd("authpswd")
			require.NotContains(t, string(r.Val), `"session"`)
			require.Equal(t, "alice;", second.recvCmd("ulist").String(t))

			second.send(`{"cmd":"authpswd","val":{"username":"banned","token":"` + val.Session.Token + `"}}`)
			second.expectStatus(gateway.CodeRateLimit)
		})
	})

	t.Run("disconnect updates ulist", func(t *testing.T) {
		c.close()
		// second device is still online
		require.True(t, h.GW.IsOnline(alice.ID))
		require.Equal(t, "alice;", watcher.recvCmd("ulist").String(t))
	})
}

func TestDelivery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, gateway.Config{}, nil)

	for _, name := range []string{"bob", "carol"} {
		_, err := h.Users.Signup(ctx, name, "hunter2", "")
		require.NoError(t, err)
	}
	bob, err := h.Users.Lookup(ctx, "bob")
	require.NoError(t, err)

	phone := h.connect(t, "10.0.2.1")
	laptop := h.connect(t, "10.0.2.2")
	carol := h.connect(t, "10.0.2.3")
	anon := h.connect(t, "10.0.2.4")
	h.login(t, phone, "bob")
	h.login(t, laptop, "bob")
	h.login(t, carol, "carol")

	require.Equal(t, "bob;carol;", h.GW.UserList())

	t.Run("send to user reaches every device", func(t *testing.T) {
		n := h.GW.SendToUser(bob.ID, []byte(`{"cmd":"dm","val":"hi"}`))
		require.Equal(t, 2, n)
		require.Equal(t, "hi", phone.recvCmd("dm").String(t))
		require.Equal(t, "hi", laptop.recvCmd("dm").String(t))

		require.Zero(t, h.GW.SendToUser("nobody", []byte(`{}`)))
	})

	t.Run("broadcast reaches everyone", func(t *testing.T) {
		n := h.GW.BroadcastCommand("announce", "all")
		require.Equal(t, 4, n)
		for _, c := range []*client{phone, laptop, carol, anon} {
			require.Equal(t, "all", c.recvCmd("announce").String(t))
		}
	})

	t.Run("new post is broadcast", func(t *testing.T) {
		_, err := h.Posts.Create(ctx, bob, "hello")
		require.NoError(t, err)
		r := anon.recvCmd("post")
		require.Contains(t, string(r.Val), "hello")
	})

	t.Run("kick closes only that user", func(t *testing.T) {
		require.Equal(t, 2, h.GW.Kick(bob.ID))
		phone.expectStatusEventually(gateway.CodeKicked)
		<-phone.done
		<-laptop.done

		require.False(t, h.GW.IsOnline(bob.ID))
		require.Equal(t, "carol;", h.GW.UserList())

		carol.send(`{"cmd":"ping"}`)
		carol.expectStatusEventually(gateway.CodeOK)
	})
}

// expectStatusEventually skips unrelated frames until the status arrives.
func (c *client) expectStatusEventually(code gateway.Code) {
	c.t.Helper()
	for {
		r := c.recvCmd("statuscode")
		if r.String(c.t) == code.String() {
			return
		}
	}
}

func TestBroadcastDuringChurn(t *testing.T) {
	t.Parallel()
	h := newHarness(t, gateway.Config{}, nil)

	stable := h.connect(t, "10.0.3.1")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := newPipeTransport(fmt.Sprintf("10.0.4.%d", i), 256)
			done := make(chan struct{})
			go func() {
				defer close(done)
				h.GW.Serve(context.Background(), p)
			}()
			time.Sleep(time.Millisecond)
			_ = p.Close()
			<-done
		}()
	}

	for range 50 {
		h.GW.BroadcastCommand("tick", "x")
	}
	wg.Wait()

	for range 50 {
		require.Equal(t, "tick", stable.recv().Cmd)
	}
	require.Eventually(t, func() bool { return h.GW.Len() == 1 }, time.Second, 5*time.Millisecond)
}

// stuckTransport never completes a write.
type stuckTransport struct {
	*pipeTransport
}

func (s stuckTransport) WriteMessage([]byte) error {
	<-s.closed
	return errors.New("closed")
}

func TestSlowConsumerIsDropped(t *testing.T) {
	t.Parallel()
	h := newHarness(t, gateway.Config{SendQueue: 2}, nil)

	fast := h.connect(t, "10.0.5.1")

	stuck := stuckTransport{newPipeTransport("10.0.5.2", 1)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.GW.Serve(context.Background(), stuck)
	}()
	require.Eventually(t, func() bool { return h.GW.Len() == 2 }, time.Second, 5*time.Millisecond)

	for range 10 {
		h.GW.BroadcastCommand("flood", "x")
		require.Equal(t, "flood", fast.recv().Cmd)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slow consumer was not closed")
	}
	require.Equal(t, 1, h.GW.Len())
}

func TestGetCommands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, gateway.Config{}, nil)

	_, err := h.Users.Signup(ctx, "dave", "hunter2", "dave@example.com")
	require.NoError(t, err)
	dave, err := h.Users.Lookup(ctx, "dave")
	require.NoError(t, err)
	post, err := h.Posts.Create(ctx, dave, "first")
	require.NoError(t, err)

	viewer := h.connect(t, "10.0.6.1")
	owner := h.connect(t, "10.0.6.2")
	h.login(t, owner, "dave")

	t.Run("profile hides email from others", func(t *testing.T) {
		viewer.send(`{"cmd":"get_profile","val":"dave"}`)
		r := viewer.recvCmd("profile")
		var p domain.Profile
		require.NoError(t, json.Unmarshal(r.Val, &p))
		require.Equal(t, "Online", p.Status)
		require.Empty(t, p.Email)
	})

	t.Run("owner sees email", func(t *testing.T) {
		owner.send(`{"cmd":"get_profile","val":"dave"}`)
		var p domain.Profile
		require.NoError(t, json.Unmarshal(owner.recvCmd("profile").Val, &p))
		require.Equal(t, "dave@example.com", p.Email)
	})

	t.Run("profile errors", func(t *testing.T) {
		viewer.send(`{"cmd":"get_profile","val":"ghost"}`)
		viewer.expectStatus(gateway.CodeIDNotFound)
		viewer.send(`{"cmd":"get_profile","val":42}`)
		viewer.expectStatus(gateway.CodeDatatype)
	})

	t.Run("posts", func(t *testing.T) {
		viewer.send(`{"cmd":"get_home"}`)
		var home []domain.Post
		require.NoError(t, json.Unmarshal(viewer.recvCmd("home").Val, &home))
		require.Len(t, home, 1)

		viewer.send(`{"cmd":"get_post","val":"` + post.ID + `"}`)
		var got domain.Post
		require.NoError(t, json.Unmarshal(viewer.recvCmd("post").Val, &got))
		require.Equal(t, "first", got.Content)

		viewer.send(`{"cmd":"get_post","val":"missing"}`)
		viewer.expectStatus(gateway.CodeIDNotFound)
	})

}
