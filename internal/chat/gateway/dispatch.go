package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
)

// Request is a decoded inbound frame.
type Request struct {
	Cmd      string
	Val      json.RawMessage
	Listener json.RawMessage
}

// Handler serves one command. Returning a *StatusError replies with its
// code; any other error replies Internal and is logged.
type Handler func(ctx context.Context, c *Conn, req Request) error

type inbound struct {
	Cmd      *string         `json:"cmd"`
	Val      json.RawMessage `json:"val"`
	Listener json.RawMessage `json:"listener"`
}

var jsonNull = []byte("null")

// decodeRequest parses a frame, unwrapping a "direct" envelope exactly once.
func decodeRequest(data []byte) (Request, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Request{}, err
	}
	if in.Cmd == nil || *in.Cmd == "" {
		return Request{}, fmt.Errorf("missing cmd")
	}

	req := Request{Cmd: *in.Cmd, Val: in.Val, Listener: listenerOf(in.Listener)}
	if req.Cmd != "direct" {
		return req, nil
	}

	var inner inbound
	if err := json.Unmarshal(in.Val, &inner); err != nil {
		return Request{}, fmt.Errorf("direct: %w", err)
	}
	if inner.Cmd == nil || *inner.Cmd == "" {
		return Request{}, fmt.Errorf("direct: missing cmd")
	}

	req.Cmd = *inner.Cmd
	req.Val = inner.Val
	if req.Listener == nil {
		req.Listener = listenerOf(inner.Listener)
	}
	return req, nil
}

func listenerOf(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil
	}
	return raw
}

func (g *Gateway) handleFrame(ctx context.Context, c *Conn, data []byte) {
	if len(data) > g.cfg.MaxFrameBytes {
		c.sendStatus(CodeTooLarge, nil, false)
		return
	}

	req, err := decodeRequest(data)
	if err != nil {
		c.Logger().Debug("rejecting malformed frame", "error", err)
		c.sendStatus(CodeSyntax, nil, false)
		return
	}

	g.dispatch(ctx, c, req)
}

func (g *Gateway) dispatch(ctx context.Context, c *Conn, req Request) {
	if _, off := g.disabled[req.Cmd]; off {
		c.Status(req, CodeDisabled)
		return
	}
	h := g.handlers[req.Cmd]
	if _, ok := g.allowed[req.Cmd]; !ok || h == nil {
		c.Status(req, CodeInvalid)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.CommandTimeout)
	defer cancel()

	err := invoke(ctx, h, c, req)
	if err == nil {
		return
	}

	code, ok := statusOf(err)
	if !ok {
		c.Logger().Error("command failed", "cmd", req.Cmd, "error", err)
	}
	c.Status(req, code)
}

func invoke(ctx context.Context, h Handler, c *Conn, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", req.Cmd, r, debug.Stack())
		}
	}()
	return h(ctx, c, req)
}
