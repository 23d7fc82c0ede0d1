package envelope

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	// DefaultBaud matches the key device firmware.
	DefaultBaud = 9600

	maxLineBytes     = 256
	handshakeTimeout = 5 * time.Second
	ackRequest       = `{"cmd":"ACK?"}`
)

// DeviceProvider reads the master key from a hardware key device on a
// serial port. The device speaks '\r' terminated ASCII lines: it sends a
// greeting, waits for {"cmd":"ACK?"} and replies with the key.
type DeviceProvider struct {
	Port string
	Baud int

	// Open overrides how the port is opened. Nil opens the serial device.
	Open func(ctx context.Context, port string, baud int) (io.ReadWriteCloser, error)
}

func (p *DeviceProvider) Name() string { return "device" }

func (p *DeviceProvider) WatchPath() string { return p.Port }

func (p *DeviceProvider) LoadKey(ctx context.Context) ([]byte, error) {
	if p.Port == "" {
		return nil, ErrNotConfigured
	}

	baud := p.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	open := p.Open
	if open == nil {
		open = openSerial
	}

	conn, err := open(ctx, p.Port, baud)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrTransport, p.Port, err)
	}
	defer func() { _ = conn.Close() }()

	line, err := handshake(ctx, conn)
	if err != nil {
		return nil, err
	}
	return parseKey(line)
}

// Check reports whether the device node is still present.
func (p *DeviceProvider) Check(context.Context) error {
	if _, err := os.Stat(p.Port); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

func handshake(ctx context.Context, rw io.ReadWriter) (string, error) {
	if d, ok := rw.(deadliner); ok {
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(handshakeTimeout)
		}
		_ = d.SetDeadline(deadline)
	}

	r := bufio.NewReader(rw)

	// 1. Greeting; content is informational only.
	if _, err := readLine(r); err != nil {
		return "", fmt.Errorf("%w: read greeting: %v", ErrTransport, err)
	}

	// 2. Ask for the key.
	if _, err := io.WriteString(rw, ackRequest+"\r"); err != nil {
		return "", fmt.Errorf("%w: write ack: %v", ErrTransport, err)
	}

	// 3. Key line.
	line, err := readLine(r)
	if err != nil {
		return "", fmt.Errorf("%w: read key: %v", ErrTransport, err)
	}
	return line, nil
}

var errLineTooLong = errors.New("line too long")

func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\r' {
			return strings.TrimSpace(sb.String()), nil
		}
		if sb.Len() >= maxLineBytes {
			return "", errLineTooLong
		}
		sb.WriteByte(b)
	}
}
