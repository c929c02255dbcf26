package gateway

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/protocol"
)

const (
	// DefaultPort is the GT125 protocol port.
	DefaultPort = 4550

	// DefaultTimeout bounds connect and each receive when none is configured.
	DefaultTimeout = 10 * time.Second
)

// DialFunc opens a network connection. net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Conn is one TCP stream to a gateway. It reads and writes whole frames and
// is not safe for concurrent use; Session serializes access.
type Conn struct {
	conn    net.Conn
	addr    string
	timeout time.Duration
}

// Dial opens a connection to addr. The connect attempt is bounded by timeout
// and by ctx.
func Dial(ctx context.Context, addr string, timeout time.Duration, dial DialFunc) (*Conn, error) {
	if dial == nil {
		d := &net.Dialer{}
		dial = d.DialContext
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := dial(dialCtx, "tcp", addr)
	if err != nil {
		return nil, ClassifyNetworkError(err, addr, true)
	}
	logging.Debug("Connected to gateway")
	return &Conn{conn: c, addr: addr, timeout: timeout}, nil
}

// Addr returns the gateway address.
func (c *Conn) Addr() string { return c.addr }

// Send writes one frame.
func (c *Conn) Send(ctx context.Context, label string, frame []byte) error {
	logging.LogFrame(c.addr, logging.DirectionOut, label, frame)
	return c.withDeadline(ctx, c.timeout, func() error {
		_, err := c.conn.Write(frame)
		return err
	})
}

// Receive reads exactly one frame, using the length field to find its end,
// and validates its preamble and CRC.
func (c *Conn) Receive(ctx context.Context, label string) ([]byte, error) {
	return c.ReceiveWithin(ctx, label, c.timeout)
}

// ReceiveWithin is Receive with an explicit timeout. A timeout of zero or
// less waits until ctx is done.
func (c *Conn) ReceiveWithin(ctx context.Context, label string, timeout time.Duration) ([]byte, error) {
	var frame []byte
	err := c.withDeadline(ctx, timeout, func() error {
		header := make([]byte, protocol.HeaderSize)
		if _, err := io.ReadFull(c.conn, header); err != nil {
			return err
		}
		size, err := protocol.FrameSize(header)
		if err != nil {
			logging.LogFrame(c.addr, logging.DirectionIn, label, header)
			return NewProtocolError(c.addr, "malformed frame header", err)
		}
		frame = make([]byte, size)
		copy(frame, header)
		_, err = io.ReadFull(c.conn, frame[protocol.HeaderSize:])
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.LogFrame(c.addr, logging.DirectionIn, label, frame)
	if !protocol.VerifyChecksum(frame) {
		return nil, NewChecksumError(c.addr, frame)
	}
	return frame, nil
}

// ExpectQuiet fails if anything arrives within wait. A read that times out
// means the line stayed quiet.
func (c *Conn) ExpectQuiet(ctx context.Context, label string, wait time.Duration) error {
	buf := make([]byte, 64)
	var n int
	err := c.withDeadline(ctx, wait, func() error {
		var err error
		n, err = c.conn.Read(buf)
		return err
	})
	if n > 0 {
		logging.LogFrame(c.addr, logging.DirectionIn, label, buf[:n])
		return NewProtocolError(c.addr, fmt.Sprintf("%d unexpected bytes", n), nil)
	}
	if err != nil && IsTimeout(err) && ctx.Err() == nil {
		return nil
	}
	return err
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// withDeadline runs fn with the connection deadline set to the earlier of
// now+timeout and the ctx deadline. Cancelling ctx unblocks fn.
func (c *Conn) withDeadline(ctx context.Context, timeout time.Duration, fn func() error) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return ClassifyNetworkError(err, c.addr, false)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	err := fn()
	stop()

	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return ClassifyNetworkError(err, c.addr, false)
}
