package gateway

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/protocol"
)

// Options configures a Session.
type Options struct {
	Host   string
	Port   int
	APIID  protocol.Credential
	APIKey protocol.Credential

	// Timeout bounds connect and each receive. Zero means DefaultTimeout.
	Timeout time.Duration

	// KeepAlive keeps the authenticated connection open between requests.
	// When false every request opens, logs in, exchanges and closes.
	KeepAlive bool

	// SequenceSeed is the sequence number preceding the first request.
	// Zero means protocol.DefaultSequenceSeed.
	SequenceSeed uint32

	// Dial overrides how connections are opened.
	Dial DialFunc
}

// Address returns host:port, defaulting the port.
func (o Options) Address() string {
	port := o.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(o.Host, strconv.Itoa(port))
}

// Session talks to one gateway. It allows at most one outstanding request:
// concurrent callers are serialized.
type Session struct {
	opts Options
	addr string

	mu   sync.Mutex
	conn *Conn // open connection when KeepAlive is set

	seq atomic.Uint32
}

// NewSession creates a session. No connection is opened until first use.
func NewSession(opts Options) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	s := &Session{opts: opts, addr: opts.Address()}
	seed := opts.SequenceSeed
	if seed == 0 {
		seed = protocol.DefaultSequenceSeed
	}
	s.seq.Store(seed % protocol.SequenceModulus)
	return s
}

// Address returns the gateway address.
func (s *Session) Address() string { return s.addr }

// NextSequence returns the next sequence number. Numbers wrap after eight
// decimal digits.
func (s *Session) NextSequence() uint32 {
	for {
		cur := s.seq.Load()
		next := (cur + 1) % protocol.SequenceModulus
		if s.seq.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// LoginSettle is how long Login listens after the acknowledgement for
// stray bytes.
const LoginSettle = 25 * time.Millisecond

// Login opens a connection and authenticates it. The gateway must answer
// with the exact login acknowledgement and nothing after it; any other
// reply, and any failure after the connection is open, is an
// authentication error. The caller owns the returned connection.
func (s *Session) Login(ctx context.Context) (*Conn, error) {
	return s.login(ctx, true)
}

// login authenticates a new connection. With quiet unset the check for
// trailing bytes is skipped, for callers that wait for unsolicited frames.
func (s *Session) login(ctx context.Context, quiet bool) (*Conn, error) {
	conn, err := Dial(ctx, s.addr, s.opts.Timeout, s.opts.Dial)
	if err != nil {
		return nil, err
	}

	if err := conn.Send(ctx, "login", protocol.LoginFrame(s.opts.APIID, s.opts.APIKey)); err != nil {
		conn.Close()
		return nil, NewAuthError(s.addr, "failed to send login", err)
	}
	ack, err := conn.Receive(ctx, "login ack")
	if err != nil {
		conn.Close()
		return nil, NewAuthError(s.addr, "no valid login acknowledgement", err)
	}
	if !bytes.Equal(ack, protocol.LoginAck) {
		conn.Close()
		return nil, NewAuthError(s.addr, "gateway rejected login", nil)
	}
	if quiet {
		if err := conn.ExpectQuiet(ctx, "login trailer", LoginSettle); err != nil {
			conn.Close()
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, NewAuthError(s.addr, "unexpected data after login acknowledgement", err)
		}
	}

	logging.Debug("Logged in to gateway", zap.String("gateway", s.addr))
	return conn, nil
}

// Do sends a read, write or report request and returns the final reply: the
// data frame when the gateway announces one, otherwise the acknowledgement.
// The sequence number is assigned here. Status bytes are not interpreted.
// A reply that fails its CRC is retried once.
func (s *Session) Do(ctx context.Context, req protocol.Request) (protocol.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Sequence = s.NextSequence()
	frame, err := req.Encode()
	if err != nil {
		return nil, NewProtocolError(s.addr, "cannot encode request", err)
	}

	start := time.Now()
	reply, err := s.exchange(ctx, req, frame)
	if err != nil && IsChecksumError(err) {
		logging.Warn("Reply failed checksum, retrying once",
			zap.String("gateway", s.addr),
			zap.String("device", req.Device.String()),
		)
		reply, err = s.exchange(ctx, req, frame)
	}

	var status byte
	if reply != nil {
		status = byte(reply.Status())
	}
	logging.LogExchange(s.addr, req.Command.String(), req.Device.String(), req.Code.String(),
		status, time.Since(start), err)
	return reply, err
}

func (s *Session) exchange(ctx context.Context, req protocol.Request, frame []byte) (protocol.Reply, error) {
	conn, reused, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := s.roundTrip(ctx, conn, req, frame)
	s.release(conn, err)

	// A kept-alive connection may have been closed by the gateway while idle.
	var gwErr *Error
	if reused && errors.As(err, &gwErr) && gwErr.Kind == KindIO {
		logging.Debug("Kept-alive connection failed, reconnecting", zap.String("gateway", s.addr))
		if conn, _, err = s.acquire(ctx); err != nil {
			return nil, err
		}
		reply, err = s.roundTrip(ctx, conn, req, frame)
		s.release(conn, err)
	}
	return reply, err
}

func (s *Session) acquire(ctx context.Context) (*Conn, bool, error) {
	if s.opts.KeepAlive && s.conn != nil {
		return s.conn, true, nil
	}
	conn, err := s.Login(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.opts.KeepAlive {
		s.conn = conn
	}
	return conn, false, nil
}

func (s *Session) release(conn *Conn, err error) {
	if s.opts.KeepAlive && err == nil {
		return
	}
	conn.Close()
	if s.conn == conn {
		s.conn = nil
	}
}

func (s *Session) roundTrip(ctx context.Context, conn *Conn, req protocol.Request, frame []byte) (protocol.Reply, error) {
	if err := conn.Send(ctx, req.Command.String(), frame); err != nil {
		return nil, err
	}

	raw, err := conn.Receive(ctx, "ack")
	if err != nil {
		return nil, err
	}
	reply, err := protocol.ParseReply(raw)
	if err != nil {
		return nil, NewProtocolError(s.addr, "malformed acknowledgement", err)
	}
	s.checkSequence(req, reply)

	if reply.Status() != protocol.StatusOK || !reply.More() {
		return reply, nil
	}

	raw, err = conn.Receive(ctx, "data")
	if err != nil {
		return nil, err
	}
	data, err := protocol.ParseReply(raw)
	if err != nil {
		return nil, NewProtocolError(s.addr, "malformed data reply", err)
	}
	return data, nil
}

// checkSequence logs when the echoed sequence differs from the one sent.
// Gateways are not known to rely on it, so a mismatch is not an error.
func (s *Session) checkSequence(req protocol.Request, reply protocol.Reply) {
	echoed, err := reply.Sequence()
	if err != nil || echoed != req.Sequence%protocol.SequenceModulus {
		logging.Debug("Reply sequence does not match request",
			zap.String("gateway", s.addr),
			zap.Uint32("sent", req.Sequence),
			zap.Uint32("echoed", echoed),
		)
	}
}

// Close drops the kept-alive connection, if any.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
