// Package gatewaytest provides a scripted fake GT125 for tests.
package gatewaytest

import (
	"bytes"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/sinopehome/gt125/internal/protocol"
)

// Response is what the fake does after receiving one frame.
type Response struct {
	Frames [][]byte // written in order, one Write per frame
	Close  bool     // close the connection afterwards
}

// Handler answers one received frame.
type Handler func(frame []byte) Response

// Gateway is a fake gateway listening on 127.0.0.1.
type Gateway struct {
	listener net.Listener
	handler  Handler

	mu     sync.Mutex
	frames [][]byte
	conns  int

	wg sync.WaitGroup
}

// New starts a fake gateway. It is closed when the test ends.
func New(t testing.TB, h Handler) *Gateway {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("gatewaytest: listen: %v", err)
	}
	g := &Gateway{listener: ln, handler: h}
	g.wg.Add(1)
	go g.serve()
	t.Cleanup(g.Close)
	return g
}

// Host returns the listening host.
func (g *Gateway) Host() string { return "127.0.0.1" }

// Port returns the listening port.
func (g *Gateway) Port() int {
	_, port, _ := net.SplitHostPort(g.listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Addr returns host:port.
func (g *Gateway) Addr() string { return g.listener.Addr().String() }

// Frames returns every frame received so far, across connections.
func (g *Gateway) Frames() [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([][]byte, len(g.frames))
	copy(out, g.frames)
	return out
}

// Requests returns the received data requests, skipping session frames.
func (g *Gateway) Requests() []protocol.Request {
	var reqs []protocol.Request
	for _, f := range g.Frames() {
		if IsLogin(f) {
			continue
		}
		if r, err := protocol.ParseRequest(f); err == nil {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// Connections returns how many connections were accepted.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conns
}

// Close stops the listener and waits for connection handlers to exit.
func (g *Gateway) Close() {
	g.listener.Close()
	g.wg.Wait()
}

func (g *Gateway) serve() {
	defer g.wg.Done()
	var conns sync.WaitGroup
	defer conns.Wait()

	var open []net.Conn
	var openMu sync.Mutex
	defer func() {
		openMu.Lock()
		for _, c := range open {
			c.Close()
		}
		openMu.Unlock()
	}()

	for {
		c, err := g.listener.Accept()
		if err != nil {
			return
		}
		g.mu.Lock()
		g.conns++
		g.mu.Unlock()
		openMu.Lock()
		open = append(open, c)
		openMu.Unlock()

		conns.Add(1)
		go func() {
			defer conns.Done()
			g.handle(c)
		}()
	}
}

func (g *Gateway) handle(c net.Conn) {
	defer c.Close()
	for {
		frame, err := readFrame(c)
		if err != nil {
			return
		}
		g.mu.Lock()
		g.frames = append(g.frames, frame)
		g.mu.Unlock()

		resp := g.handler(frame)
		for _, out := range resp.Frames {
			if _, err := c.Write(out); err != nil {
				return
			}
		}
		if resp.Close {
			return
		}
	}
}

func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, protocol.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	size, err := protocol.FrameSize(header)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, size)
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[protocol.HeaderSize:]); err != nil {
		return nil, err
	}
	return frame, nil
}

// IsLogin reports whether frame is a login frame.
func IsLogin(frame []byte) bool {
	return len(frame) > 5 && frame[4] == 0x10 && frame[5] == 0x01
}

// IsPing reports whether frame is a ping frame.
func IsPing(frame []byte) bool {
	return bytes.Equal(frame, protocol.PingFrame())
}

// Reply writes frames and keeps the connection open.
func Reply(frames ...[]byte) Response { return Response{Frames: frames} }

// ReplyAndClose writes frames and closes the connection.
func ReplyAndClose(frames ...[]byte) Response { return Response{Frames: frames, Close: true} }

// WithLogin answers login frames with the login acknowledgement and passes
// every parsed data request to next. Unparseable frames close the connection.
func WithLogin(next func(req protocol.Request) Response) Handler {
	return func(frame []byte) Response {
		if IsLogin(frame) {
			return Reply(protocol.LoginAck)
		}
		req, err := protocol.ParseRequest(frame)
		if err != nil {
			return Response{Close: true}
		}
		return next(req)
	}
}

// Ack builds the acknowledgement for req carrying status.
func Ack(req protocol.Request, status protocol.Status) []byte {
	return protocol.ReplyFields{
		Command:  req.Command.Response(),
		Sequence: req.Sequence,
		Status:   status,
		Device:   req.Device,
	}.Encode()
}

// Data builds the two-frame answer to a read: an ack announcing more data,
// then a data frame whose value bytes start at offset 23.
func Data(req protocol.Request, value []byte) [][]byte {
	ack := protocol.ReplyFields{
		Command:  req.Command.Response(),
		Sequence: req.Sequence,
		Status:   protocol.StatusOK,
		More:     true,
		Device:   req.Device,
	}.Encode()
	data := protocol.ReplyFields{
		Command:  req.Command.Response(),
		Sequence: req.Sequence,
		Status:   protocol.StatusOK,
		Device:   req.Device,
		Code:     req.Code,
		Value:    value,
	}.Encode()
	return [][]byte{ack, data}
}
