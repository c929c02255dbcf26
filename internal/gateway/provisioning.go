package gateway

import (
	"bytes"
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/protocol"
)

// DefaultButtonWait bounds how long key requests and device links wait for
// someone to press the buttons.
const DefaultButtonWait = 3 * time.Minute

// Ping checks that a GT125 answers on the protocol port. No login is needed.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := Dial(ctx, s.addr, s.opts.Timeout, s.opts.Dial)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(ctx, "ping", protocol.PingFrame()); err != nil {
		return err
	}
	reply, err := conn.Receive(ctx, "ping ack")
	if err != nil {
		return err
	}
	if !bytes.Equal(reply, protocol.PingAck) {
		return NewProtocolError(s.addr, "unexpected ping reply", nil)
	}
	return nil
}

// RequestAPIKey asks the gateway for the API key that goes with apiID. The
// gateway answers only after its "web" button is pressed, so the reply is
// awaited until ctx is done or DefaultButtonWait elapses.
func (s *Session) RequestAPIKey(ctx context.Context, apiID protocol.Credential) (protocol.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var key protocol.Credential
	conn, err := Dial(ctx, s.addr, s.opts.Timeout, s.opts.Dial)
	if err != nil {
		return key, err
	}
	defer conn.Close()

	if err := conn.Send(ctx, "key request", protocol.KeyRequestFrame(apiID)); err != nil {
		return key, err
	}
	raw, err := conn.ReceiveWithin(ctx, "key reply", DefaultButtonWait)
	if err != nil {
		return key, err
	}
	key, err = protocol.Reply(raw).APIKey()
	if err != nil {
		return key, NewProtocolError(s.addr, "key reply too short", err)
	}
	logging.Info("Received API key from gateway", zap.String("gateway", s.addr))
	return key, nil
}

// WaitForDeviceLink logs in and waits for the report the gateway sends when
// a device is linked (both device buttons pressed after the gateway's web
// button). It returns the new device's id.
func (s *Session) WaitForDeviceLink(ctx context.Context) (protocol.DeviceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id protocol.DeviceID
	conn, err := s.login(ctx, false)
	if err != nil {
		return id, err
	}
	defer conn.Close()

	raw, err := conn.ReceiveWithin(ctx, "link report", DefaultButtonWait)
	if err != nil {
		return id, err
	}
	id, err = protocol.Reply(raw).LinkedDevice()
	if err != nil {
		return id, NewProtocolError(s.addr, "link report too short", err)
	}
	logging.Info("Device linked", zap.String("gateway", s.addr), zap.String("device", id.String()))
	return id, nil
}
