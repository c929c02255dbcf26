package sinope

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sinopehome/gt125/internal/gateway"
	"github.com/sinopehome/gt125/internal/protocol"
)

// Exchanger sends one request and returns the final reply.
// *gateway.Session implements it.
type Exchanger interface {
	Do(ctx context.Context, req protocol.Request) (protocol.Reply, error)
}

// ErrDeviceUnreachable is returned by writes when the gateway reports that
// the device did not respond. Reads report the same condition as ok == false.
var ErrDeviceUnreachable = errors.New("device not responding")

// AllDevices is the away target that reaches every device at once.
const AllDevices = "all"

// Client issues typed reads, writes and reports through an Exchanger.
type Client struct {
	ex      Exchanger
	gateway string
	loc     *time.Location
	now     func() time.Time

	lat, lon  float64
	hasCoords bool
	outdoor   OutdoorSource
}

// Option configures a Client.
type Option func(*Client)

// WithGatewayName labels errors with the gateway address.
func WithGatewayName(name string) Option {
	return func(c *Client) { c.gateway = name }
}

// WithLocation sets the time zone used for time, date and sun reports.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithCoordinates enables sunrise and sunset reports.
func WithCoordinates(lat, lon float64) Option {
	return func(c *Client) {
		c.lat, c.lon, c.hasCoords = lat, lon, true
	}
}

// WithOutdoorSource enables the outdoor temperature report.
func WithOutdoorSource(src OutdoorSource) Option {
	return func(c *Client) { c.outdoor = src }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client.
func NewClient(ex Exchanger, opts ...Option) *Client {
	c := &Client{ex: ex, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read fetches one attribute. ok is false, with a nil error, when the
// gateway reports that the device did not respond.
func (c *Client) Read(ctx context.Context, dev Device, attr protocol.Attribute) (protocol.Value, bool, error) {
	spec, err := lookup(dev.Capability, attr, protocol.CommandRead)
	if err != nil {
		return protocol.Value{}, false, err
	}
	if !spec.Kind.Numeric() {
		return protocol.Value{}, false, fmt.Errorf("%s is not a numeric attribute", attr)
	}

	reply, err := c.ex.Do(ctx, protocol.Request{Command: protocol.CommandRead, Device: dev.ID, Code: spec.Code})
	if err != nil {
		return protocol.Value{}, false, fmt.Errorf("read %s from %s: %w", attr, dev, err)
	}
	if reachable, err := c.interpret(reply); err != nil || !reachable {
		if err != nil {
			err = fmt.Errorf("read %s from %s: %w", attr, dev, err)
		}
		return protocol.Value{}, false, err
	}

	v, ok, err := protocol.DecodeValue(spec.Kind, reply)
	if err != nil {
		return v, false, gateway.NewProtocolError(c.gateway, fmt.Sprintf("cannot decode %s", attr), err)
	}
	return v, ok, nil
}

// ReadEvent fetches the event flags of a light or switch.
func (c *Client) ReadEvent(ctx context.Context, dev Device) (protocol.EventFlags, bool, error) {
	spec, err := lookup(dev.Capability, protocol.AttrEvent, protocol.CommandRead)
	if err != nil {
		return protocol.EventFlags{}, false, err
	}
	reply, err := c.ex.Do(ctx, protocol.Request{Command: protocol.CommandRead, Device: dev.ID, Code: spec.Code})
	if err != nil {
		return protocol.EventFlags{}, false, fmt.Errorf("read event flags from %s: %w", dev, err)
	}
	if reachable, err := c.interpret(reply); err != nil || !reachable {
		if err != nil {
			err = fmt.Errorf("read event flags from %s: %w", dev, err)
		}
		return protocol.EventFlags{}, false, err
	}
	flags, ok, err := protocol.DecodeEvent(reply)
	if err != nil {
		return flags, false, gateway.NewProtocolError(c.gateway, "cannot decode event flags", err)
	}
	return flags, ok, nil
}

// Write sets one attribute to an already encoded, size-prefixed value.
func (c *Client) Write(ctx context.Context, dev Device, attr protocol.Attribute, value []byte) error {
	spec, err := lookup(dev.Capability, attr, protocol.CommandWrite)
	if err != nil {
		return err
	}
	return c.send(ctx, protocol.CommandWrite, dev.ID, spec, value, dev.String())
}

// WriteValue encodes v according to the attribute's kind and writes it.
func (c *Client) WriteValue(ctx context.Context, dev Device, attr protocol.Attribute, v float64) error {
	spec, err := lookup(dev.Capability, attr, protocol.CommandWrite)
	if err != nil {
		return err
	}
	value, err := protocol.EncodeValue(spec.Kind, v)
	if err != nil {
		return err
	}
	return c.send(ctx, protocol.CommandWrite, dev.ID, spec, value, dev.String())
}

// Report pushes a report-only attribute to target, usually protocol.Broadcast.
func (c *Client) Report(ctx context.Context, target protocol.DeviceID, attr protocol.Attribute, value []byte) error {
	spec, err := lookup(protocol.CapabilityBroadcast, attr, protocol.CommandReport)
	if err != nil {
		return err
	}
	return c.send(ctx, protocol.CommandReport, target, spec, value, target.String())
}

func (c *Client) send(ctx context.Context, cmd protocol.Command, id protocol.DeviceID, spec protocol.AttributeSpec, value []byte, label string) error {
	reply, err := c.ex.Do(ctx, protocol.Request{Command: cmd, Device: id, Code: spec.Code, Value: value})
	if err != nil {
		return fmt.Errorf("%s %s to %s: %w", cmd, spec.Name, label, err)
	}
	reachable, err := c.interpret(reply)
	if err != nil {
		return fmt.Errorf("%s %s to %s: %w", cmd, spec.Name, label, err)
	}
	if !reachable {
		return fmt.Errorf("%s %s to %s: %w", cmd, spec.Name, label, ErrDeviceUnreachable)
	}
	return nil
}

// interpret maps the reply status byte. Device-not-responding is reported
// as unreachable rather than as an error.
func (c *Client) interpret(reply protocol.Reply) (bool, error) {
	status := reply.Status()
	switch {
	case status == protocol.StatusDeviceNotResponding:
		return false, nil
	case status.Success():
		return true, nil
	default:
		return false, gateway.NewNackError(c.gateway, status)
	}
}

func lookup(capability protocol.Capability, attr protocol.Attribute, op protocol.Command) (protocol.AttributeSpec, error) {
	spec, err := protocol.Lookup(capability, attr)
	if err != nil {
		return spec, err
	}
	if !spec.Access.Allows(op) {
		return spec, fmt.Errorf("%s %s: attribute does not support %s", capability, attr, op)
	}
	return spec, nil
}

// SetTemperature writes a thermostat setpoint in °C.
func (c *Client) SetTemperature(ctx context.Context, dev Device, celsius float64) error {
	return c.WriteValue(ctx, dev, protocol.AttrSetpoint, celsius)
}

// SetMode writes the device mode. Thermostats and lights use different
// attribute codes; the device capability selects the right one.
func (c *Client) SetMode(ctx context.Context, dev Device, mode byte) error {
	return c.Write(ctx, dev, protocol.AttrMode, protocol.EncodeByte(mode))
}

// SetAway sets the away flag on one thermostat, given its id, or on every
// device when target is "all". The latter is sent as a broadcast report
// rather than a write.
func (c *Client) SetAway(ctx context.Context, target string, away byte) error {
	value := protocol.EncodeByte(away)
	if strings.EqualFold(target, AllDevices) {
		return c.Report(ctx, protocol.Broadcast, protocol.AttrAway, value)
	}
	id, err := protocol.ParseDeviceID(target)
	if err != nil {
		return err
	}
	return c.Write(ctx, Device{ID: id, Capability: protocol.CapabilityThermostat}, protocol.AttrAway, value)
}

// SetBrightness writes a light or switch intensity in percent. LastBrightness
// is sent unchanged to restore the previous level.
func (c *Client) SetBrightness(ctx context.Context, dev Device, level byte) error {
	if level > 100 && level != LastBrightness {
		return fmt.Errorf("brightness %d out of range 0-100", level)
	}
	return c.Write(ctx, dev, protocol.AttrIntensity, protocol.EncodeByte(level))
}

// SetTimer writes the auto-off timer length in minutes; zero disables it.
func (c *Client) SetTimer(ctx context.Context, dev Device, minutes byte) error {
	return c.Write(ctx, dev, protocol.AttrTimer, protocol.EncodeByte(minutes))
}

// SetEvent writes the event flags of a light or switch.
func (c *Client) SetEvent(ctx context.Context, dev Device, trigger protocol.EventTrigger, action protocol.EventAction) error {
	value, err := protocol.EncodeEvent(trigger, action)
	if err != nil {
		return err
	}
	return c.Write(ctx, dev, protocol.AttrEvent, value)
}
