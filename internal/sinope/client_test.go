package sinope

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sinopehome/gt125/internal/gateway"
	"github.com/sinopehome/gt125/internal/gateway/gatewaytest"
	"github.com/sinopehome/gt125/internal/protocol"
)

// fakeExchanger records requests and answers from a script.
type fakeExchanger struct {
	reqs    []protocol.Request
	respond func(n int, req protocol.Request) (protocol.Reply, error)
}

func (f *fakeExchanger) Do(ctx context.Context, req protocol.Request) (protocol.Reply, error) {
	f.reqs = append(f.reqs, req)
	return f.respond(len(f.reqs), req)
}

func reply(t *testing.T, req protocol.Request, status protocol.Status, value []byte) protocol.Reply {
	t.Helper()
	r, err := protocol.ParseReply(protocol.ReplyFields{
		Command: req.Command.Response(),
		Status:  status,
		Device:  req.Device,
		Code:    req.Code,
		Value:   value,
	}.Encode())
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	return r
}

func statusExchanger(t *testing.T, status protocol.Status) *fakeExchanger {
	return &fakeExchanger{respond: func(_ int, req protocol.Request) (protocol.Reply, error) {
		return reply(t, req, status, nil), nil
	}}
}

func mustDevice(t *testing.T, id string, deviceType int) Device {
	t.Helper()
	d, err := NewDevice(id, "", deviceType)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	return d
}

func TestReadRoomTemperatureEndToEnd(t *testing.T) {
	g := gatewaytest.New(t, gatewaytest.WithLogin(func(req protocol.Request) gatewaytest.Response {
		return gatewaytest.Reply(gatewaytest.Data(req, []byte{0x02, 0x66, 0x08})...)
	}))
	session := gateway.NewSession(gateway.Options{Host: g.Host(), Port: g.Port(), Timeout: time.Second})
	client := NewClient(session, WithGatewayName(session.Address()))

	dev := mustDevice(t, "2e320100", protocol.TypeThermostat)
	v, ok, err := client.Read(context.Background(), dev, protocol.AttrRoomTemperature)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !ok {
		t.Fatal("Read() reported device unreachable")
	}
	if v.Float() != 21.5 {
		t.Errorf("room temperature = %v, want 21.5", v.Float())
	}

	reqs := g.Requests()
	if len(reqs) != 1 {
		t.Fatalf("gateway received %d requests, want 1", len(reqs))
	}
	frame, _ := reqs[0].Encode()
	if got, want := hex.EncodeToString(frame), "55001600400212345679000000000000002e3201000403020000c7"; got != want {
		t.Errorf("read frame = %s, want %s", got, want)
	}
}

func TestReadDeviceNotResponding(t *testing.T) {
	client := NewClient(statusExchanger(t, protocol.StatusDeviceNotResponding))
	dev := mustDevice(t, "2e320100", protocol.TypeThermostat)

	v, ok, err := client.Read(context.Background(), dev, protocol.AttrSetpoint)
	if err != nil {
		t.Fatalf("Read() error = %v, want nil", err)
	}
	if ok {
		t.Errorf("Read() = %v, want no value", v)
	}
}

func TestNackStatuses(t *testing.T) {
	tests := []struct {
		status    protocol.Status
		retryable bool
	}{
		{protocol.StatusBufferFull, true},
		{protocol.StatusRequestFailed, false},
		{protocol.StatusUnknownDevice, false},
		{protocol.StatusAbortFailed, false},
		{protocol.Status(0x42), false},
	}
	dev := mustDevice(t, "2e320100", protocol.TypeThermostat)

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			client := NewClient(statusExchanger(t, tt.status))

			_, _, err := client.Read(context.Background(), dev, protocol.AttrSetpoint)
			code, ok := gateway.NackCode(err)
			if !ok || code != tt.status {
				t.Fatalf("Read() error = %v, want NACK %v", err, tt.status)
			}
			if gateway.IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", !tt.retryable, tt.retryable)
			}

			err = client.SetTemperature(context.Background(), dev, 20)
			if code, _ := gateway.NackCode(err); code != tt.status {
				t.Errorf("SetTemperature() error = %v, want NACK %v", err, tt.status)
			}
		})
	}
}

func TestReadEventNackNamesDevice(t *testing.T) {
	client := NewClient(statusExchanger(t, protocol.StatusRequestFailed))
	dev := mustDevice(t, "0a0b0c0d", protocol.TypeLight)

	_, ok, err := client.ReadEvent(context.Background(), dev)
	if ok {
		t.Error("ReadEvent() reported flags on a NACK")
	}
	if code, isNack := gateway.NackCode(err); !isNack || code != protocol.StatusRequestFailed {
		t.Fatalf("ReadEvent() error = %v, want NACK %v", err, protocol.StatusRequestFailed)
	}
	if !strings.Contains(err.Error(), "read event flags from "+dev.String()) {
		t.Errorf("ReadEvent() error = %q, want device context", err)
	}
}

func TestWriteDeviceNotResponding(t *testing.T) {
	client := NewClient(statusExchanger(t, protocol.StatusDeviceNotResponding))
	dev := mustDevice(t, "2e320100", protocol.TypeThermostat)

	err := client.SetTemperature(context.Background(), dev, 20)
	if !errors.Is(err, ErrDeviceUnreachable) {
		t.Errorf("SetTemperature() error = %v, want ErrDeviceUnreachable", err)
	}
}

func TestTransportErrorsPropagate(t *testing.T) {
	cause := gateway.NewAuthError("gw", "gateway rejected login", nil)
	client := NewClient(&fakeExchanger{respond: func(int, protocol.Request) (protocol.Reply, error) {
		return nil, cause
	}})
	dev := mustDevice(t, "2e320100", protocol.TypeThermostat)

	if _, _, err := client.Read(context.Background(), dev, protocol.AttrSetpoint); !gateway.IsAuthError(err) {
		t.Errorf("Read() error = %v, want auth error", err)
	}
}

func TestSetAwayAll(t *testing.T) {
	g := gatewaytest.New(t, gatewaytest.WithLogin(func(req protocol.Request) gatewaytest.Response {
		return gatewaytest.Reply(gatewaytest.Ack(req, protocol.StatusReportOK))
	}))
	session := gateway.NewSession(gateway.Options{Host: g.Host(), Port: g.Port(), Timeout: time.Second})
	client := NewClient(session)

	if err := client.SetAway(context.Background(), "all", AwayAway); err != nil {
		t.Fatalf("SetAway(all) error = %v", err)
	}

	var data [][]byte
	for _, f := range g.Frames() {
		if !gatewaytest.IsLogin(f) {
			data = append(data, f)
		}
	}
	if len(data) != 1 {
		t.Fatalf("gateway received %d data frames, want 1", len(data))
	}
	want := "5500180042021234567900000000000000ffffffff06000700000102f3"
	if got := hex.EncodeToString(data[0]); got != want {
		t.Errorf("away frame = %s, want %s", got, want)
	}
}

func TestSetAwaySingleDevice(t *testing.T) {
	ex := statusExchanger(t, protocol.StatusOK)
	client := NewClient(ex)

	if err := client.SetAway(context.Background(), "2e320100", AwayHome); err != nil {
		t.Fatalf("SetAway() error = %v", err)
	}
	req := ex.reqs[0]
	if req.Command != protocol.CommandWrite || req.Device.String() != "2e320100" || req.Code != 0x00070000 {
		t.Errorf("request = %+v, want write of 00070000 to 2e320100", req)
	}
	if err := client.SetAway(context.Background(), "nope", AwayHome); err == nil {
		t.Error("SetAway() expected error for invalid id")
	}
}

func TestSetBrightness(t *testing.T) {
	dimmer := mustDevice(t, "0a0b0c0d", protocol.TypeDimmer)

	tests := []struct {
		name    string
		level   byte
		wantErr bool
	}{
		{"off", 0, false},
		{"full", 100, false},
		{"last level sentinel", LastBrightness, false},
		{"out of range", 150, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := statusExchanger(t, protocol.StatusOK)
			client := NewClient(ex)

			err := client.SetBrightness(context.Background(), dimmer, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Error("SetBrightness() expected error")
				}
				if len(ex.reqs) != 0 {
					t.Error("invalid level must not reach the gateway")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetBrightness() error = %v", err)
			}
			req := ex.reqs[0]
			if req.Code != 0x00100000 || len(req.Value) != 2 || req.Value[0] != 0x01 || req.Value[1] != tt.level {
				t.Errorf("request = %+v", req)
			}
		})
	}
}

func TestSetModeSelectsCodeByCapability(t *testing.T) {
	tests := []struct {
		name       string
		deviceType int
		wantCode   protocol.Code
	}{
		{"thermostat", protocol.TypeThermostat, 0x11020000},
		{"line thermostat", protocol.TypeThermostatLine, 0x11020000},
		{"light", protocol.TypeLight, 0x09100000},
		{"dimmer", protocol.TypeDimmer, 0x09100000},
		{"switch", protocol.TypeSwitch, 0x09100000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := statusExchanger(t, protocol.StatusOK)
			client := NewClient(ex)
			dev := mustDevice(t, "01020304", tt.deviceType)

			if err := client.SetMode(context.Background(), dev, 2); err != nil {
				t.Fatalf("SetMode() error = %v", err)
			}
			if ex.reqs[0].Code != tt.wantCode {
				t.Errorf("mode code = %s, want %s", ex.reqs[0].Code, tt.wantCode)
			}
		})
	}
}

func TestSetTimerAndEvent(t *testing.T) {
	ex := statusExchanger(t, protocol.StatusOK)
	client := NewClient(ex)
	light := mustDevice(t, "0a0b0c0d", protocol.TypeLight)

	if err := client.SetTimer(context.Background(), light, 30); err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	if err := client.SetEvent(context.Background(), light, protocol.TriggerOff, protocol.ActionTimer); err != nil {
		t.Fatalf("SetEvent() error = %v", err)
	}
	if ex.reqs[0].Code != 0x000f0000 || ex.reqs[0].Value[1] != 30 {
		t.Errorf("timer request = %+v", ex.reqs[0])
	}
	if ex.reqs[1].Code != 0x010f0000 || len(ex.reqs[1].Value) != 17 || ex.reqs[1].Value[6] != 0x01 {
		t.Errorf("event request = %x", ex.reqs[1].Value)
	}
}

func TestReadEvent(t *testing.T) {
	value, _ := protocol.EncodeEvent(protocol.TriggerDimmer, protocol.ActionEvent)
	client := NewClient(&fakeExchanger{respond: func(_ int, req protocol.Request) (protocol.Reply, error) {
		return reply(t, req, protocol.StatusOK, value), nil
	}})
	light := mustDevice(t, "0a0b0c0d", protocol.TypeLight)

	flags, ok, err := client.ReadEvent(context.Background(), light)
	if err != nil || !ok {
		t.Fatalf("ReadEvent() = %v, %v", ok, err)
	}
	if flags != (protocol.EventFlags{0, 0, 2}) {
		t.Errorf("ReadEvent() = %v", flags)
	}
}

func TestAccessChecks(t *testing.T) {
	client := NewClient(statusExchanger(t, protocol.StatusOK))
	thermostat := mustDevice(t, "2e320100", protocol.TypeThermostat)
	light := mustDevice(t, "0a0b0c0d", protocol.TypeLight)

	if err := client.WriteValue(context.Background(), thermostat, protocol.AttrRoomTemperature, 20); err == nil {
		t.Error("writing room temperature should fail")
	}
	if err := client.SetTemperature(context.Background(), light, 20); !errors.Is(err, protocol.ErrUnknownAttribute) {
		t.Errorf("SetTemperature(light) error = %v, want ErrUnknownAttribute", err)
	}
	if err := client.Report(context.Background(), protocol.Broadcast, protocol.AttrSetpoint, protocol.EncodeTemperature(20)); err == nil {
		t.Error("reporting a setpoint should fail")
	}
}

func TestNewDevice(t *testing.T) {
	if _, err := NewDevice("2e320100", "Kitchen", 99); !errors.Is(err, protocol.ErrUnknownDeviceType) {
		t.Errorf("NewDevice() error = %v, want ErrUnknownDeviceType", err)
	}
	if _, err := NewDevice("2e32", "Kitchen", 10); err == nil {
		t.Error("NewDevice() expected id error")
	}
	d, err := NewDevice("2e320100", "Kitchen", 10)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if d.String() != "Kitchen (2e320100)" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(protocol.CapabilityThermostat, "auto"); err != nil || m != ModeAuto {
		t.Errorf("ParseMode(thermostat, auto) = %d, %v", m, err)
	}
	if m, err := ParseMode(protocol.CapabilityLight, "auto"); err != nil || m != LightModeAuto {
		t.Errorf("ParseMode(light, auto) = %d, %v", m, err)
	}
	if m, err := ParseMode(protocol.CapabilitySwitch, "bypass"); err != nil || m != LightModeBypassAuto {
		t.Errorf("ParseMode(switch, bypass) = %d, %v", m, err)
	}
	if _, err := ParseMode(protocol.CapabilityLight, "freeze"); err == nil {
		t.Error("ParseMode(light, freeze) expected error")
	}
	if ThermostatModeName(3) != "auto" || LightModeName(130) != "bypass auto" {
		t.Error("mode names do not match")
	}
}
