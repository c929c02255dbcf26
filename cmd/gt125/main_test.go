package main

import (
	"context"
	"strings"
	"testing"

	"github.com/sinopehome/gt125/internal/config"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
)

func TestHintTips(t *testing.T) {
	hint := "Could not open a connection.\nTroubleshooting:\n  • Check power\n  • Verify the host\n"
	got := hintTips(hint)
	want := []string{"Could not open a connection.", "Check power", "Verify the host"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("hintTips() = %q, want %q", got, want)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"0123456789ABCDEF": "************CDEF",
		"abc":              "***",
		"":                 "",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedactedYAML(t *testing.T) {
	cfg := config.New()
	cfg.Gateway.Host = "192.168.1.20"
	cfg.Gateway.APIID = "EFCDAB8967452301"
	cfg.Gateway.APIKey = "0123456789ABCDEF"
	cfg.Serve.MQTT = &config.MQTT{Broker: "tcp://broker:1883", Password: "hunter2"}

	data, err := redactedYAML(cfg)
	if err != nil {
		t.Fatalf("redactedYAML() error = %v", err)
	}
	out := string(data)
	if strings.Contains(out, "0123456789ABCDEF") || strings.Contains(out, "hunter2") {
		t.Errorf("secret leaked:\n%s", out)
	}
	if !strings.Contains(out, "CDEF") || !strings.Contains(out, "192.168.1.20") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if cfg.Gateway.APIKey != "0123456789ABCDEF" || cfg.Serve.MQTT.Password != "hunter2" {
		t.Error("redactedYAML modified the configuration")
	}
}

func mustDevice(t *testing.T, id string, deviceType int) sinope.Device {
	t.Helper()
	d, err := sinope.NewDevice(id, "", deviceType)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	return d
}

func TestReadSpecs(t *testing.T) {
	thermostat := mustDevice(t, "2e320100", protocol.TypeThermostat)

	all, err := readSpecs(thermostat, nil)
	if err != nil {
		t.Fatalf("readSpecs() error = %v", err)
	}
	for _, s := range all {
		if !s.Access.Allows(protocol.CommandRead) {
			t.Errorf("%s is not readable", s.Name)
		}
	}
	if len(all) == 0 {
		t.Fatal("no readable attributes")
	}

	got, err := readSpecs(thermostat, []string{"Setpoint", "room_temperature"})
	if err != nil {
		t.Fatalf("readSpecs() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != protocol.AttrSetpoint || got[1].Name != protocol.AttrRoomTemperature {
		t.Errorf("readSpecs() = %v", got)
	}

	if _, err := readSpecs(thermostat, []string{"intensity"}); err == nil {
		t.Error("expected error for an attribute thermostats lack")
	}
}

func TestFormatValue(t *testing.T) {
	thermostat := mustDevice(t, "2e320100", protocol.TypeThermostat)
	light := mustDevice(t, "0a0b0c0d", protocol.TypeDimmer)

	spec := func(d sinope.Device, a protocol.Attribute) protocol.AttributeSpec {
		s, err := protocol.Lookup(d.Capability, a)
		if err != nil {
			t.Fatalf("Lookup(%s) error = %v", a, err)
		}
		return s
	}

	tests := []struct {
		name string
		dev  sinope.Device
		attr protocol.Attribute
		raw  int
		want string
	}{
		{"temperature", thermostat, protocol.AttrSetpoint, 2150, "21.50 °C"},
		{"thermostat mode", thermostat, protocol.AttrMode, 3, "auto"},
		{"away", thermostat, protocol.AttrAway, 2, "away"},
		{"home", thermostat, protocol.AttrAway, 0, "home"},
		{"intensity", light, protocol.AttrIntensity, 42, "42 %"},
		{"timer", light, protocol.AttrTimer, 30, "30 min"},
		{"load", thermostat, protocol.AttrLoad, 1500, "1500 W"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := spec(tt.dev, tt.attr)
			if got := formatValue(tt.dev, s, protocol.Value{Kind: s.Kind, Raw: tt.raw}); got != tt.want {
				t.Errorf("formatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEvent(t *testing.T) {
	got := formatEvent(protocol.EventFlags{0x00, 0x01, 0x02})
	if got != "on:none off:timer dimmer:event" {
		t.Errorf("formatEvent() = %q", got)
	}
}

func TestResolveAPIID(t *testing.T) {
	defer func() { printedID, apiIDFlag = "", "" }()

	cfg := config.New()
	cfg.Gateway.APIID = "1111111111111111"

	printedID = "0123 4567 89AB CDEF"
	id, err := resolveAPIID(cfg)
	if err != nil || id.String() != "EFCDAB8967452301" {
		t.Errorf("printed id: got %s, %v", id, err)
	}

	printedID, apiIDFlag = "", "2222222222222222"
	if id, err = resolveAPIID(cfg); err != nil || id.String() != "2222222222222222" {
		t.Errorf("api id: got %s, %v", id, err)
	}

	apiIDFlag = ""
	if id, err = resolveAPIID(cfg); err != nil || id.String() != "1111111111111111" {
		t.Errorf("config: got %s, %v", id, err)
	}

	cfg.Gateway.APIID = ""
	if _, err = resolveAPIID(cfg); err == nil {
		t.Error("expected error without any API id")
	}
}

type recordingExchanger struct {
	reqs []protocol.Request
}

func (r *recordingExchanger) Do(_ context.Context, req protocol.Request) (protocol.Reply, error) {
	r.reqs = append(r.reqs, req)
	return protocol.ParseReply(protocol.ReplyFields{
		Command: req.Command.Response(),
		Status:  protocol.StatusOK,
		Device:  req.Device,
		Code:    req.Code,
	}.Encode())
}

func TestCommandHandler(t *testing.T) {
	cfg := config.New()
	cfg.Devices = []config.DeviceEntry{{ID: "2e320100", Name: "hall", Type: protocol.TypeThermostat}}
	ex := &recordingExchanger{}
	handle := commandHandler(cfg, sinope.NewClient(ex))
	ctx := context.Background()

	if err := handle(ctx, "Hall", protocol.AttrSetpoint, "21.5"); err != nil {
		t.Fatalf("setpoint: %v", err)
	}
	if err := handle(ctx, "all", protocol.AttrAway, "on"); err != nil {
		t.Fatalf("away all: %v", err)
	}
	if err := handle(ctx, "all", protocol.AttrSetpoint, "20"); err == nil {
		t.Error("expected error for a broadcast setpoint")
	}
	if err := handle(ctx, "kitchen", protocol.AttrSetpoint, "20"); err == nil {
		t.Error("expected error for an unknown device")
	}

	if len(ex.reqs) != 2 {
		t.Fatalf("sent %d requests, want 2", len(ex.reqs))
	}
	if ex.reqs[0].Command != protocol.CommandWrite || ex.reqs[0].Code != 0x08020000 {
		t.Errorf("first request = %s %s", ex.reqs[0].Command, ex.reqs[0].Code)
	}
	if ex.reqs[1].Command != protocol.CommandReport || !ex.reqs[1].Device.IsBroadcast() {
		t.Errorf("second request = %s to %s", ex.reqs[1].Command, ex.reqs[1].Device)
	}
}
