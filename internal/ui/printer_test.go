package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRenderSuccessKeepsDetailOrder(t *testing.T) {
	out := RenderSuccess("Temperature set", []Detail{
		D("Device", "hall"),
		D("Setpoint", "21.5 °C"),
		D("Mode", "manual"),
	}, 80)

	if !strings.Contains(out, "Temperature set") {
		t.Fatalf("missing title in %q", out)
	}
	device := strings.Index(out, "Device")
	setpoint := strings.Index(out, "Setpoint")
	mode := strings.Index(out, "Mode")
	if device < 0 || setpoint < device || mode < setpoint {
		t.Errorf("details out of order:\n%s", out)
	}
}

func TestRenderFailureIncludesTips(t *testing.T) {
	out := RenderFailure("Read failed", errors.New("connection refused"),
		[]string{"Check the gateway is powered"}, 80)

	for _, want := range []string{"Read failed", "connection refused", "Troubleshooting", "Check the gateway is powered"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFailureWithoutError(t *testing.T) {
	out := RenderFailure("Nothing found", nil, nil, 80)
	if strings.Contains(out, "Error:") {
		t.Errorf("unexpected error line:\n%s", out)
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := RenderTable([]string{"ID", "NAME"}, [][]string{
		{"1", "hall"},
		{"1234", "kitchen"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if got := strings.Index(lines[2], "kitchen"); got != strings.Index(lines[1], "hall") {
		t.Errorf("column not aligned:\n%s", out)
	}
}

func TestPrinterHeader(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Header("read", "gt125 read hall", D("Gateway", "192.168.1.20:4550"))

	out := buf.String()
	for _, want := range []string{"READ", "gt125 read hall", "Gateway", "192.168.1.20:4550"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q:\n%s", want, out)
		}
	}
}
