package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sinopehome/gt125/internal/gateway"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
)

type stubExchanger struct {
	status protocol.Status
	err    error
}

func (s stubExchanger) Do(_ context.Context, req protocol.Request) (protocol.Reply, error) {
	if s.err != nil {
		return nil, s.err
	}
	return protocol.ParseReply(protocol.ReplyFields{
		Command: req.Command.Response(),
		Status:  s.status,
		Device:  req.Device,
	}.Encode())
}

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(body)
}

func TestInstrumentExchanger(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	req := protocol.Request{Command: protocol.CommandRead, Device: protocol.DeviceID{1, 2, 3, 4}, Code: 0x03020000}

	cases := []sinope.Exchanger{
		stubExchanger{status: protocol.StatusOK},
		stubExchanger{status: protocol.StatusDeviceNotResponding},
		stubExchanger{status: protocol.StatusRequestFailed},
		stubExchanger{err: gateway.NewAuthError("gw", "bad key", nil)},
		stubExchanger{err: errors.New("plain")},
	}
	for _, ex := range cases {
		_, _ = m.InstrumentExchanger(ex).Do(context.Background(), req)
	}

	body := scrape(t, reg)
	for _, want := range []string{
		`gt125_requests_total{command="read",result="ok"} 1`,
		`gt125_requests_total{command="read",result="unreachable"} 1`,
		`gt125_requests_total{command="read",result="nack"} 1`,
		`gt125_requests_total{command="read",result="auth"} 1`,
		`gt125_requests_total{command="read",result="error"} 1`,
		`gt125_request_duration_seconds_count{command="read"} 5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestObserveSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSnapshot(sinope.Snapshot{
		Device:    "2e320100",
		Name:      "Living room",
		Available: true,
		Values:    map[string]float64{"room_temperature": 21.5},
		UpdatedAt: time.Unix(1700000000, 0),
	})
	m.ObservePoll(2*time.Second, nil)
	m.ObserveReport(gateway.NewNackError("gw", protocol.StatusRequestFailed))

	body := scrape(t, reg)
	for _, want := range []string{
		`gt125_device_available{device="2e320100",name="Living room"} 1`,
		`gt125_device_value{attribute="room_temperature",device="2e320100",name="Living room"} 21.5`,
		`gt125_device_last_poll_timestamp_seconds{device="2e320100",name="Living room"} 1.7e+09`,
		`gt125_poll_cycles_total{result="ok"} 1`,
		`gt125_report_cycles_total{result="nack"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestNewRegistry(t *testing.T) {
	body := scrape(t, NewRegistry())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("Go collector not registered")
	}
}
