// Package metrics exposes Prometheus collectors for gateway exchanges, poll
// cycles and the latest device readings.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sinopehome/gt125/internal/gateway"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
)

const namespace = "gt125"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics holds the application collectors.
type Metrics struct {
	Requests        *prometheus.CounterVec   // labels: command, result
	RequestDuration *prometheus.HistogramVec // labels: command
	PollCycles      *prometheus.CounterVec   // labels: result
	PollDuration    prometheus.Histogram
	Reports         *prometheus.CounterVec // labels: result
	DeviceAvailable *prometheus.GaugeVec   // labels: device, name
	DeviceValue     *prometheus.GaugeVec   // labels: device, name, attribute
	DeviceUpdated   *prometheus.GaugeVec   // labels: device, name
}

// New registers and returns the application collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Gateway requests by command and result.",
		}, []string{"command", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Gateway round-trip time, login included when not kept alive.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"command"}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles by result.",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent reading every configured device once.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		Reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cycles_total",
			Help:      "Broadcast report cycles by result.",
		}, []string{"result"}),
		DeviceAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_available",
			Help:      "1 when the device answered the last poll.",
		}, []string{"device", "name"}),
		DeviceValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_value",
			Help:      "Last polled attribute value.",
		}, []string{"device", "name", "attribute"}),
		DeviceUpdated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_last_poll_timestamp_seconds",
			Help:      "Unix time of the last poll of the device.",
		}, []string{"device", "name"}),
	}
	reg.MustRegister(m.Requests, m.RequestDuration, m.PollCycles, m.PollDuration,
		m.Reports, m.DeviceAvailable, m.DeviceValue, m.DeviceUpdated)
	return m
}

// ObserveSnapshot records the latest state of one device.
func (m *Metrics) ObserveSnapshot(s sinope.Snapshot) {
	available := 0.0
	if s.Available {
		available = 1
	}
	m.DeviceAvailable.WithLabelValues(s.Device, s.Name).Set(available)
	m.DeviceUpdated.WithLabelValues(s.Device, s.Name).Set(float64(s.UpdatedAt.Unix()))
	for attr, v := range s.Values {
		m.DeviceValue.WithLabelValues(s.Device, s.Name, attr).Set(v)
	}
}

// ObservePoll records one poll cycle.
func (m *Metrics) ObservePoll(elapsed time.Duration, err error) {
	m.PollDuration.Observe(elapsed.Seconds())
	m.PollCycles.WithLabelValues(resultLabel(err)).Inc()
}

// ObserveReport records one report broadcast.
func (m *Metrics) ObserveReport(err error) {
	m.Reports.WithLabelValues(resultLabel(err)).Inc()
}

// InstrumentExchanger counts and times every request passing through ex.
func (m *Metrics) InstrumentExchanger(ex sinope.Exchanger) sinope.Exchanger {
	return &instrumented{ex: ex, m: m}
}

type instrumented struct {
	ex sinope.Exchanger
	m  *Metrics
}

func (i *instrumented) Do(ctx context.Context, req protocol.Request) (protocol.Reply, error) {
	start := time.Now()
	reply, err := i.ex.Do(ctx, req)
	command := req.Command.String()
	i.m.RequestDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())

	result := resultLabel(err)
	if err == nil {
		switch status := reply.Status(); {
		case status == protocol.StatusDeviceNotResponding:
			result = "unreachable"
		case !status.Success():
			result = "nack"
		}
	}
	i.m.Requests.WithLabelValues(command, result).Inc()
	return reply, err
}

var kindLabels = map[gateway.Kind]string{
	gateway.KindConnect:     "connect",
	gateway.KindAuth:        "auth",
	gateway.KindChecksum:    "checksum",
	gateway.KindGatewayNack: "nack",
	gateway.KindTimeout:     "timeout",
	gateway.KindIO:          "io",
	gateway.KindProtocol:    "protocol",
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		if label, ok := kindLabels[gwErr.Kind]; ok {
			return label
		}
	}
	return "error"
}
