// Package poller runs the periodic work of serve mode: reading every
// configured device and broadcasting the time and weather reports.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
)

// Sink receives every new snapshot.
type Sink interface {
	Publish(sinope.Snapshot)
}

// Observer records poll and report outcomes. *metrics.Metrics implements it.
type Observer interface {
	ObserveSnapshot(sinope.Snapshot)
	ObservePoll(elapsed time.Duration, err error)
	ObserveReport(err error)
}

// Options configures a Poller.
type Options struct {
	PollInterval   time.Duration
	ReportInterval time.Duration // zero or negative disables reports
	Sinks          []Sink
	Observer       Observer
}

// Poller owns the latest snapshot of every device.
type Poller struct {
	client  *sinope.Client
	devices []sinope.Device
	opts    Options

	mu     sync.RWMutex
	latest map[protocol.DeviceID]sinope.Snapshot
}

// New creates a poller for devices.
func New(client *sinope.Client, devices []sinope.Device, opts Options) *Poller {
	return &Poller{
		client:  client,
		devices: devices,
		opts:    opts,
		latest:  make(map[protocol.DeviceID]sinope.Snapshot, len(devices)),
	}
}

// Run polls and reports immediately, then on every tick, until ctx ends.
func (p *Poller) Run(ctx context.Context) error {
	logging.Info("Poller started",
		zap.Int("devices", len(p.devices)),
		zap.Duration("poll_interval", p.opts.PollInterval),
		zap.Duration("report_interval", p.opts.ReportInterval))

	pollTick := time.NewTicker(p.opts.PollInterval)
	defer pollTick.Stop()

	var reportC <-chan time.Time
	if p.opts.ReportInterval > 0 {
		reportTick := time.NewTicker(p.opts.ReportInterval)
		defer reportTick.Stop()
		reportC = reportTick.C
		p.Report(ctx)
	}
	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Info("Poller stopped")
			return ctx.Err()
		case <-pollTick.C:
			p.Poll(ctx)
		case <-reportC:
			p.Report(ctx)
		}
	}
}

// Poll reads every device once. A failing device does not stop the cycle;
// the first error is returned after all devices have been tried.
func (p *Poller) Poll(ctx context.Context) error {
	start := time.Now()
	var firstErr error
	for _, dev := range p.devices {
		snap, err := p.client.Snapshot(ctx, dev)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logging.Warn("Device poll failed", zap.String("device", dev.String()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		p.store(snap)
	}

	if p.opts.Observer != nil {
		p.opts.Observer.ObservePoll(time.Since(start), firstErr)
	}
	logging.Debug("Poll cycle complete",
		zap.Int("devices", len(p.devices)),
		zap.Duration("elapsed", time.Since(start)))
	return firstErr
}

// Report broadcasts the periodic reports to every device.
func (p *Poller) Report(ctx context.Context) error {
	err := p.client.SendReports(ctx, protocol.Broadcast)
	if err != nil {
		logging.Warn("Report broadcast failed", zap.Error(err))
	}
	if p.opts.Observer != nil {
		p.opts.Observer.ObserveReport(err)
	}
	return err
}

func (p *Poller) store(snap sinope.Snapshot) {
	id, err := protocol.ParseDeviceID(snap.Device)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.latest[id] = snap
	p.mu.Unlock()

	if p.opts.Observer != nil {
		p.opts.Observer.ObserveSnapshot(snap)
	}
	for _, sink := range p.opts.Sinks {
		sink.Publish(snap)
	}
}

// Latest returns the newest snapshot of every polled device, in
// configuration order.
func (p *Poller) Latest() []sinope.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]sinope.Snapshot, 0, len(p.latest))
	for _, dev := range p.devices {
		if snap, ok := p.latest[dev.ID]; ok {
			out = append(out, snap)
		}
	}
	return out
}
