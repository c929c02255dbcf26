package poller

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
)

// Paced spaces requests to the gateway so that background polling leaves
// room for interactive commands and does not flood the device radio.
type Paced struct {
	ex      sinope.Exchanger
	limiter *rate.Limiter
}

// NewPaced allows one request per interval through ex. A non-positive
// interval disables pacing.
func NewPaced(ex sinope.Exchanger, interval time.Duration) *Paced {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Paced{ex: ex, limiter: rate.NewLimiter(limit, 1)}
}

// Do waits for a slot, then forwards req.
func (p *Paced) Do(ctx context.Context, req protocol.Request) (protocol.Reply, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.ex.Do(ctx, req)
}
