package sinope

import (
	"context"
	"fmt"

	"github.com/nathan-osman/go-sunrise"
	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/protocol"
)

// OutdoorSource supplies the outdoor temperature shown on thermostats.
type OutdoorSource interface {
	OutdoorTemperature(ctx context.Context) (float64, error)
}

type report struct {
	attr  protocol.Attribute
	value func(ctx context.Context) ([]byte, error)
}

// SendReports pushes the time, date, sunrise, sunset and outdoor temperature
// to target, in that order, stopping at the first failure. Sun reports need
// coordinates and the outdoor report needs an OutdoorSource; each is skipped
// when its input is not configured.
func (c *Client) SendReports(ctx context.Context, target protocol.DeviceID) error {
	for _, r := range c.reports() {
		value, err := r.value(ctx)
		if err != nil {
			return fmt.Errorf("%s report: %w", r.attr, err)
		}
		if value == nil {
			continue
		}
		if err := c.Report(ctx, target, r.attr, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) reports() []report {
	now := c.now().In(c.loc)
	reports := []report{
		{protocol.AttrTime, static(protocol.EncodeTime(now))},
		{protocol.AttrDate, static(protocol.EncodeDate(now))},
	}

	if c.hasCoords {
		rise, set := sunrise.SunriseSunset(c.lat, c.lon, now.Year(), now.Month(), now.Day())
		if rise.IsZero() || set.IsZero() {
			logging.Debug("No sunrise or sunset today, skipping sun reports",
				zap.Float64("latitude", c.lat), zap.Float64("longitude", c.lon))
		} else {
			dst := now.IsDST()
			rise, set = rise.In(c.loc), set.In(c.loc)
			reports = append(reports,
				report{protocol.AttrSunrise, static(protocol.EncodeClock(rise.Hour(), rise.Minute(), rise.Second(), dst))},
				report{protocol.AttrSunset, static(protocol.EncodeClock(set.Hour(), set.Minute(), set.Second(), dst))},
			)
		}
	}

	if c.outdoor != nil {
		reports = append(reports, report{protocol.AttrOutdoorTemperature, func(ctx context.Context) ([]byte, error) {
			t, err := c.outdoor.OutdoorTemperature(ctx)
			if err != nil {
				return nil, err
			}
			return protocol.EncodeTemperature(t), nil
		}})
	}
	return reports
}

func static(b []byte) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) { return b, nil }
}
