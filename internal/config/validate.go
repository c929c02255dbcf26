package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sinopehome/gt125/internal/gateway"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
)

// ErrUnknownDevice is returned when a device is not in the configuration.
var ErrUnknownDevice = errors.New("device not configured")

// Validate checks every field that would otherwise fail later at use. An
// empty api_key is allowed since it can be prompted.
func (c *Config) Validate() error {
	var errs []error
	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version %d (expected %d)", c.Version, CurrentVersion))
	}

	if c.Gateway.Host == "" {
		errs = append(errs, errors.New("gateway.host is required"))
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port %d out of range", c.Gateway.Port))
	}
	if _, err := protocol.ParseCredential(c.Gateway.APIID); err != nil {
		errs = append(errs, fmt.Errorf("gateway.api_id: %w", err))
	}
	if c.Gateway.APIKey != "" {
		if _, err := protocol.ParseCredential(c.Gateway.APIKey); err != nil {
			errs = append(errs, fmt.Errorf("gateway.api_key: %w", err))
		}
	}
	if c.Gateway.Timeout < 0 {
		errs = append(errs, errors.New("gateway.timeout must not be negative"))
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if _, err := sinope.NewDevice(d.ID, d.Name, d.Type); err != nil {
			errs = append(errs, fmt.Errorf("devices[%d]: %w", i, err))
			continue
		}
		id := strings.ToLower(d.ID)
		if seen[id] {
			errs = append(errs, fmt.Errorf("devices[%d]: duplicate id %s", i, d.ID))
		}
		seen[id] = true
	}

	if _, err := c.TimeLocation(); err != nil {
		errs = append(errs, err)
	}
	if l := c.Location; (l.Latitude == nil) != (l.Longitude == nil) {
		errs = append(errs, errors.New("location needs both latitude and longitude"))
	} else if l.HasCoordinates() {
		if *l.Latitude < -90 || *l.Latitude > 90 || *l.Longitude < -180 || *l.Longitude > 180 {
			errs = append(errs, fmt.Errorf("location %.4f,%.4f out of range", *l.Latitude, *l.Longitude))
		}
	}

	switch c.Serve.Outdoor.Provider {
	case "", OutdoorNone:
	case OutdoorOpenMeteo:
		if !c.Location.HasCoordinates() {
			errs = append(errs, errors.New("serve.outdoor open-meteo needs location coordinates"))
		}
	default:
		errs = append(errs, fmt.Errorf("serve.outdoor: unknown provider %q", c.Serve.Outdoor.Provider))
	}
	if c.Serve.MQTT != nil && c.Serve.MQTT.Broker == "" {
		errs = append(errs, errors.New("serve.mqtt.broker is required"))
	}
	for name, d := range map[string]time.Duration{
		"poll_interval":    c.Serve.PollInterval,
		"request_interval": c.Serve.RequestInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("serve.%s must not be negative", name))
		}
	}

	return errors.Join(errs...)
}

// GatewayOptions converts the gateway section to session options. The API
// key must be set by then.
func (c *Config) GatewayOptions() (gateway.Options, error) {
	id, err := protocol.ParseCredential(c.Gateway.APIID)
	if err != nil {
		return gateway.Options{}, fmt.Errorf("gateway.api_id: %w", err)
	}
	if c.Gateway.APIKey == "" {
		return gateway.Options{}, errors.New("gateway.api_key is not set; run 'gt125 key' first")
	}
	key, err := protocol.ParseCredential(c.Gateway.APIKey)
	if err != nil {
		return gateway.Options{}, fmt.Errorf("gateway.api_key: %w", err)
	}
	return gateway.Options{
		Host:      c.Gateway.Host,
		Port:      c.Gateway.Port,
		APIID:     id,
		APIKey:    key,
		Timeout:   c.Gateway.Timeout,
		KeepAlive: c.Gateway.KeepAlive,
	}, nil
}

// DeviceList resolves every configured device.
func (c *Config) DeviceList() ([]sinope.Device, error) {
	devices := make([]sinope.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		dev, err := sinope.NewDevice(d.ID, d.Name, d.Type)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// Device finds a configured device by id or, case-insensitively, by name.
func (c *Config) Device(ref string) (sinope.Device, error) {
	for _, d := range c.Devices {
		if strings.EqualFold(d.ID, ref) || (d.Name != "" && strings.EqualFold(d.Name, ref)) {
			return sinope.NewDevice(d.ID, d.Name, d.Type)
		}
	}
	return sinope.Device{}, fmt.Errorf("%w: %s", ErrUnknownDevice, ref)
}

// TimeLocation returns the configured time zone, or the local one.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location.Timezone)
	if err != nil {
		return nil, fmt.Errorf("location.timezone: %w", err)
	}
	return loc, nil
}
