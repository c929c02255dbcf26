package sinope

import (
	"context"
	"time"

	"github.com/sinopehome/gt125/internal/protocol"
)

// ClimateData is the frequently polled state of a thermostat.
type ClimateData struct {
	Temperature float64 `json:"temperature"`
	Setpoint    float64 `json:"setpoint"`
	HeatLevel   int     `json:"heat_level"`
	Mode        int     `json:"mode"`
	Away        int     `json:"away"`
}

// ClimateInfo is the rarely changing configuration of a thermostat.
type ClimateInfo struct {
	MinSetpoint     float64 `json:"min_setpoint"`
	MaxSetpoint     float64 `json:"max_setpoint"`
	Wattage         int     `json:"wattage"`
	WattageOverride int     `json:"wattage_override"`
}

// LightData is the polled state of a light or dimmer.
type LightData struct {
	Intensity int `json:"intensity"`
	Mode      int `json:"mode"`
}

// LightInfo is the configuration of a light or dimmer.
type LightInfo struct {
	Timer int `json:"timer"`
}

// SwitchData is the polled state of a load controller.
type SwitchData struct {
	Intensity int `json:"intensity"`
	Mode      int `json:"mode"`
	Power     int `json:"power"` // instant load, watts
}

// SwitchInfo is the configuration of a load controller.
type SwitchInfo struct {
	Load  int `json:"load"` // connected load, watts
	Timer int `json:"timer"`
}

// pollAttributes are read for each capability on every poll.
var pollAttributes = map[protocol.Capability][]protocol.Attribute{
	protocol.CapabilityThermostat: {
		protocol.AttrRoomTemperature, protocol.AttrSetpoint, protocol.AttrHeatLevel,
		protocol.AttrMode, protocol.AttrAway,
	},
	protocol.CapabilityLight: {protocol.AttrIntensity, protocol.AttrMode},
	protocol.CapabilitySwitch: {
		protocol.AttrIntensity, protocol.AttrMode, protocol.AttrInstantLoad,
	},
}

// readAll reads attrs in order and stops at the first error or at the first
// attribute the device does not answer.
func (c *Client) readAll(ctx context.Context, dev Device, attrs ...protocol.Attribute) (map[protocol.Attribute]protocol.Value, bool, error) {
	values := make(map[protocol.Attribute]protocol.Value, len(attrs))
	for _, attr := range attrs {
		v, ok, err := c.Read(ctx, dev, attr)
		if err != nil || !ok {
			return values, false, err
		}
		values[attr] = v
	}
	return values, true, nil
}

// ClimateData reads a thermostat's state.
func (c *Client) ClimateData(ctx context.Context, dev Device) (ClimateData, bool, error) {
	v, ok, err := c.readAll(ctx, dev, pollAttributes[protocol.CapabilityThermostat]...)
	if err != nil || !ok {
		return ClimateData{}, ok, err
	}
	return ClimateData{
		Temperature: v[protocol.AttrRoomTemperature].Float(),
		Setpoint:    v[protocol.AttrSetpoint].Float(),
		HeatLevel:   v[protocol.AttrHeatLevel].Raw,
		Mode:        v[protocol.AttrMode].Raw,
		Away:        v[protocol.AttrAway].Raw,
	}, true, nil
}

// ClimateInfo reads a thermostat's configuration.
func (c *Client) ClimateInfo(ctx context.Context, dev Device) (ClimateInfo, bool, error) {
	v, ok, err := c.readAll(ctx, dev,
		protocol.AttrMinSetpoint, protocol.AttrMaxSetpoint, protocol.AttrLoad, protocol.AttrConnectedLoad)
	if err != nil || !ok {
		return ClimateInfo{}, ok, err
	}
	return ClimateInfo{
		MinSetpoint:     v[protocol.AttrMinSetpoint].Float(),
		MaxSetpoint:     v[protocol.AttrMaxSetpoint].Float(),
		Wattage:         v[protocol.AttrLoad].Raw,
		WattageOverride: v[protocol.AttrConnectedLoad].Raw,
	}, true, nil
}

// LightData reads a light's state.
func (c *Client) LightData(ctx context.Context, dev Device) (LightData, bool, error) {
	v, ok, err := c.readAll(ctx, dev, pollAttributes[protocol.CapabilityLight]...)
	if err != nil || !ok {
		return LightData{}, ok, err
	}
	return LightData{Intensity: v[protocol.AttrIntensity].Raw, Mode: v[protocol.AttrMode].Raw}, true, nil
}

// LightInfo reads a light's configuration.
func (c *Client) LightInfo(ctx context.Context, dev Device) (LightInfo, bool, error) {
	v, ok, err := c.readAll(ctx, dev, protocol.AttrTimer)
	if err != nil || !ok {
		return LightInfo{}, ok, err
	}
	return LightInfo{Timer: v[protocol.AttrTimer].Raw}, true, nil
}

// SwitchData reads a load controller's state.
func (c *Client) SwitchData(ctx context.Context, dev Device) (SwitchData, bool, error) {
	v, ok, err := c.readAll(ctx, dev, pollAttributes[protocol.CapabilitySwitch]...)
	if err != nil || !ok {
		return SwitchData{}, ok, err
	}
	return SwitchData{
		Intensity: v[protocol.AttrIntensity].Raw,
		Mode:      v[protocol.AttrMode].Raw,
		Power:     v[protocol.AttrInstantLoad].Raw,
	}, true, nil
}

// SwitchInfo reads a load controller's configuration.
func (c *Client) SwitchInfo(ctx context.Context, dev Device) (SwitchInfo, bool, error) {
	v, ok, err := c.readAll(ctx, dev, protocol.AttrConnectedLoad, protocol.AttrTimer)
	if err != nil || !ok {
		return SwitchInfo{}, ok, err
	}
	return SwitchInfo{Load: v[protocol.AttrConnectedLoad].Raw, Timer: v[protocol.AttrTimer].Raw}, true, nil
}

// Snapshot is the latest polled state of one device, keyed by attribute.
type Snapshot struct {
	Device     string             `json:"device"`
	Name       string             `json:"name,omitempty"`
	Capability string             `json:"capability"`
	Available  bool               `json:"available"`
	Values     map[string]float64 `json:"values,omitempty"`
	Error      string             `json:"error,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Snapshot reads the polled attributes of dev. The snapshot is returned even
// on error, with Error set and Available false.
func (c *Client) Snapshot(ctx context.Context, dev Device) (Snapshot, error) {
	snap := Snapshot{
		Device:     dev.ID.String(),
		Name:       dev.Name,
		Capability: dev.Capability.String(),
	}
	values, ok, err := c.readAll(ctx, dev, pollAttributes[dev.Capability]...)
	snap.UpdatedAt = c.now()
	if err != nil {
		snap.Error = err.Error()
		return snap, err
	}
	snap.Available = ok
	if ok {
		snap.Values = make(map[string]float64, len(values))
		for attr, v := range values {
			snap.Values[string(attr)] = v.Float()
		}
	}
	return snap, nil
}
