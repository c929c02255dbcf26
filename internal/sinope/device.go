package sinope

import (
	"fmt"

	"github.com/sinopehome/gt125/internal/protocol"
)

// Device is a device linked to the gateway. Its capability is resolved from
// the numeric type once, when the Device is created.
type Device struct {
	ID         protocol.DeviceID
	Name       string
	Type       int
	Capability protocol.Capability
}

// NewDevice parses id and resolves deviceType.
func NewDevice(id, name string, deviceType int) (Device, error) {
	devID, err := protocol.ParseDeviceID(id)
	if err != nil {
		return Device{}, err
	}
	capability, err := protocol.CapabilityForType(deviceType)
	if err != nil {
		return Device{}, fmt.Errorf("device %s: %w", id, err)
	}
	return Device{ID: devID, Name: name, Type: deviceType, Capability: capability}, nil
}

func (d Device) String() string {
	if d.Name != "" {
		return fmt.Sprintf("%s (%s)", d.Name, d.ID)
	}
	return d.ID.String()
}

// Thermostat modes.
const (
	ModeOff    byte = 0
	ModeFreeze byte = 1
	ModeManual byte = 2
	ModeAuto   byte = 3
	ModeAway   byte = 5
)

// Light and switch modes.
const (
	LightModeManual     byte = 1
	LightModeAuto       byte = 2
	LightModeRandom     byte = 3
	LightModeBypassAuto byte = 130
)

// Away flag values.
const (
	AwayHome byte = 0
	AwayAway byte = 2
)

// LastBrightness asks a light to return to its previous brightness.
const LastBrightness byte = 101

// ThermostatModeName returns the name of a thermostat mode.
func ThermostatModeName(mode int) string {
	switch byte(mode) {
	case ModeOff:
		return "off"
	case ModeFreeze:
		return "freeze"
	case ModeManual:
		return "manual"
	case ModeAuto:
		return "auto"
	case ModeAway:
		return "away"
	}
	return fmt.Sprintf("mode %d", mode)
}

// LightModeName returns the name of a light or switch mode.
func LightModeName(mode int) string {
	switch byte(mode) {
	case LightModeManual:
		return "manual"
	case LightModeAuto:
		return "auto"
	case LightModeRandom:
		return "random"
	case LightModeBypassAuto:
		return "bypass auto"
	}
	return fmt.Sprintf("mode %d", mode)
}

// ParseMode resolves a mode name for devices of capability c.
func ParseMode(c protocol.Capability, name string) (byte, error) {
	modes := map[string]byte{
		"off": ModeOff, "freeze": ModeFreeze, "manual": ModeManual, "auto": ModeAuto, "away": ModeAway,
	}
	if c != protocol.CapabilityThermostat {
		modes = map[string]byte{
			"manual": LightModeManual, "auto": LightModeAuto, "random": LightModeRandom,
			"away": LightModeRandom, "bypass": LightModeBypassAuto,
		}
	}
	mode, ok := modes[name]
	if !ok {
		return 0, fmt.Errorf("unknown %s mode %q", c, name)
	}
	return mode, nil
}
