package protocol

import (
	"errors"
	"fmt"
	"sort"
)

// Capability groups device types that share an attribute table. A device's
// numeric type is resolved to a capability once, when it is registered.
type Capability int

const (
	CapabilityThermostat Capability = iota
	CapabilityLight
	CapabilitySwitch
	// CapabilityBroadcast covers report-only attributes sent to every device.
	CapabilityBroadcast
)

func (c Capability) String() string {
	switch c {
	case CapabilityThermostat:
		return "thermostat"
	case CapabilityLight:
		return "light"
	case CapabilitySwitch:
		return "switch"
	case CapabilityBroadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// Known device type numbers.
const (
	TypeThermostat        = 10
	TypeThermostatLine    = 20
	TypeThermostatLineLow = 21
	TypeLight             = 102
	TypeDimmer            = 112
	TypeSwitch            = 120
)

// ErrUnknownDeviceType is returned for device types outside the known set.
var ErrUnknownDeviceType = errors.New("unknown device type")

// CapabilityForType resolves a numeric device type.
func CapabilityForType(deviceType int) (Capability, error) {
	switch deviceType {
	case TypeThermostat, TypeThermostatLine, TypeThermostatLineLow:
		return CapabilityThermostat, nil
	case TypeLight, TypeDimmer:
		return CapabilityLight, nil
	case TypeSwitch:
		return CapabilitySwitch, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownDeviceType, deviceType)
}

// Attribute names a device property independently of its wire code.
type Attribute string

const (
	AttrRoomTemperature    Attribute = "room_temperature"
	AttrSetpoint           Attribute = "setpoint"
	AttrHeatLevel          Attribute = "heat_level"
	AttrMode               Attribute = "mode"
	AttrAway               Attribute = "away"
	AttrMinSetpoint        Attribute = "min_setpoint"
	AttrMaxSetpoint        Attribute = "max_setpoint"
	AttrAwaySetpoint       Attribute = "away_setpoint"
	AttrLoad               Attribute = "load"
	AttrConnectedLoad      Attribute = "connected_load"
	AttrInstantLoad        Attribute = "instant_load"
	AttrDisplayFormat      Attribute = "display_format"
	AttrTimeFormat         Attribute = "time_format"
	AttrKeypadLock         Attribute = "keypad_lock"
	AttrSecondaryDisplay   Attribute = "secondary_display"
	AttrEarlyStart         Attribute = "early_start"
	AttrIntensity          Attribute = "intensity"
	AttrTimer              Attribute = "timer"
	AttrEvent              Attribute = "event"
	AttrOutdoorTemperature Attribute = "outdoor_temperature"
	AttrTime               Attribute = "time"
	AttrDate               Attribute = "date"
	AttrSunrise            Attribute = "sunrise"
	AttrSunset             Attribute = "sunset"
)

// Access is a bit set of the operations an attribute supports.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
	AccessReport
)

// Allows reports whether a permits op.
func (a Access) Allows(op Command) bool {
	switch op {
	case CommandRead:
		return a&AccessRead != 0
	case CommandWrite:
		return a&AccessWrite != 0
	case CommandReport:
		return a&AccessReport != 0
	}
	return false
}

// AttributeSpec is one registry entry.
type AttributeSpec struct {
	Name   Attribute
	Code   Code
	Kind   Kind
	Access Access
}

const (
	rw  = AccessRead | AccessWrite
	ro  = AccessRead
	rep = AccessReport
)

var registry = map[Capability]map[Attribute]AttributeSpec{
	CapabilityThermostat: table(
		AttributeSpec{AttrRoomTemperature, 0x03020000, KindTemperature, ro},
		AttributeSpec{AttrSetpoint, 0x08020000, KindTemperature, rw},
		AttributeSpec{AttrHeatLevel, 0x20020000, KindLevel, ro},
		AttributeSpec{AttrMode, 0x11020000, KindMode, rw},
		AttributeSpec{AttrAway, 0x00070000, KindFlag, rw},
		AttributeSpec{AttrMinSetpoint, 0x0a020000, KindTemperature, rw},
		AttributeSpec{AttrMaxSetpoint, 0x0b020000, KindTemperature, rw},
		AttributeSpec{AttrAwaySetpoint, 0x0c020000, KindTemperature, rw},
		AttributeSpec{AttrLoad, 0x000d0000, KindPower, ro},
		AttributeSpec{AttrConnectedLoad, 0x000d0000, KindPower, ro},
		AttributeSpec{AttrDisplayFormat, 0x00090000, KindFlag, rw},
		AttributeSpec{AttrTimeFormat, 0x01090000, KindFlag, rw},
		AttributeSpec{AttrKeypadLock, 0x02090000, KindFlag, rw},
		AttributeSpec{AttrSecondaryDisplay, 0x30090000, KindFlag, rw},
		AttributeSpec{AttrEarlyStart, 0x60080000, KindFlag, rw},
	),
	CapabilityLight: table(
		AttributeSpec{AttrIntensity, 0x00100000, KindLevel, rw},
		AttributeSpec{AttrMode, 0x09100000, KindMode, rw},
		AttributeSpec{AttrTimer, 0x000f0000, KindTimer, rw},
		AttributeSpec{AttrEvent, 0x010f0000, KindEvent, rw},
	),
	CapabilitySwitch: table(
		AttributeSpec{AttrIntensity, 0x00100000, KindLevel, rw},
		AttributeSpec{AttrMode, 0x09100000, KindMode, rw},
		AttributeSpec{AttrConnectedLoad, 0x000d0000, KindPower, ro},
		AttributeSpec{AttrInstantLoad, 0x020d0000, KindPower, ro},
		AttributeSpec{AttrTimer, 0x000f0000, KindTimer, rw},
		AttributeSpec{AttrEvent, 0x010f0000, KindEvent, rw},
	),
	CapabilityBroadcast: table(
		AttributeSpec{AttrOutdoorTemperature, 0x04020000, KindTemperature, rep},
		AttributeSpec{AttrTime, 0x00060000, KindTime, rep},
		AttributeSpec{AttrDate, 0x01060000, KindDate, rep},
		AttributeSpec{AttrSunrise, 0x20060000, KindTime, rep},
		AttributeSpec{AttrSunset, 0x21060000, KindTime, rep},
		AttributeSpec{AttrAway, 0x00070000, KindFlag, rep},
	),
}

func table(specs ...AttributeSpec) map[Attribute]AttributeSpec {
	m := make(map[Attribute]AttributeSpec, len(specs))
	for _, s := range specs {
		m[s.Name] = s
	}
	return m
}

// ErrUnknownAttribute is returned when a capability has no such attribute.
var ErrUnknownAttribute = errors.New("unknown attribute")

// Lookup returns the registry entry for attr on devices of capability c.
func Lookup(c Capability, attr Attribute) (AttributeSpec, error) {
	spec, ok := registry[c][attr]
	if !ok {
		return AttributeSpec{}, fmt.Errorf("%w %q for %s", ErrUnknownAttribute, attr, c)
	}
	return spec, nil
}

// Attributes lists the attributes of capability c in name order.
func Attributes(c Capability) []AttributeSpec {
	specs := make([]AttributeSpec, 0, len(registry[c]))
	for _, s := range registry[c] {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
