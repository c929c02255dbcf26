package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Kind selects how an attribute value is packed on the wire. Every encoded
// value starts with a size byte giving the number of value bytes after it.
type Kind int

const (
	// KindTemperature is a signed 2-byte little-endian count of 0.01 °C.
	KindTemperature Kind = iota
	// KindMode is a single unsigned mode byte.
	KindMode
	// KindLevel is a single unsigned byte: intensity percent or heat level.
	KindLevel
	// KindFlag is a single unsigned byte: away, lock, display options.
	KindFlag
	// KindTimer is a single unsigned byte holding minutes.
	KindTimer
	// KindPower is an unsigned 2-byte little-endian count of watts.
	KindPower
	// KindTime is seconds, minutes, hours; bit 7 of the hour marks DST.
	KindTime
	// KindDate is weekday (Monday is 0), day, month, two-digit year.
	KindDate
	// KindEvent is a 16-byte block holding the on/off/dimmer event triplet.
	KindEvent
)

// Size returns the number of value bytes that follow the size byte.
func (k Kind) Size() int {
	switch k {
	case KindTemperature, KindPower:
		return 2
	case KindTime:
		return 3
	case KindDate:
		return 4
	case KindEvent:
		return 16
	default:
		return 1
	}
}

// Numeric reports whether values of kind k are plain numbers.
func (k Kind) Numeric() bool {
	switch k {
	case KindTime, KindDate, KindEvent:
		return false
	}
	return true
}

func (k Kind) String() string {
	switch k {
	case KindTemperature:
		return "temperature"
	case KindMode:
		return "mode"
	case KindLevel:
		return "level"
	case KindFlag:
		return "flag"
	case KindTimer:
		return "timer"
	case KindPower:
		return "power"
	case KindTime:
		return "time"
	case KindDate:
		return "date"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a decoded numeric attribute value.
type Value struct {
	Kind Kind
	Raw  int
}

// Float returns the value in its natural unit: °C for temperatures, the raw
// count otherwise.
func (v Value) Float() float64 {
	if v.Kind == KindTemperature {
		return float64(v.Raw) / 100
	}
	return float64(v.Raw)
}

func (v Value) String() string {
	if v.Kind == KindTemperature {
		return fmt.Sprintf("%.2f", v.Float())
	}
	return fmt.Sprintf("%d", v.Raw)
}

// EncodeValue packs a numeric value of kind k with its size byte.
// Temperatures are multiplied by 100 and truncated toward zero. Values are
// not range checked: one-byte kinds keep the low byte, so 101 (the "last
// brightness" sentinel) is sent unchanged.
func EncodeValue(k Kind, v float64) ([]byte, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("cannot encode %v as %s", v, k)
	}
	switch k {
	case KindTemperature:
		return EncodeTemperature(v), nil
	case KindPower:
		return encodeUint16(uint16(int64(v))), nil
	case KindMode, KindLevel, KindFlag, KindTimer:
		return EncodeByte(byte(int64(v))), nil
	default:
		return nil, fmt.Errorf("%s values are not numeric", k)
	}
}

// EncodeTemperature packs celsius as hundredths of a degree, truncated
// toward zero. Values without an exact binary form may land one hundredth
// low: 19.99 is sent as 1998.
func EncodeTemperature(celsius float64) []byte {
	return encodeUint16(uint16(int16(math.Trunc(celsius * 100))))
}

// EncodeByte packs a one-byte value.
func EncodeByte(v byte) []byte {
	return []byte{0x01, v}
}

func encodeUint16(v uint16) []byte {
	out := []byte{0x02, 0, 0}
	binary.LittleEndian.PutUint16(out[1:], v)
	return out
}

// EncodeClock packs a time of day. When dst is set the hour byte carries
// 0x80 on top of the hour.
func EncodeClock(hour, minute, second int, dst bool) []byte {
	h := byte(hour)
	if dst {
		h += 0x80
	}
	return []byte{0x03, byte(second), byte(minute), h}
}

// EncodeTime packs the time of day of t, marking DST when t is in it.
func EncodeTime(t time.Time) []byte {
	return EncodeClock(t.Hour(), t.Minute(), t.Second(), t.IsDST())
}

// EncodeDate packs the calendar date of t. Weekdays count from Monday.
func EncodeDate(t time.Time) []byte {
	weekday := (int(t.Weekday()) + 6) % 7
	return []byte{0x04, byte(weekday), byte(t.Day()), byte(t.Month()), byte(t.Year() % 100)}
}

// EventTrigger selects which transition an event flag applies to.
type EventTrigger int

const (
	TriggerOn EventTrigger = iota
	TriggerOff
	TriggerDimmer
)

// EventAction is what the device does on the trigger.
type EventAction int

const (
	ActionNone EventAction = iota
	ActionEvent
	ActionTimer
)

// EncodeEvent packs the 16-byte event flags block. The on, off and dimmer
// triplet sits at value bytes 4..6; every other byte is zero.
func EncodeEvent(trigger EventTrigger, action EventAction) ([]byte, error) {
	if trigger < TriggerOn || trigger > TriggerDimmer {
		return nil, fmt.Errorf("unknown event trigger %d", trigger)
	}
	var flag byte
	switch action {
	case ActionNone:
	case ActionEvent:
		flag = 0x02
	case ActionTimer:
		flag = 0x01
	default:
		return nil, fmt.Errorf("unknown event action %d", action)
	}
	out := make([]byte, 1+KindEvent.Size())
	out[0] = byte(KindEvent.Size())
	out[5+int(trigger)] = flag
	return out, nil
}

// EventFlags is the decoded on/off/dimmer triplet.
type EventFlags [3]byte

// DecodeValue extracts a numeric value of kind k from a data reply. It
// returns ok == false without error when the device did not respond.
func DecodeValue(k Kind, r Reply) (Value, bool, error) {
	if r.Status() == StatusDeviceNotResponding {
		return Value{}, false, nil
	}
	if !k.Numeric() {
		return Value{}, false, fmt.Errorf("%s values are not numeric", k)
	}
	b, err := r.Value(k.Size())
	if err != nil {
		return Value{}, false, err
	}
	v := Value{Kind: k}
	switch k {
	case KindTemperature:
		v.Raw = int(int16(binary.LittleEndian.Uint16(b)))
	case KindPower:
		v.Raw = int(binary.LittleEndian.Uint16(b))
	default:
		v.Raw = int(b[0])
	}
	return v, true, nil
}

// DecodeEvent extracts the event triplet from a data reply.
func DecodeEvent(r Reply) (EventFlags, bool, error) {
	var f EventFlags
	if r.Status() == StatusDeviceNotResponding {
		return f, false, nil
	}
	b, err := r.bytesAt(EventFlagsOffset, 3)
	if err != nil {
		return f, false, err
	}
	copy(f[:], b)
	return f, true, nil
}

// DecodeClock reverses EncodeClock given the value bytes of a time reply.
func DecodeClock(b []byte) (hour, minute, second int, dst bool, err error) {
	if len(b) != 3 {
		return 0, 0, 0, false, fmt.Errorf("time value must be 3 bytes, got %d", len(b))
	}
	h := b[2]
	if h&0x80 != 0 {
		dst = true
		h &^= 0x80
	}
	return int(h), int(b[1]), int(b[0]), dst, nil
}
