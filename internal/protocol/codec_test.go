package protocol

import (
	"bytes"
	"testing"
	"time"
)

func replyWithValue(t *testing.T, status Status, value []byte) Reply {
	t.Helper()
	r, err := ParseReply(ReplyFields{
		Command: CommandRead.Response(),
		Status:  status,
		Device:  DeviceID{0x2e, 0x32, 0x01, 0x00},
		Code:    0x03020000,
		Value:   value,
	}.Encode())
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	return r
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		v    float64
		want []byte
	}{
		{"temperature 21.5", KindTemperature, 21.5, []byte{0x02, 0x66, 0x08}},
		{"temperature truncates", KindTemperature, 21.519, []byte{0x02, 0x67, 0x08}},
		{"temperature 22.3", KindTemperature, 22.3, []byte{0x02, 0xb6, 0x08}},
		{"temperature 19.99 truncates below", KindTemperature, 19.99, []byte{0x02, 0xce, 0x07}},
		{"temperature 0.29 truncates below", KindTemperature, 0.29, []byte{0x02, 0x1c, 0x00}},
		{"negative temperature", KindTemperature, -5.25, []byte{0x02, 0xf3, 0xfd}},
		{"mode auto", KindMode, 3, []byte{0x01, 0x03}},
		{"brightness sentinel", KindLevel, 101, []byte{0x01, 0x65}},
		{"away", KindFlag, 2, []byte{0x01, 0x02}},
		{"timer", KindTimer, 30, []byte{0x01, 0x1e}},
		{"power", KindPower, 1500, []byte{0x02, 0xdc, 0x05}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.kind, tt.v)
			if err != nil {
				t.Fatalf("EncodeValue() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeValue(%s, %v) = %x, want %x", tt.kind, tt.v, got, tt.want)
			}
		})
	}
}

func TestEncodeValueErrors(t *testing.T) {
	for _, k := range []Kind{KindTime, KindDate, KindEvent} {
		if _, err := EncodeValue(k, 1); err == nil {
			t.Errorf("EncodeValue(%s) expected error", k)
		}
	}
	if _, err := EncodeValue(KindTemperature, nanValue()); err == nil {
		t.Error("EncodeValue(NaN) expected error")
	}
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		kind Kind
		v    float64
	}{
		{KindTemperature, 21.5},
		{KindTemperature, 5},
		{KindTemperature, 30.25},
		{KindTemperature, -12.75},
		{KindMode, 130},
		{KindLevel, 0},
		{KindLevel, 100},
		{KindFlag, 2},
		{KindTimer, 255},
		{KindPower, 0},
		{KindPower, 4000},
	}
	for _, tt := range tests {
		encoded, err := EncodeValue(tt.kind, tt.v)
		if err != nil {
			t.Fatalf("EncodeValue(%s, %v) error = %v", tt.kind, tt.v, err)
		}
		got, ok, err := DecodeValue(tt.kind, replyWithValue(t, StatusOK, encoded))
		if err != nil || !ok {
			t.Fatalf("DecodeValue(%s) = %v, %v, %v", tt.kind, got, ok, err)
		}
		if diff := got.Float() - tt.v; diff > 0.005 || diff < -0.005 {
			t.Errorf("round trip %s %v = %v", tt.kind, tt.v, got.Float())
		}
	}
}

func TestDecodeValueNotResponding(t *testing.T) {
	r := replyWithValue(t, StatusDeviceNotResponding, nil)
	v, ok, err := DecodeValue(KindTemperature, r)
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if ok {
		t.Errorf("DecodeValue() = %v, want no value", v)
	}
}

func TestDecodeValueShortReply(t *testing.T) {
	r := replyWithValue(t, StatusOK, []byte{0x01, 0x05})
	if _, _, err := DecodeValue(KindTemperature, r); err == nil {
		t.Error("DecodeValue() expected error for missing high byte")
	}
	v, ok, err := DecodeValue(KindMode, r)
	if err != nil || !ok || v.Raw != 5 {
		t.Errorf("DecodeValue(mode) = %v, %v, %v", v, ok, err)
	}
}

func TestEncodeTimeAndDate(t *testing.T) {
	// 2024-03-04 was a Monday.
	winter := time.Date(2024, time.March, 4, 7, 8, 9, 0, time.UTC)
	if got := EncodeTime(winter); !bytes.Equal(got, []byte{0x03, 9, 8, 7}) {
		t.Errorf("EncodeTime() = %x", got)
	}
	if got := EncodeDate(winter); !bytes.Equal(got, []byte{0x04, 0, 4, 3, 24}) {
		t.Errorf("EncodeDate() = %x", got)
	}
	sunday := time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
	if got := EncodeDate(sunday); !bytes.Equal(got, []byte{0x04, 6, 31, 12, 23}) {
		t.Errorf("EncodeDate(sunday) = %x", got)
	}

	clock := EncodeClock(18, 30, 0, true)
	if !bytes.Equal(clock, []byte{0x03, 0, 30, 18 + 0x80}) {
		t.Errorf("EncodeClock() = %x", clock)
	}
	h, m, s, dst, err := DecodeClock(clock[1:])
	if err != nil || h != 18 || m != 30 || s != 0 || !dst {
		t.Errorf("DecodeClock() = %d %d %d %v %v", h, m, s, dst, err)
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	summer := time.Date(2024, time.July, 1, 12, 0, 0, 0, ny)
	if got := EncodeTime(summer); got[3] != 12+0x80 {
		t.Errorf("EncodeTime(summer) hour byte = 0x%02x, want DST bit set", got[3])
	}
}

func TestEncodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		trigger EventTrigger
		action  EventAction
		triplet []byte
	}{
		{"on event", TriggerOn, ActionEvent, []byte{2, 0, 0}},
		{"off event", TriggerOff, ActionEvent, []byte{0, 2, 0}},
		{"dimmer event", TriggerDimmer, ActionEvent, []byte{0, 0, 2}},
		{"on timer", TriggerOn, ActionTimer, []byte{1, 0, 0}},
		{"off timer", TriggerOff, ActionTimer, []byte{0, 1, 0}},
		{"dimmer timer", TriggerDimmer, ActionTimer, []byte{0, 0, 1}},
		{"none", TriggerOff, ActionNone, []byte{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeEvent(tt.trigger, tt.action)
			if err != nil {
				t.Fatalf("EncodeEvent() error = %v", err)
			}
			want := make([]byte, 17)
			want[0] = 0x10
			copy(want[5:], tt.triplet)
			if !bytes.Equal(got, want) {
				t.Errorf("EncodeEvent() = %x, want %x", got, want)
			}

			flags, ok, err := DecodeEvent(replyWithValue(t, StatusOK, got))
			if err != nil || !ok {
				t.Fatalf("DecodeEvent() = %v, %v", ok, err)
			}
			if !bytes.Equal(flags[:], tt.triplet) {
				t.Errorf("DecodeEvent() = %x, want %x", flags, tt.triplet)
			}
		})
	}

	if _, err := EncodeEvent(EventTrigger(9), ActionEvent); err == nil {
		t.Error("EncodeEvent() expected error for unknown trigger")
	}
	if _, err := EncodeEvent(TriggerOn, EventAction(9)); err == nil {
		t.Error("EncodeEvent() expected error for unknown action")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status    Status
		success   bool
		retryable bool
	}{
		{StatusOK, true, false},
		{StatusReportOK, true, false},
		{StatusDataOK, true, false},
		{StatusBufferFull, false, true},
		{StatusRequestFailed, false, false},
		{StatusUnknownDevice, false, false},
		{StatusAbortFailed, false, false},
		{StatusDeviceNotResponding, false, false},
	}
	for _, tt := range tests {
		if tt.status.Success() != tt.success {
			t.Errorf("%v.Success() = %v", tt.status, !tt.success)
		}
		if tt.status.Retryable() != tt.retryable {
			t.Errorf("%v.Retryable() = %v", tt.status, !tt.retryable)
		}
	}
	if Status(0x42).String() != "status 0x42" {
		t.Errorf("unknown status string = %q", Status(0x42).String())
	}
}
