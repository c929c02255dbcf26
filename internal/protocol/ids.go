package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// DeviceID is a 4-byte device address in wire order, as printed in hex by
// the gateway (for example 2e320100).
type DeviceID [4]byte

// Broadcast addresses every device linked to the gateway.
var Broadcast = DeviceID{0xff, 0xff, 0xff, 0xff}

// ParseDeviceID parses 8 hex digits in wire order.
func ParseDeviceID(s string) (DeviceID, error) {
	var id DeviceID
	if err := decodeFixedHex(s, id[:]); err != nil {
		return id, fmt.Errorf("invalid device id %q: %w", s, err)
	}
	return id, nil
}

// String returns the lowercase hex form of the id.
func (d DeviceID) String() string { return hex.EncodeToString(d[:]) }

// IsBroadcast reports whether d addresses all devices.
func (d DeviceID) IsBroadcast() bool { return d == Broadcast }

// Code is a 4-byte attribute code. Code(0x03020000) is sent as 03 02 00 00.
type Code uint32

// ParseCode parses 8 hex digits in wire order.
func ParseCode(s string) (Code, error) {
	var b [4]byte
	if err := decodeFixedHex(s, b[:]); err != nil {
		return 0, fmt.Errorf("invalid attribute code %q: %w", s, err)
	}
	return Code(binary.BigEndian.Uint32(b[:])), nil
}

// Bytes returns the code in wire order.
func (c Code) Bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(c))
	return b
}

func (c Code) String() string { return fmt.Sprintf("%08x", uint32(c)) }

// Credential is an 8-byte gateway API id or API key in wire order.
type Credential [8]byte

// ParseCredential parses 16 hex digits in wire order.
func ParseCredential(s string) (Credential, error) {
	var c Credential
	if err := decodeFixedHex(s, c[:]); err != nil {
		return c, fmt.Errorf("invalid credential: %w", err)
	}
	return c, nil
}

// String returns the uppercase hex form used in configuration files.
func (c Credential) String() string { return strings.ToUpper(hex.EncodeToString(c[:])) }

// IsZero reports whether the credential is unset.
func (c Credential) IsZero() bool { return c == Credential{} }

// PrintedIDToAPIID converts the id printed on the gateway label into the
// API id sent on the wire, which is the same 8 bytes in reverse order.
// Spaces and dashes in the printed form are ignored.
func PrintedIDToAPIID(printed string) (Credential, error) {
	clean := strings.NewReplacer(" ", "", "-", "", ":", "").Replace(printed)
	var c Credential
	if err := decodeFixedHex(clean, c[:]); err != nil {
		return c, fmt.Errorf("invalid printed gateway id %q: %w", printed, err)
	}
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
	return c, nil
}

func decodeFixedHex(s string, dst []byte) error {
	if len(s) != 2*len(dst) {
		return fmt.Errorf("want %d hex digits, got %d", 2*len(dst), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
