// Package protocol implements the GT125 gateway binary protocol.
//
// This package builds and parses the frames exchanged with a Sinopé GT125
// gateway over TCP. It is stateless: sessions, sockets and retries live in
// the gateway package.
//
// # Frame Format
//
// Every frame, in both directions, has this shape:
//   - Preamble: 0x55 0x00
//   - Length: 2 bytes, little-endian, counting the command through the payload
//   - Body: command, sequence and addressing fields
//   - CRC-8: 1 byte (polynomial 0x07, zero init) over all preceding bytes
//
// A frame is valid when the CRC-8 of the whole frame, CRC byte included, is
// zero.
//
// # Data Requests
//
// Reads (40 02), reports (42 02) and writes (44 02) share one layout:
// sequence, a zero type byte, six reserved bytes, the device id, then an
// application payload made of a 4-byte attribute code and, for writes and
// reports, a size-prefixed value. Reports addressed to FF FF FF FF reach every
// device linked to the gateway.
//
// # Replies
//
// The gateway acknowledges each request. The status byte at offset 10 tells
// whether the request succeeded; when it is 0x00 and the more flag at offset
// 12 is set, a data frame follows carrying the value at offset 23.
//
// # Values
//
// Temperatures are signed hundredths of a degree (little-endian), power loads
// are unsigned watts, and modes, levels and flags are single bytes. Times and
// dates are packed one field per byte. See EncodeValue and DecodeValue.
//
// # Usage Example
//
//	spec, _ := protocol.Lookup(protocol.CapabilityThermostat, protocol.AttrSetpoint)
//	value, _ := protocol.EncodeValue(spec.Kind, 21.5)
//	frame, err := protocol.Request{
//	    Command:  protocol.CommandWrite,
//	    Sequence: 12345679,
//	    Device:   device,
//	    Code:     spec.Code,
//	    Value:    value,
//	}.Encode()
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use. The attribute
// registry is never mutated after initialization.
package protocol
