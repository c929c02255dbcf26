package protocol

import (
	"encoding/binary"
	"fmt"
)

// Reply is a validated frame received from the gateway. Accessors read the
// fixed offsets documented on the Reply* constants.
type Reply []byte

// ParseReply validates frame and returns it as a Reply. Frames shorter than
// the common reply header are rejected so the status, more flag and device
// accessors never index out of range.
func ParseReply(frame []byte) (Reply, error) {
	if err := CheckFrame(frame); err != nil {
		return nil, err
	}
	if len(frame) < ReplyHeaderSize {
		return nil, fmt.Errorf("reply of %d bytes: %w", len(frame), ErrShortFrame)
	}
	return Reply(frame), nil
}

// Command returns the response command code.
func (r Reply) Command() Command {
	return Command(binary.BigEndian.Uint16(r[ReplyCommandOffset:]))
}

// Sequence returns the echoed sequence number.
func (r Reply) Sequence() (uint32, error) {
	return DecodeSequence(r[ReplySequenceOffset : ReplySequenceOffset+4])
}

// Status returns the gateway status byte.
func (r Reply) Status() Status { return Status(r[ReplyStatusOffset]) }

// More reports whether a data frame follows this acknowledgement.
func (r Reply) More() bool { return r[ReplyMoreOffset] == 0x01 }

// Device returns the device the reply concerns.
func (r Reply) Device() DeviceID {
	var id DeviceID
	copy(id[:], r[ReplyDeviceOffset:ReplyDeviceOffset+4])
	return id
}

// Code returns the attribute code of a data reply.
func (r Reply) Code() (Code, error) {
	if len(r) < ReplyCodeOffset+4+CRCSize {
		return 0, fmt.Errorf("reply carries no attribute code: %w", ErrShortFrame)
	}
	return Code(binary.BigEndian.Uint32(r[ReplyCodeOffset:])), nil
}

// Value returns n value bytes starting right after the size byte.
func (r Reply) Value(n int) ([]byte, error) {
	return r.bytesAt(ReplyValueOffset+1, n)
}

func (r Reply) bytesAt(off, n int) ([]byte, error) {
	if off+n > len(r)-CRCSize {
		return nil, fmt.Errorf("reply of %d bytes has no data at offset %d: %w", len(r), off+n-1, ErrShortFrame)
	}
	return r[off : off+n], nil
}

// LinkedDevice returns the device id carried by an unsolicited link report.
func (r Reply) LinkedDevice() (DeviceID, error) {
	var id DeviceID
	b, err := r.bytesAt(LinkDeviceOffset, 4)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// APIKey returns the key carried by a key request reply.
func (r Reply) APIKey() (Credential, error) {
	var c Credential
	b, err := r.bytesAt(KeyOffset, len(c))
	if err != nil {
		return c, err
	}
	copy(c[:], b)
	return c, nil
}

// ReplyFields describes a reply frame. It is used to build replies for
// fake gateways and tests.
type ReplyFields struct {
	Command  Command
	Sequence uint32
	Status   Status
	More     bool
	Device   DeviceID
	Code     Code
	// Value is the size-prefixed value. When nil the reply ends after the
	// device id, as acknowledgements do.
	Value []byte
}

// Encode serializes f into a frame with its CRC.
func (f ReplyFields) Encode() []byte {
	frame := make([]byte, HeaderSize, 64)
	frame[0], frame[1] = preamble0, preamble1
	frame = binary.BigEndian.AppendUint16(frame, uint16(f.Command))
	seq := EncodeSequence(f.Sequence)
	frame = append(frame, seq[:]...)
	frame = append(frame, byte(f.Status), 0x00)
	if f.More {
		frame = append(frame, 0x01)
	} else {
		frame = append(frame, 0x00)
	}
	frame = append(frame, f.Device[:]...)
	if f.Value != nil {
		frame = append(frame, byte(4+len(f.Value)))
		code := f.Code.Bytes()
		frame = append(frame, code[:]...)
		frame = append(frame, f.Value...)
	}
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(frame)-HeaderSize))
	return AppendChecksum(frame)
}
