package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// Frame layout constants.
//
// Every frame in both directions starts with the same 4-byte header:
//
//	[0-1]  0x55 0x00   Preamble
//	[2-3]  length      Byte count from the command through the payload
//	                   (little-endian uint16, excludes header and CRC)
//	[4..]  body
//	[N]    crc         CRC-8 over every preceding byte
const (
	HeaderSize   = 4
	CRCSize      = 1
	MaxFrameSize = 1024

	preamble0 = 0x55
	preamble1 = 0x00
)

// Data request layout (read, write and report):
//
//	[4-5]   command
//	[6-9]   sequence     Packed decimal, see EncodeSequence
//	[10]    0x00         Frame type
//	[11-16] 0x00...      Reserved
//	[17-20] device id
//	[21]    app size     Length of attribute code plus value
//	[22-25] attribute code
//	[26..]  value        Size-prefixed, writes and reports only
const (
	requestFixedSize = 18 // command through app size
	reservedSize     = 6
)

// Reply layout offsets. The gateway answers a data request with an
// acknowledgement; when its status is ok and the more flag is set a second
// frame carrying the value follows with the same layout.
const (
	ReplyCommandOffset  = 4
	ReplySequenceOffset = 6
	ReplyStatusOffset   = 10
	ReplyMoreOffset     = 12
	ReplyDeviceOffset   = 13
	ReplyAppSizeOffset  = 17
	ReplyCodeOffset     = 18
	ReplyValueOffset    = 22 // size byte; value bytes start at 23
	ReplyHeaderSize     = 17

	// EventFlagsOffset locates the on/off/dimmer triplet in an event reply.
	EventFlagsOffset = 27

	// LinkDeviceOffset locates the device id in an unsolicited link report.
	LinkDeviceOffset = 7

	// KeyOffset locates the API key in a key request reply.
	KeyOffset = 9
)

var (
	ErrShortFrame  = errors.New("frame too short")
	ErrBadPreamble = errors.New("frame does not start with 55 00")
	ErrBadLength   = errors.New("frame length field does not match frame size")
)

// Command identifies a data request. Command(0x4002) is sent as 40 02.
type Command uint16

const (
	CommandRead   Command = 0x4002
	CommandReport Command = 0x4202
	CommandWrite  Command = 0x4402
)

// Response returns the command code the gateway uses when answering c.
func (c Command) Response() Command { return c + 0x0100 }

func (c Command) String() string {
	switch c {
	case CommandRead:
		return "read"
	case CommandReport:
		return "report"
	case CommandWrite:
		return "write"
	default:
		return fmt.Sprintf("command %04x", uint16(c))
	}
}

// Session frames, sent with their own fixed headers.
var (
	loginHeader      = []byte{0x55, 0x00, 0x12, 0x00, 0x10, 0x01}
	pingHeader       = []byte{0x55, 0x00, 0x02, 0x00, 0x12, 0x00}
	keyRequestHeader = []byte{0x55, 0x00, 0x0a, 0x00, 0x0a, 0x01}

	// LoginAck is the only reply that means the gateway accepted the login.
	LoginAck = mustDecodeHex("55000c001101000000030000032000009c")

	// PingAck is the only reply that means the gateway answered a ping.
	PingAck = mustDecodeHex("55000200130021")
)

// LoginFrame builds the authentication frame sent first on every connection.
func LoginFrame(apiID, apiKey Credential) []byte {
	frame := make([]byte, 0, len(loginHeader)+len(apiID)+len(apiKey)+CRCSize)
	frame = append(frame, loginHeader...)
	frame = append(frame, apiID[:]...)
	frame = append(frame, apiKey[:]...)
	return AppendChecksum(frame)
}

// PingFrame builds the unauthenticated reachability probe.
func PingFrame() []byte {
	frame := append([]byte(nil), pingHeader...)
	return AppendChecksum(frame)
}

// KeyRequestFrame builds the frame that asks the gateway for its API key.
// The gateway only answers after its "web" button is pressed.
func KeyRequestFrame(apiID Credential) []byte {
	frame := append([]byte(nil), keyRequestHeader...)
	frame = append(frame, apiID[:]...)
	return AppendChecksum(frame)
}

// Request is a read, write or report addressed to one device.
type Request struct {
	Command  Command
	Sequence uint32
	Device   DeviceID
	Code     Code
	// Value is the size-prefixed encoded value. Reads carry none.
	Value []byte
}

// Encode serializes r into a complete frame with its CRC.
func (r Request) Encode() ([]byte, error) {
	switch r.Command {
	case CommandRead:
		if len(r.Value) != 0 {
			return nil, fmt.Errorf("read request must not carry a value")
		}
	case CommandWrite, CommandReport:
		if len(r.Value) == 0 {
			return nil, fmt.Errorf("%s request requires a value", r.Command)
		}
	default:
		return nil, fmt.Errorf("unsupported %s", r.Command)
	}

	appSize := 4 + len(r.Value)
	if appSize > 0xff {
		return nil, fmt.Errorf("value too large: %d bytes", len(r.Value))
	}

	frame := make([]byte, HeaderSize, HeaderSize+requestFixedSize+appSize+CRCSize)
	frame[0], frame[1] = preamble0, preamble1
	frame = binary.BigEndian.AppendUint16(frame, uint16(r.Command))
	seq := EncodeSequence(r.Sequence)
	frame = append(frame, seq[:]...)
	frame = append(frame, 0x00)
	frame = append(frame, make([]byte, reservedSize)...)
	frame = append(frame, r.Device[:]...)
	frame = append(frame, byte(appSize))
	code := r.Code.Bytes()
	frame = append(frame, code[:]...)
	frame = append(frame, r.Value...)
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(frame)-HeaderSize))
	return AppendChecksum(frame), nil
}

// ParseRequest decodes a data request frame. It is the inverse of Encode.
func ParseRequest(frame []byte) (Request, error) {
	if err := CheckFrame(frame); err != nil {
		return Request{}, err
	}
	if len(frame) < HeaderSize+requestFixedSize+4+CRCSize {
		return Request{}, ErrShortFrame
	}
	var r Request
	r.Command = Command(binary.BigEndian.Uint16(frame[4:6]))
	seq, err := DecodeSequence(frame[6:10])
	if err != nil {
		return Request{}, err
	}
	r.Sequence = seq
	copy(r.Device[:], frame[17:21])
	appSize := int(frame[21])
	body := frame[22 : len(frame)-CRCSize]
	if appSize != len(body) || appSize < 4 {
		return Request{}, fmt.Errorf("app size %d does not match payload of %d bytes", appSize, len(body))
	}
	r.Code = Code(binary.BigEndian.Uint32(body[:4]))
	if len(body) > 4 {
		r.Value = append([]byte(nil), body[4:]...)
	}
	return r, nil
}

// FrameSize returns the total size of the frame whose 4-byte header is given.
func FrameSize(header []byte) (int, error) {
	if len(header) < HeaderSize {
		return 0, ErrShortFrame
	}
	if header[0] != preamble0 || header[1] != preamble1 {
		return 0, ErrBadPreamble
	}
	size := HeaderSize + int(binary.LittleEndian.Uint16(header[2:4])) + CRCSize
	if size > MaxFrameSize {
		return 0, fmt.Errorf("frame of %d bytes exceeds limit of %d", size, MaxFrameSize)
	}
	return size, nil
}

// CheckFrame validates the preamble, length field and CRC of a whole frame.
func CheckFrame(frame []byte) error {
	size, err := FrameSize(frame)
	if err != nil {
		return err
	}
	if size != len(frame) {
		return ErrBadLength
	}
	if !VerifyChecksum(frame) {
		return ErrChecksumMismatch
	}
	return nil
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
