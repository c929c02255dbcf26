package protocol

import (
	"errors"

	"github.com/sigurn/crc8"
)

// ErrChecksumMismatch is returned when a received frame fails CRC validation.
var ErrChecksumMismatch = errors.New("frame checksum mismatch")

// CRC-8 with polynomial 0x07, zero init, no reflection, no final xor.
var crcTable = crc8.MakeTable(crc8.CRC8)

// validResidue is the CRC of a frame that already carries its own CRC byte.
const validResidue = 0x00

// Checksum returns the CRC-8 of data.
func Checksum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// AppendChecksum appends the CRC-8 of frame to frame.
func AppendChecksum(frame []byte) []byte {
	return append(frame, Checksum(frame))
}

// VerifyChecksum reports whether frame (including its trailing CRC byte)
// checksums to the valid residue.
func VerifyChecksum(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	return Checksum(frame) == validResidue
}
