package protocol

import "fmt"

// SequenceModulus bounds the sequence counter to eight decimal digits, the
// most that fit in four packed-decimal bytes.
const SequenceModulus = 100000000

// DefaultSequenceSeed is the first sequence number a new session uses.
const DefaultSequenceSeed = 12345678

// EncodeSequence packs n (mod 10^8) as eight decimal digits, two per byte,
// most significant first. 12345679 becomes 12 34 56 79.
func EncodeSequence(n uint32) [4]byte {
	n %= SequenceModulus
	var out [4]byte
	for i := 3; i >= 0; i-- {
		lo := n % 10
		n /= 10
		hi := n % 10
		n /= 10
		out[i] = byte(hi<<4 | lo)
	}
	return out
}

// DecodeSequence reverses EncodeSequence. It fails on a nibble above 9.
func DecodeSequence(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("sequence must be 4 bytes, got %d", len(b))
	}
	var n uint32
	for _, v := range b {
		hi, lo := uint32(v>>4), uint32(v&0x0f)
		if hi > 9 || lo > 9 {
			return 0, fmt.Errorf("sequence byte 0x%02x is not packed decimal", v)
		}
		n = n*100 + hi*10 + lo
	}
	return n, nil
}
