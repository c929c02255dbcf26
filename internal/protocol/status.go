package protocol

import "fmt"

// Status is the gateway status byte carried at offset 10 of every reply.
type Status byte

const (
	StatusOK                  Status = 0x00
	StatusReportOK            Status = 0x01
	StatusDataOK              Status = 0x0a
	StatusUnknownDevice       Status = 0xfa
	StatusAbortFailed         Status = 0xfb
	StatusDeviceNotResponding Status = 0xfc
	StatusBufferFull          Status = 0xfe
	StatusRequestFailed       Status = 0xff
)

// Success reports whether s acknowledges the request.
func (s Status) Success() bool {
	switch s {
	case StatusOK, StatusReportOK, StatusDataOK:
		return true
	}
	return false
}

// Retryable reports whether repeating the request may succeed.
func (s Status) Retryable() bool {
	return s == StatusBufferFull
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusReportOK:
		return "report ok"
	case StatusDataOK:
		return "data ok"
	case StatusUnknownDevice:
		return "unknown device or destination deleted"
	case StatusAbortFailed:
		return "abort failed, request not found in queue"
	case StatusDeviceNotResponding:
		return "device not responding"
	case StatusBufferFull:
		return "buffer full, retry later"
	case StatusRequestFailed:
		return "request failed"
	default:
		return fmt.Sprintf("status 0x%02x", byte(s))
	}
}
