package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/sinopehome/gt125/internal/protocol"
)

// Kind represents the category of a gateway failure
type Kind int

const (
	// KindConnect indicates the TCP connection could not be opened
	KindConnect Kind = iota
	// KindAuth indicates the gateway rejected the login or sent an unexpected ack
	KindAuth
	// KindChecksum indicates a reply failed CRC-8 validation
	KindChecksum
	// KindGatewayNack indicates the gateway answered with a failure status byte
	KindGatewayNack
	// KindTimeout indicates the gateway did not answer in time
	KindTimeout
	// KindIO indicates a read or write on an open connection failed
	KindIO
	// KindProtocol indicates a reply that does not follow the frame format
	KindProtocol
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "Connect Error"
	case KindAuth:
		return "Authentication Error"
	case KindChecksum:
		return "Checksum Error"
	case KindGatewayNack:
		return "Gateway NACK"
	case KindTimeout:
		return "Timeout"
	case KindIO:
		return "I/O Error"
	case KindProtocol:
		return "Protocol Error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by every gateway operation that fails.
type Error struct {
	Kind      Kind            // Category of failure
	Code      protocol.Status // Status byte for KindGatewayNack
	Message   string          // Human-readable message
	Err       error           // Underlying error (if any)
	Gateway   string          // Gateway address, for context
	Retryable bool            // Whether repeating the call may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Gateway != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Gateway)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a dial, read or write failure to a gateway error.
// connecting selects KindConnect over KindIO for non-timeout failures.
func ClassifyNetworkError(err error, addr string, connecting bool) *Error {
	if err == nil {
		return nil
	}

	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || os.IsTimeout(err) {
		return &Error{
			Kind:      KindTimeout,
			Message:   "gateway did not respond in time",
			Err:       err,
			Gateway:   addr,
			Retryable: true,
		}
	}

	kind := KindIO
	message := "connection to gateway failed"
	if connecting {
		kind = KindConnect
		message = "could not connect to gateway"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Kind:    KindConnect,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:     err,
			Gateway: addr,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			message = "gateway refused connection"
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			message = "gateway host unreachable"
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			message = "network unreachable"
		case errors.Is(opErr.Err, syscall.ECONNRESET):
			message = "gateway reset the connection"
		}
	}

	return &Error{
		Kind:      kind,
		Message:   message,
		Err:       err,
		Gateway:   addr,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(addr, message string, err error) *Error {
	return &Error{
		Kind:    KindAuth,
		Message: message,
		Err:     err,
		Gateway: addr,
	}
}

// NewChecksumError creates a checksum error for a reply that failed CRC-8
func NewChecksumError(addr string, frame []byte) *Error {
	return &Error{
		Kind:      KindChecksum,
		Message:   fmt.Sprintf("reply failed CRC-8 check (%x)", frame),
		Err:       protocol.ErrChecksumMismatch,
		Gateway:   addr,
		Retryable: true,
	}
}

// NewNackError creates an error for a failure status byte
func NewNackError(addr string, status protocol.Status) *Error {
	return &Error{
		Kind:      KindGatewayNack,
		Code:      status,
		Message:   status.String(),
		Gateway:   addr,
		Retryable: status.Retryable(),
	}
}

// NewProtocolError creates an error for a malformed reply
func NewProtocolError(addr, message string, err error) *Error {
	return &Error{
		Kind:    KindProtocol,
		Message: message,
		Err:     err,
		Gateway: addr,
	}
}

func kindOf(err error) (Kind, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind, true
	}
	return 0, false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuth
}

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTimeout
}

// IsChecksumError checks if an error is a CRC failure
func IsChecksumError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindChecksum
}

// IsNack checks if an error is a gateway failure status
func IsNack(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindGatewayNack
}

// NackCode returns the status byte of a gateway NACK.
func NackCode(err error) (protocol.Status, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Kind == KindGatewayNack {
		return gwErr.Code, true
	}
	return 0, false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch gwErr.Kind {
	case KindConnect:
		return strings.Join([]string{
			"Could not open a connection to the GT125.",
			"Troubleshooting:",
			"  • Check that the gateway is powered on and its network light is steady",
			"  • Verify the host address (try `gt125 scan`)",
			"  • The protocol port is 4550 unless you changed it",
		}, "\n")

	case KindAuth:
		return strings.Join([]string{
			"The gateway rejected the login.",
			"Troubleshooting:",
			"  • api_id is the printed gateway id with its bytes reversed",
			"  • Request a fresh key with `gt125 key` and press the gateway's web button",
		}, "\n")

	case KindTimeout:
		return strings.Join([]string{
			"The gateway did not answer in time.",
			"Troubleshooting:",
			"  • Increase the timeout with --timeout",
			"  • Another client may be holding the gateway; retry shortly",
		}, "\n")

	case KindGatewayNack:
		switch gwErr.Code {
		case protocol.StatusBufferFull:
			return "The gateway queue is full. Wait a few seconds and retry."
		case protocol.StatusUnknownDevice:
			return "The gateway does not know this device. Link it again with `gt125 link`."
		default:
			return "The gateway could not complete the request. Check the device id and attribute."
		}

	case KindChecksum, KindProtocol:
		return "The gateway sent a malformed reply. Retry; if it persists, power-cycle the gateway."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return err.Error()
	}

	switch gwErr.Kind {
	case KindConnect:
		return "Cannot connect to gateway"
	case KindAuth:
		return "Gateway login failed - check api_id and api_key"
	case KindTimeout:
		return "Gateway not responding (timeout)"
	case KindGatewayNack:
		return fmt.Sprintf("Gateway refused request: %s", gwErr.Code)
	case KindChecksum:
		return "Corrupted reply from gateway"
	default:
		return gwErr.Message
	}
}
