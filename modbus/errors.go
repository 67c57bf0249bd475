package modbus

import "errors"

// Transport/framing errors (spec.md §7 stratum 2). Protocol exceptions
// are reported as *Exception, not as one of these.
var (
	ErrConnectionReset = errors.New("modbus: connection reset")
	ErrTimeout         = errors.New("modbus: request timed out")
	ErrInvalidData     = errors.New("modbus: invalid data")

	ErrFunctionCodeMismatch = errors.New("modbus: function code mismatch between request and response")
	ErrQuantityOutOfRange   = errors.New("modbus: quantity out of range")
	ErrEmptySequence        = errors.New("modbus: multi-value request requires a non-empty sequence")
	ErrShortFrame           = errors.New("modbus: frame shorter than minimum length")
	ErrBadCRC               = errors.New("modbus: CRC mismatch")
	ErrUnknownProtocolID    = errors.New("modbus: unknown MBAP protocol id")
	ErrResyncExhausted      = errors.New("modbus: RTU resync exceeded retry budget")
)
