// Package rtu implements the Modbus RTU (serial) framing layer: a
// 1-byte unit id prefix, the PDU, and a little-endian CRC-16/MODBUS
// trailer, including the frame-sync recovery spec.md §4.4 mandates.
package rtu

import (
	"fmt"

	"github.com/fieldwire/gomodbus/modbus"
)

// MinFrameLength is the number of bytes Decode waits for before it asks
// the length oracle for a frame length. The shortest complete frame, an
// exception response (addr + fc + exception code + 2-byte CRC), is one
// byte longer.
const MinFrameLength = 4

// MaxResyncAttempts bounds the byte-at-a-time recovery loop on CRC
// mismatch (spec.md §4.4: "the source uses 20").
const MaxResyncAttempts = 20

// Frame is one decoded RTU ADU (CRC already verified and stripped).
type Frame struct {
	UnitID modbus.UnitID
	PDU    []byte
}

// LengthFunc computes the total expected frame length (addr + PDU +
// 2-byte CRC) from the bytes buffered so far, starting at the unit id.
// ok is false when more bytes are required before the length is known.
type LengthFunc func(buf []byte) (length int, ok bool, err error)

// Encode assembles a complete RTU frame: addr || pdu || CRC16_LE.
func Encode(unitID modbus.UnitID, pdu []byte) []byte {
	body := make([]byte, 1+len(pdu))
	body[0] = unitID
	copy(body[1:], pdu)

	buf := make([]byte, len(body)+2)
	copy(buf, body)
	value := modbus.CRC16(body)
	buf[len(body)] = byte(value)
	buf[len(body)+1] = byte(value >> 8)
	return buf
}

// Decode attempts to pull one complete, CRC-valid frame from the head
// of buf, using lengthFn to determine how many bytes the frame needs.
//
// On a CRC mismatch it drops one byte from the head of buf and retries,
// bounded by MaxResyncAttempts, per spec.md §4.4. consumed is the total
// number of bytes the caller should drop from its buffer: either the
// bytes of a successfully decoded frame, or (on ErrResyncExhausted) the
// bytes that should be discarded so the caller can keep reading.
func Decode(buf []byte, lengthFn LengthFunc) (frame Frame, consumed int, needMore bool, err error) {
	dropped := 0

	for attempt := 0; ; attempt++ {
		window := buf[dropped:]
		if len(window) < MinFrameLength {
			return Frame{}, dropped, true, nil
		}

		length, ok, lerr := lengthFn(window)
		if lerr != nil {
			return Frame{}, dropped, false, lerr
		}
		if !ok {
			return Frame{}, dropped, true, nil
		}
		if length < MinFrameLength {
			return Frame{}, dropped, false, fmt.Errorf("%w: RTU frame length %d below minimum", modbus.ErrInvalidData, length)
		}
		if len(window) < length {
			return Frame{}, dropped, true, nil
		}

		body := window[:length-2]
		crcLo, crcHi := window[length-2], window[length-1]

		if crcMatches(body, crcLo, crcHi) {
			f := Frame{
				UnitID: body[0],
				PDU:    append([]byte(nil), body[1:]...),
			}
			return f, dropped + length, false, nil
		}

		if attempt >= MaxResyncAttempts {
			return Frame{}, dropped + 1, false, modbus.ErrResyncExhausted
		}
		dropped++
	}
}

func crcMatches(body []byte, lo, hi byte) bool {
	value := modbus.CRC16(body)
	return byte(value) == lo && byte(value>>8) == hi
}
