// Package mbap implements the Modbus TCP framing layer: the 7-byte
// MBAP header wrapped around a PDU, as a streaming decoder over an
// append-only buffer (spec.md §4.3).
package mbap

import (
	"encoding/binary"
	"fmt"

	"github.com/fieldwire/gomodbus/modbus"
)

// HeaderLength is the fixed MBAP header size in bytes.
const HeaderLength = 7

// MaxPDULength is the largest PDU Decode accepts; a length field above
// 1+MaxPDULength is rejected.
const MaxPDULength = 253

// Frame is one decoded Modbus TCP ADU.
type Frame struct {
	TransactionID uint16
	UnitID        modbus.UnitID
	PDU           []byte
}

// Encode assembles a complete MBAP ADU around pdu.
func Encode(transactionID uint16, unitID modbus.UnitID, pdu []byte) []byte {
	buf := make([]byte, HeaderLength+len(pdu))
	binary.BigEndian.PutUint16(buf[0:2], transactionID)
	binary.BigEndian.PutUint16(buf[2:4], 0) // protocol id, always 0
	binary.BigEndian.PutUint16(buf[4:6], uint16(1+len(pdu)))
	buf[6] = unitID
	copy(buf[7:], pdu)
	return buf
}

// Decode attempts to pull one complete frame from the head of buf. It
// returns the frame, the number of bytes consumed from buf, and
// needMore=true if buf does not yet hold a complete frame (the caller
// should read more bytes and retry without discarding buf).
//
// Steps follow spec.md §4.3 exactly, including checking the protocol id
// only after the full header is available.
func Decode(buf []byte) (frame Frame, consumed int, needMore bool, err error) {
	if len(buf) < HeaderLength {
		return Frame{}, 0, true, nil
	}

	protocolID := binary.BigEndian.Uint16(buf[2:4])
	if protocolID != 0 {
		return Frame{}, 0, false, fmt.Errorf("%w: %d", modbus.ErrUnknownProtocolID, protocolID)
	}

	length := binary.BigEndian.Uint16(buf[4:6])
	if length < 1 || length > 1+MaxPDULength {
		return Frame{}, 0, false, fmt.Errorf("%w: MBAP length %d out of range", modbus.ErrInvalidData, length)
	}

	total := HeaderLength - 1 + int(length) // 6 + length
	if len(buf) < total {
		return Frame{}, 0, true, nil
	}

	f := Frame{
		TransactionID: binary.BigEndian.Uint16(buf[0:2]),
		UnitID:        buf[6],
		PDU:           append([]byte(nil), buf[7:total]...),
	}
	return f, total, false, nil
}
