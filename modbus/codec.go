package modbus

import (
	"encoding/binary"
	"fmt"
)

// EncodeRequest serializes r into a PDU: function code followed by its
// function-specific payload. Requests with out-of-range quantities or
// empty multi-value sequences are rejected before any bytes are
// produced, per spec.md §3/§8 ("quantity bounds").
func EncodeRequest(r Request) ([]byte, error) {
	if r.IsDisconnect() {
		return nil, fmt.Errorf("modbus: Disconnect is a client-internal request and must not be encoded")
	}

	switch r.Op {
	case FcReadCoils, FcReadDiscreteInputs:
		if err := checkQuantity(r.Quantity, 1, MaxReadBits); err != nil {
			return nil, err
		}
		return encodeReadRequest(r.Op, r.Addr, r.Quantity), nil

	case FcReadHoldingRegisters, FcReadInputRegisters:
		if err := checkQuantity(r.Quantity, 1, MaxReadRegisters); err != nil {
			return nil, err
		}
		return encodeReadRequest(r.Op, r.Addr, r.Quantity), nil

	case FcWriteSingleCoil:
		return encodeSingleWrite(r.Op, r.Addr, boolToWire(r.CoilValue)), nil

	case FcWriteSingleRegister:
		return encodeSingleWrite(r.Op, r.Addr, r.RegValue), nil

	case FcWriteMultipleCoils:
		if len(r.Coils) == 0 {
			return nil, ErrEmptySequence
		}
		if err := checkQuantity(Quantity(len(r.Coils)), 1, MaxWriteMultipleCoils); err != nil {
			return nil, err
		}
		data := packBits(r.Coils)
		return encodeMultiWrite(r.Op, r.Addr, Quantity(len(r.Coils)), data), nil

	case FcWriteMultipleRegisters:
		if len(r.Registers) == 0 {
			return nil, ErrEmptySequence
		}
		if err := checkQuantity(Quantity(len(r.Registers)), 1, MaxWriteMultipleRegs); err != nil {
			return nil, err
		}
		return encodeMultiWrite(r.Op, r.Addr, Quantity(len(r.Registers)), registersToBytes(r.Registers)), nil

	case FcMaskWriteRegister:
		buf := make([]byte, 7)
		buf[0] = byte(r.Op)
		binary.BigEndian.PutUint16(buf[1:3], r.Addr)
		binary.BigEndian.PutUint16(buf[3:5], r.AndMask)
		binary.BigEndian.PutUint16(buf[5:7], r.OrMask)
		return buf, nil

	case FcReadWriteMultipleRegisters:
		if len(r.Registers) == 0 {
			return nil, ErrEmptySequence
		}
		if err := checkQuantity(r.ReadQuantity, 1, MaxReadWriteReadRegs); err != nil {
			return nil, err
		}
		if err := checkQuantity(Quantity(len(r.Registers)), 1, MaxReadWriteWriteRegs); err != nil {
			return nil, err
		}
		byteCount := len(r.Registers) * 2
		buf := make([]byte, 10+byteCount)
		buf[0] = byte(r.Op)
		binary.BigEndian.PutUint16(buf[1:3], r.ReadAddr)
		binary.BigEndian.PutUint16(buf[3:5], r.ReadQuantity)
		binary.BigEndian.PutUint16(buf[5:7], r.WriteAddr)
		binary.BigEndian.PutUint16(buf[7:9], Quantity(len(r.Registers)))
		buf[9] = byte(byteCount)
		copy(buf[10:], registersToBytes(r.Registers))
		return buf, nil

	default:
		if r.Op.IsCustom() || (r.Op == 0 && r.CustomFc.IsCustom()) {
			fc := r.Op
			if fc == 0 {
				fc = r.CustomFc
			}
			buf := make([]byte, 1+len(r.CustomPayload))
			buf[0] = byte(fc)
			copy(buf[1:], r.CustomPayload)
			return buf, nil
		}
		return nil, fmt.Errorf("%w: unsupported function code 0x%02X", ErrInvalidData, r.Op)
	}
}

// DecodeRequest parses a PDU into a Request, for use by server loops.
func DecodeRequest(pdu []byte) (Request, error) {
	if len(pdu) == 0 {
		return Request{}, ErrShortFrame
	}
	fc := FunctionCode(pdu[0])
	body := pdu[1:]

	switch fc {
	case FcReadCoils, FcReadDiscreteInputs, FcReadHoldingRegisters, FcReadInputRegisters:
		if len(body) != 4 {
			return Request{}, fmt.Errorf("%w: short read request", ErrInvalidData)
		}
		qty := binary.BigEndian.Uint16(body[2:4])
		max := MaxReadBits
		if fc == FcReadHoldingRegisters || fc == FcReadInputRegisters {
			max = MaxReadRegisters
		}
		if checkQuantity(qty, 1, max) != nil {
			return Request{}, &Exception{FunctionCode: fc, Code: ExIllegalDataValue}
		}
		return Request{
			Op:       fc,
			Addr:     binary.BigEndian.Uint16(body[0:2]),
			Quantity: qty,
		}, nil

	case FcWriteSingleCoil:
		if len(body) != 4 {
			return Request{}, fmt.Errorf("%w: short write-single-coil request", ErrInvalidData)
		}
		v, err := wireToBool(binary.BigEndian.Uint16(body[2:4]))
		if err != nil {
			return Request{}, err
		}
		return Request{Op: fc, Addr: binary.BigEndian.Uint16(body[0:2]), CoilValue: v}, nil

	case FcWriteSingleRegister:
		if len(body) != 4 {
			return Request{}, fmt.Errorf("%w: short write-single-register request", ErrInvalidData)
		}
		return Request{Op: fc, Addr: binary.BigEndian.Uint16(body[0:2]), RegValue: binary.BigEndian.Uint16(body[2:4])}, nil

	case FcWriteMultipleCoils:
		if len(body) < 5 {
			return Request{}, fmt.Errorf("%w: short write-multiple-coils request", ErrInvalidData)
		}
		addr := binary.BigEndian.Uint16(body[0:2])
		qty := binary.BigEndian.Uint16(body[2:4])
		byteCount := int(body[4])
		if byteCount != expectedCoilByteCount(qty) || len(body) != 5+byteCount {
			return Request{}, fmt.Errorf("%w: byte count inconsistent with quantity", ErrInvalidData)
		}
		if checkQuantity(qty, 1, MaxWriteMultipleCoils) != nil {
			return Request{}, &Exception{FunctionCode: fc, Code: ExIllegalDataValue}
		}
		return Request{Op: fc, Addr: addr, Quantity: qty, Coils: unpackBits(body[5:5+byteCount], int(qty))}, nil

	case FcWriteMultipleRegisters:
		if len(body) < 5 {
			return Request{}, fmt.Errorf("%w: short write-multiple-registers request", ErrInvalidData)
		}
		addr := binary.BigEndian.Uint16(body[0:2])
		qty := binary.BigEndian.Uint16(body[2:4])
		byteCount := int(body[4])
		if byteCount != int(qty)*2 || len(body) != 5+byteCount {
			return Request{}, fmt.Errorf("%w: byte count inconsistent with quantity", ErrInvalidData)
		}
		if checkQuantity(qty, 1, MaxWriteMultipleRegs) != nil {
			return Request{}, &Exception{FunctionCode: fc, Code: ExIllegalDataValue}
		}
		return Request{Op: fc, Addr: addr, Quantity: qty, Registers: bytesToRegisters(body[5 : 5+byteCount])}, nil

	case FcMaskWriteRegister:
		if len(body) != 6 {
			return Request{}, fmt.Errorf("%w: short mask-write-register request", ErrInvalidData)
		}
		return Request{
			Op:      fc,
			Addr:    binary.BigEndian.Uint16(body[0:2]),
			AndMask: binary.BigEndian.Uint16(body[2:4]),
			OrMask:  binary.BigEndian.Uint16(body[4:6]),
		}, nil

	case FcReadWriteMultipleRegisters:
		if len(body) < 9 {
			return Request{}, fmt.Errorf("%w: short read-write-multiple-registers request", ErrInvalidData)
		}
		readAddr := binary.BigEndian.Uint16(body[0:2])
		readQty := binary.BigEndian.Uint16(body[2:4])
		writeAddr := binary.BigEndian.Uint16(body[4:6])
		writeQty := binary.BigEndian.Uint16(body[6:8])
		byteCount := int(body[8])
		if byteCount != int(writeQty)*2 || len(body) != 9+byteCount {
			return Request{}, fmt.Errorf("%w: byte count inconsistent with quantity", ErrInvalidData)
		}
		if checkQuantity(readQty, 1, MaxReadWriteReadRegs) != nil || checkQuantity(writeQty, 1, MaxReadWriteWriteRegs) != nil {
			return Request{}, &Exception{FunctionCode: fc, Code: ExIllegalDataValue}
		}
		return Request{
			Op:           fc,
			ReadAddr:     readAddr,
			ReadQuantity: readQty,
			WriteAddr:    writeAddr,
			Registers:    bytesToRegisters(body[9 : 9+byteCount]),
		}, nil

	default:
		if fc.IsCustom() {
			payload := make([]byte, len(body))
			copy(payload, body)
			return Request{CustomFc: fc, CustomPayload: payload}, nil
		}
		return Request{}, &Exception{FunctionCode: fc, Code: ExIllegalFunction}
	}
}

// EncodeResponse serializes r into a PDU.
func EncodeResponse(r Response) ([]byte, error) {
	switch r.Op {
	case FcReadCoils, FcReadDiscreteInputs:
		data := packBits(r.Coils)
		buf := make([]byte, 2+len(data))
		buf[0] = byte(r.Op)
		buf[1] = byte(len(data))
		copy(buf[2:], data)
		return buf, nil

	case FcReadHoldingRegisters, FcReadInputRegisters:
		data := registersToBytes(r.Registers)
		buf := make([]byte, 2+len(data))
		buf[0] = byte(r.Op)
		buf[1] = byte(len(data))
		copy(buf[2:], data)
		return buf, nil

	case FcWriteSingleCoil:
		return encodeSingleWrite(r.Op, r.Addr, boolToWire(r.CoilValue)), nil

	case FcWriteSingleRegister:
		return encodeSingleWrite(r.Op, r.Addr, r.RegValue), nil

	case FcWriteMultipleCoils, FcWriteMultipleRegisters:
		return encodeMultiWriteAck(r.Op, r.Addr, r.Quantity), nil

	case FcMaskWriteRegister:
		buf := make([]byte, 7)
		buf[0] = byte(r.Op)
		binary.BigEndian.PutUint16(buf[1:3], r.Addr)
		binary.BigEndian.PutUint16(buf[3:5], r.AndMask)
		binary.BigEndian.PutUint16(buf[5:7], r.OrMask)
		return buf, nil

	case FcReadWriteMultipleRegisters:
		data := registersToBytes(r.Registers)
		buf := make([]byte, 2+len(data))
		buf[0] = byte(r.Op)
		buf[1] = byte(len(data))
		copy(buf[2:], data)
		return buf, nil

	default:
		fc := r.Op
		if fc == 0 {
			fc = r.CustomFc
		}
		buf := make([]byte, 1+len(r.CustomPayload))
		buf[0] = byte(fc)
		copy(buf[1:], r.CustomPayload)
		return buf, nil
	}
}

// EncodeException serializes an *Exception as `fc|0x80, code`.
func EncodeException(e *Exception) []byte {
	return []byte{byte(e.FunctionCode.WithoutException() | ExceptionBit), byte(e.Code)}
}

// DecodeResponse parses a PDU into a Response, given the outstanding
// request it answers: a non-exception response whose function code
// differs from req's fails with ErrFunctionCodeMismatch, and decoded
// coil/discrete-input bits are truncated to req.Quantity. If the PDU
// carries the exception bit, an *Exception is returned instead of a
// Response.
func DecodeResponse(pdu []byte, req Request) (*Response, error) {
	if len(pdu) == 0 {
		return nil, ErrShortFrame
	}
	fc := FunctionCode(pdu[0])
	if fc.IsException() {
		if len(pdu) < 2 {
			return nil, ErrShortFrame
		}
		return nil, ExceptionResponseFrom(fc, pdu[1])
	}

	if fc != req.FunctionCode() {
		return nil, ErrFunctionCodeMismatch
	}
	body := pdu[1:]

	switch fc {
	case FcReadCoils, FcReadDiscreteInputs:
		if len(body) < 1 || len(body) != 1+int(body[0]) {
			return nil, fmt.Errorf("%w: byte count inconsistent with payload", ErrInvalidData)
		}
		bits := unpackBits(body[1:], int(req.Quantity))
		return &Response{Op: fc, Coils: bits}, nil

	case FcReadHoldingRegisters, FcReadInputRegisters:
		if len(body) < 1 || len(body) != 1+int(body[0]) || body[0]%2 != 0 {
			return nil, fmt.Errorf("%w: byte count inconsistent with payload", ErrInvalidData)
		}
		return &Response{Op: fc, Registers: bytesToRegisters(body[1:])}, nil

	case FcWriteSingleCoil:
		if len(body) != 4 {
			return nil, fmt.Errorf("%w: short write-single-coil response", ErrInvalidData)
		}
		v, err := wireToBool(binary.BigEndian.Uint16(body[2:4]))
		if err != nil {
			return nil, err
		}
		return &Response{Op: fc, Addr: binary.BigEndian.Uint16(body[0:2]), CoilValue: v}, nil

	case FcWriteSingleRegister:
		if len(body) != 4 {
			return nil, fmt.Errorf("%w: short write-single-register response", ErrInvalidData)
		}
		return &Response{Op: fc, Addr: binary.BigEndian.Uint16(body[0:2]), RegValue: binary.BigEndian.Uint16(body[2:4])}, nil

	case FcWriteMultipleCoils, FcWriteMultipleRegisters:
		if len(body) != 4 {
			return nil, fmt.Errorf("%w: short multi-write response", ErrInvalidData)
		}
		return &Response{Op: fc, Addr: binary.BigEndian.Uint16(body[0:2]), Quantity: binary.BigEndian.Uint16(body[2:4])}, nil

	case FcMaskWriteRegister:
		if len(body) != 6 {
			return nil, fmt.Errorf("%w: short mask-write-register response", ErrInvalidData)
		}
		return &Response{
			Op:      fc,
			Addr:    binary.BigEndian.Uint16(body[0:2]),
			AndMask: binary.BigEndian.Uint16(body[2:4]),
			OrMask:  binary.BigEndian.Uint16(body[4:6]),
		}, nil

	case FcReadWriteMultipleRegisters:
		if len(body) < 1 || len(body) != 1+int(body[0]) || body[0]%2 != 0 {
			return nil, fmt.Errorf("%w: byte count inconsistent with payload", ErrInvalidData)
		}
		return &Response{Op: fc, Registers: bytesToRegisters(body[1:])}, nil

	default:
		payload := make([]byte, len(body))
		copy(payload, body)
		return &Response{CustomFc: fc, CustomPayload: payload}, nil
	}
}

func checkQuantity(q Quantity, min, max int) error {
	if int(q) < min || int(q) > max {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrQuantityOutOfRange, q, min, max)
	}
	return nil
}

func encodeReadRequest(fc FunctionCode, addr Address, qty Quantity) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(fc)
	binary.BigEndian.PutUint16(buf[1:3], addr)
	binary.BigEndian.PutUint16(buf[3:5], qty)
	return buf
}

func encodeSingleWrite(fc FunctionCode, addr Address, value uint16) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(fc)
	binary.BigEndian.PutUint16(buf[1:3], addr)
	binary.BigEndian.PutUint16(buf[3:5], value)
	return buf
}

func encodeMultiWrite(fc FunctionCode, addr Address, qty Quantity, data []byte) []byte {
	buf := make([]byte, 6+len(data))
	buf[0] = byte(fc)
	binary.BigEndian.PutUint16(buf[1:3], addr)
	binary.BigEndian.PutUint16(buf[3:5], qty)
	buf[5] = byte(len(data))
	copy(buf[6:], data)
	return buf
}

func encodeMultiWriteAck(fc FunctionCode, addr Address, qty Quantity) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(fc)
	binary.BigEndian.PutUint16(buf[1:3], addr)
	binary.BigEndian.PutUint16(buf[3:5], qty)
	return buf
}

func boolToWire(v bool) uint16 {
	if v {
		return coilOnWire
	}
	return coilOffWire
}

func wireToBool(v uint16) (bool, error) {
	switch v {
	case coilOnWire:
		return true, nil
	case coilOffWire:
		return false, nil
	default:
		return false, fmt.Errorf("%w: coil value 0x%04X is neither 0xFF00 nor 0x0000", ErrInvalidData, v)
	}
}

func expectedCoilByteCount(qty Quantity) int {
	return (int(qty) + 7) / 8
}

// packBits packs bools LSB-first into bytes, per spec.md §3.
func packBits(bits []bool) []byte {
	out := make([]byte, expectedCoilByteCount(Quantity(len(bits))))
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// unpackBits unpacks LSB-first packed bits and truncates to exactly
// quantity booleans, discarding any padding bits beyond it.
func unpackBits(data []byte, quantity int) []bool {
	out := make([]bool, quantity)
	for i := 0; i < quantity; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			break
		}
		out[i] = data[byteIdx]&(1<<uint(i%8)) != 0
	}
	return out
}

func registersToBytes(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[i*2:i*2+2], r)
	}
	return out
}

func bytesToRegisters(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[i*2 : i*2+2])
	}
	return out
}
