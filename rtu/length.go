package rtu

import (
	"fmt"

	"github.com/fieldwire/gomodbus/modbus"
)

// ExpectedResponseLength returns the total RTU frame length (unit id +
// PDU + 2-byte CRC) for a response to a request built with fc, given
// the response's function-code byte and, for variable-size responses,
// the byte immediately following it. ok is false if more bytes are
// needed before the length can be determined.
func ExpectedResponseLength(fc modbus.FunctionCode, responseFc modbus.FunctionCode, byteCountByte byte, haveByteCountByte bool) (length int, ok bool, err error) {
	if responseFc.IsException() {
		return 5, true, nil // addr + fc + exception_code + 2 CRC
	}
	switch fc {
	case modbus.FcReadCoils, modbus.FcReadDiscreteInputs,
		modbus.FcReadHoldingRegisters, modbus.FcReadInputRegisters,
		modbus.FcReadWriteMultipleRegisters:
		if !haveByteCountByte {
			return 0, false, nil
		}
		return 1 + 1 + 1 + int(byteCountByte) + 2, true, nil // addr + fc + bytecount + data + crc

	case modbus.FcWriteSingleCoil, modbus.FcWriteSingleRegister,
		modbus.FcWriteMultipleCoils, modbus.FcWriteMultipleRegisters:
		return 1 + 1 + 4 + 2, true, nil // addr + fc + addr(2) + value/qty(2) + crc

	case modbus.FcMaskWriteRegister:
		return 1 + 1 + 6 + 2, true, nil // addr + fc + addr(2) + and(2) + or(2) + crc

	default:
		if fc.IsCustom() {
			return 0, false, fmt.Errorf("%w: custom function codes have no fixed response length oracle", modbus.ErrInvalidData)
		}
		return 0, false, fmt.Errorf("%w: no length oracle for function code 0x%02X", modbus.ErrInvalidData, fc)
	}
}

// ExpectedRequestLength returns the total RTU frame length for a request
// carrying function code fc, given the bytes already buffered after
// unit id + function code (body). ok is false if more bytes are needed.
func ExpectedRequestLength(fc modbus.FunctionCode, body []byte) (length int, ok bool, err error) {
	switch fc {
	case modbus.FcReadCoils, modbus.FcReadDiscreteInputs,
		modbus.FcReadHoldingRegisters, modbus.FcReadInputRegisters:
		return 1 + 1 + 4 + 2, true, nil // addr + fc + addr(2) + qty(2) + crc

	case modbus.FcWriteSingleCoil, modbus.FcWriteSingleRegister:
		return 1 + 1 + 4 + 2, true, nil

	case modbus.FcMaskWriteRegister:
		return 1 + 1 + 6 + 2, true, nil

	case modbus.FcWriteMultipleCoils, modbus.FcWriteMultipleRegisters:
		if len(body) < 5 {
			return 0, false, nil
		}
		byteCount := int(body[4])
		return 1 + 1 + 5 + byteCount + 2, true, nil

	case modbus.FcReadWriteMultipleRegisters:
		if len(body) < 9 {
			return 0, false, nil
		}
		byteCount := int(body[8])
		return 1 + 1 + 9 + byteCount + 2, true, nil

	default:
		if fc.IsCustom() {
			return 0, false, fmt.Errorf("%w: custom function codes have no fixed request length oracle", modbus.ErrInvalidData)
		}
		return 0, false, fmt.Errorf("%w: no length oracle for function code 0x%02X", modbus.ErrInvalidData, fc)
	}
}
