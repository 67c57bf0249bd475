// Package modbus implements the Modbus protocol data model: the typed
// request/response values, function and exception codes, and the PDU
// codec shared by the TCP (MBAP) and RTU framing layers.
package modbus

// FunctionCode identifies the operation carried by a PDU.
type FunctionCode uint8

const (
	FcReadCoils                  FunctionCode = 0x01
	FcReadDiscreteInputs         FunctionCode = 0x02
	FcReadHoldingRegisters       FunctionCode = 0x03
	FcReadInputRegisters         FunctionCode = 0x04
	FcWriteSingleCoil            FunctionCode = 0x05
	FcWriteSingleRegister        FunctionCode = 0x06
	FcWriteMultipleCoils         FunctionCode = 0x0F
	FcWriteMultipleRegisters     FunctionCode = 0x10
	FcMaskWriteRegister          FunctionCode = 0x16
	FcReadWriteMultipleRegisters FunctionCode = 0x17
	FcEncapsulatedInterface      FunctionCode = 0x2B

	// ExceptionBit is set in a response's function code byte when the
	// response is an ExceptionResponse.
	ExceptionBit FunctionCode = 0x80

	customFcLow  FunctionCode = 0x41
	customFcHigh FunctionCode = 0x72
)

// IsException reports whether fc carries the exception bit.
func (fc FunctionCode) IsException() bool {
	return fc&ExceptionBit != 0
}

// WithoutException clears the exception bit from fc.
func (fc FunctionCode) WithoutException() FunctionCode {
	return fc &^ ExceptionBit
}

// IsCustom reports whether fc falls in the user/custom range 0x41-0x72.
func (fc FunctionCode) IsCustom() bool {
	return fc >= customFcLow && fc <= customFcHigh
}

// ExceptionCode identifies why a server rejected a request.
type ExceptionCode uint8

const (
	ExIllegalFunction                ExceptionCode = 0x01
	ExIllegalDataAddress              ExceptionCode = 0x02
	ExIllegalDataValue                ExceptionCode = 0x03
	ExServerDeviceFailure             ExceptionCode = 0x04
	ExAcknowledge                     ExceptionCode = 0x05
	ExServerDeviceBusy                ExceptionCode = 0x06
	ExMemoryParityError               ExceptionCode = 0x08
	ExGatewayPathUnavailable          ExceptionCode = 0x0A
	ExGatewayTargetFailedToRespond    ExceptionCode = 0x0B
)

// UnitID addresses a device on a Modbus link. 0 is broadcast; 248-254 are
// left unvalidated by this library (see DESIGN.md Open Question).
type UnitID = uint8

// Broadcast is the UnitID reserved for fire-and-forget RTU writes.
const Broadcast UnitID = 0

// Address is a 0-based coil/register address.
type Address = uint16

// Quantity is a count of coils or registers requested in one operation.
type Quantity = uint16

// Valid quantity ranges per spec.md §3.
const (
	MaxReadBits              = 2000
	MaxReadRegisters         = 125
	MaxWriteMultipleCoils    = 1968
	MaxWriteMultipleRegs     = 123
	MaxReadWriteReadRegs     = 125
	MaxReadWriteWriteRegs    = 121
)

const (
	coilOnWire  uint16 = 0xFF00
	coilOffWire uint16 = 0x0000
)
