package modbus

// Request is a tagged union over the supported function codes. Exactly
// one group of fields is meaningful for a given Op; the zero value of
// the others is ignored by the codec and the server dispatcher.
//
// Disconnect is a client-internal poison pill: it is never produced by
// a decoder and the codec refuses to encode it.
type Request struct {
	Op FunctionCode

	Addr     Address
	Quantity Quantity

	CoilValue bool
	RegValue  uint16

	Coils     []bool
	Registers []uint16

	AndMask uint16
	OrMask  uint16

	ReadAddr     Address
	ReadQuantity Quantity
	WriteAddr    Address

	CustomFc      FunctionCode
	CustomPayload []byte

	disconnect bool
}

// DisconnectRequest builds the poison-pill request that tells a client's
// transaction layer to close its transport and fail pending calls.
func DisconnectRequest() Request {
	return Request{disconnect: true}
}

// IsDisconnect reports whether r is the poison-pill Disconnect request.
func (r Request) IsDisconnect() bool {
	return r.disconnect
}

// FunctionCode returns the function code this request will be encoded
// with, or CustomFc for the Custom variant.
func (r Request) FunctionCode() FunctionCode {
	if r.Op == 0 && r.CustomFc != 0 {
		return r.CustomFc
	}
	return r.Op
}

// Response mirrors Request: read variants carry decoded bit/register
// sequences, write variants echo the request parameters.
type Response struct {
	Op FunctionCode

	Coils     []bool
	Registers []uint16

	Addr      Address
	Quantity  Quantity
	CoilValue bool
	RegValue  uint16

	AndMask uint16
	OrMask  uint16

	CustomFc      FunctionCode
	CustomPayload []byte
}

// FunctionCode returns the function code this response was (or will be)
// encoded with.
func (r Response) FunctionCode() FunctionCode {
	if r.Op == 0 && r.CustomFc != 0 {
		return r.CustomFc
	}
	return r.Op
}

// Exception is a protocol-level negative acknowledgement: the server
// decoded the request and declined it. It implements error so callers
// can errors.As into it instead of string-matching.
type Exception struct {
	FunctionCode FunctionCode
	Code         ExceptionCode
}

func (e *Exception) Error() string {
	return "modbus: exception " + exceptionString(e.Code) + " from function " + fcString(e.FunctionCode.WithoutException())
}

func exceptionString(c ExceptionCode) string {
	switch c {
	case ExIllegalFunction:
		return "illegal function"
	case ExIllegalDataAddress:
		return "illegal data address"
	case ExIllegalDataValue:
		return "illegal data value"
	case ExServerDeviceFailure:
		return "server device failure"
	case ExAcknowledge:
		return "acknowledge"
	case ExServerDeviceBusy:
		return "server device busy"
	case ExMemoryParityError:
		return "memory parity error"
	case ExGatewayPathUnavailable:
		return "gateway path unavailable"
	case ExGatewayTargetFailedToRespond:
		return "gateway target device failed to respond"
	default:
		return "unknown exception"
	}
}

func fcString(fc FunctionCode) string {
	switch fc {
	case FcReadCoils:
		return "ReadCoils"
	case FcReadDiscreteInputs:
		return "ReadDiscreteInputs"
	case FcReadHoldingRegisters:
		return "ReadHoldingRegisters"
	case FcReadInputRegisters:
		return "ReadInputRegisters"
	case FcWriteSingleCoil:
		return "WriteSingleCoil"
	case FcWriteSingleRegister:
		return "WriteSingleRegister"
	case FcWriteMultipleCoils:
		return "WriteMultipleCoils"
	case FcWriteMultipleRegisters:
		return "WriteMultipleRegisters"
	case FcMaskWriteRegister:
		return "MaskWriteRegister"
	case FcReadWriteMultipleRegisters:
		return "ReadWriteMultipleRegisters"
	default:
		if fc.IsCustom() {
			return "Custom"
		}
		return "Unknown"
	}
}

// ExceptionResponseFrom builds an Exception from a raw response function
// code byte (with the exception bit set) and the trailing exception
// code byte, as produced by the PDU decoder.
func ExceptionResponseFrom(fcWithBit7 FunctionCode, exceptionByte byte) *Exception {
	return &Exception{
		FunctionCode: fcWithBit7,
		Code:         ExceptionCode(exceptionByte),
	}
}
