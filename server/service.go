// Package server implements the Modbus server request-dispatch and
// framing loop (spec.md §4.6) for both TCP (MBAP) and RTU transports.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldwire/gomodbus/modbus"
)

// Service is the user-supplied request handler (spec.md §4.6/§9: "a
// plain callable", deliberately not an interface). A nil response and
// nil error means "silently drop" — used for broadcast/fire-and-forget
// requests; a non-nil error is turned into an ExceptionResponse.
type Service func(ctx context.Context, req modbus.Request) (*modbus.Response, error)

// dispatch decodes pdu, invokes svc, and returns the PDU to write back.
// drop is true when the service asked for silence (broadcast). Panics
// inside svc are recovered and reported as ServerDeviceFailure, per
// spec.md §4.6 step 3.
func dispatch(ctx context.Context, svc Service, pdu []byte) (respPDU []byte, drop bool) {
	req, decErr := modbus.DecodeRequest(pdu)
	if decErr != nil {
		return modbus.EncodeException(exceptionFor(pdu, decErr)), false
	}

	resp, err := invoke(ctx, svc, req)
	if err != nil {
		var exc *modbus.Exception
		if errors.As(err, &exc) {
			return modbus.EncodeException(exc), false
		}
		return modbus.EncodeException(&modbus.Exception{
			FunctionCode: req.FunctionCode(),
			Code:         modbus.ExServerDeviceFailure,
		}), false
	}
	if resp == nil {
		return nil, true
	}

	respPDUBytes, encErr := modbus.EncodeResponse(*resp)
	if encErr != nil {
		return modbus.EncodeException(&modbus.Exception{
			FunctionCode: req.FunctionCode(),
			Code:         modbus.ExServerDeviceFailure,
		}), false
	}
	return respPDUBytes, false
}

func invoke(ctx context.Context, svc Service, req modbus.Request) (resp *modbus.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: service panicked: %v", errServicePanic, r)
		}
	}()
	return svc(ctx, req)
}

var errServicePanic = errors.New("modbus: service panic recovered as ServerDeviceFailure")

// exceptionFor builds the best-effort exception for a request the
// decoder could not fully parse: a known function code with bad
// arguments yields IllegalDataValue (or whatever *Exception DecodeRequest
// already produced); a wholly unrecognized frame yields IllegalFunction
// against whatever function code byte was present.
func exceptionFor(pdu []byte, decErr error) *modbus.Exception {
	var exc *modbus.Exception
	if errors.As(decErr, &exc) {
		return exc
	}
	fc := modbus.FunctionCode(0)
	if len(pdu) > 0 {
		fc = modbus.FunctionCode(pdu[0])
	}
	return &modbus.Exception{FunctionCode: fc, Code: modbus.ExIllegalDataValue}
}
