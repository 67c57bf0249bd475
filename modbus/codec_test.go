package modbus

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadHoldingRegistersRequestBytes(t *testing.T) {
	pdu, err := EncodeRequest(Request{Op: FcReadHoldingRegisters, Addr: 0, Quantity: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x03, 0x00, 0x00, 0x00, 0x02}
	if !bytes.Equal(pdu, want) {
		t.Fatalf("got % X, want % X", pdu, want)
	}
}

func TestReadHoldingRegistersResponseDecode(t *testing.T) {
	// spec.md §8 scenario 1: response PDU 03 04 00 2A 00 FB.
	req := Request{Op: FcReadHoldingRegisters, Addr: 0, Quantity: 2}
	resp, err := DecodeResponse([]byte{0x03, 0x04, 0x00, 0x2A, 0x00, 0xFB}, req)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{0x002A, 0x00FB}
	if len(resp.Registers) != 2 || resp.Registers[0] != want[0] || resp.Registers[1] != want[1] {
		t.Fatalf("got %v, want %v", resp.Registers, want)
	}
}

func TestExceptionBitRoundTrip(t *testing.T) {
	for fc := FunctionCode(0x01); fc < 0x80; fc++ {
		exc := &Exception{FunctionCode: fc, Code: ExIllegalDataAddress}
		encoded := EncodeException(exc)
		want := []byte{byte(fc) | 0x80, byte(ExIllegalDataAddress)}
		if !bytes.Equal(encoded, want) {
			t.Fatalf("fc=0x%02X: got % X, want % X", fc, encoded, want)
		}

		decoded, err := DecodeResponse(encoded, Request{Op: fc})
		if decoded != nil {
			t.Fatalf("fc=0x%02X: expected nil response on exception", fc)
		}
		var gotExc *Exception
		if !errors.As(err, &gotExc) {
			t.Fatalf("fc=0x%02X: expected *Exception, got %v", fc, err)
		}
		if gotExc.Code != ExIllegalDataAddress {
			t.Fatalf("fc=0x%02X: exception code = %v, want IllegalDataAddress", fc, gotExc.Code)
		}
	}
}

func TestExceptionResponseScenario(t *testing.T) {
	// spec.md §8 scenario 3: fc=0x04 exception IllegalDataAddress.
	pdu := []byte{0x84, 0x02}
	_, err := DecodeResponse(pdu, Request{Op: FcReadInputRegisters})
	var exc *Exception
	if !errors.As(err, &exc) {
		t.Fatalf("expected *Exception, got %v", err)
	}
	if exc.Code != ExIllegalDataAddress {
		t.Fatalf("exception code = %v, want IllegalDataAddress", exc.Code)
	}
}

func TestCoilTruncation(t *testing.T) {
	// spec.md §8 scenario 4: qty=3, byte_count=1, data=0b00000101.
	req := Request{Op: FcReadCoils, Addr: 0, Quantity: 3}
	resp, err := DecodeResponse([]byte{0x01, 0x01, 0x05}, req)
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false, true}
	if len(resp.Coils) != 3 {
		t.Fatalf("got %d coils, want 3", len(resp.Coils))
	}
	for i := range want {
		if resp.Coils[i] != want[i] {
			t.Fatalf("coil %d: got %v, want %v", i, resp.Coils[i], want[i])
		}
	}
}

func TestQuantityBounds(t *testing.T) {
	cases := []struct {
		name string
		req  Request
	}{
		{"read coils too many", Request{Op: FcReadCoils, Quantity: MaxReadBits + 1}},
		{"read coils zero", Request{Op: FcReadCoils, Quantity: 0}},
		{"read registers too many", Request{Op: FcReadHoldingRegisters, Quantity: MaxReadRegisters + 1}},
		{"write multiple coils too many", Request{Op: FcWriteMultipleCoils, Coils: make([]bool, MaxWriteMultipleCoils+1)}},
		{"write multiple registers too many", Request{Op: FcWriteMultipleRegisters, Registers: make([]uint16, MaxWriteMultipleRegs+1)}},
		{"write multiple coils empty", Request{Op: FcWriteMultipleCoils, Coils: nil}},
	}
	for _, c := range cases {
		if _, err := EncodeRequest(c.req); err == nil {
			t.Errorf("%s: expected error, got none", c.name)
		}
	}
}

func TestMaskWriteRegisterRoundTrip(t *testing.T) {
	// spec.md §8 scenario 5: 16 00 04 00 F2 00 25.
	req := Request{Op: FcMaskWriteRegister, Addr: 0x0004, AndMask: 0x00F2, OrMask: 0x0025}
	pdu, err := EncodeRequest(req)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x16, 0x00, 0x04, 0x00, 0xF2, 0x00, 0x25}
	if !bytes.Equal(pdu, want) {
		t.Fatalf("got % X, want % X", pdu, want)
	}

	decoded, err := DecodeRequest(pdu)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Addr != req.Addr || decoded.AndMask != req.AndMask || decoded.OrMask != req.OrMask {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, req)
	}
}

func TestWriteSingleCoilIncludesValueInResponse(t *testing.T) {
	// Regression guard named in spec.md §4.2: the response MUST echo
	// the coil value, not just the address.
	resp := Response{Op: FcWriteSingleCoil, Addr: 0x00AC, CoilValue: true}
	pdu, err := EncodeResponse(resp)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x05, 0x00, 0xAC, 0xFF, 0x00}
	if !bytes.Equal(pdu, want) {
		t.Fatalf("got % X, want % X", pdu, want)
	}
}

func TestSingleCoilInvalidWireValue(t *testing.T) {
	_, err := DecodeRequest([]byte{0x05, 0x00, 0xAC, 0x12, 0x34})
	if !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestFunctionCodeMismatch(t *testing.T) {
	_, err := DecodeResponse([]byte{0x04, 0x02, 0x00, 0x01}, Request{Op: FcReadHoldingRegisters})
	if !errors.Is(err, ErrFunctionCodeMismatch) {
		t.Fatalf("expected ErrFunctionCodeMismatch, got %v", err)
	}
}

func TestWriteMultipleRegistersRoundTrip(t *testing.T) {
	req := Request{Op: FcWriteMultipleRegisters, Addr: 0x10, Registers: []uint16{1, 2, 3}}
	pdu, err := EncodeRequest(req)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeRequest(pdu)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Addr != req.Addr || len(decoded.Registers) != len(req.Registers) {
		t.Fatalf("round trip mismatch: got %+v", decoded)
	}
	for i := range req.Registers {
		if decoded.Registers[i] != req.Registers[i] {
			t.Fatalf("register %d: got %d, want %d", i, decoded.Registers[i], req.Registers[i])
		}
	}
}

func TestCustomFunctionCodeRoundTrip(t *testing.T) {
	req := Request{CustomFc: 0x55, CustomPayload: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	pdu, err := EncodeRequest(req)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeRequest(pdu)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.CustomFc != req.CustomFc || !bytes.Equal(decoded.CustomPayload, req.CustomPayload) {
		t.Fatalf("got %+v, want %+v", decoded, req)
	}
}

func TestUnknownFunctionCodeIsIllegalFunction(t *testing.T) {
	_, err := DecodeRequest([]byte{0x00, 0x01, 0x02})
	var exc *Exception
	if !errors.As(err, &exc) || exc.Code != ExIllegalFunction {
		t.Fatalf("expected IllegalFunction exception, got %v", err)
	}
}
