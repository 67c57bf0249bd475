package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fieldwire/gomodbus/modbus"
	"github.com/fieldwire/gomodbus/rtu"
)

func TestRTUServerRoundTrip(t *testing.T) {
	line, peer := net.Pipe()
	defer line.Close()
	defer peer.Close()

	svc := Service(func(ctx context.Context, req modbus.Request) (*modbus.Response, error) {
		return &modbus.Response{Op: modbus.FcReadHoldingRegisters, Registers: []uint16{0x1234}}, nil
	})
	s := NewRTUServer(svc, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, line)

	reqPDU := []byte{0x03, 0x00, 0x00, 0x00, 0x01}
	if _, err := peer.Write(rtu.Encode(3, reqPDU)); err != nil {
		t.Fatal(err)
	}

	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := peer.Read(buf)
	if err != nil {
		t.Fatal(err)
	}

	frame, consumed, needMore, decErr := rtu.Decode(buf[:n], func(window []byte) (int, bool, error) {
		if len(window) < 2 {
			return 0, false, nil
		}
		respFc := modbus.FunctionCode(window[1])
		have := len(window) >= 3
		var bc byte
		if have {
			bc = window[2]
		}
		return rtu.ExpectedResponseLength(modbus.FcReadHoldingRegisters, respFc, bc, have)
	})
	if decErr != nil || needMore {
		t.Fatalf("decode response: err=%v needMore=%v", decErr, needMore)
	}
	if consumed != n {
		t.Fatalf("consumed %d of %d bytes", consumed, n)
	}
	if frame.UnitID != 3 {
		t.Fatalf("unit id = %d, want 3", frame.UnitID)
	}
	want := []byte{0x03, 0x02, 0x12, 0x34}
	if string(frame.PDU) != string(want) {
		t.Fatalf("got % X, want % X", frame.PDU, want)
	}
}

func TestRTUServerIgnoresOtherUnitID(t *testing.T) {
	line, peer := net.Pipe()
	defer line.Close()
	defer peer.Close()

	called := make(chan struct{}, 1)
	svc := Service(func(ctx context.Context, req modbus.Request) (*modbus.Response, error) {
		called <- struct{}{}
		return &modbus.Response{Op: modbus.FcReadHoldingRegisters, Registers: []uint16{0}}, nil
	})
	s := NewRTUServer(svc, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, line)

	reqPDU := []byte{0x03, 0x00, 0x00, 0x00, 0x01}
	if _, err := peer.Write(rtu.Encode(9, reqPDU)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-called:
		t.Fatal("service should not be invoked for a request addressed to a different unit id")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRTUServerBroadcastNeverWritesResponse(t *testing.T) {
	line, peer := net.Pipe()
	defer line.Close()
	defer peer.Close()

	called := make(chan struct{}, 1)
	svc := Service(func(ctx context.Context, req modbus.Request) (*modbus.Response, error) {
		called <- struct{}{}
		return &modbus.Response{Op: modbus.FcWriteMultipleRegisters}, nil
	})
	s := NewRTUServer(svc, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, line)

	reqPDU := []byte{0x10, 0x00, 0x00, 0x00, 0x01, 0x02, 0x00, 0x01}
	if _, err := peer.Write(rtu.Encode(modbus.Broadcast, reqPDU)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("broadcast request should still invoke the service")
	}

	peer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 16)
	_, err := peer.Read(buf)
	if err == nil {
		t.Fatal("expected no response to be written for a broadcast request")
	}
}
