package mbap

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x00, 0x00, 0x02}
	encoded := Encode(1, 1, pdu)

	want := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x02}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("got % X, want % X", encoded, want)
	}

	frame, consumed, needMore, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if needMore {
		t.Fatal("unexpected needMore")
	}
	if consumed != len(encoded) {
		t.Fatalf("consumed %d, want %d", consumed, len(encoded))
	}
	if frame.TransactionID != 1 || frame.UnitID != 1 {
		t.Fatalf("got %+v", frame)
	}
	if !bytes.Equal(frame.PDU, pdu) {
		t.Fatalf("PDU got % X, want % X", frame.PDU, pdu)
	}
}

func TestScenario1Bytes(t *testing.T) {
	// spec.md §8 scenario 1.
	reqBytes := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x02}
	frame, _, needMore, err := Decode(reqBytes)
	if err != nil || needMore {
		t.Fatalf("decode request: err=%v needMore=%v", err, needMore)
	}
	if frame.TransactionID != 1 || frame.UnitID != 1 {
		t.Fatalf("got %+v", frame)
	}

	respBytes := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0x01, 0x03, 0x04, 0x00, 0x2A, 0x00, 0xFB}
	respFrame, _, needMore, err := Decode(respBytes)
	if err != nil || needMore {
		t.Fatalf("decode response: err=%v needMore=%v", err, needMore)
	}
	if respFrame.TransactionID != 1 {
		t.Fatalf("transaction id = %d, want 1", respFrame.TransactionID)
	}
}

func TestNeedMorePartialHeader(t *testing.T) {
	_, _, needMore, err := Decode([]byte{0x00, 0x01, 0x00})
	if err != nil || !needMore {
		t.Fatalf("expected needMore, got err=%v needMore=%v", err, needMore)
	}
}

func TestNeedMorePartialPDU(t *testing.T) {
	full := Encode(1, 1, []byte{0x03, 0x00, 0x00, 0x00, 0x02})
	_, _, needMore, err := Decode(full[:len(full)-2])
	if err != nil || !needMore {
		t.Fatalf("expected needMore, got err=%v needMore=%v", err, needMore)
	}
}

func TestUnknownProtocolID(t *testing.T) {
	buf := Encode(1, 1, []byte{0x03})
	buf[2] = 0x00
	buf[3] = 0x01 // non-zero protocol id
	_, _, _, err := Decode(buf)
	if err == nil {
		t.Fatal("expected error for non-zero protocol id")
	}
}

func TestBufferedStreamWithTwoFrames(t *testing.T) {
	f1 := Encode(1, 1, []byte{0x03, 0x00, 0x00, 0x00, 0x02})
	f2 := Encode(2, 1, []byte{0x03, 0x00, 0x02, 0x00, 0x02})
	buf := append(append([]byte{}, f1...), f2...)

	frame, consumed, needMore, err := Decode(buf)
	if err != nil || needMore {
		t.Fatalf("first frame: err=%v needMore=%v", err, needMore)
	}
	if frame.TransactionID != 1 {
		t.Fatalf("first frame transaction id = %d", frame.TransactionID)
	}
	buf = buf[consumed:]

	frame, _, needMore, err = Decode(buf)
	if err != nil || needMore {
		t.Fatalf("second frame: err=%v needMore=%v", err, needMore)
	}
	if frame.TransactionID != 2 {
		t.Fatalf("second frame transaction id = %d", frame.TransactionID)
	}
}
