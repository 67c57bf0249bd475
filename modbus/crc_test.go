package modbus

import "testing"

func TestCRCVectors(t *testing.T) {
	var c crc
	c.init()
	if c.value != 0xFFFF {
		t.Fatalf("init: got 0x%04X, want 0xFFFF", c.value)
	}
	if b := c.bytes(); b != [2]byte{0xFF, 0xFF} {
		t.Fatalf("init bytes: got %v, want [0xFF 0xFF]", b)
	}

	c.add([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	if c.value != 0xbb2a {
		t.Fatalf("after first add: got 0x%04X, want 0xbb2a", c.value)
	}
	if b := c.bytes(); b != [2]byte{0x2a, 0xbb} {
		t.Fatalf("after first add bytes: got %v, want [0x2a 0xbb]", b)
	}

	c.add([]byte{0x06})
	if c.value != 0xddba {
		t.Fatalf("after second add: got 0x%04X, want 0xddba", c.value)
	}
	if !c.isEqual(0xba, 0xdd) {
		t.Fatalf("isEqual(0xba, 0xdd) should hold after second add")
	}

	c.init()
	if c.value != 0xFFFF {
		t.Fatalf("re-init: got 0x%04X, want 0xFFFF", c.value)
	}
}

func TestCRC16ReferenceFrame(t *testing.T) {
	// WriteSingleCoil(addr=0x00AC, true), unit 11: spec.md §8 scenario 2.
	frame := []byte{0x0B, 0x05, 0x00, 0xAC, 0xFF, 0x00}
	got := CRC16(frame)
	if got != 0x4E8B {
		t.Fatalf("CRC16 = 0x%04X, want 0x4E8B", got)
	}
}
