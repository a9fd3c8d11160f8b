package compiler

import (
	"bytes"
	"testing"
)

func TestDescriptorMarshalBinary(t *testing.T) {
	d := Descriptor{
		Count:       120,
		ClockMicros: 100,
		InitDigital: 0x0000FFFF,
		NDigital:    3,
		NAnalog:     [4]uint32{1, 0, 2, 0},
	}

	got, err := d.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}

	// Fixed C-aligned layout: u32 count, f32 clock (100.0 = 0x42C80000),
	// u32 initial digital state, u32 digital count, 4×u32 analog counts,
	// all little-endian.
	want := []byte{
		0x78, 0x00, 0x00, 0x00,
		0x00, 0x00, 0xC8, 0x42,
		0xFF, 0xFF, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("MarshalBinary() =\n% x\nwant\n% x", got, want)
	}

	var back Descriptor
	if err := back.UnmarshalBinary(got); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if back != d {
		t.Errorf("round trip = %+v, want %+v", back, d)
	}
}

func TestDescriptorUnmarshalBinaryRejectsBadLength(t *testing.T) {
	var d Descriptor
	if err := d.UnmarshalBinary(make([]byte, 16)); err == nil {
		t.Error("UnmarshalBinary() accepted a short buffer")
	}
}
