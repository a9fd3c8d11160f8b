package compiler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
)

// DescriptorSize is the serialized size of a Descriptor in bytes.
// Every field is four bytes wide, so the layout is naturally aligned
// with no padding.
const DescriptorSize = 32

// Descriptor is the fixed-layout header the legacy controller reads
// before downloading a profile's event lists. The byte layout matches
// the controller's C struct: all fields little-endian, four bytes each.
type Descriptor struct {
	// Count is the highest tick index across all events; the controller
	// runs its clock from 0 through Count.
	Count uint32

	// ClockMicros is the tick period in microseconds (1000 / tickRate).
	ClockMicros float32

	// InitDigital is the digital bitmask the hardware holds when the
	// profile starts, i.e. the state before this profile, not after.
	InitDigital uint32

	// NDigital is the number of digital events that follow.
	NDigital uint32

	// NAnalog holds the per-channel analog event counts.
	NAnalog [actiontable.AnalogChannels]uint32
}

// MarshalBinary serializes the descriptor into its 32-byte wire form.
func (d Descriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DescriptorSize)
	binary.LittleEndian.PutUint32(buf[0:], d.Count)
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(d.ClockMicros))
	binary.LittleEndian.PutUint32(buf[8:], d.InitDigital)
	binary.LittleEndian.PutUint32(buf[12:], d.NDigital)
	for ch, n := range d.NAnalog {
		binary.LittleEndian.PutUint32(buf[16+4*ch:], n)
	}
	return buf, nil
}

// UnmarshalBinary parses a 32-byte wire-form descriptor.
func (d *Descriptor) UnmarshalBinary(data []byte) error {
	if len(data) != DescriptorSize {
		return fmt.Errorf("compiler: descriptor must be %d bytes, got %d", DescriptorSize, len(data))
	}
	d.Count = binary.LittleEndian.Uint32(data[0:])
	d.ClockMicros = math.Float32frombits(binary.LittleEndian.Uint32(data[4:]))
	d.InitDigital = binary.LittleEndian.Uint32(data[8:])
	d.NDigital = binary.LittleEndian.Uint32(data[12:])
	for ch := range d.NAnalog {
		d.NAnalog[ch] = binary.LittleEndian.Uint32(data[16+4*ch:])
	}
	return nil
}
