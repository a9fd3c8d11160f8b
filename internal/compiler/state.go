package compiler

import "github.com/nerrad567/pulsegrid-core/internal/actiontable"

// DeviceState is the hardware state carried between successive legacy
// compiles on the same controller connection.
//
// The legacy controller expresses analog outputs in a profile as
// offsets from the values its channels held when the profile was
// loaded, so each compile needs to know where the previous one left
// the hardware. Digital is the bitmask the controller currently holds;
// Baselines are the current analog channel values.
//
// The state is owned by the device instance and mutated only at the
// end of a successful compile, once execution has been handed to the
// connection. It is intentionally a plain value type: callers thread
// it through Compile as input and output, which keeps the carry-over
// testable in isolation.
type DeviceState struct {
	Digital   uint32
	Baselines [actiontable.AnalogChannels]float64
}
