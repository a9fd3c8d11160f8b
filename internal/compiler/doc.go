// Package compiler turns action tables into the command sequences the
// signal-generation controller executes.
//
// Two compilation paths exist, one per controller generation:
//
//   - CompileRelative produces a list of relative-time actions for
//     current-generation controllers that accept floating-point
//     millisecond timestamps directly.
//
//   - LegacyCompiler produces a tick-quantized profile for the legacy
//     controller: integer clock ticks, separate digital and per-channel
//     analog event lists, a fixed-layout binary descriptor, and
//     workarounds for two firmware bugs (minimum event count, trailing
//     analog events).
//
// Compilation is pure apart from the DeviceState threaded through
// LegacyCompiler.Compile: the legacy controller expresses analog
// outputs as offsets from the values it held when the previous profile
// was loaded, so the state from one compile is input to the next.
//
// # Timing
//
// Ticks are the legacy controller's native time unit, TickRate ticks
// per millisecond. Quantization rounds half up, so 10.1 ms and
// 10.1999 ms both land on tick 101 at the default rate. Two rows that
// quantize to the same tick with different digital values exceed the
// controller's timing resolution; the profile keeps both events (the
// controller applies the later one) and the condition is reported via
// TimingResolutionError.
package compiler
