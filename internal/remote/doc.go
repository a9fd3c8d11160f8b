// Package remote provides the command link to the physical
// signal-generation controller.
//
// The controller is reached over MQTT through its gateway process. Core
// publishes JSON command messages and correlates responses by command
// ID; the gateway pushes asynchronous notifications (most importantly
// the "done" signal at the end of a run) on a separate topic.
//
// # Architecture
//
//	┌──────────────┐           ┌──────────────┐
//	│  PulseGrid   │   MQTT    │  Controller  │   serial/PCI
//	│     Core     │◄─────────►│   gateway    │◄───────────── DSP card
//	└──────────────┘           └──────────────┘
//
// The Connection interface is the closed set of operations the
// controller supports, one implementation per transport. Client is the
// MQTT implementation; tests substitute fakes.
//
// All request/response calls are bounded by a fixed request timeout.
// A timeout or transport failure surfaces as an error wrapping
// ErrConnection; the core never retries on its own.
package remote
