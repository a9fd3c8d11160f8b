// Package executor orchestrates experiment runs against the
// signal-generation controller.
//
// Executor is the per-device facade: it compiles the caller's action
// table with the compiler variant matching the controller generation,
// drives the remote connection, and makes the asynchronous run appear
// synchronous to its caller. The blocking behaviour comes from
// CompletionSynchronizer, which parks the calling goroutine until the
// gateway's "done" notification fires or an abort releases the wait.
//
// # Concurrency
//
// One compile+execute cycle per device at a time: Execute holds a
// per-device mutex for its whole duration, as does Initialize.
// Abort is the exception; it may be called at any moment, from any
// goroutine, including before initialization, and never blocks on the
// hardware. The notification-delivery path (the MQTT client's
// goroutine) only ever calls CompletionSynchronizer.Signal.
package executor
