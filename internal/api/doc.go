// Package api implements the HTTP REST API and WebSocket server for
// PulseGrid Core.
//
// This package provides:
//   - REST endpoints for running action tables, aborting runs, reading
//     and driving controller outputs, and querying the run log
//   - WebSocket hub for real-time run status broadcasts
//   - JWT authentication with single-use WebSocket tickets
//   - Standard middleware: request ID, logging, panic recovery, CORS,
//     request body limits
//
// The server follows the same lifecycle as the other infrastructure
// components: New(deps), Start(ctx), Close().
package api
