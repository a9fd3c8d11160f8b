package remote

import "errors"

// Domain errors for the remote package.
var (
	// ErrConnection is returned when a controller call fails in transit:
	// broker down, gateway unreachable, or malformed response.
	ErrConnection = errors.New("remote: connection error")

	// ErrRequestTimeout is returned when the gateway does not respond
	// within the request timeout. Errors carrying it also match
	// ErrConnection.
	ErrRequestTimeout = errors.New("remote: request timed out")

	// ErrNotConnected is returned when an operation is attempted while
	// the broker connection is down.
	ErrNotConnected = errors.New("remote: not connected to broker")

	// ErrRemoteFault is returned when the gateway reports a controller
	// error for an otherwise-delivered command.
	ErrRemoteFault = errors.New("remote: controller fault")
)
