package executor

// Color is an RGB display colour attached to status events, for
// operator UIs that render a status light.
type Color [3]uint8

// ColorBusy is the status-light colour while a run is in flight.
var ColorBusy = Color{255, 255, 0}

// StatusPublisher receives fire-and-forget status events from the
// executor. No acknowledgment is expected; implementations must not
// block. The API layer fans these out to WebSocket clients.
type StatusPublisher interface {
	// PublishWaiting announces that the device is busy and the core is
	// waiting for the controller to finish.
	PublishWaiting(deviceID, message string, color Color)

	// PublishComplete marks the end of an execution, whether by natural
	// completion or abort.
	PublishComplete(deviceID string)
}

// NopStatusPublisher discards all status events.
type NopStatusPublisher struct{}

func (NopStatusPublisher) PublishWaiting(string, string, Color) {}
func (NopStatusPublisher) PublishComplete(string)               {}
