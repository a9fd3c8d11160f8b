package api

import (
	"github.com/nerrad567/pulsegrid-core/internal/executor"
)

// StatusBroadcaster relays executor status events to WebSocket clients
// on the "run.status" channel. Events are fire-and-forget: Broadcast
// never blocks on slow clients, which keeps the executor's run loop
// independent of UI consumers.
type StatusBroadcaster struct {
	hub *Hub
}

var _ executor.StatusPublisher = (*StatusBroadcaster)(nil)

// NewStatusBroadcaster wraps a hub for use as the executor's status sink.
func NewStatusBroadcaster(hub *Hub) *StatusBroadcaster {
	return &StatusBroadcaster{hub: hub}
}

// PublishWaiting announces that a run started and the core is waiting
// for the controller to finish.
func (b *StatusBroadcaster) PublishWaiting(deviceID, message string, color executor.Color) {
	b.hub.Broadcast(WSChannelRunStatus, map[string]any{
		"device_id": deviceID,
		"status":    "waiting",
		"message":   message,
		"color":     []uint8{color[0], color[1], color[2]},
	})
}

// PublishComplete marks the end of an execution, whether by natural
// completion or abort.
func (b *StatusBroadcaster) PublishComplete(deviceID string) {
	b.hub.Broadcast(WSChannelRunStatus, map[string]any{
		"device_id": deviceID,
		"status":    "complete",
	})
}
