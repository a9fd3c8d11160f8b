package remote

import (
	"fmt"
	"time"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
	"github.com/nerrad567/pulsegrid-core/internal/compiler"
)

// MQTT message types exchanged with the controller gateway.
//
// Topic scheme: pulsegrid/{category}/{device_id}[/{suffix}]
//   - pulsegrid/command/{device_id}          core → gateway
//   - pulsegrid/response/{device_id}/{id}    gateway → core, one per command
//   - pulsegrid/notify/{device_id}           gateway → core, async push

// Command names form the closed set of controller operations.
const (
	CmdReadDigital     = "read_digital"
	CmdWriteDigital    = "write_digital"
	CmdReadPosition    = "read_position"
	CmdMoveAbsolute    = "move_absolute"
	CmdPrepareActions  = "prepare_actions"
	CmdLoadProfile     = "load_profile"
	CmdDownloadProfile = "download_profile"
	CmdInitProfile     = "init_profile"
	CmdRunActions      = "run_actions"
	CmdAbort           = "abort"
	CmdRegisterClient  = "register_client"
)

// NotifyDone is the notification event sent once per completed or
// aborted run. Delivery is at-least-once; duplicates must be tolerated.
const NotifyDone = "done"

// CommandMessage is sent from core to the gateway.
type CommandMessage struct {
	// ID uniquely identifies this command for response correlation.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the controller the command addresses.
	DeviceID string `json:"device_id"`

	// Command is one of the Cmd* names.
	Command string `json:"command"`

	// Parameters carries command-specific values.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ResponseMessage is the gateway's reply to one command.
type ResponseMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the response was sent (UTC).
	Timestamp time.Time `json:"timestamp"`

	Success bool `json:"success"`

	// Data carries command-specific results (e.g. {"value": 42}).
	Data map[string]any `json:"data,omitempty"`

	// Error holds details when Success is false.
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError contains gateway-reported failure details.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NotificationMessage is an asynchronous push from the gateway.
type NotificationMessage struct {
	// DeviceID is the controller the notification concerns.
	DeviceID string `json:"device_id"`

	// Event is the notification type; NotifyDone marks run completion.
	Event string `json:"event"`

	// Timestamp is when the gateway emitted the event (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// Error codes reported by the gateway.
const (
	ErrCodeControllerFault = "CONTROLLER_FAULT"
	ErrCodeInvalidCommand  = "INVALID_COMMAND"
	ErrCodeBusy            = "BUSY"
)

// digitalEventWire is the JSON form of one digital profile event.
type digitalEventWire struct {
	Tick  uint32 `json:"tick"`
	Value uint32 `json:"value"`
}

// analogEventWire is the JSON form of one analog profile event.
type analogEventWire struct {
	Tick   uint32  `json:"tick"`
	Offset float64 `json:"offset"`
}

// profilePayload encodes a compiled legacy profile for load_profile.
// The descriptor travels in its binary wire form (base64 in JSON) so
// the gateway can hand it to the controller untouched.
type profilePayload struct {
	Descriptor []byte                                          `json:"descriptor"`
	Digitals   []digitalEventWire                              `json:"digitals"`
	Analogs    [actiontable.AnalogChannels][]analogEventWire   `json:"analogs"`
}

func encodeProfile(p *compiler.Profile) (*profilePayload, error) {
	desc, err := p.Descriptor.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}

	payload := &profilePayload{
		Descriptor: desc,
		Digitals:   make([]digitalEventWire, len(p.Digitals)),
	}
	for i, ev := range p.Digitals {
		payload.Digitals[i] = digitalEventWire{Tick: ev.Tick, Value: ev.Value}
	}
	for ch, events := range p.Analogs {
		wire := make([]analogEventWire, len(events))
		for i, ev := range events {
			wire[i] = analogEventWire{Tick: ev.Tick, Offset: ev.Offset}
		}
		payload.Analogs[ch] = wire
	}
	return payload, nil
}

// actionWire is the JSON form of one relative-time action.
type actionWire struct {
	TimeMillis float64                               `json:"t"`
	Digital    uint32                                `json:"digital"`
	Analog     [actiontable.AnalogChannels]float64   `json:"analog"`
}

func encodeActions(actions []compiler.RelativeAction) []actionWire {
	wire := make([]actionWire, len(actions))
	for i, a := range actions {
		wire[i] = actionWire{TimeMillis: a.TimeMillis, Digital: a.Digital, Analog: a.Analog}
	}
	return wire
}

// CommandTopic returns the command topic for a controller.
//
// Example: pulsegrid/command/dsp-01
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("pulsegrid/command/%s", deviceID)
}

// ResponseTopic returns the response topic for one command.
//
// Example: pulsegrid/response/dsp-01/9f1c...
func ResponseTopic(deviceID, commandID string) string {
	return fmt.Sprintf("pulsegrid/response/%s/%s", deviceID, commandID)
}

// ResponseSubscribeTopic returns the wildcard pattern matching every
// response for a controller.
//
// Pattern: pulsegrid/response/dsp-01/+
func ResponseSubscribeTopic(deviceID string) string {
	return fmt.Sprintf("pulsegrid/response/%s/+", deviceID)
}

// NotifyTopic returns the notification topic for a controller.
//
// Example: pulsegrid/notify/dsp-01
func NotifyTopic(deviceID string) string {
	return fmt.Sprintf("pulsegrid/notify/%s", deviceID)
}
