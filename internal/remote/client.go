package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
	"github.com/nerrad567/pulsegrid-core/internal/compiler"
)

// defaultRequestTimeout bounds every request/response exchange with the
// gateway. Matches the historical 6-second proxy timeout the controller
// gateways were tuned for.
const defaultRequestTimeout = 6 * time.Second

// qosAtLeastOnce is the QoS level for all gateway traffic.
const qosAtLeastOnce = 1

// Broker is the subset of the MQTT client the controller link needs.
// Satisfied by *mqtt.Client; tests substitute fakes.
type Broker interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool
}

// Logger is the optional logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client is the MQTT implementation of Connection.
//
// Each operation publishes a JSON command with a UUID correlation ID
// and blocks until the matching response arrives or the request
// timeout elapses. Asynchronous notifications are dispatched to the
// callback installed with SetOnDone from the broker's delivery
// goroutine.
//
// Thread Safety: all methods are safe for concurrent use; responses
// are matched to waiters by command ID, so overlapping requests do not
// interfere.
type Client struct {
	broker   Broker
	deviceID string
	timeout  time.Duration
	logger   Logger

	// pending holds one response channel per in-flight command ID.
	pending   map[string]chan ResponseMessage
	pendingMu sync.Mutex

	onDone   func(deviceID string)
	onDoneMu sync.RWMutex
}

var _ Connection = (*Client)(nil)

// ClientOptions configures a controller client.
type ClientOptions struct {
	// Broker is the connected MQTT client. Required.
	Broker Broker

	// DeviceID identifies the controller on the topic hierarchy. Required.
	DeviceID string

	// RequestTimeout bounds each request/response exchange.
	// Defaults to 6 seconds.
	RequestTimeout time.Duration

	// Logger is optional.
	Logger Logger
}

// NewClient creates a controller client and subscribes to the
// controller's response and notification topics.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("remote: broker is required")
	}
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("remote: device ID is required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	c := &Client{
		broker:   opts.Broker,
		deviceID: opts.DeviceID,
		timeout:  opts.RequestTimeout,
		logger:   opts.Logger,
		pending:  make(map[string]chan ResponseMessage),
	}

	if err := c.broker.Subscribe(ResponseSubscribeTopic(c.deviceID), qosAtLeastOnce, c.handleResponse); err != nil {
		return nil, fmt.Errorf("remote: subscribing to responses: %w", err)
	}
	if err := c.broker.Subscribe(NotifyTopic(c.deviceID), qosAtLeastOnce, c.handleNotify); err != nil {
		return nil, fmt.Errorf("remote: subscribing to notifications: %w", err)
	}

	return c, nil
}

// DeviceID returns the controller ID this client addresses.
func (c *Client) DeviceID() string { return c.deviceID }

// SetOnDone installs the run-completion callback. It is invoked on the
// broker's delivery goroutine and must not block.
func (c *Client) SetOnDone(fn func(deviceID string)) {
	c.onDoneMu.Lock()
	c.onDone = fn
	c.onDoneMu.Unlock()
}

// handleResponse routes a gateway response to the waiter registered
// under its command ID. Responses with no waiter (late arrivals after
// a timeout) are dropped.
func (c *Client) handleResponse(topic string, payload []byte) {
	var resp ResponseMessage
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.logger.Error("malformed gateway response", "topic", topic, "error", err)
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.CommandID]
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("dropping late response", "command_id", resp.CommandID)
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

// handleNotify dispatches asynchronous gateway notifications.
func (c *Client) handleNotify(topic string, payload []byte) {
	var note NotificationMessage
	if err := json.Unmarshal(payload, &note); err != nil {
		c.logger.Error("malformed gateway notification", "topic", topic, "error", err)
		return
	}

	if note.Event != NotifyDone {
		c.logger.Debug("ignoring notification", "event", note.Event)
		return
	}

	c.onDoneMu.RLock()
	fn := c.onDone
	c.onDoneMu.RUnlock()

	if fn != nil {
		fn(note.DeviceID)
	}
}

// request performs one command/response exchange with the gateway.
func (c *Client) request(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	if !c.broker.IsConnected() {
		return nil, fmt.Errorf("%w: %w", ErrConnection, ErrNotConnected)
	}

	cmd := CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   c.deviceID,
		Command:    command,
		Parameters: params,
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("remote: marshalling %s: %w", command, err)
	}

	ch := make(chan ResponseMessage, 1)
	c.pendingMu.Lock()
	c.pending[cmd.ID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, cmd.ID)
		c.pendingMu.Unlock()
	}()

	if err := c.broker.Publish(CommandTopic(c.deviceID), payload, qosAtLeastOnce, false); err != nil {
		return nil, fmt.Errorf("%w: publishing %s: %w", ErrConnection, command, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.Success {
			code, message := "unknown", "no detail"
			if resp.Error != nil {
				code, message = resp.Error.Code, resp.Error.Message
			}
			return nil, fmt.Errorf("%w: %s: %s (%s)", ErrRemoteFault, command, message, code)
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrConnection, command, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: %w: %s after %v", ErrConnection, ErrRequestTimeout, command, c.timeout)
	}
}

// ReadDigital returns the controller's current digital output bitmask.
func (c *Client) ReadDigital(ctx context.Context) (uint32, error) {
	data, err := c.request(ctx, CmdReadDigital, nil)
	if err != nil {
		return 0, err
	}
	return uint32Value(data, "value")
}

// WriteDigital sets the full digital output bitmask immediately.
func (c *Client) WriteDigital(ctx context.Context, value uint32) error {
	_, err := c.request(ctx, CmdWriteDigital, map[string]any{"value": value})
	return err
}

// ReadPosition returns the current value of one analog channel.
func (c *Client) ReadPosition(ctx context.Context, channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	data, err := c.request(ctx, CmdReadPosition, map[string]any{"channel": channel})
	if err != nil {
		return 0, err
	}
	return floatValue(data, "value")
}

// MoveAbsolute drives one analog channel to an absolute value.
func (c *Client) MoveAbsolute(ctx context.Context, channel int, value float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	_, err := c.request(ctx, CmdMoveAbsolute, map[string]any{"channel": channel, "value": value})
	return err
}

// PrepareActions uploads a relative-time action list.
func (c *Client) PrepareActions(ctx context.Context, actions []compiler.RelativeAction, numReps int) error {
	_, err := c.request(ctx, CmdPrepareActions, map[string]any{
		"actions":  encodeActions(actions),
		"num_reps": numReps,
	})
	return err
}

// LoadProfile stages a compiled legacy profile on the gateway.
func (c *Client) LoadProfile(ctx context.Context, profile *compiler.Profile) error {
	payload, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	_, err = c.request(ctx, CmdLoadProfile, map[string]any{"profile": payload})
	return err
}

// DownloadProfile transfers the staged profile into controller memory.
func (c *Client) DownloadProfile(ctx context.Context) error {
	_, err := c.request(ctx, CmdDownloadProfile, nil)
	return err
}

// InitProfile arms the downloaded profile for numReps repetitions.
func (c *Client) InitProfile(ctx context.Context, numReps int) error {
	_, err := c.request(ctx, CmdInitProfile, map[string]any{"num_reps": numReps})
	return err
}

// RunActions starts execution. Completion arrives later as a done
// notification.
func (c *Client) RunActions(ctx context.Context) error {
	_, err := c.request(ctx, CmdRunActions, nil)
	return err
}

// Abort stops the controller, best effort.
func (c *Client) Abort(ctx context.Context) error {
	_, err := c.request(ctx, CmdAbort, nil)
	return err
}

// RegisterNotificationTarget tells the gateway where to deliver
// notifications for this core instance.
func (c *Client) RegisterNotificationTarget(ctx context.Context, address string) error {
	_, err := c.request(ctx, CmdRegisterClient, map[string]any{"address": address})
	return err
}

func checkChannel(channel int) error {
	if channel < 0 || channel >= actiontable.AnalogChannels {
		return fmt.Errorf("remote: channel %d out of range [0, %d)", channel, actiontable.AnalogChannels)
	}
	return nil
}

// uint32Value extracts an unsigned integer field from response data.
// JSON numbers decode as float64.
func uint32Value(data map[string]any, key string) (uint32, error) {
	f, err := floatValue(data, key)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: field %q = %v is not a uint32", ErrConnection, key, f)
	}
	return uint32(f), nil
}

func floatValue(data map[string]any, key string) (float64, error) {
	v, ok := data[key]
	if !ok {
		return 0, fmt.Errorf("%w: response missing field %q", ErrConnection, key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: field %q has type %T, want number", ErrConnection, key, v)
	}
	return f, nil
}
