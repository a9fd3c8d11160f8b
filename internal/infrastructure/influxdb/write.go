package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRunMetric records one completed execution cycle.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Controller that executed the run
//   - generation: Controller generation ("direct" or "legacy")
//   - duration: Wall-clock time from dispatch to completion
//   - digitalEvents: Compiled digital event count (zero on direct path)
//   - analogEvents: Compiled analog event count (zero on direct path)
//   - violations: Timing-resolution violations found during compilation
//   - aborted: Whether the run ended via abort
func (c *Client) WriteRunMetric(deviceID, generation string, duration time.Duration, digitalEvents, analogEvents, violations int, aborted bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"runs",
		map[string]string{
			"device_id":  deviceID,
			"generation": generation,
		},
		map[string]interface{}{
			"duration_ms":    float64(duration.Milliseconds()),
			"digital_events": digitalEvents,
			"analog_events":  analogEvents,
			"violations":     violations,
			"aborted":        aborted,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteOutputMetric records a manual output change on a controller.
//
// Used for auditing digital line writes and analog channel moves made
// outside of a compiled run.
//
// Parameters:
//   - deviceID: Controller identifier
//   - kind: Output kind ("digital" or "analog")
//   - channel: Analog channel index (0 for digital writes)
//   - value: The value written
func (c *Client) WriteOutputMetric(deviceID, kind string, channel int, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"outputs",
		map[string]string{
			"device_id": deviceID,
			"kind":      kind,
		},
		map[string]interface{}{
			"channel": channel,
			"value":   value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
