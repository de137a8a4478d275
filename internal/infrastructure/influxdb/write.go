package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRoomMetric writes a per-room evaluation snapshot to InfluxDB.
//
// Called once per room per control cycle. The write is non-blocking;
// data is batched and sent asynchronously.
//
// Parameters:
//   - roomID: Room identifier (e.g., "living")
//   - phase: Current demand phase ("idle", "heating", "cooling", "target_reached")
//   - current: Aggregated room temperature in degrees C
//   - target: Configured target temperature in degrees C
//   - magnitude: Demand magnitude (absolute delta, 0 when inactive)
//   - tier: Selected device tier (0 when no devices active)
//
// Example:
//
//	client.WriteRoomMetric("living", "heating", 19.5, 21.0, 1.5, 2)
func (c *Client) WriteRoomMetric(roomID, phase string, current, target, magnitude float64, tier int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"room_climate",
		map[string]string{
			"room_id": roomID,
			"phase":   phase,
		},
		map[string]interface{}{
			"current_temp": current,
			"target_temp":  target,
			"magnitude":    magnitude,
			"tier":         tier,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCycleMetric writes a control-cycle summary measurement.
//
// Used for tracking evaluation latency and command volume over time.
//
// Parameters:
//   - roomsEvaluated: Number of rooms evaluated this cycle
//   - commandsIssued: Number of actuation commands emitted (changes only)
//   - durationMs: Wall-clock evaluation time in milliseconds
func (c *Client) WriteCycleMetric(roomsEvaluated, commandsIssued int, durationMs float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"control_cycle",
		nil,
		map[string]interface{}{
			"rooms_evaluated": roomsEvaluated,
			"commands_issued": commandsIssued,
			"duration_ms":     durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteWeatherMetric records a weather-gate decision for a room.
//
// Parameters:
//   - roomID: Room identifier
//   - outdoorTemp: Outdoor temperature used for the decision
//   - allowed: Whether the device was permitted to run
//   - reason: Gate decision reason (e.g., "below_safe_range", "outdoor_unavailable")
func (c *Client) WriteWeatherMetric(roomID string, outdoorTemp float64, allowed bool, reason string) {
	if !c.IsConnected() {
		return
	}

	allowedVal := 0
	if allowed {
		allowedVal = 1
	}

	point := write.NewPoint(
		"weather_gate",
		map[string]string{
			"room_id": roomID,
			"reason":  reason,
		},
		map[string]interface{}{
			"outdoor_temp": outdoorTemp,
			"allowed":      allowedVal,
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
