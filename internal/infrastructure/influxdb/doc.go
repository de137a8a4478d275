// Package influxdb provides time-series metric storage for Zone Climate Core.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking batched writes of control-loop telemetry
//   - Health monitoring
//
// # Measurements
//
// Zone Climate records three measurements:
//
//   - room_climate: per-room evaluation snapshots (current/target temp,
//     demand magnitude, tier) tagged by room and phase
//   - control_cycle: per-cycle summaries (rooms evaluated, commands issued,
//     duration)
//   - weather_gate: cooling permission decisions tagged by reason
//
// InfluxDB is optional. When disabled in config, Connect returns ErrDisabled
// and the engine runs without telemetry.
package influxdb
