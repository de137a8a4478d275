// Package engine implements the multi-room heating/cooling decision engine.
//
// The engine runs a control loop: each cycle it aggregates per-room sensor
// readings, computes demand and phase with hysteresis, maps demand to a
// cumulative device tier, gates weather-sensitive devices on outdoor
// temperature, applies dumb-device participation policies, arbitrates
// shared equipment across rooms, and emits only the actuation commands
// whose desired state changed since the previous cycle.
//
// # Evaluation order
//
//	aggregate → demand → tier → weather gate → arbitration / dumb devices → diff → emit
//
// # Concurrency
//
// A single cycle runs at a time. Triggers (timer tick, sensor change,
// override change) arriving mid-cycle coalesce into one pending re-run.
// Per-room evaluation within a cycle is concurrent; arbitration observes
// a consistent snapshot of all rooms' results from the same cycle.
//
// Sensor reads are non-blocking (last-known value or unavailable) and
// actuation is fire-and-forget: the engine never awaits device
// confirmation, relying on the next cycle's sensor feedback instead.
//
// # Collaborators
//
// The engine defines narrow interfaces for everything it needs:
// SensorReader (temperature input), Commander (actuation output),
// Metrics (telemetry), Recorder (history), and Logger. Implementations
// live in the sensors, actuator, infrastructure/influxdb, and history
// packages.
package engine
