// Package sensors maintains last-known temperature values fed by MQTT.
//
// The Store implements the engine's SensorReader interface: reads are
// non-blocking lookups of the last-known value, never waiting on the
// broker. A stale or missing reading returns unavailable rather than
// blocking a control cycle.
//
// Readings arrive on zoneclimate/sensor/{ref} topics as a bare number,
// a JSON object with a "value" field, or the literal "unavailable"
// (which clears the stored value). Each accepted change fires the
// registered change callback, typically wired to the orchestrator's
// Trigger.
package sensors
