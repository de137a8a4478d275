package mqtt

import "fmt"

// Topic prefixes for the Zone Climate MQTT scheme.
//
// The engine consumes temperature readings published by the host platform
// and emits actuation commands for it to execute:
//
//	zoneclimate/sensor/{sensor_ref}          temperature readings (in)
//	zoneclimate/command/device/{device_ref}  on/off device commands (out)
//	zoneclimate/command/script/{script_ref}  script invocations (out)
//	zoneclimate/status/room/{room_id}        retained per-room status (out)
//	zoneclimate/status/cycle                 retained cycle summary (out)
//	zoneclimate/system/status                online/offline + LWT
const (
	// TopicPrefix is the base for all Zone Climate topics.
	TopicPrefix = "zoneclimate"

	// TopicPrefixStatus is the base for engine status topics.
	TopicPrefixStatus = "zoneclimate/status"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "zoneclimate/system"
)

// Topics provides builders for Zone Climate MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// SensorReading returns the topic a sensor's readings arrive on.
//
// Example: zoneclimate/sensor/temp-living-north
func (Topics) SensorReading(sensorRef string) string {
	return fmt.Sprintf("%s/sensor/%s", TopicPrefix, sensorRef)
}

// AllSensorReadings returns a pattern matching every sensor reading topic.
//
// Pattern: zoneclimate/sensor/+
func (Topics) AllSensorReadings() string {
	return fmt.Sprintf("%s/sensor/+", TopicPrefix)
}

// DeviceCommand returns the topic for on/off commands to a climate device.
//
// Example: zoneclimate/command/device/radiator-living
func (Topics) DeviceCommand(deviceRef string) string {
	return fmt.Sprintf("%s/command/device/%s", TopicPrefix, deviceRef)
}

// ScriptCommand returns the topic for script invocations.
//
// Example: zoneclimate/command/script/heater-floor-on
func (Topics) ScriptCommand(scriptRef string) string {
	return fmt.Sprintf("%s/command/script/%s", TopicPrefix, scriptRef)
}

// RoomStatus returns the retained status topic for a room.
//
// Example: zoneclimate/status/room/living
func (Topics) RoomStatus(roomID string) string {
	return fmt.Sprintf("%s/room/%s", TopicPrefixStatus, roomID)
}

// CycleStatus returns the retained cycle summary topic.
//
// Example: zoneclimate/status/cycle
func (Topics) CycleStatus() string {
	return fmt.Sprintf("%s/cycle", TopicPrefixStatus)
}

// SystemStatus returns the system status topic (online/offline, LWT).
//
// Example: zoneclimate/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
