// Package actuator dispatches engine commands over MQTT.
//
// The Dispatcher implements the engine's Commander interface. Commands
// are enqueued and published from a dedicated worker goroutine, so a
// slow or disconnected broker can never stall the decision loop. The
// engine treats actuation as fire-and-forget: publish failures are
// logged here and corrected by the next cycle's sensor feedback, never
// reported back to the engine.
//
// Climate devices receive JSON state commands on
// zoneclimate/command/device/{ref}; dumb-device scripts are invoked via
// zoneclimate/command/script/{ref}.
package actuator
