package engine

import "errors"

// Domain errors for the engine package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, engine.ErrInvalidConfig) {
//	    // reject the configuration, keep running on the previous one
//	}
var (
	// ErrInvalidConfig is returned when zones configuration validation fails.
	// Validation errors wrap this sentinel with a description of the field.
	ErrInvalidConfig = errors.New("engine: invalid configuration")

	// ErrRoomNotFound is returned when a room ID does not exist in the
	// active configuration.
	ErrRoomNotFound = errors.New("engine: room not found")

	// ErrSensorUnavailable indicates no sensor reading could be obtained
	// for a room this cycle. The room is forced to idle and reported;
	// this is never fatal.
	ErrSensorUnavailable = errors.New("engine: sensor unavailable")

	// ErrInvalidMode is returned when an override specifies an unknown mode.
	ErrInvalidMode = errors.New("engine: invalid mode")

	// ErrInvalidProfile is returned when an override specifies an unknown profile.
	ErrInvalidProfile = errors.New("engine: invalid profile")
)
