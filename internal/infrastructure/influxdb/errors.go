package influxdb

import "errors"

// Sentinel errors for the metrics client, checked with errors.Is.
// ErrDisabled in particular lets the wiring code treat a switched-off
// metrics backend as an expected condition rather than a failure.
var (
	// ErrDisabled reports that the InfluxDB integration is turned off
	// in the service configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed reports that the initial ping to the server
	// did not succeed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected reports an operation against a client whose
	// connection was closed or never established.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps asynchronous write errors delivered through
	// the SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
