// Package config loads and validates Zone Climate Core configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file, then
// ZONECLIMATE_* environment variables. The zones file (rooms, devices,
// thresholds) is referenced here but owned and parsed by the engine package.
package config
