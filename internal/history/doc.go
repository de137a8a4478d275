// Package history persists control cycles and their emitted commands
// to SQLite.
//
// The Repository implements the engine's Recorder interface. It owns
// the schema (cycles and commands tables) and offers read access for
// the HTTP API plus retention pruning. History is observability only:
// a failed write never affects the control loop.
package history
