package sensors

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Logger is the interface the store needs for logging.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Payloads equal to these strings clear the stored value.
var unavailableValues = map[string]bool{
	"unavailable": true,
	"unknown":     true,
	"none":        true,
}

// reading is one stored sensor value with its arrival time.
type reading struct {
	value float64
	at    time.Time
}

// Store is a thread-safe last-known-value store for temperature sensors.
//
// Thread Safety: all methods are safe for concurrent use. Reads never
// block on anything but the internal lock.
type Store struct {
	mu     sync.RWMutex
	values map[string]reading

	// outdoorRef is the sensor reference treated as the outdoor reading.
	outdoorRef string

	// maxAge expires readings older than this. Zero means no expiry.
	maxAge time.Duration

	onChange func(ref string)
	logger   Logger

	now func() time.Time
}

// NewStore creates a sensor store.
//
// Parameters:
//   - outdoorRef: Sensor reference for the outdoor temperature ("" if none)
//   - logger: Logger instance (nil for no logging)
func NewStore(outdoorRef string, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{
		values:     make(map[string]reading),
		outdoorRef: outdoorRef,
		logger:     logger,
		now:        time.Now,
	}
}

// SetMaxAge sets the staleness cutoff: readings older than d read as
// unavailable. Zero disables expiry.
func (s *Store) SetMaxAge(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxAge = d
}

// SetOnChange registers a callback fired after every accepted value
// change. Typically wired to the orchestrator's Trigger. Must be set
// before the store starts receiving messages.
func (s *Store) SetOnChange(fn func(ref string)) {
	s.onChange = fn
}

// HandleMessage parses an incoming sensor message. The sensor reference
// is the final topic segment; the payload is a bare number, a JSON
// object with a "value" field, or an unavailable marker.
//
// Matches the mqtt package's MessageHandler signature so it can be
// subscribed directly.
func (s *Store) HandleMessage(topic string, payload []byte) error {
	ref := topic[strings.LastIndex(topic, "/")+1:]
	if ref == "" {
		return fmt.Errorf("sensor topic %q has no sensor reference", topic)
	}

	body := strings.TrimSpace(string(payload))
	if unavailableValues[strings.ToLower(body)] {
		s.MarkUnavailable(ref)
		return nil
	}

	value, err := parseValue(body)
	if err != nil {
		return fmt.Errorf("sensor %q: %w", ref, err)
	}

	s.Set(ref, value)
	return nil
}

// parseValue accepts a bare number or a JSON object {"value": n}.
func parseValue(body string) (float64, error) {
	if v, err := strconv.ParseFloat(body, 64); err == nil {
		return v, nil
	}

	var msg struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return 0, fmt.Errorf("unparseable payload %q", body)
	}
	if msg.Value == nil {
		return 0, fmt.Errorf("payload %q has no value field", body)
	}
	return *msg.Value, nil
}

// Set stores a reading and fires the change callback.
func (s *Store) Set(ref string, value float64) {
	s.mu.Lock()
	s.values[ref] = reading{value: value, at: s.now()}
	s.mu.Unlock()

	s.logger.Debug("sensor reading stored", "sensor", ref, "value", value)

	if s.onChange != nil {
		s.onChange(ref)
	}
}

// MarkUnavailable clears a reading and fires the change callback, so
// the next cycle re-evaluates with the sensor missing.
func (s *Store) MarkUnavailable(ref string) {
	s.mu.Lock()
	_, existed := s.values[ref]
	delete(s.values, ref)
	s.mu.Unlock()

	if existed {
		s.logger.Warn("sensor became unavailable", "sensor", ref)
		if s.onChange != nil {
			s.onChange(ref)
		}
	}
}

// ReadTemperature returns the last-known value for a sensor reference.
// Non-blocking; expired or missing readings return false.
func (s *Store) ReadTemperature(ref string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.values[ref]
	if !ok {
		return 0, false
	}
	if s.maxAge > 0 && s.now().Sub(r.at) > s.maxAge {
		return 0, false
	}
	return r.value, true
}

// ReadOutdoorTemperature returns the last-known outdoor value.
func (s *Store) ReadOutdoorTemperature() (float64, bool) {
	if s.outdoorRef == "" {
		return 0, false
	}
	return s.ReadTemperature(s.outdoorRef)
}

// Count returns the number of stored readings.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
