package actuator

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/zone-climate-core/internal/infrastructure/mqtt"
)

// Logger is the interface the dispatcher needs for logging.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher is the interface the dispatcher needs from the MQTT client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Queue and QoS defaults.
const (
	// defaultQueueSize bounds pending commands. The engine emits only
	// state changes, so the queue drains quickly under normal load.
	defaultQueueSize = 256

	// commandQoS is at-least-once: a lost actuation is corrected by the
	// next cycle anyway, but retrying cheap.
	commandQoS = 1
)

// job is one queued publish.
type job struct {
	topic   string
	payload []byte
}

// deviceCommand is the wire payload for climate device commands.
type deviceCommand struct {
	ID       string `json:"id"`
	Device   string `json:"device"`
	State    string `json:"state"`
	Reason   string `json:"reason"`
	IssuedAt string `json:"issued_at"`
}

// scriptCommand is the wire payload for dumb-device script invocations.
type scriptCommand struct {
	ID       string `json:"id"`
	Script   string `json:"script"`
	Reason   string `json:"reason"`
	IssuedAt string `json:"issued_at"`
}

// Dispatcher publishes actuation commands asynchronously.
//
// Thread Safety: SetDeviceState and RunScript are safe for concurrent
// use. Close drains the queue and stops the worker.
type Dispatcher struct {
	publisher Publisher
	logger    Logger
	topics    mqtt.Topics

	mu     sync.Mutex
	queue  chan job
	closed bool
	done   chan struct{}
}

// NewDispatcher creates a dispatcher and starts its worker goroutine.
//
// Parameters:
//   - publisher: MQTT client (or any Publisher)
//   - logger: Logger instance (nil for no logging)
func NewDispatcher(publisher Publisher, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	d := &Dispatcher{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan job, defaultQueueSize),
		done:      make(chan struct{}),
	}
	go d.worker()
	return d
}

// SetDeviceState publishes an on/off command for a climate device.
// Non-blocking: if the queue is full the command is dropped with a
// warning, to be re-issued by a later cycle.
func (d *Dispatcher) SetDeviceState(device string, on bool, reason string) {
	state := "off"
	if on {
		state = "on"
	}

	payload, err := json.Marshal(deviceCommand{
		ID:       uuid.NewString(),
		Device:   device,
		State:    state,
		Reason:   reason,
		IssuedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		d.logger.Error("marshalling device command", "device", device, "error", err)
		return
	}

	d.enqueue(job{topic: d.topics.DeviceCommand(device), payload: payload})
}

// RunScript publishes a script invocation for a dumb device.
func (d *Dispatcher) RunScript(script string, reason string) {
	payload, err := json.Marshal(scriptCommand{
		ID:       uuid.NewString(),
		Script:   script,
		Reason:   reason,
		IssuedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		d.logger.Error("marshalling script command", "script", script, "error", err)
		return
	}

	d.enqueue(job{topic: d.topics.ScriptCommand(script), payload: payload})
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("command dropped, dispatcher closed", "topic", j.topic)
		return
	}

	select {
	case d.queue <- j:
	default:
		// A stalled broker must not stall decisions: drop and let the
		// next cycle re-issue whatever state still differs.
		d.logger.Warn("command queue full, dropping command", "topic", j.topic)
	}
}

// worker publishes queued commands until the queue closes.
func (d *Dispatcher) worker() {
	defer close(d.done)

	for j := range d.queue {
		if err := d.publisher.Publish(j.topic, j.payload, commandQoS, false); err != nil {
			d.logger.Error("publishing command", "topic", j.topic, "error", err)
			continue
		}
		d.logger.Debug("command published", "topic", j.topic)
	}
}

// Close stops accepting commands, drains the queue, and waits for the
// worker to finish. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}
