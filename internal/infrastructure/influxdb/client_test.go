package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/zone-climate-core/internal/infrastructure/config"
)

// Tests here run without an InfluxDB server. Write helpers check the
// connection flag before touching the write API, so a zero-value client
// exercises the guard paths safely.

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: false}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}

	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWrites_Disconnected(t *testing.T) {
	c := &Client{}

	// All writes must no-op without panicking when disconnected.
	c.WriteRoomMetric("living", "heating", 19.5, 21.0, 1.5, 2)
	c.WriteCycleMetric(4, 2, 12.5)
	c.WriteWeatherMetric("living", 14.0, false, "below_cutoff")
	c.WritePoint("custom", nil, map[string]interface{}{"value": 1.0})
}

func TestFlush_Disconnected(t *testing.T) {
	c := &Client{}
	c.Flush()
}

func TestClose_NilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestIsConnected_Default(t *testing.T) {
	c := &Client{}
	if c.IsConnected() {
		t.Error("IsConnected() = true for zero-value client")
	}
}
