package engine

import "testing"

func TestArbitrate_MaxDemand(t *testing.T) {
	strategy := ArbitrationConfig{Strategy: StrategyMaxDemand}

	// Room A requesting magnitude 3, room B magnitude 1: on, mirroring
	// the largest requester.
	result := arbitrate(strategy, []sharedRequest{
		{roomID: "room-a", magnitude: 3.0},
		{roomID: "room-b", magnitude: 1.0},
	})
	if result.state != StateOn {
		t.Errorf("state = %q, want on", result.state)
	}
	if result.magnitude != 3.0 {
		t.Errorf("magnitude = %v, want 3.0 (largest requester)", result.magnitude)
	}

	// Removing both requests commands it off.
	result = arbitrate(strategy, nil)
	if result.state != StateOff {
		t.Errorf("state with no requests = %q, want off", result.state)
	}
}

func TestArbitrate_PriorityRoom(t *testing.T) {
	strategy := ArbitrationConfig{Strategy: StrategyPriorityRoom, PriorityRoom: "living"}

	tests := []struct {
		name      string
		requests  []sharedRequest
		wantState DeviceState
		wantUnmet int
	}{
		{
			"priority room requesting",
			[]sharedRequest{{roomID: "living", magnitude: 2.0}, {roomID: "bedroom", magnitude: 4.0}},
			StateOn, 1,
		},
		{
			"only other rooms requesting",
			[]sharedRequest{{roomID: "bedroom", magnitude: 4.0}, {roomID: "office", magnitude: 1.0}},
			StateOff, 2,
		},
		{
			"no requests",
			nil,
			StateOff, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := arbitrate(strategy, tt.requests)
			if result.state != tt.wantState {
				t.Errorf("state = %q, want %q", result.state, tt.wantState)
			}
			if len(result.unmet) != tt.wantUnmet {
				t.Errorf("unmet rooms = %v, want %d entries", result.unmet, tt.wantUnmet)
			}
		})
	}
}

func TestArbitrate_AverageRequest(t *testing.T) {
	strategy := ArbitrationConfig{Strategy: StrategyAverageRequest, AverageThreshold: 1.5}

	// Mean (3.0 + 1.0) / 2 = 2.0 > 1.5: on, mean forwarded.
	result := arbitrate(strategy, []sharedRequest{
		{roomID: "room-a", magnitude: 3.0},
		{roomID: "room-b", magnitude: 1.0},
	})
	if result.state != StateOn {
		t.Errorf("state = %q, want on", result.state)
	}
	if result.magnitude != 2.0 {
		t.Errorf("magnitude = %v, want mean 2.0", result.magnitude)
	}

	// Mean (1.0 + 1.0) / 2 = 1.0 <= 1.5: off.
	result = arbitrate(strategy, []sharedRequest{
		{roomID: "room-a", magnitude: 1.0},
		{roomID: "room-b", magnitude: 1.0},
	})
	if result.state != StateOff {
		t.Errorf("state below threshold = %q, want off", result.state)
	}
}
