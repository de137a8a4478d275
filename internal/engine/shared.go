package engine

// sharedRequest is one room's claim on a shared device within a cycle.
type sharedRequest struct {
	roomID    string
	magnitude float64
}

// arbitrationResult is the outcome for one shared device.
type arbitrationResult struct {
	state DeviceState

	// magnitude is the operating parameter forwarded downstream:
	// the largest requester's magnitude for max_demand, the mean for
	// average_request, the priority room's for priority_room.
	magnitude float64

	reason string

	// unmet lists rooms whose requests were ignored (priority_room).
	unmet []string
}

// arbitrate resolves conflicting room requests for one shared device.
//
// Requests are collected from rooms whose active-tier union contains
// the device this cycle. Arbitration always observes requests from a
// single cycle's snapshot, never mixing cycles. No requesting rooms is
// not an error: the device is commanded off.
func arbitrate(strategy ArbitrationConfig, requests []sharedRequest) arbitrationResult {
	if len(requests) == 0 {
		return arbitrationResult{state: StateOff, reason: "no_requests"}
	}

	switch strategy.Strategy {
	case StrategyPriorityRoom:
		return arbitratePriority(strategy.PriorityRoom, requests)

	case StrategyAverageRequest:
		return arbitrateAverage(strategy.AverageThreshold, requests)

	default: // StrategyMaxDemand
		return arbitrateMaxDemand(requests)
	}
}

// arbitrateMaxDemand commands the device on if any requesting room has
// demand, mirroring the largest requester's magnitude.
func arbitrateMaxDemand(requests []sharedRequest) arbitrationResult {
	largest := 0.0
	for _, req := range requests {
		if req.magnitude > largest {
			largest = req.magnitude
		}
	}
	if largest > 0 {
		return arbitrationResult{state: StateOn, magnitude: largest, reason: "arbitration_max_demand"}
	}
	return arbitrationResult{state: StateOff, reason: "arbitration_max_demand"}
}

// arbitratePriority follows the single configured priority room. Other
// rooms' requests are ignored for on/off purposes but surfaced as unmet
// so they can be logged.
func arbitratePriority(priorityRoom string, requests []sharedRequest) arbitrationResult {
	var result arbitrationResult
	result.state = StateOff
	result.reason = "arbitration_priority_room"

	for _, req := range requests {
		if req.roomID == priorityRoom {
			if req.magnitude > 0 {
				result.state = StateOn
				result.magnitude = req.magnitude
			}
			continue
		}
		result.unmet = append(result.unmet, req.roomID)
	}
	return result
}

// arbitrateAverage commands the device on when the mean magnitude
// across requesting rooms exceeds the configured threshold; the mean
// is forwarded downstream.
func arbitrateAverage(threshold float64, requests []sharedRequest) arbitrationResult {
	sum := 0.0
	for _, req := range requests {
		sum += req.magnitude
	}
	mean := sum / float64(len(requests))

	if mean > threshold {
		return arbitrationResult{state: StateOn, magnitude: mean, reason: "arbitration_average_request"}
	}
	return arbitrationResult{state: StateOff, magnitude: mean, reason: "arbitration_average_request"}
}
