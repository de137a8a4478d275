package engine

// computeDemand advances the per-room phase state machine for one cycle
// and returns the new phase with its demand magnitude.
//
// Transitions:
//   - enter heating when delta <= -tolerance and a heat path exists
//   - enter cooling when delta >= +tolerance and a cool path exists
//   - while heating, remain heating until current >= target, then
//     target_reached; symmetric for cooling
//   - target_reached re-enters an active phase only once delta crosses
//     the tolerance boundary again (hysteresis band), otherwise it
//     decays to idle
//
// Magnitude is |delta| while in an active phase, else 0.
func computeDemand(prev Phase, current, target, tolerance float64, hasHeat, hasCool bool) (Phase, float64) {
	delta := current - target

	switch prev {
	case PhaseHeating:
		if current >= target {
			return PhaseTargetReached, 0
		}
		return PhaseHeating, -delta

	case PhaseCooling:
		if current <= target {
			return PhaseTargetReached, 0
		}
		return PhaseCooling, delta
	}

	// idle or target_reached: entry requires crossing the full tolerance
	// band, so a room sitting just inside the band never re-triggers.
	if delta <= -tolerance && hasHeat {
		return PhaseHeating, -delta
	}
	if delta >= tolerance && hasCool {
		return PhaseCooling, delta
	}

	return PhaseIdle, 0
}
