package engine

// Dumb-device decision reasons.
const (
	reasonParticipationOff = "participation_off"
	reasonBelowMinCategory = "below_min_category"
	reasonPhaseInactive    = "phase_inactive"
	reasonTargetReached    = "target_reached"
	reasonParticipating    = "participating"
)

// evaluateDumbDevice decides the desired state of one scripted device
// from its participation policy, the room's phase, and the room's tier
// for the device's type.
//
// Policies:
//   - off: never on
//   - always_on: on while the room is in a matching active phase and
//     the tier is at or above the device's minimum category
//   - until_reach_target: as always_on, but released the moment the
//     phase becomes target_reached, independent of tier
func evaluateDumbDevice(d *DumbDeviceConfig, phase Phase, tier int) (DeviceState, string) {
	if d.Participation == ParticipationOff {
		return StateOff, reasonParticipationOff
	}

	if d.Participation == ParticipationUntilTarget && phase == PhaseTargetReached {
		return StateOff, reasonTargetReached
	}

	if !phaseMatches(phase, d.Type) {
		return StateOff, reasonPhaseInactive
	}

	if tier < d.MinCategory {
		return StateOff, reasonBelowMinCategory
	}

	return StateOn, reasonParticipating
}

// phaseMatches reports whether an active phase drives the device type.
func phaseMatches(phase Phase, devType DeviceType) bool {
	switch devType {
	case DeviceHeat:
		return phase == PhaseHeating
	case DeviceCool:
		return phase == PhaseCooling
	}
	return false
}
