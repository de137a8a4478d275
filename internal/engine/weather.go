package engine

// Weather gate decision reasons.
const (
	reasonWithinRange   = "within_safe_range"
	reasonBelowCutoff   = "below_safe_range"
	reasonAboveCutoff   = "above_safe_range"
	reasonOutdoorPolicy = "outdoor_unavailable"
)

// weatherPermitted decides whether a weather-sensitive device of the
// given type may run.
//
// A heating-type device is permitted only while outdoor >= range low;
// a cooling-type device only while outdoor <= range high. When the
// outdoor reading is unavailable, the configured missing-data policy
// applies: block treats the device as not permitted, allow ignores
// the constraint entirely.
func weatherPermitted(devType DeviceType, outdoor float64, available bool, rng SafeRange, policy OutdoorPolicy) (bool, string) {
	if !available {
		return policy == PolicyAllow, reasonOutdoorPolicy
	}

	if devType == DeviceHeat {
		if outdoor < rng.Low {
			return false, reasonBelowCutoff
		}
		return true, reasonWithinRange
	}

	if outdoor > rng.High {
		return false, reasonAboveCutoff
	}
	return true, reasonWithinRange
}
