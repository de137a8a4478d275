package engine

// selectTier maps demand magnitude to a cumulative activation tier.
//
// Tier 1 whenever the phase is active; tier 2 when magnitude reaches
// the tier-2 threshold; tier 3 at the tier-3 threshold. The threshold
// ordering (tier3 >= tier2) is a configuration invariant validated at
// load time, never checked here.
func selectTier(active bool, magnitude float64, t TierThresholds) int {
	if !active {
		return 0
	}
	switch {
	case magnitude >= t.Tier3:
		return 3
	case magnitude >= t.Tier2:
		return 2
	default:
		return 1
	}
}

// tierDevices returns the cumulative device set for a tier: the union
// of category lists 1..tier, deduplicated so a device listed in
// multiple tiers (misconfiguration) is commanded at most once.
func tierDevices(cats CategoryDevices, tier int) []string {
	if tier <= 0 {
		return nil
	}

	lists := [][]string{cats.Category1}
	if tier >= 2 {
		lists = append(lists, cats.Category2)
	}
	if tier >= 3 {
		lists = append(lists, cats.Category3)
	}

	seen := make(map[string]bool)
	var union []string
	for _, list := range lists {
		for _, dev := range list {
			if !seen[dev] {
				seen[dev] = true
				union = append(union, dev)
			}
		}
	}
	return union
}

// allDevices returns every device referenced in the category lists,
// deduplicated. Used to decide devices off when below their tier.
func allDevices(cats CategoryDevices) []string {
	return tierDevices(cats, 3)
}
