package engine

import "sort"

// Aggregate combines the available sensor readings for a room into one
// current-temperature value.
//
// Parameters:
//   - values: Available readings, in configured sensor order
//   - method: Aggregation method (mean, min, max, median, first)
//
// Returns:
//   - float64: The aggregated value
//   - bool: false when no readings are available; the room then has no
//     computable demand this cycle (forced idle, reported, not fatal)
func Aggregate(values []float64, method AggregationMethod) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	switch method {
	case AggregateMin:
		lowest := values[0]
		for _, v := range values[1:] {
			if v < lowest {
				lowest = v
			}
		}
		return lowest, true

	case AggregateMax:
		highest := values[0]
		for _, v := range values[1:] {
			if v > highest {
				highest = v
			}
		}
		return highest, true

	case AggregateMedian:
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2, true
		}
		return sorted[mid], true

	case AggregateFirst:
		return values[0], true

	default: // AggregateMean
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), true
	}
}
