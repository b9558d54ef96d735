package pricing

import "math"

// ManipulationWindowDays is the default lookback for manipulation detection.
const ManipulationWindowDays = 30

// ManipulationRules are the thresholds of the inflate-then-discount pattern.
type ManipulationRules struct {
	MinSamples int `json:"min_samples"`
	// SpikePercent is the rise from the baseline to the middle price that must be exceeded.
	SpikePercent float64 `json:"spike_percent"`
	// DropPercent is the fall from the middle price to the final price that must be exceeded.
	DropPercent float64 `json:"drop_percent"`
	// ReturnTolerancePercent bounds how far the final price may sit from the baseline.
	ReturnTolerancePercent float64 `json:"return_tolerance_percent"`
}

// DefaultManipulationRules returns the production thresholds.
func DefaultManipulationRules() ManipulationRules {
	return ManipulationRules{
		MinSamples:             5,
		SpikePercent:           20,
		DropPercent:            15,
		ReturnTolerancePercent: 10,
	}
}

// DetectManipulation scans consecutive triples of chronologically ordered
// prices and reports whether any of them spikes up and is then discounted back
// to roughly the starting price. Fewer than rules.MinSamples prices never
// count as manipulation.
func DetectManipulation(prices []float64, rules ManipulationRules) bool {
	if len(prices) < rules.MinSamples {
		return false
	}
	for i := 2; i < len(prices); i++ {
		if IsManipulationTriple(prices[i-2], prices[i-1], prices[i], rules) {
			return true
		}
	}
	return false
}

// IsManipulationTriple reports whether before → middle → after matches the
// pattern on its own.
func IsManipulationTriple(before, middle, after float64, rules ManipulationRules) bool {
	if before <= 0 || middle <= 0 {
		return false
	}
	increase := (middle - before) / before * 100
	decrease := (middle - after) / middle * 100
	if increase <= rules.SpikePercent || decrease <= rules.DropPercent {
		return false
	}
	return math.Abs(after-before)/before*100 < rules.ReturnTolerancePercent
}
