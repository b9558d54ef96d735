// Package pricing characterizes a product's price history and turns it into
// a deal verdict. Everything here is pure: callers load the price series and
// persist the results.
package pricing

import (
	"math"
	"sort"
)

// Trend classifies the most recent prices against the full window average.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

const (
	// StatsWindowDays is the default lookback for statistics.
	StatsWindowDays = 90
	// MinStatsSamples is the fewest prices ComputeStats will summarize.
	MinStatsSamples = 3
	// TrendSampleSize is how many of the latest prices form the recent sub-window.
	TrendSampleSize = 7
	// TrendDeadband is the fraction of the average inside which the trend is stable.
	TrendDeadband = 0.05
)

// Stats is a descriptive summary of a price window.
type Stats struct {
	Average           float64 `json:"average"`
	Lowest            float64 `json:"lowest"`
	Highest           float64 `json:"highest"`
	Median            float64 `json:"median"`
	StandardDeviation float64 `json:"standard_deviation"`
	RecentTrend       Trend   `json:"recent_trend"`
	SampleSize        int     `json:"sample_size"`
}

// ComputeStats summarizes prices given in chronological order. The boolean is
// false when there are fewer than MinStatsSamples prices; that is an expected
// state, not an error.
func ComputeStats(prices []float64) (Stats, bool) {
	n := len(prices)
	if n < MinStatsSamples {
		return Stats{}, false
	}

	lowest, highest := prices[0], prices[0]
	for _, p := range prices[1:] {
		lowest = math.Min(lowest, p)
		highest = math.Max(highest, p)
	}
	average := mean(prices)

	var squared float64
	for _, p := range prices {
		squared += (p - average) * (p - average)
	}

	return Stats{
		Average:           average,
		Lowest:            lowest,
		Highest:           highest,
		Median:            median(prices),
		StandardDeviation: math.Sqrt(squared / float64(n)),
		RecentTrend:       recentTrend(prices, average),
		SampleSize:        n,
	}, true
}

func mean(prices []float64) float64 {
	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

func median(prices []float64) float64 {
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func recentTrend(prices []float64, average float64) Trend {
	start := len(prices) - TrendSampleSize
	if start < 0 {
		start = 0
	}
	recent := mean(prices[start:])
	threshold := average * TrendDeadband

	switch {
	case recent > average+threshold:
		return TrendRising
	case recent < average-threshold:
		return TrendFalling
	default:
		return TrendStable
	}
}
