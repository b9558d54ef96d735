package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Recommendation is the bucket a deal score falls into.
type Recommendation string

const (
	RecommendationExcellent  Recommendation = "excellent"
	RecommendationGood       Recommendation = "good"
	RecommendationAverage    Recommendation = "average"
	RecommendationSuspicious Recommendation = "suspicious"
	RecommendationAvoid      Recommendation = "avoid"
)

// Recommendations lists every bucket, best first.
var Recommendations = []Recommendation{
	RecommendationExcellent,
	RecommendationGood,
	RecommendationAverage,
	RecommendationSuspicious,
	RecommendationAvoid,
}

// NeutralScore is returned when the history is too short to judge.
const NeutralScore = 50

const insufficientHistoryText = "Not enough price history for a full analysis. Wait for more data before trusting this discount."

// Weights are the tunable scoring parameters. They were chosen empirically;
// DefaultWeights keeps them stable until a product decision changes them.
type Weights struct {
	Base                       float64
	BelowAverageMultiplier     float64
	MaxBelowAverageBonus       float64
	AboveAverageMultiplier     float64
	MaxAboveAveragePenalty     float64
	AllTimeLowBonus            float64
	NearLowBonus               float64
	NearLowTolerance           float64
	ManipulationPenalty        float64
	ImplausibleOriginalPenalty float64
	OriginalPriceTolerance     float64
	TrendAdjustment            float64
	RealDealMinScore           int
	RealDealMinDiscount        float64
	ExcellentMinScore          int
	GoodMinScore               int
	AverageMinScore            int
	SuspiciousMinScore         int
}

// DefaultWeights returns the production scoring parameters.
func DefaultWeights() Weights {
	return Weights{
		Base:                       50,
		BelowAverageMultiplier:     1.5,
		MaxBelowAverageBonus:       30,
		AboveAverageMultiplier:     2,
		MaxAboveAveragePenalty:     30,
		AllTimeLowBonus:            20,
		NearLowBonus:               10,
		NearLowTolerance:           1.05,
		ManipulationPenalty:        25,
		ImplausibleOriginalPenalty: 15,
		OriginalPriceTolerance:     1.10,
		TrendAdjustment:            5,
		RealDealMinScore:           60,
		RealDealMinDiscount:        5,
		ExcellentMinScore:          80,
		GoodMinScore:               65,
		AverageMinScore:            45,
		SuspiciousMinScore:         30,
	}
}

// ScoreInput is everything the scorer needs about one claimed discount.
// A nil Stats means the history was insufficient.
type ScoreInput struct {
	Stats                *Stats
	ManipulationDetected bool
	CurrentPrice         float64
	ClaimedOriginalPrice float64
}

// Analysis is the verdict on a claimed discount.
type Analysis struct {
	IsRealDeal                bool           `json:"is_real_deal"`
	DealScore                 int            `json:"deal_score"`
	DiscountFromAverage       float64        `json:"discount_from_average"`
	DiscountFromLowest        float64        `json:"discount_from_lowest"`
	ClaimedDiscount           float64        `json:"claimed_discount"`
	OriginalPricePlausible    bool           `json:"original_price_plausible"`
	PriceManipulationDetected bool           `json:"price_manipulation_detected"`
	Recommendation            Recommendation `json:"recommendation"`
	Analysis                  string         `json:"analysis"`
	Stats                     *Stats         `json:"stats,omitempty"`
}

// NeutralAnalysis is the fail-safe result for products without enough history.
func NeutralAnalysis() Analysis {
	return Analysis{
		DealScore:              NeutralScore,
		OriginalPricePlausible: true,
		Recommendation:         RecommendationAverage,
		Analysis:               insufficientHistoryText,
	}
}

// Score combines statistics, the manipulation signal and the claimed prices
// into a 0-100 deal score and a real-deal verdict.
func Score(in ScoreInput, w Weights) Analysis {
	if in.Stats == nil {
		return NeutralAnalysis()
	}
	stats := *in.Stats

	fromAverage := percentBelow(stats.Average, in.CurrentPrice)
	fromLowest := percentBelow(stats.Lowest, in.CurrentPrice)
	claimed := percentBelow(in.ClaimedOriginalPrice, in.CurrentPrice)
	plausible := in.ClaimedOriginalPrice <= stats.Highest*w.OriginalPriceTolerance
	atLow := in.CurrentPrice <= stats.Lowest

	score := w.Base
	if fromAverage > 0 {
		score += math.Min(fromAverage*w.BelowAverageMultiplier, w.MaxBelowAverageBonus)
	} else {
		score += math.Max(fromAverage*w.AboveAverageMultiplier, -w.MaxAboveAveragePenalty)
	}

	switch {
	case atLow:
		score += w.AllTimeLowBonus
	case in.CurrentPrice <= stats.Lowest*w.NearLowTolerance:
		score += w.NearLowBonus
	}

	if in.ManipulationDetected {
		score -= w.ManipulationPenalty
	}
	if !plausible {
		score -= w.ImplausibleOriginalPenalty
	}

	switch stats.RecentTrend {
	case TrendFalling:
		score += w.TrendAdjustment
	case TrendRising:
		score -= w.TrendAdjustment
	}

	// Gates and buckets use the unrounded score; only the reported value is rounded.
	clamped := math.Max(0, math.Min(100, score))

	return Analysis{
		IsRealDeal: clamped >= float64(w.RealDealMinScore) &&
			fromAverage > w.RealDealMinDiscount &&
			!in.ManipulationDetected &&
			plausible,
		DealScore:                 int(math.Round(clamped)),
		DiscountFromAverage:       round1(fromAverage),
		DiscountFromLowest:        round1(fromLowest),
		ClaimedDiscount:           round1(claimed),
		OriginalPricePlausible:    plausible,
		PriceManipulationDetected: in.ManipulationDetected,
		Recommendation:            recommend(clamped, in.ManipulationDetected, w),
		Analysis:                  describe(stats, fromAverage, atLow, in.ManipulationDetected, plausible),
		Stats:                     in.Stats,
	}
}

func recommend(score float64, manipulated bool, w Weights) Recommendation {
	switch {
	case manipulated:
		return RecommendationSuspicious
	case score >= float64(w.ExcellentMinScore):
		return RecommendationExcellent
	case score >= float64(w.GoodMinScore):
		return RecommendationGood
	case score >= float64(w.AverageMinScore):
		return RecommendationAverage
	case score >= float64(w.SuspiciousMinScore):
		return RecommendationSuspicious
	default:
		return RecommendationAvoid
	}
}

func describe(stats Stats, fromAverage float64, atLow, manipulated, plausible bool) string {
	var clauses []string

	if atLow {
		clauses = append(clauses, "Lowest price on record.")
	}

	switch {
	case fromAverage > 20:
		clauses = append(clauses, "Excellent deal: well below the historical average.")
	case fromAverage > 10:
		clauses = append(clauses, "Good deal: below the historical average.")
	case fromAverage > 0:
		clauses = append(clauses, "Modest deal: slightly below the historical average.")
	default:
		clauses = append(clauses, "Price is above the historical average.")
	}

	if manipulated {
		clauses = append(clauses, "Warning: the price was recently inflated and then discounted back.")
	}
	if !plausible {
		clauses = append(clauses, "The claimed original price looks inflated.")
	}

	switch stats.RecentTrend {
	case TrendFalling:
		clauses = append(clauses, "Trend: prices falling.")
	case TrendRising:
		clauses = append(clauses, "Trend: prices rising.")
	}

	return strings.Join(clauses, " ")
}

// percentBelow is how far price sits below reference, in percent of reference.
func percentBelow(reference, price float64) float64 {
	if reference <= 0 {
		return 0
	}
	return (reference - price) / reference * 100
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
