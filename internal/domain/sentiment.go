// Package domain holds the records and classification rules shared by the
// scoring, ingestion and aggregation packages.
package domain

import "math"

// Label is the categorical sentiment of a message.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Score thresholds for deriving a label from a numeric score.
const (
	PositiveThreshold = 0.6
	NegativeThreshold = 0.4
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	}
	return false
}

// DeriveLabel maps a score in [0,1] to its label. Scores at or above 0.6 are
// positive, at or below 0.4 negative, anything between neutral.
func DeriveLabel(score float64) Label {
	score = Settle(score)
	switch {
	case score >= PositiveThreshold:
		return LabelPositive
	case score <= NegativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Trend is the direction of sentiment movement between two periods.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// TrendBand is the dead zone around zero inside which movement is stable.
const TrendBand = 0.05

// ClassifyTrend classifies a change in mean sentiment. The delta is rounded
// with Settle first, so 0.55-0.50 lands on the band edge and is stable.
func ClassifyTrend(delta float64) Trend {
	delta = Settle(delta)
	switch {
	case math.IsNaN(delta):
		return TrendStable
	case delta > TrendBand:
		return TrendImproving
	case delta < -TrendBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// RiskLevel grades a burnout alert.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// thresholdPrecision is the resolution at which scores, deltas and means are
// compared against fixed thresholds.
const thresholdPrecision = 1e9

// Settle rounds v to 1e-9 so accumulated float error cannot push a value
// across a threshold it mathematically sits on. NaN and Inf pass through.
func Settle(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*thresholdPrecision) / thresholdPrecision
}
