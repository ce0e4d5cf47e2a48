// Package quality classifies parameter readings against acceptable ranges
// and folds them into a weighted 0-100 water quality index.
package quality

import (
	"math"

	"water-quality-platform/internal/models"
)

// Status is the classification of a single parameter value.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// Margins around the acceptable range beyond which a value is critical.
const (
	criticalLowFactor  = 0.8
	criticalHighFactor = 1.2
)

// Per-status share of a parameter's weight credited to the index.
const (
	goodCredit    = 100.0
	warningCredit = 50.0
)

// Limit is the inclusive acceptable range of a parameter.
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Scorer holds the tables used for classification and indexing.
type Scorer struct {
	Limits  map[string]Limit
	Weights map[string]float64
}

// DefaultLimits returns the acceptable ranges for drinking-water monitoring.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		models.ParamPH:              {Min: 6.5, Max: 8.5},
		models.ParamTurbidity:       {Min: 0, Max: 5},
		models.ParamDissolvedOxygen: {Min: 6, Max: 14},
		models.ParamTemperature:     {Min: 0, Max: 30},
		models.ParamConductivity:    {Min: 0, Max: 400},
		models.ParamNitrates:        {Min: 0, Max: 10},
	}
}

// DefaultWeights returns the index weights. They sum to 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		models.ParamPH:              0.2,
		models.ParamTurbidity:       0.2,
		models.ParamDissolvedOxygen: 0.3,
		models.ParamTemperature:     0.1,
		models.ParamConductivity:    0.2,
	}
}

// DefaultScorer returns a scorer with the default tables.
func DefaultScorer() *Scorer {
	return &Scorer{
		Limits:  DefaultLimits(),
		Weights: DefaultWeights(),
	}
}

var defaultScorer = DefaultScorer()

// Classify classifies value using the default limits.
func Classify(value float64, parameter string) Status {
	return defaultScorer.Classify(value, parameter)
}

// Index scores readings using the default tables.
func Index(readings map[string]float64) float64 {
	return defaultScorer.Index(readings)
}

// Classify maps a value to a status. Unknown parameters are StatusUnknown;
// NaN for a known parameter is StatusCritical.
func (s *Scorer) Classify(value float64, parameter string) Status {
	limit, ok := s.Limits[parameter]
	if !ok {
		return StatusUnknown
	}
	if math.IsNaN(value) {
		return StatusCritical
	}

	switch {
	case value >= limit.Min && value <= limit.Max:
		return StatusGood
	case value <= limit.Min*criticalLowFactor || value >= limit.Max*criticalHighFactor:
		return StatusCritical
	default:
		return StatusWarning
	}
}

// Index returns the weighted quality index in [0, 100]. Parameters without
// a weight, or absent from readings, contribute nothing.
func (s *Scorer) Index(readings map[string]float64) float64 {
	score := 0.0
	for param, value := range readings {
		weight, ok := s.Weights[param]
		if !ok {
			continue
		}
		switch s.Classify(value, param) {
		case StatusGood:
			score += weight * goodCredit
		case StatusWarning:
			score += weight * warningCredit
		}
	}

	return clamp(score, 0, 100)
}

// clamp restricts v to [lo, hi]. NaN clamps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
