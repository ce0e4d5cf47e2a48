package generator

import (
	"time"

	"water-quality-platform/internal/models"
)

// Severity selects the multiplier applied by an anomaly.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// fallbackMultiplier applies to severities outside the known set.
const fallbackMultiplier = 1.5

// Multiplier returns the factor applied to affected values. An empty
// severity counts as high.
func (s Severity) Multiplier() float64 {
	switch s {
	case SeverityLow:
		return 1.3
	case SeverityMedium:
		return 1.6
	case "", SeverityHigh:
		return 2.0
	default:
		return fallbackMultiplier
	}
}

// Anomaly describes a multiplicative perturbation of one parameter of one
// station over a closed time window.
type Anomaly struct {
	Station       string    `json:"station"`
	Parameter     string    `json:"parameter"`
	Start         time.Time `json:"start"`
	DurationHours int       `json:"duration_hours"`
	Severity      Severity  `json:"severity"`
}

// Window returns the inclusive bounds of the anomaly.
func (a Anomaly) Window() (time.Time, time.Time) {
	return a.Start, a.Start.Add(time.Duration(a.DurationHours) * time.Hour)
}

func (a Anomaly) matches(r models.Reading) bool {
	if r.Station != a.Station {
		return false
	}
	from, to := a.Window()
	return !r.Timestamp.Before(from) && !r.Timestamp.After(to)
}

// AffectedRows counts the readings InjectAnomaly would modify.
func AffectedRows(ds models.Dataset, a Anomaly) int {
	if !models.IsKnownParameter(a.Parameter) {
		return 0
	}
	n := 0
	for _, r := range ds {
		if a.matches(r) {
			n++
		}
	}
	return n
}

// InjectAnomaly returns a copy of ds in which every matching reading has
// a.Parameter multiplied by the severity factor. ds itself is not touched.
// Unknown stations, parameters or empty windows leave the copy unchanged.
func InjectAnomaly(ds models.Dataset, a Anomaly) models.Dataset {
	out := ds.Clone()
	if !models.IsKnownParameter(a.Parameter) {
		return out
	}

	factor := a.Severity.Multiplier()
	for i := range out {
		if !a.matches(out[i]) {
			continue
		}
		v, _ := out[i].Value(a.Parameter)
		out[i].SetValue(a.Parameter, v*factor)
	}
	return out
}
