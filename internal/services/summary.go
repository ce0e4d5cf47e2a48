package services

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"water-quality-platform/internal/models"
)

// StationSummary aggregates one parameter over a station's readings
type StationSummary struct {
	Station string  `json:"station"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summarize returns per-station statistics of parameter in station order.
// StdDev is the sample deviation and is zero for a single reading.
func Summarize(ds models.Dataset, parameter string) ([]StationSummary, error) {
	if !models.IsKnownParameter(parameter) {
		return nil, &models.ValidationError{
			Field:   "parameter",
			Value:   parameter,
			Message: "unknown parameter",
		}
	}

	out := make([]StationSummary, 0)
	for _, station := range ds.Stations() {
		values := ds.ForStation(station).Values(parameter)
		out = append(out, summarize(station, values))
	}
	return out, nil
}

func summarize(station string, values []float64) StationSummary {
	s := StationSummary{
		Station: station,
		Count:   len(values),
	}
	if len(values) == 0 {
		return s
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	if len(values) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	} else {
		s.Mean = values[0]
	}
	return s
}
