package quality

import (
	"fmt"
	"math"
)

var statusColors = map[Status]string{
	StatusGood:     "#00C851",
	StatusWarning:  "#ffbb33",
	StatusCritical: "#ff4444",
	StatusUnknown:  "#9e9e9e",
}

// ColorFor returns the hex display color of a status.
func ColorFor(status Status) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return statusColors[StatusUnknown]
}

// Rating thresholds on the index.
const (
	ExcellentThreshold = 80.0
	GoodThreshold      = 60.0
)

// Rating is the human label of an index value.
type Rating struct {
	Label  string `json:"label"`
	Status Status `json:"status"`
}

// Rate labels an index score.
func Rate(score float64) Rating {
	switch {
	case score > ExcellentThreshold:
		return Rating{Label: "Excellent", Status: StatusGood}
	case score > GoodThreshold:
		return Rating{Label: "Good", Status: StatusWarning}
	default:
		return Rating{Label: "Regular", Status: StatusCritical}
	}
}

// Axis is one spoke of a station radar profile, scored 0-100.
type Axis struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// Radar builds the five-spoke quality profile of a single reading.
func Radar(ph, turbidity, dissolvedOxygen, temperature, conductivity float64) []Axis {
	return []Axis{
		{Category: "pH", Value: clamp(ph/8.5*100, 0, 100)},
		{Category: "Turbidity", Value: clamp(100-turbidity/5*100, 0, 100)},
		{Category: "O2", Value: clamp(dissolvedOxygen/10*100, 0, 100)},
		{Category: "Temperature", Value: clamp(100-math.Abs(temperature-25)*2, 0, 100)},
		{Category: "Conductivity", Value: clamp(100-conductivity/400*100, 0, 100)},
	}
}

// FormatNumber renders v with a fixed number of decimals.
func FormatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f", decimals, v)
}
