package models

import (
	"time"
)

// Parameter names as they appear in readings, CSV headers and the quality tables.
const (
	ParamPH                   = "ph"
	ParamTurbidity            = "turbidity"
	ParamDissolvedOxygen      = "dissolved_oxygen"
	ParamTemperature          = "temperature"
	ParamConductivity         = "conductivity"
	ParamTotalDissolvedSolids = "total_dissolved_solids"
	ParamNitrates             = "nitrates"
)

// Parameters lists the numeric reading fields in column order.
var Parameters = []string{
	ParamPH,
	ParamTurbidity,
	ParamDissolvedOxygen,
	ParamTemperature,
	ParamConductivity,
	ParamTotalDissolvedSolids,
	ParamNitrates,
}

// ReadingStatus is the categorical label attached to every reading.
// It is drawn independently of the measured values.
type ReadingStatus string

const (
	StatusNormal   ReadingStatus = "Normal"
	StatusAlert    ReadingStatus = "Alert"
	StatusCritical ReadingStatus = "Critical"
)

// StationConfig describes a monitoring station and the baseline values
// its synthetic series is built around.
type StationConfig struct {
	Name     string  `json:"name" yaml:"name"`
	Location string  `json:"location" yaml:"location"`
	BasePH   float64 `json:"base_ph" yaml:"base_ph"`
	BaseTemp float64 `json:"base_temp" yaml:"base_temp"`
}

// DefaultStations returns a fresh copy of the built-in station set.
func DefaultStations() []StationConfig {
	return []StationConfig{
		{Name: "Station A", Location: "Main River", BasePH: 7.0, BaseTemp: 22},
		{Name: "Station B", Location: "North Tributary", BasePH: 6.8, BaseTemp: 20},
		{Name: "Station C", Location: "South Tributary", BasePH: 7.2, BaseTemp: 24},
		{Name: "Station D", Location: "Reservoir", BasePH: 7.1, BaseTemp: 23},
		{Name: "Station E", Location: "Treatment Plant", BasePH: 7.0, BaseTemp: 21},
	}
}

// Reading is one timestamped multi-parameter observation for a station
type Reading struct {
	Timestamp            time.Time     `json:"timestamp"`
	Station              string        `json:"station"`
	Location             string        `json:"location"`
	PH                   float64       `json:"ph"`
	Turbidity            float64       `json:"turbidity"`
	DissolvedOxygen      float64       `json:"dissolved_oxygen"`
	Temperature          float64       `json:"temperature"`
	Conductivity         float64       `json:"conductivity"`
	TotalDissolvedSolids float64       `json:"total_dissolved_solids"`
	Nitrates             float64       `json:"nitrates"`
	Status               ReadingStatus `json:"status"`
}

// field returns a pointer to the named numeric parameter, or nil.
func (r *Reading) field(parameter string) *float64 {
	switch parameter {
	case ParamPH:
		return &r.PH
	case ParamTurbidity:
		return &r.Turbidity
	case ParamDissolvedOxygen:
		return &r.DissolvedOxygen
	case ParamTemperature:
		return &r.Temperature
	case ParamConductivity:
		return &r.Conductivity
	case ParamTotalDissolvedSolids:
		return &r.TotalDissolvedSolids
	case ParamNitrates:
		return &r.Nitrates
	default:
		return nil
	}
}

// Value returns the named parameter. ok is false for unknown names.
func (r Reading) Value(parameter string) (float64, bool) {
	p := r.field(parameter)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// SetValue overwrites the named parameter and reports whether it exists.
func (r *Reading) SetValue(parameter string, v float64) bool {
	p := r.field(parameter)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// QualityInputs returns the parameters that feed the quality index.
func (r Reading) QualityInputs() map[string]float64 {
	return map[string]float64{
		ParamPH:              r.PH,
		ParamTurbidity:       r.Turbidity,
		ParamDissolvedOxygen: r.DissolvedOxygen,
		ParamTemperature:     r.Temperature,
		ParamConductivity:    r.Conductivity,
	}
}

// IsKnownParameter reports whether name is one of the seven reading parameters.
func IsKnownParameter(name string) bool {
	for _, p := range Parameters {
		if p == name {
			return true
		}
	}
	return false
}
