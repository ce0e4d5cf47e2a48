package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"water-quality-platform/internal/models"
	"water-quality-platform/internal/quality"
	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

// MaxListedAlerts is how many alerts a report lists before summarizing the rest.
const MaxListedAlerts = 5

// KPIReport holds the headline indicators of a filtered dataset
type KPIReport struct {
	ActiveStations int            `json:"active_stations"`
	TotalReadings  int            `json:"total_readings"`
	AlertsToday    int            `json:"alerts_today"`
	QualityIndex   float64        `json:"quality_index"`
	Rating         quality.Rating `json:"rating"`
}

// Alert is a threshold breach on a station's latest reading
type Alert struct {
	Station   string         `json:"station"`
	Parameter string         `json:"parameter"`
	Value     float64        `json:"value"`
	Status    quality.Status `json:"status"`
	Message   string         `json:"message"`
}

// AlertReport lists the first alerts and counts the rest
type AlertReport struct {
	Alerts    []Alert `json:"alerts"`
	Total     int     `json:"total"`
	Remaining int     `json:"remaining"`
}

// ParameterCard is one metric tile of a station detail view
type ParameterCard struct {
	Parameter string         `json:"parameter"`
	Label     string         `json:"label"`
	Value     float64        `json:"value"`
	Formatted string         `json:"formatted"`
	Status    quality.Status `json:"status"`
	Color     string         `json:"color"`
	Delta     string         `json:"delta"`
}

// StationDetail describes the latest state of one station
type StationDetail struct {
	Station      string          `json:"station"`
	Location     string          `json:"location"`
	Timestamp    time.Time       `json:"timestamp"`
	Cards        []ParameterCard `json:"cards"`
	Radar        []quality.Axis  `json:"radar"`
	QualityIndex float64         `json:"quality_index"`
}

// CorrelationMatrix holds pairwise Pearson coefficients. Undefined
// coefficients (constant series) are nil.
type CorrelationMatrix struct {
	Parameters []string     `json:"parameters"`
	Values     [][]*float64 `json:"values"`
}

type cardField struct {
	parameter string
	label     string
	unit      string
}

var detailCards = []cardField{
	{models.ParamPH, "pH", ""},
	{models.ParamTurbidity, "Turbidity", " NTU"},
	{models.ParamDissolvedOxygen, "Dissolved O2", " mg/L"},
	{models.ParamTemperature, "Temperature", "°C"},
}

// DashboardService computes the dashboard views over a dataset
type DashboardService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	clock   func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	return &DashboardService{
		logger:  logger,
		metrics: metricsCollector,
		clock:   time.Now,
	}
}

// Filter applies a time-range and station selection relative to the service clock.
func (s *DashboardService) Filter(ctx context.Context, ds models.Dataset, f Filter) (models.Dataset, error) {
	out, err := f.Apply(ds, s.clock())
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "[DASHBOARD_FILTER] Filter applied", logging.Fields{
		"range":    f.Range,
		"stations": f.Stations,
		"input":    len(ds),
		"output":   len(out),
	})
	return out, nil
}

// KPIs computes the headline indicators. The index is scored on the mean
// of each station's latest reading.
func (s *DashboardService) KPIs(ctx context.Context, ds models.Dataset) KPIReport {
	today := s.clock()
	report := KPIReport{
		ActiveStations: len(ds.Stations()),
		TotalReadings:  len(ds),
	}

	for _, r := range ds {
		if r.Status == models.StatusAlert && sameDate(r.Timestamp, today) {
			report.AlertsToday++
		}
	}

	latest := ds.LatestByStation()
	if len(latest) > 0 {
		sums := make(map[string]float64)
		for _, r := range latest {
			for param, v := range r.QualityInputs() {
				sums[param] += v
			}
		}
		means := make(map[string]float64, len(sums))
		for param, sum := range sums {
			means[param] = sum / float64(len(latest))
		}
		report.QualityIndex = quality.Index(means)
	}
	report.Rating = quality.Rate(report.QualityIndex)

	s.logger.Debug(ctx, "[DASHBOARD_KPIS] KPIs computed", logging.Fields{
		"stations":      report.ActiveStations,
		"readings":      report.TotalReadings,
		"alerts_today":  report.AlertsToday,
		"quality_index": report.QualityIndex,
	})
	return report
}

// Alerts checks each station's latest reading against the alert thresholds.
func (s *DashboardService) Alerts(ctx context.Context, ds models.Dataset) AlertReport {
	all := make([]Alert, 0)
	perParam := map[string]int{
		models.ParamPH:              0,
		models.ParamTurbidity:       0,
		models.ParamDissolvedOxygen: 0,
	}

	for _, r := range ds.LatestByStation() {
		if r.PH < 6.5 || r.PH > 8.5 {
			all = append(all, newAlert(r.Station, models.ParamPH, r.PH,
				fmt.Sprintf("pH out of range (%s)", quality.FormatNumber(r.PH, 2))))
		}
		if r.Turbidity > 5 {
			all = append(all, newAlert(r.Station, models.ParamTurbidity, r.Turbidity,
				fmt.Sprintf("High turbidity (%s NTU)", quality.FormatNumber(r.Turbidity, 2))))
		}
		if r.DissolvedOxygen < 6 {
			all = append(all, newAlert(r.Station, models.ParamDissolvedOxygen, r.DissolvedOxygen,
				fmt.Sprintf("Low dissolved oxygen (%s mg/L)", quality.FormatNumber(r.DissolvedOxygen, 2))))
		}
	}

	for _, a := range all {
		perParam[a.Parameter]++
	}
	for param, n := range perParam {
		s.metrics.ThresholdAlerts.WithLabelValues(param).Set(float64(n))
	}

	report := AlertReport{Alerts: all, Total: len(all)}
	if len(all) > MaxListedAlerts {
		report.Alerts = all[:MaxListedAlerts]
		report.Remaining = len(all) - MaxListedAlerts
	}

	if report.Total > 0 {
		s.logger.Info(ctx, "[DASHBOARD_ALERTS] Threshold alerts raised", logging.Fields{
			"total": report.Total,
		})
	}
	return report
}

func newAlert(station, parameter string, value float64, message string) Alert {
	return Alert{
		Station:   station,
		Parameter: parameter,
		Value:     value,
		Status:    quality.Classify(value, parameter),
		Message:   message,
	}
}

// StationDetail builds the detail card of a station from its latest reading.
func (s *DashboardService) StationDetail(ctx context.Context, ds models.Dataset, station string) (*StationDetail, error) {
	readings := ds.ForStation(station)
	if len(readings) == 0 {
		return nil, &models.NotFoundError{Resource: "station", ID: station}
	}

	latest := readings[len(readings)-1]
	detail := &StationDetail{
		Station:   station,
		Location:  readings[0].Location,
		Timestamp: latest.Timestamp,
		Cards:     make([]ParameterCard, 0, len(detailCards)),
		Radar: quality.Radar(latest.PH, latest.Turbidity, latest.DissolvedOxygen,
			latest.Temperature, latest.Conductivity),
		QualityIndex: quality.Index(latest.QualityInputs()),
	}

	for _, card := range detailCards {
		v, _ := latest.Value(card.parameter)
		status := quality.Classify(v, card.parameter)
		detail.Cards = append(detail.Cards, ParameterCard{
			Parameter: card.parameter,
			Label:     card.label,
			Value:     v,
			Formatted: quality.FormatNumber(v, 2) + card.unit,
			Status:    status,
			Color:     quality.ColorFor(status),
			Delta:     deltaLabel(status),
		})
	}

	s.metrics.QualityIndex.WithLabelValues(station).Set(detail.QualityIndex)

	s.logger.Debug(ctx, "[DASHBOARD_STATION] Station detail built", logging.Fields{
		"station":       station,
		"quality_index": detail.QualityIndex,
	})
	return detail, nil
}

func deltaLabel(status quality.Status) string {
	switch status {
	case quality.StatusGood:
		return "Normal"
	case quality.StatusWarning:
		return "Attention"
	default:
		return "Critical"
	}
}

// Correlation computes the Pearson matrix of at least two known parameters.
func (s *DashboardService) Correlation(ctx context.Context, ds models.Dataset, parameters []string) (*CorrelationMatrix, error) {
	if len(parameters) < 2 {
		return nil, &models.ValidationError{
			Field:   "parameter",
			Value:   fmt.Sprint(parameters),
			Message: "at least two parameters are required",
		}
	}

	series := make([][]float64, len(parameters))
	for i, p := range parameters {
		if !models.IsKnownParameter(p) {
			return nil, &models.ValidationError{
				Field:   "parameter",
				Value:   p,
				Message: "unknown parameter",
			}
		}
		series[i] = ds.Values(p)
	}

	m := &CorrelationMatrix{
		Parameters: parameters,
		Values:     make([][]*float64, len(parameters)),
	}
	for i := range parameters {
		m.Values[i] = make([]*float64, len(parameters))
		for j := range parameters {
			if r, ok := pearson(series[i], series[j]); ok {
				v := r
				m.Values[i][j] = &v
			}
		}
	}

	s.logger.Debug(ctx, "[DASHBOARD_CORRELATION] Correlation computed", logging.Fields{
		"parameters": parameters,
		"samples":    len(ds),
	})
	return m, nil
}

// pearson returns the correlation of x and y; ok is false when either
// series is constant or shorter than two samples.
func pearson(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) || isConstant(x) || isConstant(y) {
		return 0, false
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}

func isConstant(x []float64) bool {
	return floats.Min(x) == floats.Max(x)
}
