package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-quality-platform/internal/cache"
	"water-quality-platform/internal/generator"
	"water-quality-platform/internal/models"
	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

func newTestDatasetService(t *testing.T, settings Settings) (*DatasetService, *metrics.Collector) {
	t.Helper()
	m := newTestMetrics()
	svc := NewDatasetService(settings, cache.NewMemoryCache(time.Hour), logging.Discard(), m)
	svc.clock = func() time.Time { return fixedNow }
	return svc, m
}

func newTestDashboard() *DashboardService {
	svc := NewDashboardService(logging.Discard(), newTestMetrics())
	svc.clock = func() time.Time { return fixedNow }
	return svc
}

func reading(station string, ts time.Time, ph, turbidity, do float64, status models.ReadingStatus) models.Reading {
	return models.Reading{
		Timestamp:       ts,
		Station:         station,
		Location:        "loc " + station,
		PH:              ph,
		Turbidity:       turbidity,
		DissolvedOxygen: do,
		Temperature:     22,
		Conductivity:    300,
		Status:          status,
	}
}

func TestDatasetService_CachesDataset(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestDatasetService(t, Settings{Days: 2, Seed: 42, Frequency: generator.Hourly})

	first, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 5*(48+1))

	second, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("hit")))

	// Callers get their own copy.
	second[0].PH = -1
	third, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, third[0].PH)
}

func TestDatasetService_AppliesAnomalies(t *testing.T) {
	ctx := context.Background()
	settings := Settings{
		Days:      7,
		Seed:      42,
		Frequency: generator.Hourly,
		Anomalies: []AnomalySpec{{
			Station:       "Station A",
			Parameter:     models.ParamPH,
			Offset:        48 * time.Hour,
			DurationHours: 5,
			Severity:      generator.SeverityHigh,
		}},
	}
	svc, m := newTestDatasetService(t, settings)

	got, err := svc.Dataset(ctx)
	require.NoError(t, err)

	base, err := generator.Generate(generator.Options{Days: 7, Seed: 42, Frequency: generator.Hourly, End: fixedNow})
	require.NoError(t, err)
	require.Len(t, got, len(base))

	changed := 0
	for i := range base {
		if got[i].PH != base[i].PH {
			changed++
			assert.Equal(t, "Station A", got[i].Station)
			assert.InDelta(t, base[i].PH*2, got[i].PH, 1e-9)
		}
	}
	assert.Equal(t, 6, changed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnomaliesInjectedTotal.WithLabelValues(models.ParamPH, "high")))
}

func TestDatasetService_InvalidSettings(t *testing.T) {
	svc, m := newTestDatasetService(t, Settings{Days: -1, Seed: 1})

	_, err := svc.Dataset(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationErrorsTotal.WithLabelValues("invalid_argument")))
}

func TestDatasetService_UpdateSettingsRegenerates(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestDatasetService(t, Settings{Days: 1, Seed: 42})

	_, err := svc.Dataset(ctx)
	require.NoError(t, err)

	stations := models.DefaultStations()[:2]
	require.NoError(t, svc.UpdateSettings(ctx, Settings{Days: 1, Seed: 42, Stations: stations}))

	ds, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Station A", "Station B"}, ds.Stations())
	assert.Len(t, svc.Stations(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatasetRefreshesTotal.WithLabelValues("config")))
}

func TestDatasetService_StationsDefaults(t *testing.T) {
	svc, _ := newTestDatasetService(t, Settings{Days: 1})
	stations := svc.Stations()
	require.Len(t, stations, 5)

	stations[0].Name = "changed"
	assert.Equal(t, "Station A", svc.Stations()[0].Name)
}

func TestGenerationService_Generate(t *testing.T) {
	m := newTestMetrics()
	svc := NewGenerationService(logging.Discard(), m)

	opts := generator.Options{Days: 1, Seed: 42, Frequency: generator.Hourly, End: fixedNow}
	a := generator.Anomaly{
		Station:       "Station B",
		Parameter:     models.ParamTurbidity,
		Start:         fixedNow.Add(-2 * time.Hour),
		DurationHours: 2,
		Severity:      generator.SeverityLow,
	}

	ds, err := svc.Generate(context.Background(), opts, a)
	require.NoError(t, err)
	assert.Len(t, ds, 5*25)
	assert.Equal(t, 125.0, testutil.ToFloat64(m.ReadingsGeneratedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnomaliesInjectedTotal.WithLabelValues(models.ParamTurbidity, "low")))

	_, err = svc.Generate(context.Background(), generator.Options{Days: generator.MaxDays + 1})
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestFilter_Apply(t *testing.T) {
	ds := models.Dataset{
		reading("Station A", fixedNow.Add(-40*24*time.Hour), 7, 1, 8, models.StatusNormal),
		reading("Station A", fixedNow.Add(-10*24*time.Hour), 7, 1, 8, models.StatusNormal),
		reading("Station A", fixedNow.Add(-3*24*time.Hour), 7, 1, 8, models.StatusNormal),
		reading("Station A", fixedNow.Add(-2*time.Hour), 7, 1, 8, models.StatusNormal),
		reading("Station B", fixedNow.Add(-2*time.Hour), 7, 1, 8, models.StatusNormal),
	}

	day := func(s string) time.Time {
		d, err := time.Parse(DateLayout, s)
		require.NoError(t, err)
		return d
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{Range: RangeAll}, 5},
		{"empty range means all", Filter{}, 5},
		{"24h", Filter{Range: RangeLast24Hours}, 2},
		{"7d", Filter{Range: RangeLast7Days}, 3},
		{"30d", Filter{Range: RangeLast30Days}, 4},
		{"station filter", Filter{Range: RangeAll, Stations: []string{"Station B"}}, 1},
		{"custom inclusive", Filter{Range: RangeCustom, Start: day("2024-06-05"), End: day("2024-06-12")}, 2},
		{"custom single day", Filter{Range: RangeCustom, Start: day("2024-06-15"), End: day("2024-06-15")}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter.Apply(ds, fixedNow)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"unknown range", Filter{Range: "1y"}},
		{"custom without dates", Filter{Range: RangeCustom}},
		{"custom reversed", Filter{Range: RangeCustom, Start: fixedNow, End: fixedNow.Add(-48 * time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidArgument))
		})
	}
}

func TestDashboard_KPIs(t *testing.T) {
	ds := models.Dataset{
		reading("Station A", fixedNow.Add(-30*time.Hour), 9, 9, 2, models.StatusAlert),
		reading("Station A", fixedNow.Add(-1*time.Hour), 7, 1, 8, models.StatusAlert),
		reading("Station B", fixedNow.Add(-1*time.Hour), 7, 1, 8, models.StatusNormal),
		reading("Station B", fixedNow, 7, 1, 8, models.StatusAlert),
	}

	report := newTestDashboard().KPIs(context.Background(), ds)

	assert.Equal(t, 2, report.ActiveStations)
	assert.Equal(t, 4, report.TotalReadings)
	assert.Equal(t, 2, report.AlertsToday)
	assert.InDelta(t, 100, report.QualityIndex, 1e-9)
	assert.Equal(t, "Excellent", report.Rating.Label)
}

func TestDashboard_KPIsEmpty(t *testing.T) {
	report := newTestDashboard().KPIs(context.Background(), nil)

	assert.Zero(t, report.ActiveStations)
	assert.Zero(t, report.TotalReadings)
	assert.Zero(t, report.QualityIndex)
	assert.Equal(t, "Regular", report.Rating.Label)
}

func TestDashboard_Alerts(t *testing.T) {
	ds := models.Dataset{
		reading("Station A", fixedNow.Add(-time.Hour), 9, 9, 2, models.StatusNormal),
		reading("Station A", fixedNow, 7, 1, 8, models.StatusNormal),
		reading("Station B", fixedNow, 6.0, 6, 5, models.StatusNormal),
		reading("Station C", fixedNow, 8.6, 7, 5.5, models.StatusNormal),
		reading("Station D", fixedNow, 6.5, 5, 6, models.StatusNormal),
	}

	svc := newTestDashboard()
	report := svc.Alerts(context.Background(), ds)

	assert.Equal(t, 6, report.Total)
	assert.Len(t, report.Alerts, MaxListedAlerts)
	assert.Equal(t, 1, report.Remaining)

	assert.Equal(t, "Station B", report.Alerts[0].Station)
	assert.Equal(t, models.ParamPH, report.Alerts[0].Parameter)
	assert.Contains(t, report.Alerts[0].Message, "6.00")
	assert.Equal(t, 2.0, testutil.ToFloat64(svc.metrics.ThresholdAlerts.WithLabelValues(models.ParamPH)))
}

func TestDashboard_AlertsBoundariesDoNotFire(t *testing.T) {
	ds := models.Dataset{
		reading("Station A", fixedNow, 8.5, 5, 6, models.StatusCritical),
	}

	report := newTestDashboard().Alerts(context.Background(), ds)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Alerts)
	assert.Zero(t, report.Remaining)
}

func TestDashboard_StationDetail(t *testing.T) {
	ds := models.Dataset{
		reading("Station A", fixedNow.Add(-time.Hour), 9, 9, 2, models.StatusNormal),
		reading("Station A", fixedNow, 7.25, 1.5, 4, models.StatusNormal),
	}

	detail, err := newTestDashboard().StationDetail(context.Background(), ds, "Station A")
	require.NoError(t, err)

	assert.Equal(t, "loc Station A", detail.Location)
	assert.Equal(t, fixedNow, detail.Timestamp)
	require.Len(t, detail.Cards, 4)
	assert.Len(t, detail.Radar, 5)

	ph := detail.Cards[0]
	assert.Equal(t, "7.25", ph.Formatted)
	assert.Equal(t, "Normal", ph.Delta)

	turb := detail.Cards[1]
	assert.Equal(t, "1.50 NTU", turb.Formatted)

	do := detail.Cards[2]
	assert.Equal(t, "critical", string(do.Status))
	assert.Equal(t, "Critical", do.Delta)
	assert.Equal(t, "#ff4444", do.Color)
}

func TestDashboard_StationDetailNotFound(t *testing.T) {
	_, err := newTestDashboard().StationDetail(context.Background(), nil, "Nowhere")
	require.Error(t, err)

	var nf *models.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestDashboard_Correlation(t *testing.T) {
	ds := models.Dataset{
		{PH: 1, Turbidity: 2, Temperature: 5, DissolvedOxygen: 3},
		{PH: 2, Turbidity: 4, Temperature: 5, DissolvedOxygen: 2},
		{PH: 3, Turbidity: 6, Temperature: 5, DissolvedOxygen: 1},
	}

	params := []string{models.ParamPH, models.ParamTurbidity, models.ParamTemperature, models.ParamDissolvedOxygen}
	m, err := newTestDashboard().Correlation(context.Background(), ds, params)
	require.NoError(t, err)

	require.NotNil(t, m.Values[0][1])
	assert.InDelta(t, 1, *m.Values[0][1], 1e-9)
	require.NotNil(t, m.Values[0][3])
	assert.InDelta(t, -1, *m.Values[0][3], 1e-9)
	assert.Nil(t, m.Values[0][2], "constant series has no correlation")
	assert.Nil(t, m.Values[2][2])
}

func TestDashboard_CorrelationRepeatedFraction(t *testing.T) {
	ds := make(models.Dataset, 7)
	for i := range ds {
		ds[i].PH = float64(i)
		ds[i].Turbidity = 0.1
	}

	m, err := newTestDashboard().Correlation(context.Background(), ds, []string{models.ParamPH, models.ParamTurbidity})
	require.NoError(t, err)
	assert.Nil(t, m.Values[0][1])
	require.NotNil(t, m.Values[0][0])
	assert.InDelta(t, 1, *m.Values[0][0], 1e-9)
}

func TestDashboard_CorrelationInvalid(t *testing.T) {
	svc := newTestDashboard()

	_, err := svc.Correlation(context.Background(), nil, []string{models.ParamPH})
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))

	_, err = svc.Correlation(context.Background(), nil, []string{models.ParamPH, "chlorine"})
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestExportService_WriteCSV(t *testing.T) {
	ds := models.Dataset{
		reading("Station A", fixedNow, 7.125, 1, 8, models.StatusNormal),
		reading("Station B", fixedNow.Add(time.Second), 6.9, 0.25, 7.5, models.StatusAlert),
	}

	m := newTestMetrics()
	svc := NewExportService(logging.Discard(), m)

	var buf bytes.Buffer
	n, err := svc.WriteCSV(context.Background(), &buf, ds)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, "2024-06-15 12:00:00", records[1][0])
	assert.Equal(t, "Station A", records[1][1])
	assert.Equal(t, "7.125", records[1][3])
	assert.Equal(t, "Normal", records[1][len(records[1])-1])
	assert.Equal(t, "0.25", records[2][4])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExportRowsTotal))
}

func TestExportService_WriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewExportService(logging.Discard(), newTestMetrics()).WriteCSV(context.Background(), &buf, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, strings.Join(CSVHeader, ",")+"\n", buf.String())
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename(time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC))
	assert.Equal(t, "water_quality_data_20240309_070501.csv", got)
}

func TestSummarize(t *testing.T) {
	ds := models.Dataset{
		{Station: "Station A", PH: 6},
		{Station: "Station A", PH: 8},
		{Station: "Station B", PH: 7},
	}

	got, err := Summarize(ds, models.ParamPH)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Station A", got[0].Station)
	assert.Equal(t, 2, got[0].Count)
	assert.InDelta(t, 7, got[0].Mean, 1e-9)
	assert.InDelta(t, math.Sqrt2, got[0].StdDev, 1e-9)
	assert.Equal(t, 6.0, got[0].Min)
	assert.Equal(t, 8.0, got[0].Max)

	assert.Equal(t, 1, got[1].Count)
	assert.Equal(t, 7.0, got[1].Mean)
	assert.Zero(t, got[1].StdDev)
	assert.Equal(t, 7.0, got[1].Min)
	assert.Equal(t, 7.0, got[1].Max)

	_, err = Summarize(ds, "lead")
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}
