package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"water-quality-platform/internal/models"
	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

// TimestampLayout is the sortable timestamp format used in exports.
const TimestampLayout = "2006-01-02 15:04:05"

// CSVHeader lists export columns in output order
var CSVHeader = []string{
	"timestamp",
	"station",
	"location",
	models.ParamPH,
	models.ParamTurbidity,
	models.ParamDissolvedOxygen,
	models.ParamTemperature,
	models.ParamConductivity,
	models.ParamTotalDissolvedSolids,
	models.ParamNitrates,
	"status",
}

// ExportService serializes datasets for download
type ExportService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewExportService creates a new export service
func NewExportService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ExportService {
	return &ExportService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ExportFilename returns the download name for an export made at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("water_quality_data_%s.csv", t.Format("20060102_150405"))
}

// WriteCSV writes a header row and one row per reading. It returns the
// number of readings written.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, ds models.Dataset) (int, error) {
	start := time.Now()

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(CSVHeader))
	for i, r := range ds {
		row[0] = r.Timestamp.Format(TimestampLayout)
		row[1] = r.Station
		row[2] = r.Location
		for j, p := range models.Parameters {
			v, _ := r.Value(p)
			row[3+j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		row[len(row)-1] = string(r.Status)

		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(ds), fmt.Errorf("failed to flush csv: %w", err)
	}

	s.metrics.ExportRowsTotal.Add(float64(len(ds)))
	s.metrics.ObserveProcessing("csv_export", time.Since(start))

	s.logger.Info(ctx, "[EXPORT_CSV] Dataset exported", logging.Fields{
		"rows":        len(ds),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return len(ds), nil
}
