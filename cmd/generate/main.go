package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"water-quality-platform/internal/generator"
	"water-quality-platform/internal/models"
	"water-quality-platform/internal/services"
	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	days := flag.Int("days", generator.DefaultDays, "Number of days of history to generate")
	stationCount := flag.Int("stations", len(models.DefaultStations()), "Number of built-in stations to include")
	seed := flag.Int64("seed", generator.DefaultSeed, "Random seed")
	frequency := flag.String("frequency", string(generator.Hourly), "Sampling frequency: hourly or daily")
	output := flag.String("output", "-", "CSV output path, - for stdout")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	anomalyStation := flag.String("anomaly-station", "", "Station to perturb; empty disables anomaly injection")
	anomalyParameter := flag.String("anomaly-parameter", models.ParamPH, "Parameter to perturb")
	anomalyOffset := flag.Duration("anomaly-offset", 48*time.Hour, "Anomaly start, measured back from the last tick")
	anomalyHours := flag.Int("anomaly-hours", 5, "Anomaly duration in hours")
	anomalySeverity := flag.String("anomaly-severity", string(generator.SeverityHigh), "Anomaly severity: low, medium or high")
	flag.Parse()

	logger := logging.NewStructuredLogger("water-quality-generate", "1.0.0", logging.ParseLevel(*logLevel))
	// Logs go to stderr so CSV on stdout stays clean
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	logger.Info(ctx, "[GENERATE_START] Starting synthetic data generation", logging.Fields{
		"version":   "1.0.0",
		"days":      *days,
		"stations":  *stationCount,
		"seed":      *seed,
		"frequency": *frequency,
		"output":    *output,
	})

	freq, err := generator.ParseFrequency(*frequency)
	if err != nil {
		logger.Fatal(ctx, "[GENERATE_ERROR] Invalid frequency", logging.Fields{
			"frequency": *frequency,
		}, err)
	}

	stations := models.DefaultStations()
	if *stationCount < 1 || *stationCount > len(stations) {
		logger.Fatal(ctx, "[GENERATE_ERROR] Invalid station count", logging.Fields{
			"stations":  *stationCount,
			"available": len(stations),
		}, fmt.Errorf("stations must be between 1 and %d", len(stations)))
	}

	// Metrics are collected in-process only
	metricsCollector := metrics.NewCollectorWithRegistry("water_quality_generate", prometheus.NewRegistry())
	generationService := services.NewGenerationService(logger, metricsCollector)
	exportService := services.NewExportService(logger, metricsCollector)

	end := time.Now()
	opts := generator.Options{
		Days:      *days,
		Stations:  stations[:*stationCount],
		Frequency: freq,
		Seed:      *seed,
		End:       end,
	}

	var anomalies []generator.Anomaly
	if *anomalyStation != "" {
		anomalies = append(anomalies, generator.Anomaly{
			Station:       *anomalyStation,
			Parameter:     *anomalyParameter,
			Start:         end.Add(-*anomalyOffset),
			DurationHours: *anomalyHours,
			Severity:      generator.Severity(*anomalySeverity),
		})
	}

	start := time.Now()
	ds, err := generationService.Generate(ctx, opts, anomalies...)
	if err != nil {
		logger.Fatal(ctx, "[GENERATE_ERROR] Generation failed", logging.Fields{}, err)
	}

	var out io.Writer = os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatal(ctx, "[GENERATE_ERROR] Failed to create output file", logging.Fields{
				"output": *output,
			}, err)
		}
		defer f.Close()
		out = f
	}

	rows, err := exportService.WriteCSV(ctx, out, ds)
	if err != nil {
		logger.Fatal(ctx, "[GENERATE_ERROR] Failed to write CSV", logging.Fields{
			"output": *output,
		}, err)
	}
	duration := time.Since(start)

	summaries, err := services.Summarize(ds, models.ParamPH)
	if err != nil {
		logger.Fatal(ctx, "[GENERATE_ERROR] Failed to summarize dataset", logging.Fields{}, err)
	}

	// Print results
	w := os.Stderr
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "GENERATION COMPLETE")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Stations:           %d\n", len(ds.Stations()))
	fmt.Fprintf(w, "Readings:           %d\n", rows)
	fmt.Fprintf(w, "Anomalies:          %d\n", len(anomalies))
	fmt.Fprintf(w, "Duration:           %v\n", duration)
	fmt.Fprintf(w, "Readings/Second:    %.2f\n", float64(rows)/duration.Seconds())

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "PH BY STATION")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%-12s %8s %8s %8s %8s %8s\n", "Station", "Count", "Mean", "Std", "Min", "Max")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-12s %8d %8.2f %8.2f %8.2f %8.2f\n", s.Station, s.Count, s.Mean, s.StdDev, s.Min, s.Max)
	}

	logger.Info(ctx, "[GENERATE_COMPLETE] Generation completed successfully", logging.Fields{
		"readings":         rows,
		"duration_seconds": duration.Seconds(),
	})
}
