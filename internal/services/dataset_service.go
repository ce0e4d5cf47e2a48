package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"water-quality-platform/internal/cache"
	"water-quality-platform/internal/generator"
	"water-quality-platform/internal/models"
	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

// AnomalySpec is a demo anomaly positioned relative to the dataset end.
type AnomalySpec struct {
	Station       string
	Parameter     string
	Offset        time.Duration
	DurationHours int
	Severity      generator.Severity
}

// Settings describe the dataset served to dashboard consumers
type Settings struct {
	Days      int
	Seed      int64
	Frequency generator.Frequency
	Stations  []models.StationConfig
	Anomalies []AnomalySpec
}

// cacheKey identifies a dataset built from s. Timestamps are not part of
// the key; the cache TTL bounds how stale the range may get.
func (s Settings) cacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "d%d|s%d|f%s", s.Days, s.Seed, s.Frequency)
	for _, st := range s.Stations {
		fmt.Fprintf(&b, "|st:%s:%s:%g:%g", st.Name, st.Location, st.BasePH, st.BaseTemp)
	}
	for _, a := range s.Anomalies {
		fmt.Fprintf(&b, "|an:%s:%s:%s:%d:%s", a.Station, a.Parameter, a.Offset, a.DurationHours, a.Severity)
	}
	return b.String()
}

// DatasetService generates, decorates and caches the served dataset
type DatasetService struct {
	cache      cache.DatasetCache
	generation *GenerationService
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
	clock      func() time.Time
	group      singleflight.Group

	mu       sync.RWMutex
	settings Settings
}

// NewDatasetService creates a new dataset service
func NewDatasetService(settings Settings, datasetCache cache.DatasetCache, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DatasetService {
	return &DatasetService{
		cache:      datasetCache,
		generation: NewGenerationService(logger, metricsCollector),
		logger:     logger,
		metrics:    metricsCollector,
		clock:      time.Now,
		settings:   settings,
	}
}

// Settings returns the active settings.
func (s *DatasetService) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Stations returns the configured stations.
func (s *DatasetService) Stations() []models.StationConfig {
	settings := s.Settings()
	stations := settings.Stations
	if stations == nil {
		stations = models.DefaultStations()
	}
	out := make([]models.StationConfig, len(stations))
	copy(out, stations)
	return out
}

// UpdateSettings replaces the active settings and drops cached datasets.
func (s *DatasetService) UpdateSettings(ctx context.Context, settings Settings) error {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	s.logger.Info(ctx, "[DATASET_SETTINGS] Dataset settings updated", logging.Fields{
		"days":      settings.Days,
		"seed":      settings.Seed,
		"frequency": settings.Frequency,
		"stations":  len(settings.Stations),
		"anomalies": len(settings.Anomalies),
	})

	return s.Refresh(ctx, "config")
}

// Dataset returns the served dataset, generating it on a cache miss.
// Concurrent misses for the same settings share one generation.
func (s *DatasetService) Dataset(ctx context.Context) (models.Dataset, error) {
	settings := s.Settings()
	key := settings.cacheKey()

	ds, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.RecordCacheResult("error")
		s.logger.Warn(ctx, "[DATASET_CACHE_ERROR] Cache lookup failed, regenerating", logging.Fields{
			"error": err.Error(),
		})
	case ok:
		s.metrics.RecordCacheResult("hit")
		return ds, nil
	default:
		s.metrics.RecordCacheResult("miss")
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ds, err := s.build(ctx, settings)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, ds); err != nil {
			s.logger.Warn(ctx, "[DATASET_CACHE_ERROR] Failed to cache dataset", logging.Fields{
				"error": err.Error(),
			})
		}
		return ds, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(models.Dataset).Clone(), nil
}

// Refresh drops cached datasets and rebuilds the served one.
func (s *DatasetService) Refresh(ctx context.Context, trigger string) error {
	s.metrics.RecordRefresh(trigger)

	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to invalidate dataset cache: %w", err)
	}

	ds, err := s.Dataset(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild dataset: %w", err)
	}

	s.logger.Info(ctx, "[DATASET_REFRESH] Dataset refreshed", logging.Fields{
		"trigger":  trigger,
		"readings": len(ds),
	})
	return nil
}

func (s *DatasetService) build(ctx context.Context, settings Settings) (models.Dataset, error) {
	end := s.clock()
	opts := generator.Options{
		Days:      settings.Days,
		Stations:  settings.Stations,
		Frequency: settings.Frequency,
		Seed:      settings.Seed,
		End:       end,
	}

	anomalies := make([]generator.Anomaly, 0, len(settings.Anomalies))
	for _, a := range settings.Anomalies {
		anomalies = append(anomalies, generator.Anomaly{
			Station:       a.Station,
			Parameter:     a.Parameter,
			Start:         end.Add(-a.Offset),
			DurationHours: a.DurationHours,
			Severity:      a.Severity,
		})
	}

	return s.generation.Generate(ctx, opts, anomalies...)
}
