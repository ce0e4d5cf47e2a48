// Package generator synthesizes water-quality sensor readings.
//
// Every Generator owns one seeded random stream. The stream is consumed
// station by station in list order and, within a station, tick by tick in
// ascending time, so a given seed and range always reproduce the same
// dataset.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"water-quality-platform/internal/models"
)

// Defaults used by DefaultOptions.
const (
	DefaultDays = 30
	DefaultSeed = 42
)

// MaxDays bounds the history length of a single generation run.
const MaxDays = 3660

// Frequency is the sampling interval of a generated series.
type Frequency string

const (
	Hourly Frequency = "hourly"
	Daily  Frequency = "daily"
)

// ParseFrequency accepts "hourly"/"H" and "daily"/"D" in any case.
// An empty string means hourly.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "h", "hourly":
		return Hourly, nil
	case "d", "daily":
		return Daily, nil
	default:
		return "", &models.ValidationError{
			Field:   "frequency",
			Value:   s,
			Message: "unknown frequency, expected hourly or daily",
		}
	}
}

// Step returns the interval between two ticks.
func (f Frequency) Step() (time.Duration, error) {
	switch f {
	case "", Hourly:
		return time.Hour, nil
	case Daily:
		return 24 * time.Hour, nil
	default:
		return 0, &models.ValidationError{
			Field:   "frequency",
			Value:   string(f),
			Message: "unknown frequency, expected hourly or daily",
		}
	}
}

// Options controls a single generation run.
type Options struct {
	// Days is the length of the range ending at End. Zero yields a single tick.
	Days int

	// Stations to synthesize, in output order. nil selects the built-in
	// stations; a non-nil empty slice is rejected.
	Stations []models.StationConfig

	// Frequency defaults to Hourly when empty.
	Frequency Frequency

	// Seed is used by the package-level Generate. Generator.Generate
	// ignores it and keeps consuming its own stream.
	Seed int64

	// End is the last tick. The generator clock is used when zero.
	End time.Time
}

// DefaultOptions returns thirty days of hourly data for the built-in stations.
func DefaultOptions() Options {
	return Options{
		Days:      DefaultDays,
		Frequency: Hourly,
		Seed:      DefaultSeed,
	}
}

// Probabilities of the independent status label.
const (
	probNormal = 0.85
	probAlert  = 0.12
)

// Generator produces synthetic datasets from an owned random stream.
// A Generator is not safe for concurrent use; give each goroutine its own.
type Generator struct {
	seed  int64
	rng   *rand.Rand
	clock func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source used when Options.End is zero.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) {
		g.clock = clock
	}
}

// New creates a generator whose stream is seeded once with seed.
func New(seed int64, opts ...Option) *Generator {
	g := &Generator{
		seed:  seed,
		rng:   rand.New(rand.NewSource(seed)),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Seed returns the seed the stream was created with.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Generate builds a fresh generator from opts.Seed and runs it once.
func Generate(opts Options) (models.Dataset, error) {
	return New(opts.Seed).Generate(opts)
}

// GenerateDefault generates hourly data for the first stationCount
// built-in stations, clamped to the available range.
func GenerateDefault(days, stationCount int, seed int64) (models.Dataset, error) {
	stations := models.DefaultStations()
	if stationCount < 1 {
		stationCount = 1
	}
	if stationCount > len(stations) {
		stationCount = len(stations)
	}

	return Generate(Options{
		Days:      days,
		Stations:  stations[:stationCount],
		Frequency: Hourly,
		Seed:      seed,
	})
}

// Generate synthesizes one reading per station per tick. Inputs are
// validated before any random number is drawn.
func (g *Generator) Generate(opts Options) (models.Dataset, error) {
	if opts.Days < 0 {
		return nil, &models.ValidationError{
			Field:   "days",
			Value:   strconv.Itoa(opts.Days),
			Message: "must not be negative",
		}
	}
	if opts.Days > MaxDays {
		return nil, &models.ValidationError{
			Field:   "days",
			Value:   strconv.Itoa(opts.Days),
			Message: fmt.Sprintf("must not exceed %d", MaxDays),
		}
	}

	stations := opts.Stations
	if stations == nil {
		stations = models.DefaultStations()
	}
	if len(stations) == 0 {
		return nil, &models.ValidationError{
			Field:   "stations",
			Value:   "[]",
			Message: "at least one station is required",
		}
	}
	for i, st := range stations {
		if strings.TrimSpace(st.Name) == "" {
			return nil, &models.ValidationError{
				Field:   fmt.Sprintf("stations[%d].name", i),
				Value:   st.Name,
				Message: "station name is required",
			}
		}
	}

	step, err := opts.Frequency.Step()
	if err != nil {
		return nil, err
	}

	end := opts.End
	if end.IsZero() {
		end = g.clock()
	}
	ticks := timeRange(end.Add(-time.Duration(opts.Days)*24*time.Hour), end, step)

	ds := make(models.Dataset, 0, len(stations)*len(ticks))
	for _, st := range stations {
		ds = g.appendStation(ds, st, ticks)
	}

	return ds, nil
}

// timeRange returns start, start+step, ... up to and including end.
func timeRange(start, end time.Time, step time.Duration) []time.Time {
	n := int(end.Sub(start)/step) + 1
	if n < 1 {
		n = 1
	}
	ticks := make([]time.Time, 0, n)
	for t := start; !t.After(end); t = t.Add(step) {
		ticks = append(ticks, t)
	}
	return ticks
}

func (g *Generator) appendStation(ds models.Dataset, st models.StationConfig, ticks []time.Time) models.Dataset {
	basePH := st.BasePH + g.normal(0.3)
	baseTemp := st.BaseTemp + g.normal(2)

	for _, ts := range ticks {
		hourFactor := math.Sin(2 * math.Pi * float64(ts.Hour()) / 24)
		dayFactor := math.Sin(2 * math.Pi * float64(ts.YearDay()) / 365)

		r := models.Reading{
			Timestamp: ts,
			Station:   st.Name,
			Location:  st.Location,
		}

		// Draw order is part of the reproducibility contract.
		r.PH = clip(basePH+0.5*hourFactor+g.normal(0.2), 4.0, 10.0)
		r.Turbidity = math.Max(0, 2+3*g.exponential(0.5)+0.5*hourFactor)
		r.DissolvedOxygen = math.Max(0, 8-0.5*hourFactor+g.normal(0.5))
		r.Temperature = baseTemp + 3*hourFactor + 5*dayFactor + g.normal(0.5)
		r.Conductivity = math.Max(0, 200+50*g.normal(1)+20*hourFactor)
		r.TotalDissolvedSolids = math.Max(0, 150+30*g.normal(1))
		r.Nitrates = math.Max(0, 2+3*g.normal(1))
		r.Status = g.status()

		ds = append(ds, r)
	}

	return ds
}

// normal draws from N(0, sigma).
func (g *Generator) normal(sigma float64) float64 {
	return g.rng.NormFloat64() * sigma
}

// exponential draws from an exponential distribution with the given mean.
func (g *Generator) exponential(mean float64) float64 {
	return g.rng.ExpFloat64() * mean
}

func (g *Generator) status() models.ReadingStatus {
	u := g.rng.Float64()
	switch {
	case u < probNormal:
		return models.StatusNormal
	case u < probNormal+probAlert:
		return models.StatusAlert
	default:
		return models.StatusCritical
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
