package services

import (
	"time"

	"water-quality-platform/internal/models"
)

// TimeRange selects which part of the dataset a consumer looks at.
type TimeRange string

const (
	RangeLast24Hours TimeRange = "24h"
	RangeLast7Days   TimeRange = "7d"
	RangeLast30Days  TimeRange = "30d"
	RangeAll         TimeRange = "all"
	RangeCustom      TimeRange = "custom"
)

// DateLayout is the calendar-date format accepted for custom ranges.
const DateLayout = "2006-01-02"

// Filter is the dashboard's time-range and station selection.
type Filter struct {
	Range TimeRange
	// Start and End bound a custom range by calendar date, both inclusive.
	Start time.Time
	End   time.Time
	// Stations restricts the result; empty keeps every station.
	Stations []string
}

// Validate rejects unknown ranges and incomplete custom ranges.
func (f Filter) Validate() error {
	switch f.Range {
	case "", RangeAll, RangeLast24Hours, RangeLast7Days, RangeLast30Days:
		return nil
	case RangeCustom:
		if f.Start.IsZero() || f.End.IsZero() {
			return &models.ValidationError{
				Field:   "range",
				Value:   string(f.Range),
				Message: "custom range requires start and end dates",
			}
		}
		if civilDate(f.End).Before(civilDate(f.Start)) {
			return &models.ValidationError{
				Field:   "end",
				Value:   f.End.Format(DateLayout),
				Message: "end date is before start date",
			}
		}
		return nil
	default:
		return &models.ValidationError{
			Field:   "range",
			Value:   string(f.Range),
			Message: "unknown range, expected 24h, 7d, 30d, all or custom",
		}
	}
}

// Apply returns the readings selected by f, relative to now for presets.
func (f Filter) Apply(ds models.Dataset, now time.Time) (models.Dataset, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var out models.Dataset
	switch f.Range {
	case RangeLast24Hours:
		out = ds.FilterRange(now.Add(-24*time.Hour), time.Time{})
	case RangeLast7Days:
		out = ds.FilterRange(now.Add(-7*24*time.Hour), time.Time{})
	case RangeLast30Days:
		out = ds.FilterRange(now.Add(-30*24*time.Hour), time.Time{})
	case RangeCustom:
		out = filterDates(ds, civilDate(f.Start), civilDate(f.End))
	default:
		out = ds.Clone()
	}

	return out.FilterStations(f.Stations), nil
}

func filterDates(ds models.Dataset, from, to time.Time) models.Dataset {
	out := make(models.Dataset, 0, len(ds))
	for _, r := range ds {
		d := civilDate(r.Timestamp)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// civilDate drops the clock part of t, keeping its calendar date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	return civilDate(a).Equal(civilDate(b))
}
