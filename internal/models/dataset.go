package models

import (
	"time"
)

// Dataset is an ordered sequence of readings, station-major and
// time-ascending within each station.
type Dataset []Reading

// Clone returns a copy that shares no backing array with d.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

// Stations returns the distinct station names in first-appearance order.
func (d Dataset) Stations() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, r := range d {
		if _, ok := seen[r.Station]; ok {
			continue
		}
		seen[r.Station] = struct{}{}
		names = append(names, r.Station)
	}
	return names
}

// Location returns the location of the first reading for station.
func (d Dataset) Location(station string) (string, bool) {
	for _, r := range d {
		if r.Station == station {
			return r.Location, true
		}
	}
	return "", false
}

// ForStation returns the readings of a single station in dataset order.
func (d Dataset) ForStation(station string) Dataset {
	out := make(Dataset, 0)
	for _, r := range d {
		if r.Station == station {
			out = append(out, r)
		}
	}
	return out
}

// LatestByStation returns the last reading of every station, ordered as Stations.
func (d Dataset) LatestByStation() []Reading {
	latest := make(map[string]Reading)
	for _, r := range d {
		latest[r.Station] = r
	}

	names := d.Stations()
	out := make([]Reading, 0, len(names))
	for _, name := range names {
		out = append(out, latest[name])
	}
	return out
}

// FilterStations keeps readings whose station is in names.
// An empty names list keeps everything.
func (d Dataset) FilterStations(names []string) Dataset {
	if len(names) == 0 {
		return d.Clone()
	}

	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}

	out := make(Dataset, 0, len(d))
	for _, r := range d {
		if _, ok := allowed[r.Station]; ok {
			out = append(out, r)
		}
	}
	return out
}

// FilterRange keeps readings with from <= timestamp <= to.
// A zero bound is open.
func (d Dataset) FilterRange(from, to time.Time) Dataset {
	out := make(Dataset, 0, len(d))
	for _, r := range d {
		if !from.IsZero() && r.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Values returns the named parameter for every reading. It returns nil
// for unknown parameters.
func (d Dataset) Values(parameter string) []float64 {
	if !IsKnownParameter(parameter) {
		return nil
	}
	out := make([]float64, len(d))
	for i, r := range d {
		out[i], _ = r.Value(parameter)
	}
	return out
}
