package model

import (
	"fmt"
	"time"
)

// RawDayFile is one downloaded OMIE day file as persisted in the local cache.
// Variant is the 1-based filename suffix that produced a non-empty payload.
type RawDayFile struct {
	Date    Date
	Variant int
	Path    string
	Size    int64
}

func (f RawDayFile) String() string {
	return fmt.Sprintf("%s (suffix %d, %d bytes)", f.Date, f.Variant, f.Size)
}

// PricePoint is one hourly day-ahead price in €/MWh.
// Timestamp is the UTC start of the hourly period.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// PriceSeries is the canonical price series of a calendar year.
// Location is the market timezone in which dates and local hours are derived.
type PriceSeries struct {
	Year     int
	Location *time.Location
	Points   []PricePoint
}

// Loc returns the series location, defaulting to UTC.
func (s PriceSeries) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// DateOf returns the market date of p.
func (s PriceSeries) DateOf(p PricePoint) Date {
	return DateOf(p.Timestamp, s.Loc())
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }

// Span returns the first and last timestamps, or false for an empty series.
func (s PriceSeries) Span() (time.Time, time.Time, bool) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Points[0].Timestamp, s.Points[len(s.Points)-1].Timestamp, true
}

// Equal reports whether two series carry the same year, location and points.
func (s PriceSeries) Equal(o PriceSeries) bool {
	if s.Year != o.Year || s.Loc().String() != o.Loc().String() || len(s.Points) != len(o.Points) {
		return false
	}
	for i := range s.Points {
		if !s.Points[i].Timestamp.Equal(o.Points[i].Timestamp) || s.Points[i].Value != o.Points[i].Value {
			return false
		}
	}
	return true
}
