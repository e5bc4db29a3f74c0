package model

import "time"

// ProductionRecord is one plant output sample.
// Both powers are non-negative; loaders clamp negative sensor noise to zero.
type ProductionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	SolarMW   float64   `json:"solar_mw"`
	TurbineMW float64   `json:"turbine_mw"`
}

// ProductionSeries is the output of one plant orientation (e.g. "North-south").
type ProductionSeries struct {
	Name     string
	Location *time.Location
	Records  []ProductionRecord
}

func (s ProductionSeries) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// DateOf returns the local date of r in the series location.
func (s ProductionSeries) DateOf(r ProductionRecord) Date {
	return DateOf(r.Timestamp, s.Loc())
}

// TurbineSum returns the sum of turbine power samples.
func (s ProductionSeries) TurbineSum() float64 {
	sum := 0.0
	for _, r := range s.Records {
		sum += r.TurbineMW
	}
	return sum
}

// ClampNonNegative returns v, or 0 when v is negative.
func ClampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
