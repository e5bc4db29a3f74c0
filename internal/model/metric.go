package model

import (
	"encoding/json"
	"math"
)

// MetricStatus tells whether a derived metric carries a number.
// Keep these values stable; they are intended for JSON and CSV output.
type MetricStatus string

const (
	MetricOK            MetricStatus = "ok"
	MetricUnavailable   MetricStatus = "unavailable"
	MetricNotApplicable MetricStatus = "not_applicable"
)

// Metric is a derived value that may be a sentinel instead of a number.
// Value is meaningless unless Status is MetricOK.
type Metric struct {
	Value  float64
	Status MetricStatus
}

func Value(v float64) Metric { return Metric{Value: v, Status: MetricOK} }

func Unavailable() Metric { return Metric{Status: MetricUnavailable} }

func NotApplicable() Metric { return Metric{Status: MetricNotApplicable} }

// OK reports whether the metric holds a finite number.
func (m Metric) OK() bool {
	return m.Status == MetricOK && !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0)
}

// Float returns the value and whether it is usable.
func (m Metric) Float() (float64, bool) {
	if !m.OK() {
		return 0, false
	}
	return m.Value, true
}

type metricJSON struct {
	Value  *float64     `json:"value"`
	Status MetricStatus `json:"status"`
}

func (m Metric) MarshalJSON() ([]byte, error) {
	out := metricJSON{Status: m.Status}
	if out.Status == "" {
		out.Status = MetricOK
	}
	if v, ok := m.Float(); ok {
		out.Value = &v
	} else if out.Status == MetricOK {
		out.Status = MetricUnavailable
	}
	return json.Marshal(out)
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	var in metricJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	m.Status = in.Status
	m.Value = 0
	if in.Value != nil {
		m.Value = *in.Value
	}
	return nil
}

// ComparisonInputs bundles everything a comparison query consumes.
type ComparisonInputs struct {
	Prices   PriceSeries
	Variants []ProductionSeries
	Plant    PlantParams
}
