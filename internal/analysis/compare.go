package analysis

import (
	"fmt"
	"log"

	"market-reconcile/internal/align"
	"market-reconcile/internal/metrics"
	"market-reconcile/internal/model"
)

// TotalLabel names the whole-range row of a comparison table.
const TotalLabel = "Total"

// VariantMetrics are one orientation's figures over one period.
type VariantMetrics struct {
	Variant         string       `json:"variant"`
	TurbineMWh      float64      `json:"turbine_mwh"`
	EquivalentHours model.Metric `json:"equivalent_hours"`
	Revenue         float64      `json:"revenue"`
}

// ComparisonRow is one period of a comparison. Leaders are empty on ties.
type ComparisonRow struct {
	Period        align.Period     `json:"period"`
	Variants      []VariantMetrics `json:"variants"`
	EnergyLeader  string           `json:"energy_leader"`
	RevenueLeader string           `json:"revenue_leader"`
}

// VariantDelta tells how much lower a variant is than the other one over the range.
type VariantDelta struct {
	Variant string       `json:"variant"`
	Energy  model.Metric `json:"energy"`
	Revenue model.Metric `json:"revenue"`
}

// ComparisonTable is built per query and never persisted.
type ComparisonTable struct {
	From         model.Date      `json:"from"`
	To           model.Date      `json:"to"`
	RatedPowerMW float64         `json:"rated_power_mw"`
	AveragePrice model.Metric    `json:"average_price"`
	Rows         []ComparisonRow `json:"rows"`
	Total        ComparisonRow   `json:"total"`
	Deltas       []VariantDelta  `json:"deltas"`
}

// VariantNames returns the compared variants in table order.
func (t *ComparisonTable) VariantNames() []string {
	names := make([]string, 0, len(t.Total.Variants))
	for _, v := range t.Total.Variants {
		names = append(names, v.Variant)
	}
	return names
}

// Engine compares two plant orientations against one price series.
type Engine struct {
	RatedPowerMW float64
}

func NewEngine(plant model.PlantParams) (*Engine, error) {
	if plant.RatedPowerMW < 0 {
		return nil, ErrNegativeRating
	}
	return &Engine{RatedPowerMW: plant.RatedPowerMW}, nil
}

// CompareInputs compares a bundle holding exactly two variants.
func CompareInputs(in model.ComparisonInputs, from, to model.Date) (*ComparisonTable, error) {
	if len(in.Variants) != 2 {
		return nil, fmt.Errorf("comparison needs exactly 2 variants, got %d", len(in.Variants))
	}
	e, err := NewEngine(in.Plant)
	if err != nil {
		return nil, err
	}
	return e.Compare(in.Variants[0], in.Variants[1], in.Prices, from, to)
}

// Compare builds one row per calendar month in [from, to], a total row and the
// relative deltas of each variant against the other.
func (e *Engine) Compare(a, b model.ProductionSeries, prices model.PriceSeries, from, to model.Date) (*ComparisonTable, error) {
	table, err := e.compare(a, b, prices, from, to)
	if err != nil {
		metrics.IncComparison(metrics.ResultError)
		log.Printf("[Analysis] Comparison %s..%s failed: %v", from, to, err)
		return nil, err
	}
	metrics.IncComparison(metrics.ResultSuccess)
	return table, nil
}

func (e *Engine) compare(a, b model.ProductionSeries, prices model.PriceSeries, from, to model.Date) (*ComparisonTable, error) {
	if a.Name == b.Name {
		return nil, fmt.Errorf("variants must have distinct names, both are %q", a.Name)
	}
	periods, err := align.MonthPeriods(from, to)
	if err != nil {
		return nil, err
	}
	samplesA, err := align.JoinHourly(a, prices, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name, err)
	}
	samplesB, err := align.JoinHourly(b, prices, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name, err)
	}
	avg, err := AveragePrice(prices, from, to)
	if err != nil {
		return nil, err
	}

	table := &ComparisonTable{
		From:         from,
		To:           to,
		RatedPowerMW: e.RatedPowerMW,
		AveragePrice: avg,
	}
	for _, p := range periods {
		table.Rows = append(table.Rows, e.row(p, a.Name, b.Name, samplesA, samplesB))
	}
	table.Total = e.row(align.Period{Label: TotalLabel, From: from, To: to}, a.Name, b.Name, samplesA, samplesB)

	totA, totB := table.Total.Variants[0], table.Total.Variants[1]
	table.Deltas = []VariantDelta{
		{Variant: a.Name, Energy: e.delta(totA.TurbineMWh, totB.TurbineMWh), Revenue: relativeDelta(totA.Revenue, totB.Revenue)},
		{Variant: b.Name, Energy: e.delta(totB.TurbineMWh, totA.TurbineMWh), Revenue: relativeDelta(totB.Revenue, totA.Revenue)},
	}
	return table, nil
}

func (e *Engine) row(p align.Period, nameA, nameB string, samplesA, samplesB []align.Sample) ComparisonRow {
	va := e.variantMetrics(nameA, p, samplesA)
	vb := e.variantMetrics(nameB, p, samplesB)
	return ComparisonRow{
		Period:        p,
		Variants:      []VariantMetrics{va, vb},
		EnergyLeader:  leader(nameA, va.TurbineMWh, nameB, vb.TurbineMWh),
		RevenueLeader: leader(nameA, va.Revenue, nameB, vb.Revenue),
	}
}

func (e *Engine) variantMetrics(name string, p align.Period, samples []align.Sample) VariantMetrics {
	vm := VariantMetrics{Variant: name}
	for _, s := range samples {
		if !s.Date.Within(p.From, p.To) {
			continue
		}
		vm.TurbineMWh += s.TurbineMW
		vm.Revenue += s.Revenue()
	}
	vm.EquivalentHours = equivalentHours(vm.TurbineMWh, e.RatedPowerMW)
	return vm
}

func (e *Engine) delta(a, b float64) model.Metric {
	if e.RatedPowerMW == 0 {
		return model.Unavailable()
	}
	return relativeDelta(a/e.RatedPowerMW, b/e.RatedPowerMW)
}

func leader(nameA string, a float64, nameB string, b float64) string {
	switch {
	case a > b:
		return nameA
	case b > a:
		return nameB
	default:
		return ""
	}
}
