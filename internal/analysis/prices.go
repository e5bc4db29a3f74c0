package analysis

import (
	"math"
	"sort"
	"time"

	"market-reconcile/internal/align"
	"market-reconcile/internal/model"
)

// PriceStats summarizes a price series over a range.
type PriceStats struct {
	Count int `json:"count"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`
}

// ComputePriceStats summarizes every point of s. An empty series yields a zero value.
func ComputePriceStats(s model.PriceSeries) PriceStats {
	p := PriceStats{}
	if len(s.Points) == 0 {
		return p
	}
	p.Count = len(s.Points)
	p.Start = s.Points[0].Timestamp
	p.End = s.Points[len(s.Points)-1].Timestamp

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(s.Points))
	for _, pt := range s.Points {
		v := pt.Value
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	p.Min = minv
	p.Max = maxv
	p.Mean = sum / float64(len(vals))
	p.P05 = percentileSorted(vals, 0.05)
	p.P95 = percentileSorted(vals, 0.95)
	p.SpreadP95P05 = p.P95 - p.P05
	return p
}

// AveragePrice is the mean price over [from, to]; an empty range is unavailable.
func AveragePrice(prices model.PriceSeries, from, to model.Date) (model.Metric, error) {
	r, err := align.RestrictPrices(prices, from, to)
	if err != nil {
		return model.Metric{}, err
	}
	if len(r.Points) == 0 {
		return model.Unavailable(), nil
	}
	return model.Value(ComputePriceStats(r).Mean), nil
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
