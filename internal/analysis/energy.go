// Package analysis computes energy, revenue and relative comparisons between
// plant orientations over date ranges. Values are always unscaled base units.
package analysis

import (
	"errors"

	"market-reconcile/internal/align"
	"market-reconcile/internal/model"
)

// ErrNegativeRating is returned for a negative rated power.
var ErrNegativeRating = errors.New("rated power must be >= 0")

// TurbineSum is the summed turbine power of s over [from, to].
func TurbineSum(s model.ProductionSeries, from, to model.Date) (float64, error) {
	r, err := align.RestrictProduction(s, from, to)
	if err != nil {
		return 0, err
	}
	return r.TurbineSum(), nil
}

// EnergyEquivalentHours is the summed turbine power over [from, to] divided by the
// rated power. A zero rating yields the unavailable sentinel.
func EnergyEquivalentHours(s model.ProductionSeries, from, to model.Date, ratedMW float64) (model.Metric, error) {
	if ratedMW < 0 {
		return model.Metric{}, ErrNegativeRating
	}
	sum, err := TurbineSum(s, from, to)
	if err != nil {
		return model.Metric{}, err
	}
	return equivalentHours(sum, ratedMW), nil
}

// PercentageDelta expresses how much lower A is than B: -100 + 100*ΣA/ΣB.
// When ΣA >= ΣB the result is not applicable; a zero rating is unavailable.
func PercentageDelta(a, b model.ProductionSeries, from, to model.Date, ratedMW float64) (model.Metric, error) {
	if ratedMW < 0 {
		return model.Metric{}, ErrNegativeRating
	}
	sumA, err := TurbineSum(a, from, to)
	if err != nil {
		return model.Metric{}, err
	}
	sumB, err := TurbineSum(b, from, to)
	if err != nil {
		return model.Metric{}, err
	}
	if ratedMW == 0 {
		return model.Unavailable(), nil
	}
	return relativeDelta(sumA/ratedMW, sumB/ratedMW), nil
}

// Revenue is Σ turbine(t) * price(date(t), hour(t)) over [from, to].
// It fails with an *align.AlignmentError when the two sides cannot be joined.
func Revenue(prod model.ProductionSeries, prices model.PriceSeries, from, to model.Date) (float64, error) {
	samples, err := align.JoinHourly(prod, prices, from, to)
	if err != nil {
		return 0, err
	}
	return sumRevenue(samples), nil
}

// RevenueDelta applies the PercentageDelta rule to revenue.
func RevenueDelta(a, b model.ProductionSeries, prices model.PriceSeries, from, to model.Date) (model.Metric, error) {
	revA, err := Revenue(a, prices, from, to)
	if err != nil {
		return model.Metric{}, err
	}
	revB, err := Revenue(b, prices, from, to)
	if err != nil {
		return model.Metric{}, err
	}
	return relativeDelta(revA, revB), nil
}

func equivalentHours(sum, ratedMW float64) model.Metric {
	if ratedMW == 0 {
		return model.Unavailable()
	}
	return model.Value(sum / ratedMW)
}

// relativeDelta is defined only when a < b. A non-positive b (possible for
// revenue under negative prices) has no meaningful ratio.
func relativeDelta(a, b float64) model.Metric {
	if a >= b {
		return model.NotApplicable()
	}
	if b <= 0 {
		return model.Unavailable()
	}
	return model.Value(-100 + 100*a/b)
}

func sumRevenue(samples []align.Sample) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s.Revenue()
	}
	return sum
}
