package analysis

import (
	"sort"

	"market-reconcile/internal/model"
)

type RankedVariant struct {
	Variant         string       `json:"variant"`
	TurbineMWh      float64      `json:"turbine_mwh"`
	EquivalentHours model.Metric `json:"equivalent_hours"`
	Revenue         float64      `json:"revenue"`
}

// RankByRevenue values each variant over [from, to] and sorts descending by
// revenue, breaking ties by name.
func RankByRevenue(variants []model.ProductionSeries, prices model.PriceSeries, from, to model.Date, ratedMW float64) ([]RankedVariant, error) {
	if ratedMW < 0 {
		return nil, ErrNegativeRating
	}
	out := make([]RankedVariant, 0, len(variants))
	for _, v := range variants {
		rev, err := Revenue(v, prices, from, to)
		if err != nil {
			return nil, err
		}
		sum, err := TurbineSum(v, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, RankedVariant{
			Variant:         v.Name,
			TurbineMWh:      sum,
			EquivalentHours: equivalentHours(sum, ratedMW),
			Revenue:         rev,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Variant < out[j].Variant
	})
	return out, nil
}
