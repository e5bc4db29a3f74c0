package analysis

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-reconcile/internal/align"
	"market-reconcile/internal/model"
)

func utcPrices(start model.Date, days int, fn func(i int) float64) model.PriceSeries {
	s := model.PriceSeries{Year: start.Year, Location: time.UTC}
	for i := 0; i < days*24; i++ {
		s.Points = append(s.Points, model.PricePoint{
			Timestamp: start.Midnight(time.UTC).Add(time.Duration(i) * time.Hour),
			Value:     fn(i),
		})
	}
	return s
}

func utcProduction(name string, start model.Date, days int, fn func(i int) float64) model.ProductionSeries {
	s := model.ProductionSeries{Name: name, Location: time.UTC}
	for i := 0; i < days*24; i++ {
		s.Records = append(s.Records, model.ProductionRecord{
			Timestamp: start.Midnight(time.UTC).Add(time.Duration(i) * time.Hour),
			SolarMW:   2 * fn(i),
			TurbineMW: fn(i),
		})
	}
	return s
}

func constant(v float64) func(int) float64 { return func(int) float64 { return v } }

func TestRevenue_HandComputedFixture(t *testing.T) {
	day := model.NewDate(2022, time.April, 5)
	prod := utcProduction("North-south", day, 1, func(i int) float64 { return 5 + float64(i) })
	prices := utcPrices(day, 1, func(i int) float64 { return 40 + 2*float64(i) })

	// Σ (5+i)(40+2i) for i in 0..23 = 4800 + 13800 + 8648.
	rev, err := Revenue(prod, prices, day, day)
	require.NoError(t, err)
	assert.InDelta(t, 27248.0, rev, 1e-9)
}

func TestRevenue_AlignmentError(t *testing.T) {
	day := model.NewDate(2022, time.April, 5)
	prod := utcProduction("North-south", day, 1, constant(1))
	prices := utcPrices(day, 1, constant(50))
	prices.Points = prices.Points[1:]

	_, err := Revenue(prod, prices, day, day)
	var aerr *align.AlignmentError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 24, aerr.ProductionCount)
	assert.Equal(t, 23, aerr.PriceCount)
}

func TestEnergyEquivalentHours(t *testing.T) {
	day := model.NewDate(2022, time.April, 5)
	prod := utcProduction("North-south", day, 2, constant(25))

	h, err := EnergyEquivalentHours(prod, day, day, 50)
	require.NoError(t, err)
	v, ok := h.Float()
	require.True(t, ok)
	assert.InDelta(t, 12.0, v, 1e-9)

	h, err = EnergyEquivalentHours(prod, day, day, 0)
	require.NoError(t, err)
	assert.Equal(t, model.Unavailable(), h)

	_, err = EnergyEquivalentHours(prod, day, day, -1)
	assert.ErrorIs(t, err, ErrNegativeRating)

	_, err = EnergyEquivalentHours(prod, day.AddDays(1), day, 50)
	assert.ErrorIs(t, err, align.ErrInvalidRange)
}

func TestPercentageDelta(t *testing.T) {
	day := model.NewDate(2022, time.April, 5)
	a := utcProduction("North-south", day, 1, constant(1))
	b := utcProduction("East-west", day, 1, constant(2))

	d, err := PercentageDelta(a, b, day, day, 50)
	require.NoError(t, err)
	v, ok := d.Float()
	require.True(t, ok)
	assert.InDelta(t, -50.0, v, 1e-9)

	d, err = PercentageDelta(b, a, day, day, 50)
	require.NoError(t, err)
	assert.Equal(t, model.NotApplicable(), d)

	d, err = PercentageDelta(a, a, day, day, 50)
	require.NoError(t, err)
	assert.Equal(t, model.NotApplicable(), d, "ties are not applicable, never zero")

	d, err = PercentageDelta(a, b, day, day, 0)
	require.NoError(t, err)
	assert.Equal(t, model.Unavailable(), d)
}

func TestPercentageDelta_SentinelOrStrictlyNegative(t *testing.T) {
	day := model.NewDate(2022, time.April, 5)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := utcProduction("a", day, 1, func(int) float64 { return rng.Float64() * 50 })
		b := utcProduction("b", day, 1, func(int) float64 { return rng.Float64() * 50 })
		if i%10 == 0 {
			b = a
		}
		d, err := PercentageDelta(a, b, day, day, 50)
		require.NoError(t, err)

		if a.TurbineSum() >= b.TurbineSum() {
			assert.Equal(t, model.MetricNotApplicable, d.Status)
			continue
		}
		v, ok := d.Float()
		require.True(t, ok)
		assert.Less(t, v, 0.0)
		assert.GreaterOrEqual(t, v, -100.0)
	}
}

func TestRevenueDelta(t *testing.T) {
	day := model.NewDate(2022, time.April, 5)
	prices := utcPrices(day, 1, constant(100))
	a := utcProduction("North-south", day, 1, constant(3))
	b := utcProduction("East-west", day, 1, constant(4))

	d, err := RevenueDelta(a, b, prices, day, day)
	require.NoError(t, err)
	v, ok := d.Float()
	require.True(t, ok)
	assert.InDelta(t, -25.0, v, 1e-9)

	d, err = RevenueDelta(b, a, prices, day, day)
	require.NoError(t, err)
	assert.Equal(t, model.NotApplicable(), d)

	// Negative prices leave no meaningful ratio.
	negative := utcPrices(day, 1, constant(-10))
	d, err = RevenueDelta(b, a, negative, day, day)
	require.NoError(t, err)
	assert.Equal(t, model.Unavailable(), d)
}

func TestAveragePrice(t *testing.T) {
	day := model.NewDate(2022, time.April, 5)
	prices := utcPrices(day, 2, func(i int) float64 { return float64(i / 24) * 10 })

	avg, err := AveragePrice(prices, day, day.AddDays(1))
	require.NoError(t, err)
	v, ok := avg.Float()
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)

	avg, err = AveragePrice(prices, day.AddDays(10), day.AddDays(11))
	require.NoError(t, err)
	assert.Equal(t, model.Unavailable(), avg)
}

func TestComputePriceStats(t *testing.T) {
	day := model.NewDate(2022, time.January, 1)
	prices := utcPrices(day, 5, func(i int) float64 { return float64(i%100) + 1 })
	prices.Points = prices.Points[:100]

	st := ComputePriceStats(prices)
	assert.Equal(t, 100, st.Count)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 100.0, st.Max)
	assert.InDelta(t, 50.5, st.Mean, 1e-9)
	assert.InDelta(t, 5.95, st.P05, 1e-9)
	assert.InDelta(t, 95.05, st.P95, 1e-9)
	assert.InDelta(t, 89.1, st.SpreadP95P05, 1e-9)

	assert.Equal(t, PriceStats{}, ComputePriceStats(model.PriceSeries{}))
}

func TestEngine_Compare(t *testing.T) {
	from, to := model.NewDate(2022, time.January, 31), model.NewDate(2022, time.February, 1)
	prices := utcPrices(from, 2, constant(10))
	a := utcProduction("North-south", from, 2, constant(1))
	b := utcProduction("East-west", from, 2, constant(2))

	e, err := NewEngine(model.PlantParams{Name: "PTC", RatedPowerMW: 50})
	require.NoError(t, err)
	table, err := e.Compare(a, b, prices, from, to)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Jan", table.Rows[0].Period.Label)
	assert.Equal(t, "Feb", table.Rows[1].Period.Label)
	assert.Equal(t, []string{"North-south", "East-west"}, table.VariantNames())

	jan := table.Rows[0]
	assert.InDelta(t, 24.0, jan.Variants[0].TurbineMWh, 1e-9)
	assert.InDelta(t, 240.0, jan.Variants[0].Revenue, 1e-9)
	assert.InDelta(t, 480.0, jan.Variants[1].Revenue, 1e-9)
	assert.Equal(t, "East-west", jan.EnergyLeader)
	assert.Equal(t, "East-west", jan.RevenueLeader)

	total := table.Total
	assert.Equal(t, TotalLabel, total.Period.Label)
	assert.InDelta(t, 480.0, total.Variants[0].Revenue, 1e-9)
	assert.InDelta(t, 960.0, total.Variants[1].Revenue, 1e-9)
	hours, ok := total.Variants[0].EquivalentHours.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.96, hours, 1e-9)

	avg, ok := table.AveragePrice.Float()
	require.True(t, ok)
	assert.InDelta(t, 10.0, avg, 1e-9)

	require.Len(t, table.Deltas, 2)
	energy, ok := table.Deltas[0].Energy.Float()
	require.True(t, ok)
	assert.InDelta(t, -50.0, energy, 1e-9)
	revenue, ok := table.Deltas[0].Revenue.Float()
	require.True(t, ok)
	assert.InDelta(t, -50.0, revenue, 1e-9)
	assert.Equal(t, model.NotApplicable(), table.Deltas[1].Energy)
	assert.Equal(t, model.NotApplicable(), table.Deltas[1].Revenue)
}

func TestEngine_CompareTiesAndZeroRating(t *testing.T) {
	day := model.NewDate(2022, time.June, 1)
	prices := utcPrices(day, 1, constant(10))
	a := utcProduction("North-south", day, 1, constant(1))
	b := utcProduction("East-west", day, 1, constant(1))

	e := &Engine{}
	table, err := e.Compare(a, b, prices, day, day)
	require.NoError(t, err)
	assert.Empty(t, table.Total.EnergyLeader)
	assert.Empty(t, table.Total.RevenueLeader)
	assert.Equal(t, model.Unavailable(), table.Total.Variants[0].EquivalentHours)
	assert.Equal(t, model.Unavailable(), table.Deltas[0].Energy)
	assert.Equal(t, model.NotApplicable(), table.Deltas[0].Revenue)
}

func TestEngine_CompareErrors(t *testing.T) {
	day := model.NewDate(2022, time.June, 1)
	prices := utcPrices(day, 1, constant(10))
	a := utcProduction("North-south", day, 1, constant(1))
	b := utcProduction("East-west", day, 2, constant(1))
	e := &Engine{RatedPowerMW: 50}

	_, err := e.Compare(a, a, prices, day, day)
	assert.Error(t, err)

	_, err = e.Compare(a, b, prices, day, day.AddDays(1))
	var aerr *align.AlignmentError
	assert.ErrorAs(t, err, &aerr)

	_, err = e.Compare(a, b, prices, day.AddDays(1), day)
	assert.ErrorIs(t, err, align.ErrInvalidRange)

	_, err = NewEngine(model.PlantParams{RatedPowerMW: -5})
	assert.ErrorIs(t, err, ErrNegativeRating)
}

func TestCompareInputs(t *testing.T) {
	day := model.NewDate(2022, time.June, 1)
	in := model.ComparisonInputs{
		Prices:   utcPrices(day, 1, constant(10)),
		Variants: []model.ProductionSeries{utcProduction("North-south", day, 1, constant(1))},
		Plant:    model.PlantParams{RatedPowerMW: 50},
	}
	_, err := CompareInputs(in, day, day)
	assert.Error(t, err)

	in.Variants = append(in.Variants, utcProduction("East-west", day, 1, constant(3)))
	table, err := CompareInputs(in, day, day)
	require.NoError(t, err)
	assert.Equal(t, "East-west", table.Total.RevenueLeader)
}

func TestRankByRevenue(t *testing.T) {
	day := model.NewDate(2022, time.June, 1)
	prices := utcPrices(day, 1, constant(10))
	variants := []model.ProductionSeries{
		utcProduction("b", day, 1, constant(1)),
		utcProduction("c", day, 1, constant(3)),
		utcProduction("a", day, 1, constant(1)),
	}

	ranked, err := RankByRevenue(variants, prices, day, day, 50)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "c", ranked[0].Variant)
	assert.Equal(t, "a", ranked[1].Variant)
	assert.Equal(t, "b", ranked[2].Variant)
	assert.InDelta(t, 720.0, ranked[0].Revenue, 1e-9)
}
