// Package align restricts series to date ranges and joins production samples
// with market prices by local date and hour.
package align

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"market-reconcile/internal/model"
)

// ErrInvalidRange is returned when from is after to.
var ErrInvalidRange = errors.New("invalid date range")

// AlignmentError reports a date on which production and prices cannot be joined
// one-to-one. Hour is the unresolved local hour, or -1 when the counts differ.
type AlignmentError struct {
	Date            model.Date
	ProductionCount int
	PriceCount      int
	Hour            int
}

func (e *AlignmentError) Error() string {
	if e.Hour >= 0 {
		return fmt.Sprintf("alignment failed on %s: no price for local hour %02d:00", e.Date, e.Hour)
	}
	return fmt.Sprintf("alignment failed on %s: %d production samples vs %d prices",
		e.Date, e.ProductionCount, e.PriceCount)
}

// Sample is one production record joined with the price of its date and local hour.
type Sample struct {
	Timestamp time.Time  `json:"timestamp"`
	Date      model.Date `json:"date"`
	Hour      int        `json:"hour"`
	SolarMW   float64    `json:"solar_mw"`
	TurbineMW float64    `json:"turbine_mw"`
	Price     float64    `json:"price"`
}

// Revenue is the turbine output of the sample valued at its price.
func (s Sample) Revenue() float64 { return s.TurbineMW * s.Price }

// CheckRange fails with ErrInvalidRange unless from <= to.
func CheckRange(from, to model.Date) error {
	if from.After(to) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	return nil
}

// RestrictPrices returns the points of s whose date, in s's location, lies in
// [from, to]. The source series is left untouched.
func RestrictPrices(s model.PriceSeries, from, to model.Date) (model.PriceSeries, error) {
	if err := CheckRange(from, to); err != nil {
		return model.PriceSeries{}, err
	}
	out := model.PriceSeries{Year: s.Year, Location: s.Location}
	for _, p := range s.Points {
		if s.DateOf(p).Within(from, to) {
			out.Points = append(out.Points, p)
		}
	}
	return out, nil
}

// RestrictProduction is RestrictPrices for production series.
func RestrictProduction(s model.ProductionSeries, from, to model.Date) (model.ProductionSeries, error) {
	if err := CheckRange(from, to); err != nil {
		return model.ProductionSeries{}, err
	}
	out := model.ProductionSeries{Name: s.Name, Location: s.Location}
	for _, r := range s.Records {
		if s.DateOf(r).Within(from, to) {
			out.Records = append(out.Records, r)
		}
	}
	return out, nil
}

// JoinHourly pairs every production record in [from, to] with the price of the
// same date and local hour. Each side derives dates in its own location. On every
// date of the range the two sides must hold the same number of samples.
func JoinHourly(prod model.ProductionSeries, prices model.PriceSeries, from, to model.Date) ([]Sample, error) {
	rp, err := RestrictProduction(prod, from, to)
	if err != nil {
		return nil, err
	}
	rq, err := RestrictPrices(prices, from, to)
	if err != nil {
		return nil, err
	}

	priceLoc := rq.Loc()
	priceByDate := map[model.Date]map[int]float64{}
	priceCount := map[model.Date]int{}
	for _, p := range rq.Points {
		d := rq.DateOf(p)
		if priceByDate[d] == nil {
			priceByDate[d] = map[int]float64{}
		}
		priceByDate[d][p.Timestamp.In(priceLoc).Hour()] = p.Value
		priceCount[d]++
	}

	prodLoc := rp.Loc()
	prodByDate := map[model.Date][]model.ProductionRecord{}
	for _, r := range rp.Records {
		d := rp.DateOf(r)
		prodByDate[d] = append(prodByDate[d], r)
	}

	dates := make([]model.Date, 0, len(prodByDate)+len(priceCount))
	seen := map[model.Date]bool{}
	for d := range prodByDate {
		seen[d] = true
		dates = append(dates, d)
	}
	for d := range priceCount {
		if !seen[d] {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]Sample, 0, len(rp.Records))
	for _, d := range dates {
		records := prodByDate[d]
		if len(records) != priceCount[d] {
			return nil, &AlignmentError{Date: d, ProductionCount: len(records), PriceCount: priceCount[d], Hour: -1}
		}
		hours := priceByDate[d]
		for _, r := range records {
			h := r.Timestamp.In(prodLoc).Hour()
			price, ok := hours[h]
			if !ok {
				return nil, &AlignmentError{Date: d, ProductionCount: len(records), PriceCount: priceCount[d], Hour: h}
			}
			out = append(out, Sample{
				Timestamp: r.Timestamp,
				Date:      d,
				Hour:      h,
				SolarMW:   r.SolarMW,
				TurbineMW: r.TurbineMW,
				Price:     price,
			})
		}
	}
	return out, nil
}

// Period is a labelled inclusive date range.
type Period struct {
	Label string     `json:"label"`
	From  model.Date `json:"from"`
	To    model.Date `json:"to"`
}

// MonthPeriods splits [from, to] into calendar months, clipping the first and last.
func MonthPeriods(from, to model.Date) ([]Period, error) {
	if err := CheckRange(from, to); err != nil {
		return nil, err
	}
	var out []Period
	cur := from
	for !cur.After(to) {
		end := model.NewDate(cur.Year, cur.Month, model.DaysIn(cur.Year, cur.Month))
		if end.After(to) {
			end = to
		}
		label := cur.Month.String()[:3]
		if from.Year != to.Year {
			label = fmt.Sprintf("%s %d", label, cur.Year)
		}
		out = append(out, Period{Label: label, From: cur, To: end})
		cur = end.AddDays(1)
	}
	return out, nil
}
