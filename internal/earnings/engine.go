// Package earnings produces the hour-by-hour revenue ledger of a plant orientation.
package earnings

import (
	"fmt"
	"time"

	"market-reconcile/internal/align"
	"market-reconcile/internal/model"
)

type Engine struct {
	// Location renders the local interval columns. Nil means UTC.
	Location *time.Location
}

func New(loc *time.Location) *Engine { return &Engine{Location: loc} }

// Run values every joined sample at its hourly price, in order.
func (e *Engine) Run(variant string, samples []align.Sample) (*Result, error) {
	if variant == "" {
		return nil, fmt.Errorf("variant name is empty")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}

	ledger := make([]LedgerRow, 0, len(samples))
	cum, energy := 0.0, 0.0
	for idx, s := range samples {
		if idx > 0 && !samples[idx-1].Timestamp.Before(s.Timestamp) {
			return nil, fmt.Errorf("sample %d out of order", idx)
		}
		start := s.Timestamp
		end := start.Add(time.Hour)
		revenue := s.Revenue()
		cum += revenue
		energy += s.TurbineMW

		ledger = append(ledger, LedgerRow{
			Index: idx,

			IntervalStartLocal: start.In(loc),
			IntervalEndLocal:   end.In(loc),
			IntervalStartUTC:   start.UTC(),
			IntervalEndUTC:     end.UTC(),

			Variant: variant,
			Date:    s.Date,
			Hour:    s.Hour,
			Price:   s.Price,

			SolarMW:   s.SolarMW,
			TurbineMW: s.TurbineMW,
			EnergyMWh: s.TurbineMW,

			Revenue:    revenue,
			CumRevenue: cum,
		})
	}

	return &Result{
		Variant:      variant,
		Ledger:       ledger,
		TotalRevenue: cum,
		EnergyMWh:    energy,
	}, nil
}

// RunRange joins prod with prices over [from, to] and runs the ledger.
func (e *Engine) RunRange(prod model.ProductionSeries, prices model.PriceSeries, from, to model.Date) (*Result, error) {
	samples, err := align.JoinHourly(prod, prices, from, to)
	if err != nil {
		return nil, err
	}
	return e.Run(prod.Name, samples)
}
