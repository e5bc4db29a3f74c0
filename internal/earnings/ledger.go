package earnings

import (
	"time"

	"market-reconcile/internal/model"
)

// LedgerRow is one hour of a variant's earnings.
type LedgerRow struct {
	Index int

	IntervalStartLocal time.Time
	IntervalEndLocal   time.Time
	IntervalStartUTC   time.Time
	IntervalEndUTC     time.Time

	Variant string
	Date    model.Date
	Hour    int

	Price float64

	SolarMW   float64
	TurbineMW float64
	EnergyMWh float64

	Revenue    float64
	CumRevenue float64
}

type Result struct {
	Variant      string
	Ledger       []LedgerRow
	TotalRevenue float64
	EnergyMWh    float64
}
