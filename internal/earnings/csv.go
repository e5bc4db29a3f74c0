package earnings

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var ledgerHeader = []string{
	"index",
	"interval_start_local",
	"interval_end_local",
	"interval_start_utc",
	"interval_end_utc",
	"variant",
	"date",
	"hour",
	"price",
	"solar_mw",
	"turbine_mw",
	"energy_mwh",
	"revenue",
	"cum_revenue",
}

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLedger(f, ledger); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteLedger streams the ledger as CSV with a header row.
func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(ledgerHeader); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.IntervalStartLocal),
			fmtTime(r.IntervalEndLocal),
			fmtTime(r.IntervalStartUTC),
			fmtTime(r.IntervalEndUTC),
			r.Variant,
			r.Date.String(),
			strconv.Itoa(r.Hour),
			fmtFloat(r.Price),
			fmtFloat(r.SolarMW),
			fmtFloat(r.TurbineMW),
			fmtFloat(r.EnergyMWh),
			fmtFloat(r.Revenue),
			fmtFloat(r.CumRevenue),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
