package earnings

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-reconcile/internal/align"
	"market-reconcile/internal/model"
)

func sampleDay(t *testing.T) (model.ProductionSeries, model.PriceSeries, model.Date) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	day := model.NewDate(2022, time.August, 1)

	prod := model.ProductionSeries{Name: "East-west", Location: loc}
	prices := model.PriceSeries{Year: 2022, Location: loc}
	for h := 0; h < 24; h++ {
		ts := time.Date(2022, time.August, 1, h, 0, 0, 0, loc)
		prod.Records = append(prod.Records, model.ProductionRecord{Timestamp: ts, SolarMW: 10, TurbineMW: float64(h)})
		prices.Points = append(prices.Points, model.PricePoint{Timestamp: ts.UTC(), Value: 100})
	}
	return prod, prices, day
}

func TestEngine_RunRange(t *testing.T) {
	prod, prices, day := sampleDay(t)
	e := New(prod.Location)

	res, err := e.RunRange(prod, prices, day, day)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 24)
	assert.Equal(t, "East-west", res.Variant)

	// Σ h*100 for h in 0..23.
	assert.InDelta(t, 27600.0, res.TotalRevenue, 1e-9)
	assert.InDelta(t, 276.0, res.EnergyMWh, 1e-9)

	last := res.Ledger[23]
	assert.Equal(t, 23, last.Hour)
	assert.InDelta(t, 2300.0, last.Revenue, 1e-9)
	assert.InDelta(t, res.TotalRevenue, last.CumRevenue, 1e-9)
	assert.Equal(t, 23, last.IntervalStartLocal.Hour())
	assert.Equal(t, time.Date(2022, 8, 1, 21, 0, 0, 0, time.UTC), last.IntervalStartUTC)
	assert.Equal(t, last.IntervalStartUTC.Add(time.Hour), last.IntervalEndUTC)
}

func TestEngine_RunErrors(t *testing.T) {
	e := New(nil)
	_, err := e.Run("x", nil)
	assert.Error(t, err)

	_, err = e.Run("", []align.Sample{{}})
	assert.Error(t, err)

	ts := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = e.Run("x", []align.Sample{{Timestamp: ts}, {Timestamp: ts}})
	assert.Error(t, err)

	prod, prices, day := sampleDay(t)
	prices.Points = prices.Points[:20]
	_, err = e.RunRange(prod, prices, day, day)
	var aerr *align.AlignmentError
	assert.ErrorAs(t, err, &aerr)
}

func TestWriteLedgerCSV(t *testing.T) {
	prod, prices, day := sampleDay(t)
	res, err := New(prod.Location).RunRange(prod, prices, day, day)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, WriteLedgerCSV(path, res.Ledger))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 25)
	assert.Equal(t, ledgerHeader, rows[0])
	assert.Equal(t, "2022-08-01T00:00:00+02:00", rows[1][1])
	assert.Equal(t, "2022-07-31T22:00:00Z", rows[1][3])
	assert.Equal(t, "2022-08-01", rows[1][6])
	assert.Equal(t, "100.000000", rows[1][8])
	assert.Equal(t, "27600.000000", rows[24][13])
}
