package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"market-reconcile/internal/align"
	"market-reconcile/internal/data"
	"market-reconcile/internal/earnings"
	"market-reconcile/internal/model"
)

var dayFilePattern = regexp.MustCompile(`^marginalpdbc_(\d{8})\.\d+$`)

// Demo:
// - Parse one cached marginalpdbc day file
// - Show the hourly prices in market time (23/24 points on DST days)
// - Value a flat turbine output against them to show how the pieces fit together
func main() {
	dayPath := flag.String("file", "", "Path to a marginalpdbc_YYYYMMDD.N day file")
	tz := flag.String("tz", data.DefaultMarketTimezone, "Market timezone")
	turbineMW := flag.Float64("turbine-mw", 50, "Flat turbine output valued against the prices")
	outCSV := flag.String("out", "", "Optional path to write ledger CSV (e.g. results/demo.csv)")
	flag.Parse()

	if *dayPath == "" {
		fmt.Println("--file is required")
		os.Exit(2)
	}
	m := dayFilePattern.FindStringSubmatch(filepath.Base(*dayPath))
	if m == nil {
		panic(fmt.Errorf("%s does not look like a marginalpdbc day file", *dayPath))
	}
	day, err := time.Parse("20060102", m[1])
	if err != nil {
		panic(err)
	}
	date := model.DateOf(day, time.UTC)

	loc, err := data.LoadLocation(*tz)
	if err != nil {
		panic(err)
	}
	points, err := data.NewDayParser(loc).ParseFile(model.RawDayFile{Date: date, Path: *dayPath})
	if err != nil {
		panic(err)
	}
	prices := model.PriceSeries{Year: date.Year, Location: loc, Points: points}

	prod := model.ProductionSeries{Name: "flat", Location: loc}
	for _, p := range points {
		prod.Records = append(prod.Records, model.ProductionRecord{Timestamp: p.Timestamp, TurbineMW: *turbineMW})
	}
	samples, err := align.JoinHourly(prod, prices, date, date)
	if err != nil {
		panic(err)
	}
	result, err := earnings.New(loc).Run(prod.Name, samples)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Loaded %d hourly prices for %s (%s)\n\n", len(points), date, loc)
	for _, r := range result.Ledger {
		fmt.Printf(
			"%s  price=%7.2f  turbine=%6.2f  revenue=%9.2f  cum=%10.2f\n",
			r.IntervalStartLocal.Format("2006-01-02 15:04 MST"),
			r.Price,
			r.TurbineMW,
			r.Revenue,
			r.CumRevenue,
		)
	}

	if *outCSV != "" {
		if err := earnings.WriteLedgerCSV(*outCSV, result.Ledger); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nDone. Energy=%.1f MWh  Revenue=€%.2f\n", result.EnergyMWh, result.TotalRevenue)
}
