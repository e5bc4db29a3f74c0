package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"market-reconcile/internal/model"
)

// Column names of the plant simulator CSV export.
const (
	ColumnDate    = "Date & time"
	ColumnSolar   = "Solar field net power (MW)"
	ColumnTurbine = "Turbine electric power (MW)"

	productionTimeLayout = "2006-01-02 15:04:05"
)

// ProductionOptions controls how a production CSV is interpreted.
type ProductionOptions struct {
	// Location of the naive timestamps in the file. Nil means UTC.
	Location *time.Location
	// RebaseYear moves typical-meteorological-year samples into this year.
	// Zero keeps the file's own year.
	//
	// Samples whose wall-clock time does not exist in Location (the spring-forward
	// gap) are dropped, so every local date carries one sample per market hour.
	RebaseYear int
}

// LoadProductionCSV reads one plant orientation's output from path.
func LoadProductionCSV(path, name string, opts ProductionOptions) (model.ProductionSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ProductionSeries{}, fmt.Errorf("failed to open production file: %w", err)
	}
	defer f.Close()

	s, err := ReadProductionCSV(f, name, opts)
	if err != nil {
		return model.ProductionSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadProductionCSV decodes the simulator export. Negative readings are sensor
// noise and are clamped to zero.
func ReadProductionCSV(r io.Reader, name string, opts ProductionOptions) (model.ProductionSeries, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	out := model.ProductionSeries{Name: name, Location: loc}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return out, malformed(name, 1, "missing header", nil)
		}
		return out, malformed(name, 1, "unreadable header", err)
	}
	dateCol, solarCol, turbineCol := productionColumns(header)

	line, skipped := 1, 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return out, malformed(name, line, "unreadable row", err)
		}
		if len(rec) == 1 && cleanField(rec[0]) == "" {
			continue
		}
		if len(rec) <= maxInt(dateCol, solarCol, turbineCol) {
			return out, malformed(name, line, fmt.Sprintf("expected at least %d columns, got %d", maxInt(dateCol, solarCol, turbineCol)+1, len(rec)), nil)
		}

		wall, err := time.Parse(productionTimeLayout, cleanField(rec[dateCol]))
		if err != nil {
			return out, malformed(name, line, "invalid timestamp", err)
		}
		year := wall.Year()
		if opts.RebaseYear != 0 {
			if !rebasable(wall, opts.RebaseYear) {
				continue
			}
			year = opts.RebaseYear
		}
		ts := time.Date(year, wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
		if ts.Hour() != wall.Hour() || ts.Minute() != wall.Minute() {
			// Wall-clock time skipped by a forward DST transition.
			skipped++
			continue
		}
		solar, err := strconv.ParseFloat(cleanField(rec[solarCol]), 64)
		if err != nil {
			return out, malformed(name, line, "invalid solar field power", err)
		}
		turbine, err := strconv.ParseFloat(cleanField(rec[turbineCol]), 64)
		if err != nil {
			return out, malformed(name, line, "invalid turbine power", err)
		}

		out.Records = append(out.Records, model.ProductionRecord{
			Timestamp: ts,
			SolarMW:   model.ClampNonNegative(solar),
			TurbineMW: model.ClampNonNegative(turbine),
		})
	}

	if skipped > 0 {
		log.Printf("[Parser] %s: dropped %d samples with nonexistent local time in %s", name, skipped, loc)
	}
	sort.SliceStable(out.Records, func(i, j int) bool {
		return out.Records[i].Timestamp.Before(out.Records[j].Timestamp)
	})
	return out, nil
}

// productionColumns locates the columns by header name and falls back to the
// simulator's positional layout (date, solar, turbine).
func productionColumns(header []string) (int, int, int) {
	dateCol, solarCol, turbineCol := -1, -1, -1
	for i, h := range header {
		h = strings.ToLower(cleanField(h))
		switch {
		case h == strings.ToLower(ColumnDate) || strings.HasPrefix(h, "date"):
			dateCol = i
		case h == strings.ToLower(ColumnSolar) || strings.HasPrefix(h, "solar"):
			solarCol = i
		case h == strings.ToLower(ColumnTurbine) || strings.HasPrefix(h, "turbine"):
			turbineCol = i
		}
	}
	if dateCol < 0 || solarCol < 0 || turbineCol < 0 {
		return 0, 1, 2
	}
	return dateCol, solarCol, turbineCol
}

// rebasable reports whether wall has a counterpart in year; Feb 29 has none in a common year.
func rebasable(wall time.Time, year int) bool {
	return !(wall.Month() == time.February && wall.Day() == 29 && model.DaysIn(year, time.February) == 28)
}

func cleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"' ")
}

func maxInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
