package data

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"market-reconcile/internal/metrics"
	"market-reconcile/internal/model"
)

// DefaultMarketTimezone is the local time of the Iberian day-ahead market.
const DefaultMarketTimezone = "Europe/Madrid"

// maxHourField bounds the hour column; anything above is corrupt and dropped.
const maxHourField = 25

// DayParser decodes marginalpdbc day files into hourly price points.
//
// Row hour h is the h-th hourly period of the local market day, so its instant is
// local midnight + (h-1)h. On the 25-hour fall-back day two periods share a
// wall-clock hour; they are folded into one point (first instant, mean value),
// which keeps one point per wall-clock hour: 24 on normal and fall-back days,
// 23 on the spring-forward day.
type DayParser struct {
	Location *time.Location
}

func NewDayParser(loc *time.Location) *DayParser {
	if loc == nil {
		loc = time.UTC
	}
	return &DayParser{Location: loc}
}

// ParseFile opens f and parses it.
func (p *DayParser) ParseFile(f model.RawDayFile) ([]model.PricePoint, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open day file: %w", err)
	}
	defer fh.Close()

	points, err := p.parse(fh, f.Date, f.Path)
	if err != nil {
		metrics.IncParseFailure()
		return nil, err
	}
	return points, nil
}

// Parse decodes one day file for date. Partial results are never returned:
// any malformed row fails the whole day.
func (p *DayParser) Parse(r io.Reader, date model.Date) ([]model.PricePoint, error) {
	return p.parse(r, date, date.String())
}

type dayRow struct {
	line  int
	hour  int
	value float64
}

func (p *DayParser) parse(r io.Reader, date model.Date, source string) ([]model.PricePoint, error) {
	type numbered struct {
		n    int
		text string
	}
	var lines []numbered
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		lines = append(lines, numbered{n: n, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, malformed(source, 0, "read failed", err)
	}
	if len(lines) < 2 {
		return nil, malformed(source, 0, "missing header or footer", nil)
	}
	// First line is the header, last line the footer.
	lines = lines[1 : len(lines)-1]
	if len(lines) == 0 {
		return nil, malformed(source, 0, "no data rows", nil)
	}

	rows := make([]dayRow, 0, len(lines))
	for _, l := range lines {
		row, err := parseRow(source, l.n, l.text, date)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return p.fold(source, date, rows)
}

func parseRow(source string, line int, text string, date model.Date) (dayRow, error) {
	fields := strings.Split(text, ";")
	if len(fields) < 5 {
		return dayRow{}, malformed(source, line, fmt.Sprintf("expected 5 fields, got %d", len(fields)), nil)
	}
	ints := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return dayRow{}, malformed(source, line, fmt.Sprintf("field %d is not an integer", i+1), err)
		}
		ints[i] = v
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if err != nil {
		return dayRow{}, malformed(source, line, "price is not a number", err)
	}

	rowDate := model.NewDate(ints[0], time.Month(ints[1]), ints[2])
	if rowDate != date {
		return dayRow{}, malformed(source, line, fmt.Sprintf("row date %s does not match file date %s", rowDate, date), nil)
	}
	if ints[3] < 1 {
		return dayRow{}, malformed(source, line, fmt.Sprintf("hour %d out of range", ints[3]), nil)
	}
	return dayRow{line: line, hour: ints[3], value: value}, nil
}

func (p *DayParser) fold(source string, date model.Date, rows []dayRow) ([]model.PricePoint, error) {
	loc := p.Location
	midnight := date.Midnight(loc)
	periods := int(date.AddDays(1).Midnight(loc).Sub(midnight) / time.Hour)

	type bucket struct {
		ts    time.Time
		sum   float64
		count int
	}
	buckets := map[int]*bucket{}
	seen := map[int]bool{}

	for _, row := range rows {
		if row.hour > maxHourField {
			log.Printf("[Parser] Discarding %s line %d: hour %d", source, row.line, row.hour)
			continue
		}
		if row.hour > periods {
			log.Printf("[Parser] Discarding %s line %d: hour %d beyond %d-hour day", source, row.line, row.hour, periods)
			continue
		}
		if seen[row.hour] {
			return nil, malformed(source, row.line, fmt.Sprintf("duplicate hour %d", row.hour), nil)
		}
		seen[row.hour] = true

		ts := midnight.Add(time.Duration(row.hour-1) * time.Hour)
		wall := ts.In(loc).Hour()
		b, ok := buckets[wall]
		if !ok {
			b = &bucket{ts: ts}
			buckets[wall] = b
		}
		if ts.Before(b.ts) {
			b.ts = ts
		}
		b.sum += row.value
		b.count++
	}
	if len(buckets) == 0 {
		return nil, malformed(source, 0, "no usable data rows", nil)
	}
	for h := 1; h <= periods; h++ {
		if !seen[h] {
			return nil, malformed(source, 0, fmt.Sprintf("missing hour %d", h), nil)
		}
	}

	out := make([]model.PricePoint, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, model.PricePoint{
			Timestamp: b.ts.UTC(),
			Value:     b.sum / float64(b.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// LoadLocation resolves a timezone name, defaulting to the market timezone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultMarketTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
