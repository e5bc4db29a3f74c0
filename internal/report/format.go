// Package report renders comparison tables for people: scaled units, text,
// XLSX and PDF. Scaling is display-only; tables keep base units.
package report

import (
	"strings"

	"github.com/dustin/go-humanize"

	"market-reconcile/internal/model"
)

// Markers for metrics that carry no number.
const (
	NotApplicableMark = "-"
	UnavailableMark   = "n/a"
)

// FormatUnit renders v with thousands grouping, scaled to k above 1e3 and M
// above 1e6, followed by unit: FormatUnit(27248, 2, "€") == "27.25 k€".
func FormatUnit(v float64, decimals int, unit string) string {
	mod := ""
	switch {
	case v > 1e6:
		mod = "M"
		v /= 1e6
	case v > 1e3:
		mod = "k"
		v /= 1e3
	}
	return FormatNumber(v, decimals) + " " + mod + unit
}

// FormatNumber renders v with thousands grouping and a fixed number of decimals (0..9).
func FormatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if decimals > 9 {
		decimals = 9
	}
	return humanize.FormatFloat("#,###."+strings.Repeat("#", decimals), v)
}

// FormatMetric renders m like FormatUnit, or its sentinel marker.
func FormatMetric(m model.Metric, decimals int, unit string) string {
	if v, ok := m.Float(); ok {
		return FormatUnit(v, decimals, unit)
	}
	if m.Status == model.MetricNotApplicable {
		return NotApplicableMark
	}
	return UnavailableMark
}
