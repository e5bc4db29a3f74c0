package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"market-reconcile/internal/analysis"
	"market-reconcile/internal/model"
)

// DeltaLabel names the row of relative deltas.
const DeltaLabel = "%"

// Units used when rendering a comparison.
const (
	UnitHours    = "h"
	UnitCurrency = "€"
	UnitPercent  = "%"
	UnitPrice    = "€/MWh"
)

// Header returns the column titles of a two-variant comparison.
func Header(t *analysis.ComparisonTable) []string {
	names := t.VariantNames()
	header := []string{"Period"}
	for _, n := range names {
		header = append(header, n+" hours")
	}
	for _, n := range names {
		header = append(header, n+" revenue")
	}
	return append(header, "Energy leader", "Revenue leader")
}

// Rows renders the monthly rows, the total row and the delta row as display strings.
func Rows(t *analysis.ComparisonTable) [][]string {
	out := make([][]string, 0, len(t.Rows)+2)
	for _, r := range t.Rows {
		out = append(out, formatRow(r))
	}
	out = append(out, formatRow(t.Total))

	delta := []string{DeltaLabel}
	for _, d := range t.Deltas {
		delta = append(delta, FormatMetric(d.Energy, 2, UnitPercent))
	}
	for _, d := range t.Deltas {
		delta = append(delta, FormatMetric(d.Revenue, 2, UnitPercent))
	}
	out = append(out, append(delta, "", ""))
	return out
}

func formatRow(r analysis.ComparisonRow) []string {
	row := []string{r.Period.Label}
	for _, v := range r.Variants {
		row = append(row, FormatMetric(v.EquivalentHours, 2, UnitHours))
	}
	for _, v := range r.Variants {
		row = append(row, FormatUnit(v.Revenue, 2, UnitCurrency))
	}
	return append(row, orDash(r.EnergyLeader), orDash(r.RevenueLeader))
}

func orDash(s string) string {
	if s == "" {
		return NotApplicableMark
	}
	return s
}

// Summary returns the labelled facts shown above a table.
func Summary(t *analysis.ComparisonTable) [][2]string {
	return [][2]string{
		{"From", t.From.String()},
		{"To", t.To.String()},
		{"Rated power", FormatNumber(t.RatedPowerMW, 2) + " MW"},
		{"Average price", FormatMetric(t.AveragePrice, 2, UnitPrice)},
	}
}

// WriteText renders the table as aligned plain text.
func WriteText(w io.Writer, t *analysis.ComparisonTable) error {
	for _, kv := range Summary(t) {
		if _, err := fmt.Fprintf(w, "%s: %s\n", kv[0], kv[1]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	writeLine := func(cells []string) {
		for _, c := range cells {
			fmt.Fprintf(tw, "%s\t", c)
		}
		fmt.Fprintln(tw)
	}
	writeLine(Header(t))
	for _, r := range Rows(t) {
		writeLine(r)
	}
	return tw.Flush()
}

// WriteRanking renders ranked variants as aligned plain text.
func WriteRanking(w io.Writer, ranked []analysis.RankedVariant) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tVariant\tHours\tRevenue\t")
	for i, r := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", i+1, r.Variant,
			FormatMetric(r.EquivalentHours, 2, UnitHours), FormatUnit(r.Revenue, 2, UnitCurrency))
	}
	return tw.Flush()
}

// metricCell is the XLSX value of m: a number, or its marker.
func metricCell(m model.Metric) interface{} {
	if v, ok := m.Float(); ok {
		return v
	}
	if m.Status == model.MetricNotApplicable {
		return NotApplicableMark
	}
	return UnavailableMark
}
