package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"market-reconcile/internal/analysis"
	"market-reconcile/internal/api/models"
	"market-reconcile/internal/earnings"
	"market-reconcile/internal/model"
	"market-reconcile/internal/report"

	"github.com/gin-gonic/gin"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// ComparisonHandler compares plant orientations against a year's prices
type ComparisonHandler struct {
	Series   SeriesLoader
	Variants VariantSource
	Plant    model.PlantParams
}

// NewComparisonHandler creates a new comparison handler
func NewComparisonHandler(series SeriesLoader, variants VariantSource, plant model.PlantParams) *ComparisonHandler {
	return &ComparisonHandler{Series: series, Variants: variants, Plant: plant}
}

// Compare handles GET /api/v1/years/:year/comparison
func (h *ComparisonHandler) Compare(c *gin.Context) {
	var req models.ComparisonQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	format := strings.ToLower(req.Format)
	switch format {
	case "", "json", "xlsx", "pdf", "text":
	default:
		badRequest(c, "INVALID_FORMAT", fmt.Sprintf("unsupported format %q (json, xlsx, pdf, text)", req.Format))
		return
	}
	year, from, to, ok := yearAndRange(c, req.RangeQuery)
	if !ok {
		return
	}

	in, err := h.inputs(c, year)
	if err != nil {
		writeError(c, err)
		return
	}
	a, b, err := pickPair(in.Variants, req.A, req.B)
	if err != nil {
		writeError(c, err)
		return
	}
	in.Variants = []model.ProductionSeries{a, b}

	table, err := analysis.CompareInputs(in, from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("comparison_%s_%s", from, to)
	switch format {
	case "xlsx":
		out, err := report.BuildComparisonXLSX(table)
		if err != nil {
			writeError(c, err)
			return
		}
		attachment(c, filename+".xlsx", contentTypeXLSX, out)
	case "pdf":
		out, err := report.BuildComparisonPDF(table)
		if err != nil {
			writeError(c, err)
			return
		}
		attachment(c, filename+".pdf", contentTypePDF, out)
	case "text":
		var buf bytes.Buffer
		if err := report.WriteText(&buf, table); err != nil {
			writeError(c, err)
			return
		}
		c.Data(http.StatusOK, contentTypeText, buf.Bytes())
	default:
		c.JSON(http.StatusOK, models.ComparisonResponse{Year: year, Comparison: table})
	}
}

// Ledger handles GET /api/v1/years/:year/ledger and returns the hourly CSV
func (h *ComparisonHandler) Ledger(c *gin.Context) {
	var req models.LedgerQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	year, from, to, ok := yearAndRange(c, req.RangeQuery)
	if !ok {
		return
	}

	in, err := h.inputs(c, year)
	if err != nil {
		writeError(c, err)
		return
	}
	variant, err := findVariant(in.Variants, req.Variant)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := earnings.New(in.Prices.Loc()).RunRange(variant, in.Prices, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := earnings.WriteLedger(&buf, res.Ledger); err != nil {
		writeError(c, err)
		return
	}
	attachment(c, fmt.Sprintf("ledger_%s_%s_%s.csv", slug(variant.Name), from, to), contentTypeCSV, buf.Bytes())
}

func (h *ComparisonHandler) inputs(c *gin.Context, year int) (model.ComparisonInputs, error) {
	prices, err := h.Series.Load(c.Request.Context(), year)
	if err != nil {
		return model.ComparisonInputs{}, err
	}
	variants, err := h.Variants(year)
	if err != nil {
		return model.ComparisonInputs{}, err
	}
	return model.ComparisonInputs{Prices: prices, Variants: variants, Plant: h.Plant}, nil
}

// pickPair selects the named variants, defaulting to the first two.
func pickPair(variants []model.ProductionSeries, a, b string) (model.ProductionSeries, model.ProductionSeries, error) {
	if len(variants) < 2 {
		return model.ProductionSeries{}, model.ProductionSeries{}, fmt.Errorf("%w: at least two variants are required, %d configured", errUnknownVariant, len(variants))
	}
	if a == "" {
		a = variants[0].Name
	}
	if b == "" {
		b = variants[1].Name
	}
	if a == b {
		return model.ProductionSeries{}, model.ProductionSeries{}, fmt.Errorf("%w: both are %q", errSameVariant, a)
	}
	va, err := findVariant(variants, a)
	if err != nil {
		return va, va, err
	}
	vb, err := findVariant(variants, b)
	return va, vb, err
}

func findVariant(variants []model.ProductionSeries, name string) (model.ProductionSeries, error) {
	for _, v := range variants {
		if v.Name == name {
			return v, nil
		}
	}
	return model.ProductionSeries{}, fmt.Errorf("%w: %q", errUnknownVariant, name)
}

func attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}

func slug(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, s)
}
