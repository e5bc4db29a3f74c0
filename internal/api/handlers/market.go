package handlers

import (
	"log"
	"net/http"

	"market-reconcile/internal/align"
	"market-reconcile/internal/analysis"
	"market-reconcile/internal/api/models"

	"github.com/gin-gonic/gin"
)

// MarketHandler serves persisted price series and triggers year builds
type MarketHandler struct {
	Series  SeriesLoader
	Builder YearBuilder
}

// NewMarketHandler creates a new market handler. A nil builder disables POST builds.
func NewMarketHandler(series SeriesLoader, builder YearBuilder) *MarketHandler {
	return &MarketHandler{Series: series, Builder: builder}
}

// ListYears handles GET /api/v1/years
func (h *MarketHandler) ListYears(c *gin.Context) {
	years, err := h.Series.Years(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	c.JSON(http.StatusOK, models.YearsResponse{Years: years})
}

// GetPrices handles GET /api/v1/years/:year/prices
func (h *MarketHandler) GetPrices(c *gin.Context) {
	var req models.PricesQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	year, from, to, ok := yearAndRange(c, req.RangeQuery)
	if !ok {
		return
	}

	series, err := h.Series.Load(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}
	restricted, err := align.RestrictPrices(series, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	avg, err := analysis.AveragePrice(series, from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := models.PricesResponse{
		Year:         year,
		Location:     series.Loc().String(),
		From:         from,
		To:           to,
		AveragePrice: avg,
		Stats:        analysis.ComputePriceStats(restricted),
	}
	if req.IncludePoints {
		resp.Points = restricted.Points
	}
	c.JSON(http.StatusOK, resp)
}

// BuildYear handles POST /api/v1/years/:year/build
func (h *MarketHandler) BuildYear(c *gin.Context) {
	if h.Builder == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "BUILD_DISABLED",
				Message: "year builds are not enabled on this server",
			},
		})
		return
	}
	year, err := yearParam(c)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Printf("[API] Building year %d", year)
	series, err := h.Builder.BuildYear(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := models.BuildResponse{Year: year, Status: "built", Points: series.Len()}
	if start, end, ok := series.Span(); ok {
		resp.Start, resp.End = start, end
	}
	c.JSON(http.StatusOK, resp)
}
