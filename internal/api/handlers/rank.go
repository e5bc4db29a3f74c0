package handlers

import (
	"net/http"

	"market-reconcile/internal/analysis"
	"market-reconcile/internal/api/models"
	"market-reconcile/internal/model"

	"github.com/gin-gonic/gin"
)

// RankHandler handles ranking-related requests
type RankHandler struct {
	Series   SeriesLoader
	Variants VariantSource
	Plant    model.PlantParams
}

// NewRankHandler creates a new rank handler
func NewRankHandler(series SeriesLoader, variants VariantSource, plant model.PlantParams) *RankHandler {
	return &RankHandler{Series: series, Variants: variants, Plant: plant}
}

// RankVariants handles GET /api/v1/years/:year/rank
func (h *RankHandler) RankVariants(c *gin.Context) {
	var req models.RankQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	year, from, to, ok := yearAndRange(c, req.RangeQuery)
	if !ok {
		return
	}

	prices, err := h.Series.Load(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}
	variants, err := h.Variants(year)
	if err != nil {
		writeError(c, err)
		return
	}

	// Rank by revenue
	ranked, err := analysis.RankByRevenue(variants, prices, from, to, h.Plant.RatedPowerMW)
	if err != nil {
		writeError(c, err)
		return
	}

	// Apply limit
	limit := req.Limit
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	// Convert to response format
	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.Ranking{
			Rank:            i + 1,
			Variant:         r.Variant,
			TurbineMWh:      r.TurbineMWh,
			EquivalentHours: r.EquivalentHours,
			Revenue:         r.Revenue,
		}
	}

	c.JSON(http.StatusOK, models.RankResponse{From: from, To: to, Rankings: rankings})
}
