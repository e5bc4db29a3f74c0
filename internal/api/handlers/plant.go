package handlers

import (
	"net/http"
	"path/filepath"

	"market-reconcile/internal/api/models"
	"market-reconcile/internal/config"

	"github.com/gin-gonic/gin"
)

// PlantHandler describes the configured plant
type PlantHandler struct {
	plant config.PlantConfig
}

// NewPlantHandler creates a new plant handler
func NewPlantHandler(plant config.PlantConfig) *PlantHandler {
	return &PlantHandler{plant: plant}
}

// GetPlant handles GET /api/v1/plant
func (h *PlantHandler) GetPlant(c *gin.Context) {
	info := models.PlantInfo{
		Name:         h.plant.Name,
		RatedPowerMW: h.plant.RatedPowerMW,
		Timezone:     h.plant.Timezone,
		Variants:     make([]models.VariantInfo, 0, len(h.plant.Variants)),
	}
	for _, v := range h.plant.Variants {
		// Only the base name; server paths stay private.
		info.Variants = append(info.Variants, models.VariantInfo{Name: v.Name, File: filepath.Base(v.File)})
	}
	c.JSON(http.StatusOK, info)
}
