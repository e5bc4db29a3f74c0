// Package api wires the HTTP handlers onto a gin engine.
package api

import (
	"net/http"

	"market-reconcile/internal/api/handlers"
	"market-reconcile/internal/api/middleware"
	"market-reconcile/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the handlers read from.
type Deps struct {
	Series   handlers.SeriesLoader
	Builder  handlers.YearBuilder
	Variants handlers.VariantSource
	Plant    config.PlantConfig
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter builds the engine with middleware, /health, /metrics and /api/v1.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	// Apply middleware
	router.Use(middleware.CORS(d.AllowedOrigins...))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	// Initialize handlers
	params := d.Plant.ToModelParams()
	marketHandler := handlers.NewMarketHandler(d.Series, d.Builder)
	comparisonHandler := handlers.NewComparisonHandler(d.Series, d.Variants, params)
	rankHandler := handlers.NewRankHandler(d.Series, d.Variants, params)
	plantHandler := handlers.NewPlantHandler(d.Plant)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/plant", plantHandler.GetPlant)

		v1.GET("/years", marketHandler.ListYears)
		v1.GET("/years/:year/prices", marketHandler.GetPrices)
		v1.POST("/years/:year/build", marketHandler.BuildYear)

		v1.GET("/years/:year/comparison", comparisonHandler.Compare)
		v1.GET("/years/:year/ledger", comparisonHandler.Ledger)
		v1.GET("/years/:year/rank", rankHandler.RankVariants)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
