package models

import (
	"time"

	"market-reconcile/internal/analysis"
	"market-reconcile/internal/model"
)

// YearsResponse lists the years with a persisted price series
type YearsResponse struct {
	Years []int `json:"years"`
}

// PricesResponse summarizes a price series over a date range
type PricesResponse struct {
	Year         int                 `json:"year"`
	Location     string              `json:"location"`
	From         model.Date          `json:"from"`
	To           model.Date          `json:"to"`
	AveragePrice model.Metric        `json:"average_price"`
	Stats        analysis.PriceStats `json:"stats"`
	Points       []model.PricePoint  `json:"points,omitempty"`
}

// BuildResponse reports a completed year build
type BuildResponse struct {
	Year   int       `json:"year"`
	Status string    `json:"status"`
	Points int       `json:"points"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// ComparisonResponse wraps a comparison table
type ComparisonResponse struct {
	Year       int                       `json:"year"`
	Comparison *analysis.ComparisonTable `json:"comparison"`
}

// RankResponse represents the response from ranking variants
type RankResponse struct {
	From     model.Date `json:"from"`
	To       model.Date `json:"to"`
	Rankings []Ranking  `json:"rankings"`
}

// Ranking represents one ranked orientation
type Ranking struct {
	Rank            int          `json:"rank"`
	Variant         string       `json:"variant"`
	TurbineMWh      float64      `json:"turbine_mwh"`
	EquivalentHours model.Metric `json:"equivalent_hours"`
	Revenue         float64      `json:"revenue"`
}

// PlantInfo describes the configured plant and its orientations
type PlantInfo struct {
	Name         string        `json:"name"`
	RatedPowerMW float64       `json:"rated_power_mw"`
	Timezone     string        `json:"timezone"`
	Variants     []VariantInfo `json:"variants"`
}

// VariantInfo names one orientation and its source file
type VariantInfo struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
