package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"market-reconcile/internal/align"
	"market-reconcile/internal/analysis"
	"market-reconcile/internal/api/models"
	"market-reconcile/internal/data"
	"market-reconcile/internal/model"
	"market-reconcile/internal/store"

	"github.com/gin-gonic/gin"
)

// SeriesLoader reads persisted price series. store.Store and store.Cached satisfy it.
type SeriesLoader interface {
	Load(ctx context.Context, year int) (model.PriceSeries, error)
	Years(ctx context.Context) ([]int, error)
}

// YearBuilder assembles and persists the price series of one year.
type YearBuilder interface {
	BuildYear(ctx context.Context, year int) (model.PriceSeries, error)
}

// VariantSource returns the plant orientations aligned to year.
type VariantSource func(year int) ([]model.ProductionSeries, error)

var (
	errInvalidYear    = errors.New("invalid year")
	errUnknownVariant = errors.New("unknown variant")
	errSameVariant    = errors.New("variants must differ")
)

// writeError maps domain errors onto status codes and the common error body.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	var details map[string]interface{}

	var alignErr *align.AlignmentError
	switch {
	case errors.As(err, &alignErr):
		status, code = http.StatusUnprocessableEntity, "ALIGNMENT_ERROR"
		details = map[string]interface{}{
			"date":             alignErr.Date.String(),
			"production_count": alignErr.ProductionCount,
			"price_count":      alignErr.PriceCount,
		}
		if alignErr.Hour >= 0 {
			details["hour"] = alignErr.Hour
		}
	case errors.Is(err, align.ErrInvalidRange):
		status, code = http.StatusBadRequest, "INVALID_RANGE"
	case errors.Is(err, errSameVariant):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, errInvalidYear):
		status, code = http.StatusBadRequest, "INVALID_YEAR"
	case errors.Is(err, analysis.ErrNegativeRating):
		status, code = http.StatusBadRequest, "INVALID_PLANT"
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, errUnknownVariant):
		status, code = http.StatusNotFound, "VARIANT_NOT_FOUND"
	case errors.Is(err, data.ErrNotFound), errors.Is(err, data.ErrMalformedInput):
		status, code = http.StatusBadGateway, "BUILD_FAILED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, "CANCELLED"
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Details: details,
		},
	})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func yearParam(c *gin.Context) (int, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		return 0, fmt.Errorf("%w: %q", errInvalidYear, c.Param("year"))
	}
	return year, nil
}

// parseRange resolves the query bounds inside year.
func parseRange(q models.RangeQuery, year int) (model.Date, model.Date, error) {
	from, to := model.YearBounds(year)
	var err error
	if q.From != "" {
		if from, err = model.ParseDate(q.From); err != nil {
			return from, to, fmt.Errorf("%w: from must be in YYYY-MM-DD format", align.ErrInvalidRange)
		}
	}
	if q.To != "" {
		if to, err = model.ParseDate(q.To); err != nil {
			return from, to, fmt.Errorf("%w: to must be in YYYY-MM-DD format", align.ErrInvalidRange)
		}
	}
	if from.Year != year || to.Year != year {
		return from, to, fmt.Errorf("%w: %s..%s is outside %d", align.ErrInvalidRange, from, to, year)
	}
	return from, to, align.CheckRange(from, to)
}

// yearAndRange reads the :year path parameter and the range query.
func yearAndRange(c *gin.Context, q models.RangeQuery) (int, model.Date, model.Date, bool) {
	year, err := yearParam(c)
	if err != nil {
		writeError(c, err)
		return 0, model.Date{}, model.Date{}, false
	}
	from, to, err := parseRange(q, year)
	if err != nil {
		writeError(c, err)
		return 0, model.Date{}, model.Date{}, false
	}
	return year, from, to, true
}
