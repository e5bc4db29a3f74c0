// Package store persists canonical price series keyed by year.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"market-reconcile/internal/model"
)

// ErrNotFound is returned when no series is stored for a year.
var ErrNotFound = errors.New("series not found")

// Store is a durable key-value store of price series keyed by year.
// Save overwrites any previous series of the same year.
type Store interface {
	Save(ctx context.Context, s model.PriceSeries) error
	Load(ctx context.Context, year int) (model.PriceSeries, error)
	Years(ctx context.Context) ([]int, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the directory for the file driver and the database file for sqlite.
	Path string
	// DSN is the postgres connection string.
	DSN string
}

// Open returns the backend named by opts.Driver (file when empty).
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverFile:
		return NewFileStore(opts.Path)
	case DriverSQLite:
		return NewSQLite(opts.Path)
	case DriverPostgres:
		return NewPostgres(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", opts.Driver)
	}
}

func notFound(year int) error {
	return fmt.Errorf("year %d: %w", year, ErrNotFound)
}

func validateSeries(s model.PriceSeries) error {
	if s.Year <= 0 {
		return fmt.Errorf("invalid series year %d", s.Year)
	}
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i-1].Timestamp.Before(s.Points[i].Timestamp) {
			return fmt.Errorf("series %d not strictly ordered at index %d", s.Year, i)
		}
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
