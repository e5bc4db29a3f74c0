// Package ingest assembles the canonical price series of a year from day files.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"market-reconcile/internal/data"
	"market-reconcile/internal/metrics"
	"market-reconcile/internal/model"
	"market-reconcile/internal/store"
)

// DefaultWorkers is the size of the per-day worker pool.
const DefaultWorkers = 4

// Builder fetches, parses and persists whole years. Days run on a bounded pool;
// the first failing day cancels the rest and nothing is persisted.
type Builder struct {
	Fetcher *data.Fetcher
	Parser  *data.DayParser
	Store   store.Store
	Workers int
}

func NewBuilder(fetcher *data.Fetcher, parser *data.DayParser, st store.Store, workers int) *Builder {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Builder{
		Fetcher: fetcher,
		Parser:  parser,
		Store:   st,
		Workers: workers,
	}
}

type dayResult struct {
	file     model.RawDayFile
	points   []model.PricePoint
	checksum string
}

// BuildYear assembles every calendar day of year in order and saves the series,
// overwriting any previous version. A manifest of the raw files is written next
// to them.
func (b *Builder) BuildYear(ctx context.Context, year int) (model.PriceSeries, error) {
	start := time.Now()
	series, manifest, err := b.assemble(ctx, year)
	if err == nil {
		err = b.persist(ctx, series, manifest)
	}
	if err != nil {
		metrics.ObserveBuild(metrics.ResultError, time.Since(start))
		log.Printf("[Ingest] Build of %d failed after %v: %v", year, time.Since(start).Round(time.Millisecond), err)
		return model.PriceSeries{}, err
	}

	metrics.ObserveBuild(metrics.ResultSuccess, time.Since(start))
	metrics.SetSeriesPoints(strconv.Itoa(year), series.Len())
	log.Printf("[Ingest] Built %d: %d points (build %s, %v)", year, series.Len(), manifest.BuildID, time.Since(start).Round(time.Millisecond))
	return series, nil
}

func (b *Builder) assemble(ctx context.Context, year int) (model.PriceSeries, *data.Manifest, error) {
	if year < 1 {
		return model.PriceSeries{}, nil, fmt.Errorf("invalid year %d", year)
	}
	if b.Fetcher == nil || b.Parser == nil {
		return model.PriceSeries{}, nil, errors.New("builder needs a fetcher and a parser")
	}

	days := model.DaysOfYear(year)
	results := make([]dayResult, len(days))
	err := b.forEachDay(ctx, days, func(ctx context.Context, i int, d model.Date) error {
		r, err := b.day(ctx, d)
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return model.PriceSeries{}, nil, err
	}

	// Results are indexed by day, so completion order never matters.
	series := model.PriceSeries{Year: year, Location: b.Parser.Location}
	manifest := &data.Manifest{
		Year:      year,
		BuildID:   uuid.NewString(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for i, r := range results {
		if n := len(series.Points); n > 0 && len(r.points) > 0 && !series.Points[n-1].Timestamp.Before(r.points[0].Timestamp) {
			return model.PriceSeries{}, nil, fmt.Errorf("%s: points out of order at day boundary", days[i])
		}
		series.Points = append(series.Points, r.points...)
		manifest.Days = append(manifest.Days, data.ManifestEntry{
			Date:    r.file.Date,
			Variant: r.file.Variant,
			File:    r.file.Path,
			Size:    r.file.Size,
			SHA256:  r.checksum,
			Points:  len(r.points),
		})
	}
	manifest.Points = series.Len()
	return series, manifest, nil
}

func (b *Builder) persist(ctx context.Context, series model.PriceSeries, manifest *data.Manifest) error {
	if b.Store == nil {
		return errors.New("builder has no store")
	}
	if err := b.Store.Save(ctx, series); err != nil {
		return fmt.Errorf("save %d: %w", series.Year, err)
	}
	if err := data.SaveManifest(manifest, data.ManifestPath(b.Fetcher.CacheRoot, series.Year)); err != nil {
		return fmt.Errorf("manifest %d: %w", series.Year, err)
	}
	return nil
}

// day prefers a file left by an earlier run under any suffix and only then
// goes to the network.
func (b *Builder) day(ctx context.Context, d model.Date) (dayResult, error) {
	if err := ctx.Err(); err != nil {
		return dayResult{}, err
	}
	f, ok, err := b.Fetcher.Cached(d)
	if err != nil {
		return dayResult{}, err
	}
	if !ok {
		if f, err = b.Fetcher.FetchDate(ctx, d); err != nil {
			return dayResult{}, err
		}
	}
	points, err := b.Parser.ParseFile(f)
	if err != nil {
		return dayResult{}, err
	}
	sum, err := data.FileChecksum(f.Path)
	if err != nil {
		return dayResult{}, fmt.Errorf("checksum %s: %w", f.Path, err)
	}
	return dayResult{file: f, points: points, checksum: sum}, nil
}

// DownloadYear fetches every day of year into the cache without parsing or
// persisting anything.
func (b *Builder) DownloadYear(ctx context.Context, year int) ([]model.RawDayFile, error) {
	if year < 1 {
		return nil, fmt.Errorf("invalid year %d", year)
	}
	days := model.DaysOfYear(year)
	files := make([]model.RawDayFile, len(days))
	err := b.forEachDay(ctx, days, func(ctx context.Context, i int, d model.Date) error {
		f, err := b.Fetcher.FetchDate(ctx, d)
		if err != nil {
			return err
		}
		files[i] = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Ingest] Downloaded %d day files for %d", len(files), year)
	return files, nil
}

// forEachDay runs fn for every day on the worker pool and returns the first error.
// After a failure no further days are started.
func (b *Builder) forEachDay(ctx context.Context, days []model.Date, fn func(ctx context.Context, i int, d model.Date) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i, d := range days {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := fn(gctx, i, d); err != nil {
				return fmt.Errorf("%s: %w", d, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// A parent cancellation may stop the loop before any day reports it.
	return ctx.Err()
}

func (b *Builder) workers() int {
	if b.Workers <= 0 {
		return DefaultWorkers
	}
	return b.Workers
}
