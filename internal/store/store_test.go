package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-reconcile/internal/model"
)

func testSeries(t *testing.T, year int, hours int, base float64) model.PriceSeries {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	s := model.PriceSeries{Year: year, Location: loc}
	for h := 0; h < hours; h++ {
		s.Points = append(s.Points, model.PricePoint{
			Timestamp: start.Add(time.Duration(h) * time.Hour).UTC(),
			Value:     base + float64(h)*0.25,
		})
	}
	return s
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, 2021)
	assert.ErrorIs(t, err, ErrNotFound)

	first := testSeries(t, 2021, 48, 40)
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, testSeries(t, 2019, 24, 10)))

	got, err := s.Load(ctx, 2021)
	require.NoError(t, err)
	assert.True(t, first.Equal(got), "round trip mismatch")
	assert.Equal(t, "Europe/Madrid", got.Loc().String())

	// Save overwrites the whole year.
	second := testSeries(t, 2021, 24, 70)
	require.NoError(t, s.Save(ctx, second))
	got, err = s.Load(ctx, 2021)
	require.NoError(t, err)
	assert.Equal(t, 24, got.Len())
	assert.True(t, second.Equal(got))

	years, err := s.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2019, 2021}, years)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStore_DeterministicBytes(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	series := testSeries(t, 2022, 24, 55)
	require.NoError(t, s.Save(ctx, series))
	first, err := os.ReadFile(s.PathFor(2022))
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, series))
	second, err := os.ReadFile(s.PathFor(2022))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = os.Stat(s.PathFor(2022) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "market_20x1.json"), []byte("{}"), 0o644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	years, err := s.Years(context.Background())
	require.NoError(t, err)
	assert.Empty(t, years)
}

func TestSave_RejectsUnorderedSeries(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	series := testSeries(t, 2022, 3, 1)
	series.Points[1], series.Points[2] = series.Points[2], series.Points[1]
	assert.Error(t, s.Save(context.Background(), series))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	s, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.db.ExecContext(ctx, `DELETE FROM price_points WHERE year IN (2019, 2021)`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `DELETE FROM price_series WHERE year IN (2019, 2021)`)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: dialectPostgres}
	assert.Equal(t, "INSERT INTO t VALUES ($1, $2, $3)", pg.rebind("INSERT INTO t VALUES (?, ?, ?)"))

	lite := &SQLStore{dialect: dialectSQLite}
	assert.Equal(t, "SELECT ? FROM t", lite.rebind("SELECT ? FROM t"))
}

func TestOpen(t *testing.T) {
	s, err := Open(Options{Driver: DriverFile, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(Options{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Options{Driver: "mongo"})
	assert.Error(t, err)
}

type countingStore struct {
	Store
	loads int
}

func (c *countingStore) Load(ctx context.Context, year int) (model.PriceSeries, error) {
	c.loads++
	return c.Store.Load(ctx, year)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	inner := &countingStore{Store: fs}

	cache := NewCached(inner, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Save(ctx, testSeries(t, 2022, 24, 50)))

	_, err = cache.Load(ctx, 2022)
	require.NoError(t, err)
	_, err = cache.Load(ctx, 2022)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.loads)

	// Save invalidates.
	updated := testSeries(t, 2022, 12, 90)
	require.NoError(t, cache.Save(ctx, updated))
	got, err := cache.Load(ctx, 2022)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.loads)
	assert.True(t, updated.Equal(got))

	// Expiry.
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, cache.Prune())
	_, err = cache.Load(ctx, 2022)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.loads)

	// Misses are not cached.
	_, err = cache.Load(ctx, 1999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cache.Load(ctx, 1999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 5, inner.loads)

	cache.Clear()
	_, err = cache.Load(ctx, 2022)
	require.NoError(t, err)
	assert.Equal(t, 6, inner.loads)
}
