package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"market-reconcile/internal/model"
)

var seriesFilePattern = regexp.MustCompile(`^market_(\d{4})\.json$`)

// FileStore keeps one JSON document per year in a directory.
// Output bytes depend only on the series, so identical series produce identical files.
type FileStore struct {
	dir string
}

type seriesDocument struct {
	Year     int                `json:"year"`
	Location string             `json:"location"`
	Points   []model.PricePoint `json:"points"`
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "./dataframes"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// PathFor returns the file that holds year.
func (s *FileStore) PathFor(year int) string {
	return filepath.Join(s.dir, fmt.Sprintf("market_%d.json", year))
}

func (s *FileStore) Save(_ context.Context, series model.PriceSeries) error {
	if err := validateSeries(series); err != nil {
		return err
	}
	doc := seriesDocument{
		Year:     series.Year,
		Location: series.Loc().String(),
		Points:   make([]model.PricePoint, len(series.Points)),
	}
	for i, p := range series.Points {
		doc.Points[i] = model.PricePoint{Timestamp: p.Timestamp.UTC(), Value: p.Value}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	path := s.PathFor(series.Year)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write series file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace series file: %w", err)
	}
	log.Printf("[Store] Saved %d points for %d to %s", len(doc.Points), series.Year, path)
	return nil
}

func (s *FileStore) Load(_ context.Context, year int) (model.PriceSeries, error) {
	raw, err := os.ReadFile(s.PathFor(year))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.PriceSeries{}, notFound(year)
		}
		return model.PriceSeries{}, fmt.Errorf("failed to read series file: %w", err)
	}

	var doc seriesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.PriceSeries{}, fmt.Errorf("failed to parse series file: %w", err)
	}
	loc, err := loadLocation(doc.Location)
	if err != nil {
		return model.PriceSeries{}, err
	}
	for i := range doc.Points {
		doc.Points[i].Timestamp = doc.Points[i].Timestamp.In(time.UTC)
	}
	return model.PriceSeries{Year: doc.Year, Location: loc, Points: doc.Points}, nil
}

func (s *FileStore) Years(_ context.Context) ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}
	var years []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := seriesFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		y, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func (s *FileStore) Close() error { return nil }
