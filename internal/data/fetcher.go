package data

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"market-reconcile/internal/metrics"
	"market-reconcile/internal/model"
	"market-reconcile/internal/retry"
)

// DefaultMaxAttempts is the number of filename suffixes tried per day.
const DefaultMaxAttempts = 5

var errEmptyPayload = errors.New("empty payload")

// Fetcher obtains one raw file per calendar day, trying filename suffixes
// 1..MaxAttempts until one yields a non-empty payload.
//
// Files live at <CacheRoot>/<YYYY>/<filename>; every (day, suffix) owns its own
// path, so concurrent fetches of different days never touch the same file.
type Fetcher struct {
	Client      Downloader
	CacheRoot   string
	MaxAttempts int
}

func NewFetcher(client Downloader, cacheRoot string, maxAttempts int) *Fetcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Fetcher{
		Client:      client,
		CacheRoot:   cacheRoot,
		MaxAttempts: maxAttempts,
	}
}

// YearDir returns the cache directory of year.
func (f *Fetcher) YearDir(year int) string {
	return filepath.Join(f.CacheRoot, strconv.Itoa(year))
}

// PathFor returns the local path of date's file under suffix.
func (f *Fetcher) PathFor(date model.Date, suffix int) string {
	return filepath.Join(f.YearDir(date.Year), DayFilename(date, suffix))
}

// Fetch returns the raw file for (year, month, day).
func (f *Fetcher) Fetch(ctx context.Context, year int, month time.Month, day int) (model.RawDayFile, error) {
	return f.FetchDate(ctx, model.NewDate(year, month, day))
}

// FetchDate walks the suffixes in order. An existing local file short-circuits the
// network call; a zero-size file (local or downloaded) is deleted and the next
// suffix is tried. Transport errors also advance to the next suffix.
func (f *Fetcher) FetchDate(ctx context.Context, date model.Date) (model.RawDayFile, error) {
	if !date.Valid() {
		return model.RawDayFile{}, fmt.Errorf("invalid date %04d-%02d-%02d", date.Year, int(date.Month), date.Day)
	}

	var size int64
	suffix, attempts, err := retry.Until(ctx, f.MaxAttempts,
		func(attempt int) int { return attempt },
		func(ctx context.Context, suffix int) error {
			n, err := f.try(ctx, date, suffix)
			size = n
			return err
		},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.RawDayFile{}, fmt.Errorf("fetch %s: %w", date, ctxErr)
		}
		metrics.IncFetchAttempt(metrics.FetchNotFound)
		log.Printf("[OMIE] Not found: %s (attempts=%d)", date, attempts)
		return model.RawDayFile{}, &NotFoundError{Date: date, Attempts: attempts, Err: err}
	}

	return model.RawDayFile{
		Date:    date,
		Variant: suffix,
		Path:    f.PathFor(date, suffix),
		Size:    size,
	}, nil
}

func (f *Fetcher) try(ctx context.Context, date model.Date, suffix int) (int64, error) {
	path := f.PathFor(date, suffix)

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.Size() > 0 {
			metrics.IncFetchAttempt(metrics.FetchCached)
			return info.Size(), nil
		}
		// Zero-size leftovers are never kept.
		log.Printf("[OMIE] Removing empty local file %s", path)
		if err := os.Remove(path); err != nil {
			return 0, fmt.Errorf("remove empty file: %w", err)
		}
		metrics.IncFetchAttempt(metrics.FetchEmpty)
		return 0, errEmptyPayload
	case !errors.Is(err, fs.ErrNotExist):
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	if f.Client == nil {
		return 0, errors.New("no downloader configured")
	}
	n, err := f.download(ctx, DayFilename(date, suffix), path)
	if err != nil {
		if errors.Is(err, errEmptyPayload) {
			metrics.IncFetchAttempt(metrics.FetchEmpty)
		} else {
			metrics.IncFetchAttempt(metrics.FetchFailed)
		}
		return 0, err
	}
	metrics.IncFetchAttempt(metrics.FetchOK)
	metrics.AddFetchedBytes(n)
	return n, nil
}

// download writes into a uniquely named sibling .part file and renames it onto
// path only when the payload is non-empty, so path never exists with zero bytes.
// Concurrent downloads of the same file each get their own temp file; the last
// rename wins.
func (f *Fetcher) download(ctx context.Context, filename, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmp := out.Name()

	n, dlErr := f.Client.Download(ctx, filename, out)
	closeErr := out.Close()
	if dlErr == nil {
		dlErr = closeErr
	}
	if dlErr != nil {
		_ = os.Remove(tmp)
		return 0, dlErr
	}

	info, err := os.Stat(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if info.Size() == 0 {
		log.Printf("[OMIE] Empty payload for %s, trying next suffix", filename)
		_ = os.Remove(tmp)
		return 0, errEmptyPayload
	}
	// CreateTemp uses 0600; cached day files are shared read-only.
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}
	log.Printf("[OMIE] Saved %s (%d bytes)", path, n)
	return info.Size(), nil
}

// Cached returns the first non-empty local file of date under any suffix,
// without touching the network. Zero-size files found on the way are deleted.
func (f *Fetcher) Cached(date model.Date) (model.RawDayFile, bool, error) {
	for suffix := 1; suffix <= f.MaxAttempts; suffix++ {
		path := f.PathFor(date, suffix)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return model.RawDayFile{}, false, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() == 0 {
			log.Printf("[OMIE] Removing empty local file %s", path)
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return model.RawDayFile{}, false, fmt.Errorf("remove empty file: %w", err)
			}
			continue
		}
		return model.RawDayFile{Date: date, Variant: suffix, Path: path, Size: info.Size()}, true, nil
	}
	return model.RawDayFile{}, false, nil
}
