package data

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-reconcile/internal/model"
)

// fakeOMIE serves day files by filename and counts requests.
type fakeOMIE struct {
	mu       sync.Mutex
	files    map[string]string
	status   map[string]int
	requests atomic.Int64
	seen     []string
}

func newFakeOMIE() *fakeOMIE {
	return &fakeOMIE{files: map[string]string{}, status: map[string]int{}}
}

func (f *fakeOMIE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	name := r.URL.Query().Get("filename")
	f.mu.Lock()
	f.seen = append(f.seen, name)
	status, hasStatus := f.status[name]
	body := f.files[name]
	f.mu.Unlock()

	if r.URL.Query().Get("parents[0]") != DayFilePrefix {
		http.Error(w, "bad parent", http.StatusBadRequest)
		return
	}
	if hasStatus {
		w.WriteHeader(status)
		return
	}
	_, _ = w.Write([]byte(body))
}

func newTestFetcher(t *testing.T, srv *httptest.Server, attempts int) *Fetcher {
	t.Helper()
	return NewFetcher(NewOMIEClient(srv.URL, 5*time.Second), t.TempDir(), attempts)
}

func TestOMIEClient_Download(t *testing.T) {
	fake := newFakeOMIE()
	fake.files["marginalpdbc_20220307.1"] = "payload"
	fake.status["marginalpdbc_20220307.2"] = http.StatusInternalServerError
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewOMIEClient(srv.URL, 0)
	var b strings.Builder
	n, err := c.Download(context.Background(), "marginalpdbc_20220307.1", &b)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", b.String())

	_, err = c.Download(context.Background(), "marginalpdbc_20220307.2", &b)
	require.Error(t, err)
	var omieErr *OMIEError
	require.ErrorAs(t, err, &omieErr)
	assert.Equal(t, http.StatusInternalServerError, omieErr.StatusCode)
	assert.Equal(t, "HTTP_STATUS", omieErr.Code)
}

func TestDayFilename(t *testing.T) {
	assert.Equal(t, "marginalpdbc_20220307.1", DayFilename(model.NewDate(2022, time.March, 7), 1))
	assert.Equal(t, "marginalpdbc_20191027.2", DayFilename(model.NewDate(2019, time.October, 27), 2))
}

func TestFetcher_EmptyLocalSuffixDeletedAndNextReturned(t *testing.T) {
	fake := newFakeOMIE()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	f := newTestFetcher(t, srv, 5)
	date := model.NewDate(2022, time.March, 7)

	require.NoError(t, os.MkdirAll(f.YearDir(2022), 0o755))
	empty := f.PathFor(date, 1)
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	second := f.PathFor(date, 2)
	require.NoError(t, os.WriteFile(second, []byte(strings.Repeat("x", 200)), 0o644))

	raw, err := f.Fetch(context.Background(), 2022, time.March, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Variant)
	assert.Equal(t, second, raw.Path)
	assert.Equal(t, int64(200), raw.Size)

	_, statErr := os.Stat(empty)
	assert.True(t, os.IsNotExist(statErr), "empty suffix-1 file must be deleted")
	assert.Equal(t, int64(0), fake.requests.Load())
}

func TestFetcher_DownloadsNextSuffixWhenFirstIsEmpty(t *testing.T) {
	fake := newFakeOMIE()
	fake.files["marginalpdbc_20220307.1"] = ""
	fake.files["marginalpdbc_20220307.2"] = strings.Repeat("y", 200)
	srv := httptest.NewServer(fake)
	defer srv.Close()
	f := newTestFetcher(t, srv, 5)
	date := model.NewDate(2022, time.March, 7)

	raw, err := f.FetchDate(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Variant)
	assert.Equal(t, int64(200), raw.Size)

	_, statErr := os.Stat(f.PathFor(date, 1))
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(f.YearDir(2022))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no .part leftovers")
	assert.Equal(t, "marginalpdbc_20220307.2", entries[0].Name())
	assert.Equal(t, []string{"marginalpdbc_20220307.1", "marginalpdbc_20220307.2"}, fake.seen)
}

func TestFetcher_AllEmptyIsNotFound(t *testing.T) {
	fake := newFakeOMIE()
	fake.status["marginalpdbc_20220307.3"] = http.StatusNotFound
	srv := httptest.NewServer(fake)
	defer srv.Close()
	f := newTestFetcher(t, srv, 4)
	date := model.NewDate(2022, time.March, 7)

	_, err := f.FetchDate(context.Background(), date)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, date, nf.Date)
	assert.Equal(t, 4, nf.Attempts)
	assert.Equal(t, int64(4), fake.requests.Load())

	entries, err := os.ReadDir(f.YearDir(2022))
	require.NoError(t, err)
	assert.Empty(t, entries, "no zero-size artifacts may remain")
}

func TestFetcher_IdempotentSecondRunSkipsNetwork(t *testing.T) {
	fake := newFakeOMIE()
	fake.files["marginalpdbc_20220307.1"] = "MARGINALPDBC;\n2022;3;7;1;40;\n*\n"
	srv := httptest.NewServer(fake)
	defer srv.Close()
	f := newTestFetcher(t, srv, 5)

	first, err := f.Fetch(context.Background(), 2022, time.March, 7)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), 2022, time.March, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), fake.requests.Load())
}

func TestFetcher_Cached(t *testing.T) {
	f := NewFetcher(nil, t.TempDir(), 5)
	date := model.NewDate(2022, time.March, 7)

	_, ok, err := f.Cached(date)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(f.YearDir(2022), 0o755))
	require.NoError(t, os.WriteFile(f.PathFor(date, 1), nil, 0o644))
	require.NoError(t, os.WriteFile(f.PathFor(date, 3), []byte("data"), 0o644))

	raw, ok, err := f.Cached(date)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, raw.Variant)
	assert.Equal(t, int64(4), raw.Size)

	_, statErr := os.Stat(f.PathFor(date, 1))
	assert.True(t, os.IsNotExist(statErr), "empty suffix-1 file must be deleted")
}

// interleavedDownloader lets the first caller finish writing, then holds it
// until a second caller has entered Download. The second caller writes only
// once released.
type interleavedDownloader struct {
	payload       string
	calls         atomic.Int64
	firstWritten  chan struct{}
	secondEntered chan struct{}
	releaseSecond chan struct{}
}

func newInterleavedDownloader(payload string) *interleavedDownloader {
	return &interleavedDownloader{
		payload:       payload,
		firstWritten:  make(chan struct{}),
		secondEntered: make(chan struct{}),
		releaseSecond: make(chan struct{}),
	}
}

func (d *interleavedDownloader) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	if d.calls.Add(1) == 1 {
		n, err := io.WriteString(w, d.payload)
		if err != nil {
			return 0, err
		}
		close(d.firstWritten)
		select {
		case <-d.secondEntered:
		case <-time.After(5 * time.Second):
			return 0, errors.New("second download never started")
		}
		return int64(n), nil
	}

	close(d.secondEntered)
	select {
	case <-d.releaseSecond:
	case <-time.After(5 * time.Second):
		return 0, errors.New("second download never released")
	}
	n, err := io.WriteString(w, d.payload)
	return int64(n), err
}

func TestFetcher_ConcurrentFetchOfSameDay(t *testing.T) {
	payload := strings.Repeat("z", 300)
	dl := newInterleavedDownloader(payload)
	f := NewFetcher(dl, t.TempDir(), 5)
	date := model.NewDate(2022, time.March, 7)

	type result struct {
		raw model.RawDayFile
		err error
	}
	fetch := func(out chan<- result) {
		raw, err := f.FetchDate(context.Background(), date)
		out <- result{raw: raw, err: err}
	}

	first := make(chan result, 1)
	go fetch(first)
	select {
	case <-dl.firstWritten:
	case <-time.After(5 * time.Second):
		t.Fatal("first download never wrote")
	}

	second := make(chan result, 1)
	go fetch(second)

	var a result
	select {
	case a = <-first:
	case <-time.After(10 * time.Second):
		t.Fatal("first fetch did not finish")
	}
	close(dl.releaseSecond)
	b := <-second

	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Equal(t, 1, a.raw.Variant)
	assert.Equal(t, 1, b.raw.Variant)
	assert.Equal(t, int64(len(payload)), a.raw.Size)
	assert.Equal(t, int64(len(payload)), b.raw.Size)
	assert.Equal(t, int64(2), dl.calls.Load())

	body, err := os.ReadFile(f.PathFor(date, 1))
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))

	entries, err := os.ReadDir(f.YearDir(2022))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not remain")
}

func TestFetcher_RejectsInvalidDate(t *testing.T) {
	f := NewFetcher(nil, t.TempDir(), 5)
	_, err := f.Fetch(context.Background(), 2022, time.February, 30)
	assert.Error(t, err)
	_, err = f.Fetch(context.Background(), 2022, 13, 1)
	assert.Error(t, err)
}

func TestFetcher_ContextCancelled(t *testing.T) {
	fake := newFakeOMIE()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	f := newTestFetcher(t, srv, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, 2022, time.March, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNotFound)
}
