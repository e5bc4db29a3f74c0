package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-reconcile/internal/model"
)

type fakeBuilder struct {
	mu    sync.Mutex
	years []int
	fail  map[int]error
}

func (f *fakeBuilder) BuildYear(_ context.Context, year int) (model.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.years = append(f.years, year)
	if err := f.fail[year]; err != nil {
		return model.PriceSeries{}, err
	}
	return model.PriceSeries{Year: year}, nil
}

func TestRunNow(t *testing.T) {
	boom := errors.New("boom")
	b := &fakeBuilder{fail: map[int]error{2021: boom}}
	s := NewScheduler(context.Background(), b, []int{2020, 2021, 2022}, nil)

	err := s.RunNow()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{2020, 2021, 2022}, b.years, "a failing year does not stop the others")
}

func TestRunNow_DefaultsToCurrentYear(t *testing.T) {
	b := &fakeBuilder{}
	s := NewScheduler(context.Background(), b, nil, time.UTC)
	s.now = func() time.Time { return time.Date(2023, 12, 31, 23, 30, 0, 0, time.UTC) }

	require.NoError(t, s.RunNow())
	assert.Equal(t, []int{2023}, b.years)

	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	s.Location = madrid
	b.years = nil
	require.NoError(t, s.RunNow())
	assert.Equal(t, []int{2024}, b.years, "current year follows the market timezone")
}

func TestRunNow_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &fakeBuilder{}
	s := NewScheduler(ctx, b, []int{2022}, nil)

	assert.ErrorIs(t, s.RunNow(), context.Canceled)
	assert.Empty(t, b.years)
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeBuilder{}, []int{2022}, nil)
	assert.Error(t, s.Register("not a cron spec"))
	require.NoError(t, s.Register("30 14 * * *"))
	assert.Len(t, s.Cron.Entries(), 1)

	s.Start()
	s.Stop()
}
