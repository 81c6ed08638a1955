package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/dashboard"
)

type fakeCounter struct {
	total     int
	byStatus  map[string]int
	perWindow []int // returned in call order
	calls     int
	windows   [][2]time.Time
}

func (f *fakeCounter) CountAll(_ context.Context) (int, error) { return f.total, nil }

func (f *fakeCounter) CountByStatus(_ context.Context, status string) (int, error) {
	return f.byStatus[status], nil
}

func (f *fakeCounter) CountCreatedBetween(_ context.Context, from, to time.Time) (int, error) {
	f.windows = append(f.windows, [2]time.Time{from, to})
	n := 0
	if f.calls < len(f.perWindow) {
		n = f.perWindow[f.calls]
	}
	f.calls++
	return n, nil
}

type fakeStats struct {
	overall map[string]int
	window  map[string]int
}

func (f *fakeStats) StatusCounts(_ context.Context, _ string) (map[string]int, error) {
	return f.overall, nil
}

func (f *fakeStats) StatusCountsBetween(_ context.Context, _, _ time.Time) (map[string]int, error) {
	return f.window, nil
}

func TestStats(t *testing.T) {
	subs := &fakeCounter{
		total:     120,
		byStatus:  map[string]int{models.StatusConfirmed: 90},
		perWindow: []int{3, 5, 8, 13},
	}
	stats := &fakeStats{
		overall: map[string]int{
			models.EmailLogSent:    200,
			models.EmailLogOpened:  90,
			models.EmailLogClicked: 25,
		},
		window: map[string]int{
			models.EmailLogOpened:  10,
			models.EmailLogClicked: 4,
		},
	}
	svc := dashboard.NewService(subs, stats, zerolog.Nop())

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, got.SubscriberCount)
	assert.Equal(t, 90, got.ActiveSubscribers)
	assert.Equal(t, 45, got.OpenRate)
	assert.Equal(t, 12, got.ClickRate)

	require.Len(t, got.WeeklyStats, 4)
	assert.Equal(t, "Week 1", got.WeeklyStats[0].Name)
	assert.Equal(t, "Week 4", got.WeeklyStats[3].Name)
	assert.Equal(t, []int{3, 5, 8, 13}, []int{
		got.WeeklyStats[0].Subscribers,
		got.WeeklyStats[1].Subscribers,
		got.WeeklyStats[2].Subscribers,
		got.WeeklyStats[3].Subscribers,
	})
	assert.Equal(t, 10, got.WeeklyStats[0].Opens)
	assert.Equal(t, 4, got.WeeklyStats[0].Clicks)

	// windows are contiguous seven-day spans, oldest first
	require.Len(t, subs.windows, 4)
	for i, w := range subs.windows {
		assert.Equal(t, 7*24*time.Hour, w[1].Sub(w[0]))
		if i > 0 {
			assert.Equal(t, subs.windows[i-1][1], w[0])
		}
	}
}

func TestStatsZeroSends(t *testing.T) {
	subs := &fakeCounter{total: 10, byStatus: map[string]int{}}
	stats := &fakeStats{overall: map[string]int{}, window: map[string]int{}}
	svc := dashboard.NewService(subs, stats, zerolog.Nop())

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, got.OpenRate)
	assert.Zero(t, got.ClickRate)
}

type fakeCache struct {
	stored map[string]models.DashboardStats
	getErr error
	sets   int
}

func (f *fakeCache) Set(_ context.Context, key string, value models.DashboardStats) error {
	if f.stored == nil {
		f.stored = map[string]models.DashboardStats{}
	}
	f.stored[key] = value
	f.sets++
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (models.DashboardStats, error) {
	if f.getErr != nil {
		return models.DashboardStats{}, f.getErr
	}
	v, ok := f.stored[key]
	if !ok {
		return models.DashboardStats{}, errors.New("cache miss")
	}
	return v, nil
}

type staticProvider struct {
	stats models.DashboardStats
	calls int
}

func (s *staticProvider) Stats(_ context.Context) (models.DashboardStats, error) {
	s.calls++
	return s.stats, nil
}

func TestCachedServiceMissThenHit(t *testing.T) {
	inner := &staticProvider{stats: models.DashboardStats{SubscriberCount: 42}}
	cache := &fakeCache{}
	svc := dashboard.NewCachedService(inner, cache, zerolog.Nop())

	first, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, first.SubscriberCount)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, second.SubscriberCount)
	assert.Equal(t, 1, inner.calls, "cache hit should not recompute")
}

func TestCachedServiceFallsBackOnCacheFailure(t *testing.T) {
	inner := &staticProvider{stats: models.DashboardStats{SubscriberCount: 7}}
	cache := &fakeCache{getErr: errors.New("redis down")}
	svc := dashboard.NewCachedService(inner, cache, zerolog.Nop())

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got.SubscriberCount)
	assert.Equal(t, 1, inner.calls)
}
