package stats_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/stats"
	"civicdesk/backend/internal/storage/storagemock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memCache is a JSON-round-tripping stand-in for the Redis cache.
type memCache struct {
	data    map[string][]byte
	failGet bool
	flushes int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	if c.failGet {
		return false, errors.New("redis down")
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	c.data[key] = raw
	return err
}

func (c *memCache) Flush(context.Context) error {
	c.flushes++
	c.data = map[string][]byte{}
	return nil
}

func sample() []models.Complaint {
	rt := 3
	return []models.Complaint{
		{ID: "1", Category: "Water Supply", Status: models.StatusResolved, ResolutionTime: &rt},
		{ID: "2", Category: "Electricity", Status: models.StatusPending},
	}
}

func TestSummary_CachesUntilInvalidated(t *testing.T) {
	st := new(storagemock.MockStorage)
	cache := newMemCache()
	svc := stats.NewService(st, cache, time.Minute)
	st.On("AllComplaints", mock.Anything).Return(sample(), nil)

	ctx := context.Background()
	s1, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s1.Total)
	assert.Equal(t, 50, s1.ResponseRate)

	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	st.AssertNumberOfCalls(t, "AllComplaints", 1)

	svc.Invalidate(ctx)
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	st.AssertNumberOfCalls(t, "AllComplaints", 2)
	assert.Equal(t, 1, cache.flushes)
}

func TestSummary_CacheErrorFallsBack(t *testing.T) {
	st := new(storagemock.MockStorage)
	cache := newMemCache()
	cache.failGet = true
	svc := stats.NewService(st, cache, time.Minute)
	st.On("AllComplaints", mock.Anything).Return(sample(), nil)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Total)
}

func TestSummary_StoreError(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := stats.NewService(st, nil, 0)
	st.On("AllComplaints", mock.Anything).Return(nil, errors.New("db down"))

	_, err := svc.Summary(context.Background())
	assert.Error(t, err)
}

func TestByCategory_Sources(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := stats.NewService(st, nil, 0)
	st.On("AllComplaints", mock.Anything).Return(sample(), nil)

	rows, err := svc.ByCategory(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, len(config.ReportCategories))
	st.AssertNotCalled(t, "ListCategories", mock.Anything, mock.Anything)

	svc.DynamicCategories = true
	st.On("ListCategories", mock.Anything, true).Return([]models.Category{{Name: "Water Supply"}}, nil)
	rows, err = svc.ByCategory(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Resolved)
	assert.Equal(t, 100, rows[0].ResolutionRate)
}

func TestTimeSeries_TwelveMonths(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := stats.NewService(st, newMemCache(), time.Minute)
	svc.Now = func() time.Time { return time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC) }
	st.On("AllComplaints", mock.Anything).Return([]models.Complaint{}, nil)

	points, err := svc.TimeSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 12)
	assert.Equal(t, "2024-04", points[0].Month)
	assert.Equal(t, "2025-03", points[11].Month)
}

func TestMapData_NoBoundsAtMostLimit(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := stats.NewService(st, nil, 0)

	list := make([]models.Complaint, 250)
	for i := range list {
		list[i] = models.Complaint{
			ID:       fmt.Sprintf("c-%d", i),
			Location: models.Location{Longitude: 30, Latitude: 50},
		}
	}
	st.On("MapComplaints", mock.Anything, (*models.Bounds)(nil), config.MapDataLimit).Return(list, nil)

	points, err := svc.MapData(context.Background(), nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(points), 200)
	for _, p := range points {
		assert.Len(t, p.Coordinates, 2)
	}
}

func TestMapData_PassesBounds(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := stats.NewService(st, nil, 0)
	b := &models.Bounds{MinLat: 50, MaxLat: 51, MinLng: 30, MaxLng: 31}
	st.On("MapComplaints", mock.Anything, b, config.MapDataLimit).Return([]models.Complaint{}, nil)

	points, err := svc.MapData(context.Background(), b)
	require.NoError(t, err)
	assert.Empty(t, points)
}
