package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/storage"
)

var fixedNow = time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type capturePublisher struct {
	entries []*models.TestLogEntry
}

func (p *capturePublisher) Publish(e *models.TestLogEntry) { p.entries = append(p.entries, e) }

// brokenStore fails every write and read
type brokenStore struct {
	storage.HistoryStore
}

var errDisk = errors.New("disk full")

func (brokenStore) Append(context.Context, *models.TestLogEntry) error { return errDisk }
func (brokenStore) List(context.Context, int, int) ([]*models.TestLogEntry, error) {
	return nil, errDisk
}
func (brokenStore) Get(context.Context, int64) (*models.TestLogEntry, error) { return nil, errDisk }
func (brokenStore) Stats(context.Context, time.Time) (*models.HistoryStats, error) {
	return nil, errDisk
}
func (brokenStore) Truncate(context.Context) error { return errDisk }
func (brokenStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errDisk
}

var (
	caller = models.Caller{UserID: "7", IPAddress: "10.0.0.1", UserAgent: "curl/8.0"}
	req    = models.TestRequest{
		URL:     "https://example.com/wp-json/wp/v2/posts",
		Method:  "POST",
		Headers: map[string]string{"X-Token": "abc"},
		Body:    `{"title":"hi"}`,
	}
	result = &models.TestResult{Success: true, StatusCode: 201, ResponseTimeMs: 87, ResponseBody: map[string]any{"id": 5.0}}
)

func TestRecordBuildsEntry(t *testing.T) {
	pub := &capturePublisher{}
	r := NewRecorder(storage.NewMemoryStore(), WithClock(clock), WithFeed(pub))

	entry, err := r.Record(context.Background(), caller, req, result)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, int64(1), entry.ID)
	assert.Equal(t, req.URL, entry.Endpoint)
	assert.Equal(t, "POST", entry.Method)
	assert.Equal(t, 201, entry.StatusCode)
	assert.Equal(t, int64(87), entry.ResponseTimeMs)
	assert.Equal(t, "7", entry.UserID)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, "curl/8.0", entry.UserAgent)
	assert.Equal(t, fixedNow, entry.CreatedAt)

	var reqData struct {
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body"`
	}
	require.NoError(t, json.Unmarshal([]byte(entry.RequestData), &reqData))
	assert.Equal(t, "abc", reqData.Headers["X-Token"])
	assert.Equal(t, req.Body, reqData.Body)

	var respData models.TestResult
	require.NoError(t, json.Unmarshal([]byte(entry.ResponseData), &respData))
	assert.Equal(t, 201, respData.StatusCode)
	assert.True(t, respData.Success)

	require.Len(t, pub.entries, 1)
	assert.Equal(t, entry.ID, pub.entries[0].ID)
}

func TestRecordTransportFailure(t *testing.T) {
	r := NewRecorder(storage.NewMemoryStore(), WithClock(clock))
	failed := &models.TestResult{ErrorMessage: "Could not resolve host nowhere.test"}

	entry, err := r.Record(context.Background(), caller, getReq(), failed)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.StatusCode)
	assert.Contains(t, entry.ResponseData, "Could not resolve host")
}

func getReq() models.TestRequest {
	return models.TestRequest{URL: "http://nowhere.test/", Method: "GET"}
}

func TestRecordDisabled(t *testing.T) {
	store := storage.NewMemoryStore()
	pub := &capturePublisher{}
	r := NewRecorder(store, WithEnabled(false), WithFeed(pub))

	entry, err := r.Record(context.Background(), caller, req, result)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.False(t, r.Enabled())

	list, _ := store.List(context.Background(), 0, 0)
	assert.Empty(t, list)
	assert.Empty(t, pub.entries)
}

func TestRecordPersistenceFailure(t *testing.T) {
	pub := &capturePublisher{}
	r := NewRecorder(brokenStore{}, WithFeed(pub))

	entry, err := r.Record(context.Background(), caller, req, result)
	assert.Nil(t, entry)
	require.Error(t, err)
	assert.Equal(t, models.KindPersistence, models.KindOf(err))
	assert.ErrorIs(t, err, errDisk)
	assert.Empty(t, pub.entries)
	assert.True(t, result.Success, "the network result is left untouched")
}

func TestReadFailuresArePersistenceErrors(t *testing.T) {
	r := NewRecorder(brokenStore{})
	ctx := context.Background()

	_, err := r.List(ctx, 10, 0)
	assert.Equal(t, models.KindPersistence, models.KindOf(err))
	_, err = r.Get(ctx, 1)
	assert.Equal(t, models.KindPersistence, models.KindOf(err))
	_, err = r.Stats(ctx)
	assert.Equal(t, models.KindPersistence, models.KindOf(err))
	assert.Equal(t, models.KindPersistence, models.KindOf(r.Truncate(ctx)))
	_, err = r.Cleanup(ctx, 30)
	assert.Equal(t, models.KindPersistence, models.KindOf(err))
}

func TestListDefaultsAndGet(t *testing.T) {
	r := NewRecorder(storage.NewMemoryStore(), WithClock(clock))
	ctx := context.Background()
	for i := 0; i < DefaultListLimit+5; i++ {
		_, err := r.Record(ctx, caller, getReq(), &models.TestResult{StatusCode: 200, Success: true})
		require.NoError(t, err)
	}

	list, err := r.List(ctx, 0, -3)
	require.NoError(t, err)
	assert.Len(t, list, DefaultListLimit)
	assert.Equal(t, int64(DefaultListLimit+5), list[0].ID)

	got, err := r.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)

	_, err = r.Get(ctx, 999)
	assert.True(t, models.IsNotFound(err))
}

func TestStatsAndCleanup(t *testing.T) {
	now := fixedNow
	r := NewRecorder(storage.NewMemoryStore(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, _ = r.Record(ctx, caller, getReq(), &models.TestResult{StatusCode: 200, Success: true, ResponseTimeMs: 10})
	now = fixedNow.Add(40 * 24 * time.Hour)
	_, _ = r.Record(ctx, caller, getReq(), &models.TestResult{StatusCode: 500, ResponseTimeMs: 30})

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalTests)
	assert.Equal(t, int64(1), stats.SuccessfulTests)
	assert.Equal(t, int64(1), stats.FailedTests)
	assert.Equal(t, 20.0, stats.AvgResponseTimeMs)

	n, err := r.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = r.Cleanup(ctx, 0)
	assert.True(t, models.IsValidation(err))

	require.NoError(t, r.Truncate(ctx))
	list, _ := r.List(ctx, 0, 0)
	assert.Empty(t, list)
}
