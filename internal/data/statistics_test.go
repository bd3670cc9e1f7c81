package data

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formfields/internal/form"
	"formfields/internal/rules"
)

func TestFailureKey(t *testing.T) {
	a := FailureKey(rules.Email, "bad")
	assert.Len(t, a, 64)
	assert.Equal(t, a, FailureKey(rules.Email, "bad"))
	assert.NotEqual(t, a, FailureKey(rules.Email, "worse"))
	assert.NotEqual(t, FailureKey("ab", "c"), FailureKey("a", "bc"))
}

func TestFailureEntryJSON(t *testing.T) {
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := FailureEntry{
		ID:        7,
		Key:       FailureKey(rules.Email, "bad"),
		Field:     rules.Email,
		Message:   "bad",
		Hits:      2,
		CreatedAt: seen,
		UpdatedAt: seen.Add(time.Minute),
	}

	js, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"field": "email",
		"message": "bad",
		"hits": 2,
		"created_at": "2026-03-01T12:00:00Z",
		"updated_at": "2026-03-01T12:01:00Z"
	}`, string(js))
}

func TestFailureTracker(t *testing.T) {
	tracker := NewFailureTracker()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	t.Run("empty tracker", func(t *testing.T) {
		assert.Empty(t, tracker.TopN(3))
		assert.Zero(t, tracker.EntryCount())
	})

	tracker.Record(rules.Email, "bad email")
	tracker.Record(rules.Postcode, "Postcode is wrong")
	tracker.Record(rules.Postcode, "Postcode is wrong")
	entry := tracker.Record(rules.Email, "bad email")
	tracker.Record(rules.Name, "bad name")

	t.Run("record returns updated copy", func(t *testing.T) {
		assert.Equal(t, 2, entry.Hits)
		entry.Hits = 100
		assert.Equal(t, 2, tracker.TopN(1)[0].Hits)
	})

	t.Run("top n ordered by hits then first seen", func(t *testing.T) {
		top := tracker.TopN(3)
		require.Len(t, top, 3)
		assert.Equal(t, rules.Email, top[0].Field)
		assert.Equal(t, rules.Postcode, top[1].Field)
		assert.Equal(t, rules.Name, top[2].Field)
		assert.True(t, top[0].UpdatedAt.After(top[0].CreatedAt))
	})

	t.Run("n larger than entries", func(t *testing.T) {
		assert.Len(t, tracker.TopN(50), 3)
		assert.Empty(t, tracker.TopN(0))
	})
}

func TestFailureTrackerConcurrentRecords(t *testing.T) {
	tracker := NewFailureTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Record(rules.Email, "bad email")
		}()
	}
	wg.Wait()

	top := tracker.TopN(1)
	require.Len(t, top, 1)
	assert.Equal(t, 50, top[0].Hits)
}

func TestMemoryFailureRepository(t *testing.T) {
	repo := NewMemoryFailureRepository(nil)
	ctx := context.Background()

	most, err := repo.GetMostFrequent(ctx)
	require.NoError(t, err)
	assert.Nil(t, most)

	_, err = repo.Record(ctx, rules.CardCVC, "Please enter a valid CVC")
	require.NoError(t, err)

	most, err = repo.GetMostFrequent(ctx)
	require.NoError(t, err)
	require.NotNil(t, most)
	assert.Equal(t, rules.CardCVC, most.Field)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.Record(cancelled, rules.CardCVC, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatisticsServiceRecordReport(t *testing.T) {
	service := NewStatisticsService(NewMemoryFailureRepository(nil))
	ctx := context.Background()

	report := form.New(nil, form.Props{Values: form.State{
		rules.Email:    {Value: "nope", Errors: []form.FieldError{{Message: "server rejected"}}},
		rules.Postcode: {Value: ""},
		rules.Name:     {Value: "Ada"},
	}}).Report()

	require.NoError(t, service.RecordReport(ctx, report))
	require.NoError(t, service.RecordReport(ctx, report))

	top, err := service.GetTopN(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	for _, entry := range top {
		assert.Equal(t, 2, entry.Hits)
		assert.NotEqual(t, rules.Name, entry.Field)
	}

	info, err := service.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", info.Backend)
	assert.Equal(t, "connected", info.Status)
}

func TestStatisticsServiceWrapsErrors(t *testing.T) {
	service := NewStatisticsService(&failingRepository{err: errStoreDown})
	ctx := context.Background()

	report := form.Report{Fields: map[rules.FieldID][]form.FieldError{
		rules.Email: {{Message: "bad"}},
	}}
	err := service.RecordReport(ctx, report)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = service.GetMostFrequent(ctx)
	assert.ErrorIs(t, err, errStoreDown)

	info, err := service.Health(ctx)
	assert.Error(t, err)
	assert.Equal(t, "disconnected", info.Status)
}
