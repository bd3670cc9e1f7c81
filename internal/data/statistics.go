package data

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"formfields/internal/form"
	"formfields/internal/rules"
)

// FailureEntry counts how often a field failed with a given message.
type FailureEntry struct {
	// ID is the database primary key (not exposed in JSON responses)
	ID int64 `db:"id" json:"-"`
	// Key is the hash of field and message (not exposed)
	Key     string        `db:"failure_key" json:"-"`
	Field   rules.FieldID `db:"field" json:"field"`
	Message string        `db:"message" json:"message"`
	Hits    int           `db:"hits" json:"hits"`
	// CreatedAt is when this failure was first seen
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	// UpdatedAt is when this failure was last seen
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FailureKey identifies a field/message pair.
func FailureKey(field rules.FieldID, message string) string {
	hash := sha256.Sum256([]byte(string(field) + "\x00" + message))
	return hex.EncodeToString(hash[:])
}

// byHitsDesc orders by hits descending, then first seen, then field.
func byHitsDesc(a, b *FailureEntry) int {
	if c := cmp.Compare(b.Hits, a.Hits); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Field, b.Field)
}

// FailureTracker is an in-memory failure counter safe for concurrent use.
// It backs the service when no database is configured and serves as the
// fallback while the database is unreachable.
type FailureTracker struct {
	mu      sync.RWMutex
	entries map[string]*FailureEntry
	now     func() time.Time
}

// NewFailureTracker creates an empty tracker.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{
		entries: make(map[string]*FailureEntry),
		now:     time.Now,
	}
}

// Record counts one failure and returns a copy of the updated entry.
func (ft *FailureTracker) Record(field rules.FieldID, message string) FailureEntry {
	key := FailureKey(field, message)
	now := ft.now()

	ft.mu.Lock()
	defer ft.mu.Unlock()

	entry, exists := ft.entries[key]
	if !exists {
		entry = &FailureEntry{
			Key:       key,
			Field:     field,
			Message:   message,
			CreatedAt: now,
		}
		ft.entries[key] = entry
	}
	entry.Hits++
	entry.UpdatedAt = now

	return *entry
}

// TopN returns copies of the n most frequent failures.
func (ft *FailureTracker) TopN(n int) []*FailureEntry {
	if n <= 0 {
		return []*FailureEntry{}
	}

	ft.mu.RLock()
	all := make([]*FailureEntry, 0, len(ft.entries))
	for _, entry := range ft.entries {
		entryCopy := *entry
		all = append(all, &entryCopy)
	}
	ft.mu.RUnlock()

	slices.SortFunc(all, byHitsDesc)
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// EntryCount returns the number of distinct field/message pairs tracked.
func (ft *FailureTracker) EntryCount() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return len(ft.entries)
}

// MemoryFailureRepository adapts a FailureTracker to FailureRepository.
type MemoryFailureRepository struct {
	tracker *FailureTracker
}

// NewMemoryFailureRepository wraps tracker. A nil tracker gets a fresh one.
func NewMemoryFailureRepository(tracker *FailureTracker) *MemoryFailureRepository {
	if tracker == nil {
		tracker = NewFailureTracker()
	}
	return &MemoryFailureRepository{tracker: tracker}
}

func (m *MemoryFailureRepository) Record(ctx context.Context, field rules.FieldID, message string) (*FailureEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := m.tracker.Record(field, message)
	return &entry, nil
}

func (m *MemoryFailureRepository) GetMostFrequent(ctx context.Context) (*FailureEntry, error) {
	top, err := m.GetTopN(ctx, 1)
	if err != nil || len(top) == 0 {
		return nil, err
	}
	return top[0], nil
}

func (m *MemoryFailureRepository) GetTopN(ctx context.Context, n int) ([]*FailureEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.tracker.TopN(n), nil
}

func (m *MemoryFailureRepository) Close() error {
	return nil
}

var _ FailureRepository = (*MemoryFailureRepository)(nil)

// StatisticsService records which fields fail validation and how often.
type StatisticsService struct {
	repository FailureRepository
	backend    string
}

// NewStatisticsService creates a service over repository.
func NewStatisticsService(repository FailureRepository) *StatisticsService {
	backend := "memory"
	switch repository.(type) {
	case *PostgreSQLFailureRepository:
		backend = "postgres"
	case *CircuitBreakerRepository:
		backend = "postgres+fallback"
	}
	return &StatisticsService{
		repository: repository,
		backend:    backend,
	}
}

// RecordReport counts every error message of every failing field in report.
// All messages are attempted; the errors are joined.
func (ss *StatisticsService) RecordReport(ctx context.Context, report form.Report) error {
	var errs []error
	for _, field := range slices.Sorted(maps.Keys(report.Fields)) {
		for _, fieldErr := range report.Fields[field] {
			if _, err := ss.repository.Record(ctx, field, fieldErr.Message); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("statistics service record failed: %w", errors.Join(errs...))
	}
	return nil
}

// GetMostFrequent returns the most frequent failure, or nil when none were recorded.
func (ss *StatisticsService) GetMostFrequent(ctx context.Context) (*FailureEntry, error) {
	entry, err := ss.repository.GetMostFrequent(ctx)
	if err != nil {
		return nil, fmt.Errorf("statistics service get most frequent failed: %w", err)
	}
	return entry, nil
}

// GetTopN returns the n most frequent failures.
func (ss *StatisticsService) GetTopN(ctx context.Context, n int) ([]*FailureEntry, error) {
	entries, err := ss.repository.GetTopN(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("statistics service get top %d failed: %w", n, err)
	}
	return entries, nil
}

// Health reports on the underlying store.
func (ss *StatisticsService) Health(ctx context.Context) (StoreHealthInfo, error) {
	start := time.Now()
	info := StoreHealthInfo{Backend: ss.backend, Status: "connected"}

	var err error
	switch repo := ss.repository.(type) {
	case *PostgreSQLFailureRepository:
		info, err = repo.Health(ctx)
	case *CircuitBreakerRepository:
		info, err = repo.Health(ctx)
	default:
		_, err = ss.repository.GetMostFrequent(ctx)
	}
	info.Backend = ss.backend
	if err != nil {
		info.Status = "disconnected"
		info.ResponseTimeMs = -1
		return info, err
	}
	if info.ResponseTimeMs == 0 {
		info.ResponseTimeMs = time.Since(start).Milliseconds()
	}
	return info, nil
}

// Close releases the repository.
func (ss *StatisticsService) Close() error {
	if ss.repository != nil {
		return ss.repository.Close()
	}
	return nil
}
