package data

import (
	"context"
	"errors"
	"time"

	"formfields/internal/jsonlog"
	"formfields/internal/rules"
)

// CircuitBreakerRepository wraps a FailureRepository with a circuit breaker and
// an in-memory fallback. While the primary is failing, hits are counted in the
// fallback tracker and reads are served from it, so statistics degrade instead
// of failing.
type CircuitBreakerRepository struct {
	repository     FailureRepository
	circuitBreaker *CircuitBreaker
	fallback       *FailureTracker
	logger         *jsonlog.Logger
}

// NewCircuitBreakerRepository wraps repository using DefaultCircuitBreakerConfig.
func NewCircuitBreakerRepository(repository FailureRepository, logger *jsonlog.Logger) *CircuitBreakerRepository {
	return NewCircuitBreakerRepositoryWithConfig(repository, logger, DefaultCircuitBreakerConfig())
}

// NewCircuitBreakerRepositoryWithConfig wraps repository with a breaker built from config.
func NewCircuitBreakerRepositoryWithConfig(repository FailureRepository, logger *jsonlog.Logger, config CircuitBreakerConfig) *CircuitBreakerRepository {
	return &CircuitBreakerRepository{
		repository:     repository,
		circuitBreaker: NewCircuitBreaker(config),
		fallback:       NewFailureTracker(),
		logger:         logger.With("component", "statistics"),
	}
}

// Record implements FailureRepository.Record. Failures of the primary are
// logged and the hit is counted in the fallback; no error is returned then.
func (cbr *CircuitBreakerRepository) Record(ctx context.Context, field rules.FieldID, message string) (*FailureEntry, error) {
	var entry *FailureEntry
	err := cbr.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		entry, err = cbr.repository.Record(ctx, field, message)
		return err
	})
	if err == nil {
		return entry, nil
	}

	cbr.logFailure(ctx, "Record", err)
	fallbackEntry := cbr.fallback.Record(field, message)
	return &fallbackEntry, nil
}

// GetMostFrequent implements FailureRepository.GetMostFrequent.
func (cbr *CircuitBreakerRepository) GetMostFrequent(ctx context.Context) (*FailureEntry, error) {
	entries, err := cbr.GetTopN(ctx, 1)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

// GetTopN implements FailureRepository.GetTopN, answering from the fallback
// while the primary is unavailable.
func (cbr *CircuitBreakerRepository) GetTopN(ctx context.Context, n int) ([]*FailureEntry, error) {
	var entries []*FailureEntry
	err := cbr.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		entries, err = cbr.repository.GetTopN(ctx, n)
		return err
	})
	if err == nil {
		return entries, nil
	}

	cbr.logFailure(ctx, "GetTopN", err)
	return cbr.fallback.TopN(n), nil
}

// Close implements FailureRepository.Close.
func (cbr *CircuitBreakerRepository) Close() error {
	return cbr.repository.Close()
}

// Health reports the primary's health along with the circuit state.
func (cbr *CircuitBreakerRepository) Health(ctx context.Context) (StoreHealthInfo, error) {
	info := StoreHealthInfo{Status: "connected"}
	var err error

	if pg, ok := cbr.repository.(*PostgreSQLFailureRepository); ok {
		info, err = pg.Health(ctx)
	} else {
		start := time.Now()
		_, err = cbr.repository.GetTopN(ctx, 1)
		info.ResponseTimeMs = time.Since(start).Milliseconds()
	}

	info.CircuitState = cbr.circuitBreaker.State().String()
	if err != nil {
		info.Status = "disconnected"
		info.ResponseTimeMs = -1
	}
	return info, err
}

// Stats returns the breaker statistics.
func (cbr *CircuitBreakerRepository) Stats() CircuitBreakerStats {
	return cbr.circuitBreaker.GetStats()
}

func (cbr *CircuitBreakerRepository) logFailure(ctx context.Context, operation string, err error) {
	state := cbr.circuitBreaker.GetStats()
	if errors.Is(err, ErrCircuitBreakerOpen) {
		cbr.logger.DebugWithContext(ctx, "statistics store skipped, using fallback",
			"circuit_breaker_state", state.State.String(),
			"operation", operation)
		return
	}
	cbr.logger.WarnWithContext(ctx, "statistics store operation failed, using fallback",
		"error", err,
		"circuit_breaker_state", state.State.String(),
		"failures", state.Failures,
		"operation", operation)
}

var _ FailureRepository = (*CircuitBreakerRepository)(nil)
