// Package resilience guards backing stores with circuit breakers.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"snippets-backend/application/ports"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	pkgerrors "snippets-backend/pkg/errors"
	"snippets-backend/pkg/observability"
)

// BreakerConfig holds configuration for a store circuit breaker
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	// trip once at least MinRequests were seen and this share failed
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the default configuration
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerStore fails fast with SourceUnavailable while the wrapped store
// keeps failing. Only infrastructure failures count against the breaker;
// auth and domain errors pass through as successes.
type BreakerStore[K valueobjects.Key] struct {
	next ports.NodeStore[K]
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next with a circuit breaker
func NewBreakerStore[K valueobjects.Key](next ports.NodeStore[K], cfg BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *BreakerStore[K] {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerState(name, float64(to))
		},
		IsSuccessful: countsAsSuccess,
	})
	metrics.SetBreakerState(cfg.Name, float64(gobreaker.StateClosed))

	return &BreakerStore[K]{next: next, cb: cb}
}

func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	if de := pkgerrors.GetDomainError(err); de != nil {
		return de.Type != pkgerrors.DomainInfrastructureError
	}
	return false
}

// State returns the current breaker state
func (s *BreakerStore[K]) State() gobreaker.State {
	return s.cb.State()
}

func execute[K valueobjects.Key, T any](s *BreakerStore[K], fn func() (T, error)) (T, error) {
	var zero T
	result, err := s.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var id K
		return zero, pkgerrors.NewSourceUnavailableError(id.Provenance().String(), err).
			WithDetail("breaker", s.cb.State().String())
	}
	if err != nil {
		return zero, err
	}
	r, _ := result.(T)
	return r, nil
}

func run[K valueobjects.Key](s *BreakerStore[K], fn func() error) error {
	_, err := execute(s, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (s *BreakerStore[K]) ListChildren(ctx context.Context, parentID *K) ([]entities.Node[K], error) {
	return execute(s, func() ([]entities.Node[K], error) {
		return s.next.ListChildren(ctx, parentID)
	})
}

func (s *BreakerStore[K]) ListAll(ctx context.Context) ([]entities.Node[K], error) {
	return execute(s, func() ([]entities.Node[K], error) {
		return s.next.ListAll(ctx)
	})
}

func (s *BreakerStore[K]) GetOne(ctx context.Context, id K) (*entities.Node[K], error) {
	return execute(s, func() (*entities.Node[K], error) {
		return s.next.GetOne(ctx, id)
	})
}

func (s *BreakerStore[K]) Save(ctx context.Context, node entities.Node[K]) (entities.Node[K], error) {
	saved, err := execute(s, func() (entities.Node[K], error) {
		return s.next.Save(ctx, node)
	})
	if err != nil {
		return node, err
	}
	return saved, nil
}

func (s *BreakerStore[K]) Delete(ctx context.Context, id K) error {
	return run(s, func() error {
		return s.next.Delete(ctx, id)
	})
}

func (s *BreakerStore[K]) Move(ctx context.Context, nodeID, destinationGroupID K) error {
	return run(s, func() error {
		return s.next.Move(ctx, nodeID, destinationGroupID)
	})
}

func (s *BreakerStore[K]) NextID(ctx context.Context) (K, error) {
	return execute(s, func() (K, error) {
		return s.next.NextID(ctx)
	})
}
