package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("blob store unavailable")

// BreakerSettings tunes the circuit breaker around a remote store.
type BreakerSettings struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
}

// DefaultBreakerSettings mirror what the server uses when nothing is configured.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

type breakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next so that repeated failures stop hitting the backend.
// Not-found and invalid-key results do not count as failures.
func WithBreaker(next Store, st BreakerSettings, log *zap.Logger) Store {
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "blob",
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < st.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= st.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey)
		},
	})
	return &breakerStore{next: next, cb: cb}
}

func (b *breakerStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Put(ctx, key, r, contentType)
	})
	return b.wrap(err)
}

type getResult struct {
	info Info
	body io.ReadCloser
}

func (b *breakerStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		info, body, err := b.next.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{info: info, body: body}, nil
	})
	if err != nil {
		return Info{}, nil, b.wrap(err)
	}
	g := res.(getResult)
	return g.info, g.body, nil
}

func (b *breakerStore) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return b.wrap(err)
}

func (b *breakerStore) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
