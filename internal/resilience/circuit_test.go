package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/obs"
)

var registerOnce sync.Once

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(target string) (*Breaker, *fakeClock) {
	registerOnce.Do(func() { obs.MustRegisterDomainMetrics("resilience_test", prometheus.NewRegistry()) })
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(target, 2, 0.5, time.Second)
	b.now = clock.now
	return b, clock
}

var errDown = errors.New("connection refused")

func TestBreakerTransitions(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker("redis-transitions")

	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return errDown }), errDown)
	require.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return errDown }), errDown)
	require.Equal(t, Open, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpenCircuit)
	require.False(t, called)
	require.Equal(t, float64(1), testutil.ToFloat64(obs.BreakerState.WithLabelValues("redis-transitions")))

	clock.advance(time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "only one probe while half-open")
	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())

	require.Equal(t, float64(1), testutil.ToFloat64(obs.BreakerTransitions.WithLabelValues("redis-transitions", "closed", "open")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.BreakerTransitions.WithLabelValues("redis-transitions", "open", "half_open")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.BreakerTransitions.WithLabelValues("redis-transitions", "half_open", "closed")))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker("redis-probe")
	b.Report(ctx, false)
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())

	clock.advance(2 * time.Second)
	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return errDown }), errDown)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))
}

func TestBreakerToleratesOccasionalFailures(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker("redis-healthy")
	for i := 0; i < 20; i++ {
		b.Report(ctx, true)
		b.Report(ctx, i%5 != 4)
	}
	require.Equal(t, Closed, b.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker("redis-cancel")
	for i := 0; i < 3; i++ {
		err := b.Do(ctx, func(context.Context) error { return context.Canceled })
		require.ErrorIs(t, err, context.Canceled)
	}
	require.Equal(t, Closed, b.State())
}

func TestNilBreakerRunsCall(t *testing.T) {
	var b *Breaker
	require.NoError(t, b.Do(context.Background(), func(context.Context) error { return nil }))
}
