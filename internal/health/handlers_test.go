package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/health"
)

type stubChecker struct {
	redisErr   error
	rulesetErr error
}

func (s stubChecker) PingRedis(_ context.Context, _ time.Duration) error {
	return s.redisErr
}

func (s stubChecker) CheckRuleset(context.Context) error {
	return s.rulesetErr
}

func ready(t *testing.T, handler health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	return rr.Code, status
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	cases := []struct {
		name    string
		checker stubChecker
		code    int
		redis   string
		ruleset string
	}{
		{name: "all ok", checker: stubChecker{}, code: http.StatusOK, redis: "ok", ruleset: "ok"},
		{name: "redis disabled", checker: stubChecker{redisErr: health.ErrDisabled}, code: http.StatusOK, redis: "disabled", ruleset: "ok"},
		{name: "redis down", checker: stubChecker{redisErr: errors.New("redis down")}, code: http.StatusServiceUnavailable, redis: "redis down", ruleset: "ok"},
		{name: "ruleset missing", checker: stubChecker{rulesetErr: errors.New("no campaigns loaded")}, code: http.StatusServiceUnavailable, redis: "ok", ruleset: "no campaigns loaded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, status := ready(t, health.Handler{Checker: tc.checker, RedisTimeout: 10 * time.Millisecond})
			require.Equal(t, tc.code, code)
			require.Equal(t, tc.redis, status["redis"])
			require.Equal(t, tc.ruleset, status["ruleset"])
		})
	}
}

func TestReadyWithoutChecker(t *testing.T) {
	code, _ := ready(t, health.Handler{})
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadinessAfterShutdown(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}}
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(true)
	code, _ := ready(t, handler)
	require.Equal(t, http.StatusOK, code)

	health.SetReady(false)
	code, status := ready(t, handler)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", status["status"])
}
