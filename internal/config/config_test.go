package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"APP_ENV":                    "",
		"PORT":                       "",
		"REDIS_URL":                  "",
		"RULESET_PATH":               "",
		"EVAL_CACHE_TTL":             "",
		"RATE_LIMIT":                 "",
		"BODY_LIMIT_BYTES":           "",
		"OBS_ENABLE_PROMETHEUS":      "",
		"OBS_ENABLE_TRACING":         "",
		"OBS_TRACING_SAMPLING_RATIO": "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.RedisURL)
	require.Empty(t, cfg.RulesetPath)
	require.Equal(t, 5*time.Minute, cfg.EvalCacheTTL)
	require.Equal(t, "300-M", cfg.RateLimit)
	require.Equal(t, int64(1<<20), cfg.BodyLimitBytes)
	require.True(t, cfg.Obs.EnablePrometheus)
	require.False(t, cfg.Obs.EnableTracing)
	require.Equal(t, float64(1), cfg.Obs.SamplingRatio)
	require.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"APP_ENV":                    "production",
		"PORT":                       ":9090",
		"REDIS_URL":                  "redis://localhost:6379/2",
		"RULESET_PATH":               "/etc/promo/rules.yaml",
		"EVAL_CACHE_TTL":             "30s",
		"RATE_LIMIT":                 "50-S",
		"BODY_LIMIT_BYTES":           "4096",
		"CORS_ALLOWED_ORIGINS":       "https://shop.example.com, ,https://admin.example.com",
		"OBS_ENABLE_PROMETHEUS":      "off",
		"OBS_ENABLE_TRACING":         "true",
		"OBS_TRACING_SAMPLING_RATIO": "0.25",
		"OBS_HTTP_BUCKETS_MS":        "5,x,50,-1",
	})
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "redis://localhost:6379/2", cfg.RedisURL)
	require.Equal(t, "/etc/promo/rules.yaml", cfg.RulesetPath)
	require.Equal(t, 30*time.Second, cfg.EvalCacheTTL)
	require.Equal(t, "50-S", cfg.RateLimit)
	require.Equal(t, int64(4096), cfg.BodyLimitBytes)
	require.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	require.False(t, cfg.Obs.EnablePrometheus)
	require.True(t, cfg.Obs.EnableTracing)
	require.Equal(t, 0.25, cfg.Obs.SamplingRatio)
	require.Equal(t, []float64{5, 50}, cfg.Obs.HTTPBuckets)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "rate format", env: map[string]string{"RATE_LIMIT": "fast"}},
		{name: "body limit", env: map[string]string{"RATE_LIMIT": "", "BODY_LIMIT_BYTES": "-1"}},
		{name: "sampling ratio", env: map[string]string{"RATE_LIMIT": "", "BODY_LIMIT_BYTES": "", "OBS_TRACING_SAMPLING_RATIO": "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadForTests(tc.env)
			require.Error(t, err)
		})
	}
}
