package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:5000", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, remote: "10.0.0.2:5000", want: "198.51.100.4"},
		{name: "remote addr", remote: "192.0.2.10:443", want: "192.0.2.10"},
		{name: "remote without port", remote: "192.0.2.11", want: "192.0.2.11"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, ClientIP(req))
		})
	}
	require.Empty(t, ClientIP(nil))
}

func TestHashJSONStable(t *testing.T) {
	a, err := HashJSON(map[string]any{"b": 1, "a": []int{1, 2}})
	require.NoError(t, err)
	b, err := HashJSON(map[string]any{"a": []int{1, 2}, "b": 1})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c, err := HashJSON(map[string]any{"a": []int{2, 1}, "b": 1})
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestWriteError(t *testing.T) {
	t.Run("app error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		cause := errors.New("quantity must be positive")
		appErr := NewAppError(CodeValidationFailed, "invalid cart", http.StatusUnprocessableEntity, cause).
			WithDetails(map[string]string{"field": "quantity"})
		WriteError(rec, fmt.Errorf("checkout: %w", appErr))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body struct {
			Error struct {
				Code    string            `json:"code"`
				Message string            `json:"message"`
				Details map[string]string `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, CodeValidationFailed, body.Error.Code)
		require.Equal(t, "invalid cart", body.Error.Message)
		require.Equal(t, "quantity", body.Error.Details["field"])
		require.ErrorIs(t, appErr, cause)
	})

	t.Run("plain error hides text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("redis: connection refused"))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "redis")
		require.Contains(t, rec.Body.String(), CodeInternal)
	})
}

func TestData(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, http.StatusOK, []string{"a", "b"})
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":["a","b"]}`, rec.Body.String())
}
