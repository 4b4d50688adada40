package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp 127.0.0.1:6379: connection refused") }
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	tests := []struct {
		name   string
		checks map[string]HealthCheck
		status int
		want   map[string]string
	}{
		{
			name:   "No dependencies",
			status: http.StatusOK,
		},
		{
			name:   "All healthy",
			checks: map[string]HealthCheck{"database": ok, "redis": ok},
			status: http.StatusOK,
			want:   map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name:   "Redis down",
			checks: map[string]HealthCheck{"database": ok, "redis": down},
			status: http.StatusServiceUnavailable,
			want:   map[string]string{"database": "ok", "redis": "dial tcp 127.0.0.1:6379: connection refused"},
		},
		{
			name:   "Probe exceeds timeout",
			checks: map[string]HealthCheck{"database": slow},
			status: http.StatusServiceUnavailable,
			want:   map[string]string{"database": context.DeadlineExceeded.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("1.2.3", tt.checks)
			h.checkTimeout = 50 * time.Millisecond
			r := gin.New()
			r.GET("/health", h.Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.status, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if tt.status == http.StatusOK {
				assert.Equal(t, "ok", resp.Status)
			} else {
				assert.Equal(t, "unavailable", resp.Status)
			}
			if tt.want != nil {
				assert.Equal(t, tt.want, resp.Checks)
			}
		})
	}
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("1.2.3", nil)
	r := gin.New()
	r.GET("/api/v1/system/info", h.Info)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var info SystemInfoResponse
	dataInto(t, w, &info)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}
