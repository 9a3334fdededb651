package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		status int
		want   map[string]string
	}{
		{name: "all healthy", checks: map[string]Pinger{"postgres": ok}, status: http.StatusOK, want: map[string]string{"postgres": "healthy"}},
		{name: "one down", checks: map[string]Pinger{"postgres": ok, "gotenberg": down}, status: http.StatusServiceUnavailable,
			want: map[string]string{"postgres": "healthy", "gotenberg": "unhealthy: refused"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks)
			r := gin.New()
			r.GET("/live", h.Live)
			r.GET("/ready", h.Ready)

			w := get(r, "/live", nil)
			assert.Equal(t, http.StatusOK, w.Code)

			w = get(r, "/ready", nil)
			assert.Equal(t, tt.status, w.Code)
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Checks)
		})
	}
}
