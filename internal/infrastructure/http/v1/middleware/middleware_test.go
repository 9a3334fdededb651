package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"bizreports/internal/core/apperror"
	appctx "bizreports/internal/core/context"
	"bizreports/pkg/logger"
)

type stubValidator map[string]*appctx.UserContext

func (s stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("bad token")
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), Trace(), ErrorHandler())
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestAuth_And_RequirePermission(t *testing.T) {
	validator := stubValidator{
		"viewer": {UserID: "u1", TenantID: "a1", Permissions: []string{appctx.PermissionViewAll}},
		"basic":  {UserID: "u2", TenantID: "a1"},
		"admin":  {UserID: "u3", TenantID: "a1", IsAdmin: true},
	}
	ok := func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetTenantID(c.Request.Context()))
	}
	r := newTestRouter(Auth(validator), RequirePermission(appctx.PermissionViewAll), ok)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized, code: apperror.CodeUnauthorized},
		{name: "malformed header", header: "Token viewer", status: http.StatusUnauthorized, code: apperror.CodeUnauthorized},
		{name: "invalid token", header: "Bearer nope", status: http.StatusUnauthorized, code: apperror.CodeUnauthorized},
		{name: "no view_all", header: "Bearer basic", status: http.StatusForbidden, code: apperror.CodeForbidden},
		{name: "view_all", header: "Bearer viewer", status: http.StatusOK},
		{name: "admin", header: "bearer admin", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
			} else {
				assert.Equal(t, "a1", w.Body.String())
			}
		})
	}
}

func TestErrorHandler_HidesUnknownErrors(t *testing.T) {
	r := newTestRouter(func(c *gin.Context) {
		_ = c.Error(errors.New("connection refused to 10.0.0.3"))
	})

	w := do(r, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestErrorHandler_AppErrorDetails(t *testing.T) {
	r := newTestRouter(func(c *gin.Context) {
		_ = c.Error(apperror.NewConfiguration("bogus"))
	})

	w := do(r, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"report_type":"bogus"`)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestErrorHandler_LogsClientErrorsAtDebug(t *testing.T) {
	prev := logger.Default()
	t.Cleanup(func() { logger.SetDefault(prev) })
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetDefault(logger.FromZap(zap.New(core)))

	r := newTestRouter(func(c *gin.Context) {
		_ = c.Error(apperror.NewValidation("malformed date"))
	})
	require.Equal(t, http.StatusBadRequest, do(r, "").Code)

	entries := logs.FilterMessage("request rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, apperror.CodeValidation, entries[0].ContextMap()["code"])
	assert.Empty(t, logs.FilterLevelExact(zapcore.ErrorLevel).All())
}

func TestRecovery(t *testing.T) {
	r := newTestRouter(func(c *gin.Context) { panic("boom") })

	w := do(r, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, errorCode(t, w))
}
