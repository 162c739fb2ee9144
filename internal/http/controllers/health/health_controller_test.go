package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	svc "github.com/dropDatabas3/accounts/internal/http/services/health"
	"github.com/stretchr/testify/assert"
)

func TestReadyz(t *testing.T) {
	c := NewHealthController(svc.NewHealthService(svc.Deps{
		Version: "1.2.3",
		DBCheck: func(context.Context) error { return errors.New("no primary") },
	}))

	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1.2.3", rec.Header().Get("X-Service-Version"))
	assert.Contains(t, rec.Body.String(), `"status":"unavailable"`)

	rec = httptest.NewRecorder()
	c.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
