package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/service/ratelimit"
	"ScoutSync/internal/usecase"
	xhttp "ScoutSync/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	files []string
	err   error
	last  *models.RunSummary
}

func (r *fakeRunner) Run(_ context.Context, files ...string) (*models.RunSummary, error) {
	r.files = files
	if r.err != nil {
		return nil, r.err
	}
	r.last = &models.RunSummary{RunID: "run-1", Results: []*models.ReconciliationResult{{File: "PX_USD.xlsx", Inserted: 2}}}
	return r.last, nil
}

func (r *fakeRunner) LastRun() (*models.RunSummary, bool) { return r.last, r.last != nil }

type fakeHealth struct{ err error }

func (h fakeHealth) Health(context.Context) error { return h.err }

func newTestEcho(runner Runner, health HealthChecker, limiter *ratelimit.Limiter) *echo.Echo {
	e := echo.New()
	NewRunsEchoHandler(nil, runner, health, limiter).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) xhttp.APIResponse {
	t.Helper()
	var out xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestTriggerRunsGivenFiles(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEcho(runner, nil, nil)

	rec := do(e, http.MethodPost, "/api/runs", `{"files":["/in/PX_USD.xlsx"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"/in/PX_USD.xlsx"}, runner.files)

	data := decode(t, rec).Data.(map[string]interface{})
	assert.Equal(t, "run-1", data["run_id"])
}

func TestTriggerValidatesFiles(t *testing.T) {
	e := newTestEcho(&fakeRunner{}, nil, nil)

	rec := do(e, http.MethodPost, "/api/runs", `{"files":["notes.txt"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_ENDSWITH")
}

func TestTriggerConflict(t *testing.T) {
	e := newTestEcho(&fakeRunner{err: usecase.ErrRunInProgress}, nil, nil)

	rec := do(e, http.MethodPost, "/api/runs", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_CONFLICT")
}

func TestTriggerFailure(t *testing.T) {
	e := newTestEcho(&fakeRunner{err: errors.New("fetch files: timeout")}, nil, nil)

	rec := do(e, http.MethodPost, "/api/runs", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTriggerRateLimited(t *testing.T) {
	e := newTestEcho(&fakeRunner{}, nil, ratelimit.New(1, 0))

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/runs", `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/api/runs", `{}`).Code)
}

func TestLastRun(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEcho(runner, nil, nil)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/runs/last", "").Code)

	_, _ = runner.Run(context.Background())
	rec := do(e, http.MethodGet, "/api/runs/last", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(newTestEcho(&fakeRunner{}, fakeHealth{}, nil), http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		do(newTestEcho(&fakeRunner{}, fakeHealth{err: errors.New("dial tcp")}, nil), http.MethodGet, "/healthz", "").Code)
}
