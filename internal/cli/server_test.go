package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/update"
)

type fakeUpdater struct {
	got      *update.Request
	validate bool
	resp     *update.Response
	err      error
}

func (f *fakeUpdater) Update(_ context.Context, req *update.Request) (*update.Response, error) {
	f.got = req
	return f.resp, f.err
}

func (f *fakeUpdater) Validate(_ context.Context, req *update.Request) (*update.Response, error) {
	f.got = req
	f.validate = true
	return f.resp, f.err
}

func newTestServer(u Updater) http.Handler {
	return NewServer(u, engine.NewMetrics("test"), slog.New(slog.NewTextHandler(io.Discard, nil))).Handler()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestServer_Update(t *testing.T) {
	u := &fakeUpdater{resp: &update.Response{TrackingID: "t-1", Status: result.StatusOK}}
	h := newTestServer(u)

	rec := post(t, h, "/api/v1/update", `{"schema":"allowall","record":"001 00 *a1 *b870970","tracking_id":"t-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp update.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, result.StatusOK, resp.Status)
	require.NotNil(t, u.got)
	assert.Equal(t, "allowall", u.got.Schema)
	assert.False(t, u.validate)
}

func TestServer_ValidateRoute(t *testing.T) {
	u := &fakeUpdater{resp: &update.Response{Status: result.StatusOK}}

	rec := post(t, newTestServer(u), "/api/v1/validate", `{"record":"001 00 *a1 *b870970"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, u.validate)
}

func TestServer_MissingTrackingIDUsesRequestID(t *testing.T) {
	u := &fakeUpdater{resp: &update.Response{Status: result.StatusOK}}

	post(t, newTestServer(u), "/api/v1/update", `{"record":"001 00 *a1 *b870970"}`)

	require.NotNil(t, u.got)
	assert.NotEmpty(t, u.got.TrackingID)
}

func TestServer_RejectsBadBodies(t *testing.T) {
	h := newTestServer(&fakeUpdater{})

	for _, body := range []string{`{`, `{"unknown": 1}`} {
		rec := post(t, h, "/api/v1/update", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestServer_InvalidRequestErrorIsBadRequest(t *testing.T) {
	u := &fakeUpdater{
		resp: &update.Response{Status: result.StatusInternalError},
		err:  engine.NewInvalidRequestError("unknown queue provider", map[string]string{"provider": "x"}),
	}

	rec := post(t, newTestServer(u), "/api/v1/update", `{"record":"001 00 *a1 *b870970"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RuntimeErrorReturnsPartialResponse(t *testing.T) {
	u := &fakeUpdater{
		resp: &update.Response{TrackingID: "t-2", Status: result.StatusInternalError},
		err:  errors.New("database is gone"),
	}

	rec := post(t, newTestServer(u), "/api/v1/update", `{"record":"001 00 *a1 *b870970"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp update.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "t-2", resp.TrackingID)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	h := newTestServer(&fakeUpdater{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/update", &bytes.Buffer{}))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
