package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iammusic/submissions/internal/config"
	"github.com/iammusic/submissions/internal/errs"
	"github.com/iammusic/submissions/internal/model"
	"github.com/iammusic/submissions/internal/repository/memory"
	"github.com/iammusic/submissions/internal/service"
)

const path = "/api/save-text"

var httpCfg = config.HTTPConfig{Path: path}

type fakeService struct {
	res   model.Result
	err   error
	panic bool
	got   []service.SubmitRequest
}

func (f *fakeService) Submit(_ context.Context, req service.SubmitRequest) (model.Result, error) {
	if f.panic {
		panic("boom")
	}
	f.got = append(f.got, req)
	return f.res, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type failingAppendRepo struct{ *memory.Store }

func (failingAppendRepo) Append(context.Context, model.Draft) (model.Submission, error) {
	return model.Submission{}, errors.New("pq: password authentication failed for user \"svc\" at 10.0.0.5")
}

func newE2E(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := service.NewSubmissionService(st, zaptest.NewLogger(t), service.Options{DedupWindow: 30 * time.Second})
	return NewRouter(httpCfg, svc, st, zaptest.NewLogger(t)), st
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), "body: %s", w.Body.String())
	return m
}

func requireCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestE2E_FirstSubmissionSaved_ThenDuplicateSuppressed(t *testing.T) {
	h, st := newE2E(t)

	w := do(h, http.MethodPost, path, `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	requireCORS(t, w)
	body := decode(t, w)
	require.Equal(t, true, body["saved"])
	require.Equal(t, "Text saved successfully", body["message"])

	recs := st.All()
	require.Len(t, recs, 1)
	require.Equal(t, "hello", recs[0].Text)
	require.Nil(t, recs[0].IP)
	require.Nil(t, recs[0].OS)

	w = do(h, http.MethodPost, path, `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	require.Equal(t, false, body["saved"])
	require.Equal(t, "Duplicate entry, not saved", body["message"])
	require.Len(t, st.All(), 1)
}

func TestE2E_DifferentMetadataSaved(t *testing.T) {
	h, st := newE2E(t)

	require.Equal(t, true, decode(t, do(h, http.MethodPost, path, `{"text":"hi","ip":"1.1.1.1","os":"iOS"}`))["saved"])
	require.Equal(t, true, decode(t, do(h, http.MethodPost, path, `{"text":"hi","ip":"1.1.1.1","os":"Android"}`))["saved"])
	require.Len(t, st.All(), 2)
}

func TestE2E_ValidationErrors(t *testing.T) {
	h, st := newE2E(t)

	cases := []struct {
		body string
		code string
	}{
		{`{"text":""}`, "EmptyText"},
		{`{"text":"    "}`, "EmptyText"},
		{`{}`, "EmptyText"},
		{`{"text":"` + strings.Repeat("x", 26) + `"}`, "TextTooLong"},
	}
	for _, c := range cases {
		w := do(h, http.MethodPost, path, c.body)
		require.Equal(t, http.StatusBadRequest, w.Code, c.body)
		requireCORS(t, w)
		body := decode(t, w)
		require.Equal(t, c.code, body["error"])
		require.NotEmpty(t, body["message"])
	}
	require.Empty(t, st.All())
}

func TestE2E_InvalidJSON(t *testing.T) {
	h, _ := newE2E(t)

	for _, b := range []string{`{"text":`, `{"text":42}`, `[1,2]`} {
		w := do(h, http.MethodPost, path, b)
		require.Equal(t, http.StatusBadRequest, w.Code, b)
		require.Equal(t, "InvalidJSON", decode(t, w)["error"])
	}
}

func TestE2E_BodyTooLarge(t *testing.T) {
	h, st := newE2E(t)

	big := `{"text":"hi","location":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	w := do(h, http.MethodPost, path, big)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, st.All())
}

func TestE2E_Options(t *testing.T) {
	h, _ := newE2E(t)

	w := do(h, http.MethodOptions, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())
	requireCORS(t, w)
}

func TestE2E_Get(t *testing.T) {
	h, st := newE2E(t)

	w := do(h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Use POST to save text", decode(t, w)["message"])
	require.Empty(t, st.All())
}

func TestE2E_OtherMethods405(t *testing.T) {
	h, _ := newE2E(t)

	for _, m := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := do(h, m, path, "")
		require.Equal(t, http.StatusMethodNotAllowed, w.Code, m)
		require.Equal(t, "Method not allowed", decode(t, w)["error"])
		requireCORS(t, w)
	}
}

func TestE2E_AppendFailureIsGeneric500(t *testing.T) {
	st := failingAppendRepo{memory.New()}
	svc := service.NewSubmissionService(st, zaptest.NewLogger(t), service.Options{})
	h := NewRouter(httpCfg, svc, st, zaptest.NewLogger(t))

	w := do(h, http.MethodPost, path, `{"text":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	requireCORS(t, w)
	require.Equal(t, "Internal server error", decode(t, w)["error"])
	require.NotContains(t, w.Body.String(), "password")
	require.NotContains(t, w.Body.String(), "10.0.0.5")
	require.NotContains(t, w.Body.String(), "append")
}

func TestSubmit_PassesFingerprint(t *testing.T) {
	fs := &fakeService{res: model.Result{Outcome: model.OutcomeAccepted, Saved: true}}
	h := NewRouter(httpCfg, fs, fakePinger{}, zaptest.NewLogger(t))

	do(h, http.MethodPost, path, `{"text":"x","city":"Oslo"}`)
	require.Len(t, fs.got, 1)
	require.Len(t, fs.got[0].Fingerprint, 64)
	require.Equal(t, "Oslo", *fs.got[0].Input.City)
	require.Nil(t, fs.got[0].Input.Region)
}

func TestSubmit_RateLimited(t *testing.T) {
	fs := &fakeService{err: &errs.RetryError{After: 2500 * time.Millisecond}}
	h := NewRouter(httpCfg, fs, fakePinger{}, zaptest.NewLogger(t))

	w := do(h, http.MethodPost, path, `{"text":"x"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "3", w.Header().Get("Retry-After"))
	require.Equal(t, "RateLimited", decode(t, w)["error"])
}

func TestSubmit_PanicRecovered(t *testing.T) {
	h := NewRouter(httpCfg, &fakeService{panic: true}, fakePinger{}, zaptest.NewLogger(t))

	w := do(h, http.MethodPost, path, `{"text":"x"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal server error", decode(t, w)["error"])
	require.NotContains(t, w.Body.String(), "boom")
}

func TestProbes(t *testing.T) {
	log := zaptest.NewLogger(t)
	svc := &fakeService{}

	h := NewRouter(httpCfg, svc, fakePinger{}, log)
	w := do(h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", decode(t, w)["status"])

	w = do(h, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)

	h = NewRouter(httpCfg, svc, fakePinger{err: errors.New("dial tcp 10.0.0.5:5432")}, log)
	w = do(h, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotContains(t, w.Body.String(), "10.0.0.5")

	w = do(h, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	requireCORS(t, w)
}
