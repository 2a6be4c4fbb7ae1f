package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/pipeline/pipelinetest"
	"github.com/aretw0/reel/pkg/domain"
)

func newTestGenerator(t *testing.T, f *pipelinetest.Fakes) *reel.Generator {
	t.Helper()
	var seq atomic.Int64
	gen, err := reel.New(f.Collaborators(),
		reel.WithWorkspace(t.TempDir(), false),
		reel.WithIDGenerator(func() string { return fmt.Sprintf("run-%d", seq.Add(1)) }),
	)
	require.NoError(t, err)
	return gen
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGenerate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := NewHandler(newTestGenerator(t, pipelinetest.New()))

		w := do(t, h, http.MethodPost, "/generate", `{"concept":"Pythagorean theorem","language":"en-US"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var res domain.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, domain.Result{
			RunID:           "run-1",
			Status:          domain.StatusSuccess,
			OutputReference: "/static/videos/run-1_final.mp4",
		}, res)
	})

	t.Run("failed run reports the cause", func(t *testing.T) {
		f := pipelinetest.New()
		f.PlanFn = func(string) ([]domain.Scene, error) {
			return nil, domain.Fatal(errors.New("quota exhausted"))
		}
		h := NewHandler(newTestGenerator(t, f))

		w := do(t, h, http.MethodPost, "/generate", `{"concept":"limits"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var res domain.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, domain.CategoryFatal, res.Category)
		assert.Empty(t, res.OutputReference)
	})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing concept", `{"language":"en-US"}`, `missing \"concept\"`},
		{"blank concept", `{"concept":" \n\t "}`, `missing \"concept\"`},
		{"malformed json", `{"concept":`, "invalid request body"},
		{"oversized concept", `{"concept":"` + strings.Repeat("x", 5000) + `"}`, "invalid concept"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := pipelinetest.New()
			h := NewHandler(newTestGenerator(t, f))

			w := do(t, h, http.MethodPost, "/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Zero(t, f.Calls("plan"))
		})
	}
}

func TestSubmitAndLookup(t *testing.T) {
	gen := newTestGenerator(t, pipelinetest.New())
	h := NewHandler(gen)

	w := do(t, h, http.MethodPost, "/runs", `{"concept":"derivatives"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "/runs/run-1", w.Header().Get("Location"))

	var accepted AcceptedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, "run-1", accepted.RunID)
	assert.Equal(t, domain.StatusRunning, accepted.Status)

	gen.Wait()

	w = do(t, h, http.MethodGet, "/runs/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec domain.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.StatusSuccess, rec.Status)
	assert.Equal(t, "derivatives", rec.Concept)

	w = do(t, h, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "run-1", list[0].ID)
}

func TestSubmitRun_RejectsWhenSlotsAreTaken(t *testing.T) {
	release := make(chan struct{})
	f := pipelinetest.New()
	f.PlanFn = func(string) ([]domain.Scene, error) {
		<-release
		return []domain.Scene{{Title: "Only", Description: "one scene"}}, nil
	}
	gen := newTestGenerator(t, f)
	h := NewHandler(gen, WithMaxConcurrentRuns(1))

	w := do(t, h, http.MethodPost, "/runs", `{"concept":"first"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, h, http.MethodPost, "/runs", `{"concept":"second"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	close(release)
	gen.Wait()

	// The slot is returned once the background run finishes.
	w = do(t, h, http.MethodPost, "/runs", `{"concept":"third"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	gen.Wait()
}

func TestGetRun_NotFound(t *testing.T) {
	h := NewHandler(newTestGenerator(t, pipelinetest.New()))

	w := do(t, h, http.MethodGet, "/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestListRuns_BadLimit(t *testing.T) {
	h := NewHandler(newTestGenerator(t, pipelinetest.New()))

	w := do(t, h, http.MethodGet, "/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/runs?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetGraph(t *testing.T) {
	h := NewHandler(newTestGenerator(t, pipelinetest.New()))

	w := do(t, h, http.MethodGet, "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))
	assert.Contains(t, w.Body.String(), "generate_script")
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(newTestGenerator(t, pipelinetest.New()))

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), reel.Version)
}

func TestOptionalMounts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run-9_final.mp4"), []byte("final"), 0o644))

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("reel_runs_started_total 0\n"))
	})
	gen := newTestGenerator(t, pipelinetest.New())

	bare := NewHandler(gen)
	assert.Equal(t, http.StatusNotFound, do(t, bare, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, bare, http.MethodGet, "/static/videos/run-9_final.mp4", "").Code)

	h := NewHandler(gen, WithMetrics(metrics), WithStaticDir(dir))

	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reel_runs_started_total")

	w = do(t, h, http.MethodGet, "/static/videos/run-9_final.mp4", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "final", w.Body.String())
}

func TestCORS(t *testing.T) {
	h := NewHandler(newTestGenerator(t, pipelinetest.New()), WithCORSOrigins("https://app.example.com"))

	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGenerate_CanceledRequest(t *testing.T) {
	f := pipelinetest.New()
	h := NewHandler(newTestGenerator(t, f))

	ctx, cancel := context.WithCancel(context.Background())
	f.PlanFn = func(string) ([]domain.Scene, error) {
		cancel()
		return []domain.Scene{{Title: "Only", Description: "one scene"}}, nil
	}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"concept":"series"}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.CategoryCanceled))
	assert.Zero(t, f.Calls("generate"))
}
