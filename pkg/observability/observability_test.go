package observability

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reel/pkg/domain"
)

func TestMetricsHooks(t *testing.T) {
	m := NewMetrics()
	h := m.Hooks()
	ctx := context.Background()

	h.OnRunStart(ctx, &domain.RunEvent{})
	assert.Contains(t, scrape(t, m), "reel_runs_active 1")

	h.OnStepLeave(ctx, &domain.StepEvent{Step: "render", Outcome: domain.OutcomeRecoverable, Duration: time.Second})
	h.OnStepLeave(ctx, &domain.StepEvent{Step: "render", Outcome: domain.OutcomeOK, Duration: time.Second})
	h.OnRoute(ctx, &domain.RouteEvent{From: "render", To: "research_error", Spent: domain.BudgetRender})
	h.OnRoute(ctx, &domain.RouteEvent{From: "render", To: "evaluate"})
	h.OnRunFinish(ctx, &domain.RunEvent{Status: domain.StatusSuccess, Duration: time.Minute})

	body := scrape(t, m)
	assert.Contains(t, body, `reel_step_invocations_total{outcome="recoverable_error",step="render"} 1`)
	assert.Contains(t, body, `reel_budget_spent_total{budget="render"} 1`)
	assert.NotContains(t, body, `budget=""`)
	assert.Contains(t, body, `reel_runs_finished_total{category="",status="success"} 1`)
	assert.Contains(t, body, "reel_runs_active 0")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := LoggingHooks(logger)
	ctx := context.Background()

	h.OnStepEnter(ctx, &domain.StepEvent{Step: "plan"})
	assert.Empty(t, buf.String(), "step enter logs at debug")

	h.OnStepLeave(ctx, &domain.StepEvent{EventBase: domain.EventBase{RunID: "r1"}, Step: "plan", Outcome: domain.OutcomeOK})
	assert.Contains(t, buf.String(), "step leave")
	assert.Contains(t, buf.String(), "run_id=r1")

	buf.Reset()
	h.OnRunFinish(ctx, &domain.RunEvent{Status: domain.StatusFailed, Category: domain.CategoryBudgetExhausted})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "budget_exhausted")
}
