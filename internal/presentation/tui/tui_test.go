package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/reel/pkg/domain"
)

func TestSummaryMarkdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.RunRecord{
		ID:         "r1",
		Concept:    "pythagoras",
		Status:     domain.StatusFailed,
		Category:   domain.CategoryBudgetExhausted,
		Message:    "budget_exhausted: render-error revision budget exhausted after 6 revisions",
		Steps:      21,
		Trail:      []string{"setup", "plan"},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
	rec.Counters = rec.Counters.Inc(domain.BudgetRender)

	md := SummaryMarkdown(rec)
	assert.Contains(t, md, "# Run `r1`")
	assert.Contains(t, md, "| Category | budget_exhausted |")
	assert.Contains(t, md, "| Render revisions | 1 |")
	assert.Contains(t, md, "| Duration | 1m30s |")
	assert.Contains(t, md, "> budget_exhausted: render-error")
	assert.Contains(t, md, "setup → plan")
	assert.NotContains(t, md, "| Output |")
}

func TestBadge(t *testing.T) {
	assert.Contains(t, Badge(domain.StatusSuccess), "SUCCESS")
	assert.Contains(t, Badge(domain.StatusFailed), "FAILED")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}

func TestNewRenderer(t *testing.T) {
	out, err := NewRenderer()("# Title")
	assert.NoError(t, err)
	assert.Contains(t, out, "Title")
}
