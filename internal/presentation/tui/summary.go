package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/reel/pkg/domain"
)

var (
	badgeBase    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	successBadge = badgeBase.Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#4ade80"))
	failedBadge  = badgeBase.Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#ef4444"))
)

// Badge renders the run status as a colored label.
func Badge(status domain.Status) string {
	if status == domain.StatusSuccess {
		return successBadge.Render("SUCCESS")
	}
	return failedBadge.Render(strings.ToUpper(string(status)))
}

// SummaryMarkdown describes a finished run for the terminal.
func SummaryMarkdown(rec domain.RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run `%s`\n\n", rec.ID)
	fmt.Fprintf(&b, "**Concept:** %s\n\n", rec.Concept)
	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Status | %s |\n", rec.Status)
	if rec.Category != domain.CategoryNone {
		fmt.Fprintf(&b, "| Category | %s |\n", rec.Category)
	}
	if rec.OutputReference != "" {
		fmt.Fprintf(&b, "| Output | %s |\n", rec.OutputReference)
	}
	fmt.Fprintf(&b, "| Steps | %d |\n", rec.Steps)
	fmt.Fprintf(&b, "| Evaluation revisions | %d |\n", rec.Counters.Get(domain.BudgetEvaluation))
	fmt.Fprintf(&b, "| Render revisions | %d |\n", rec.Counters.Get(domain.BudgetRender))
	if !rec.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "| Duration | %s |\n", rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second))
	}
	if rec.Message != "" {
		fmt.Fprintf(&b, "\n> %s\n", rec.Message)
	}
	if len(rec.Trail) > 0 {
		fmt.Fprintf(&b, "\n**Trail:** %s\n", strings.Join(rec.Trail, " → "))
	}
	return b.String()
}
