package runtime

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/reel/pkg/domain"
)

// maxMessageLen bounds how much collaborator diagnostic text reaches the caller.
const maxMessageLen = 240

// resolveRoute asks the node's router for a decision, falling back to the static edge.
func (e *Engine) resolveRoute(node domain.Node, s domain.State) domain.Route {
	if node.Router != nil {
		return node.Router(s.Clone())
	}
	if node.Next == "" {
		return domain.Terminate()
	}
	return domain.Next(node.Next)
}

// spend charges one revision of the given budget.
func spend(s domain.State, kind domain.BudgetKind) domain.State {
	next := s.Clone()
	next.Counters = next.Counters.Inc(kind)
	return next
}

// finish settles the terminal status when a router ends the run normally.
func (e *Engine) finish(ctx context.Context, logger *slog.Logger, run *Run, last string, outcome domain.Outcome) {
	s := run.State
	switch {
	case s.Status == domain.StatusFailed:
		msg := s.Message
		if msg == "" {
			msg = "terminal step reported failure"
		}
		e.fail(ctx, logger, run, domain.NewStepFailure(domain.CategoryRecoverable, last, msg, nil))
	case outcome == domain.OutcomeRecoverable && s.Status != domain.StatusSuccess:
		logger.DebugContext(ctx, "unretried step failure", "step", last, "diagnostic", s.Feedback.String())
		e.fail(ctx, logger, run, domain.NewStepFailure(domain.CategoryRecoverable, last, summarize(s.Feedback), nil))
	case s.OutputPath == "":
		e.fail(ctx, logger, run, domain.NewInvariantViolation(last, "workflow ended without producing an output"))
	default:
		next := s.Clone()
		next.Status = domain.StatusSuccess
		run.State = next
		logger.InfoContext(ctx, "run succeeded", "steps", run.Steps, "output", next.OutputPath)
	}
}

// fail records a terminal failure. A failed run never exposes an output.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, run *Run, rerr *domain.RunError) {
	next := run.State.Clone()
	next.Status = domain.StatusFailed
	next.Message = rerr.Error()
	next.OutputPath = ""
	next.OutputURL = ""
	run.State = next
	run.Err = rerr

	attrs := []any{
		"category", rerr.Category,
		"step", rerr.Step,
		"steps", run.Steps,
		"counters", run.State.Counters,
	}
	switch rerr.Category {
	case domain.CategoryInvariantViolation:
		logger.ErrorContext(ctx, "internal invariant violation", append(attrs, "error", rerr.Message)...)
	case domain.CategoryBudgetExhausted:
		logger.WarnContext(ctx, "revision budget exhausted", append(attrs, "budget", rerr.Budget)...)
	default:
		logger.WarnContext(ctx, "run failed", append(attrs, "error", rerr.Message)...)
	}
}

// summarize reduces diagnostic text to its first meaningful line.
func summarize(f domain.Feedback) string {
	text := strings.TrimSpace(f.String())
	if text == "" {
		return "unknown error"
	}
	lines := strings.Split(text, "\n")
	line := strings.TrimSpace(lines[len(lines)-1])
	if line == "" {
		line = strings.TrimSpace(lines[0])
	}
	if utf8.RuneCountInString(line) > maxMessageLen {
		line = string([]rune(line)[:maxMessageLen]) + "..."
	}
	return line
}
