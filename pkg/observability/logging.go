package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/reel/pkg/domain"
)

// LoggingHooks writes lifecycle events to logger. Step entries go to DEBUG.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run started", "run_id", e.RunID, "concept", e.Concept)
		},
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step enter", "run_id", e.RunID, "step", e.Step, "invocation", e.Invocation)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			attrs := []any{"run_id", e.RunID, "step", e.Step, "outcome", e.Outcome, "duration", e.Duration}
			if e.Err != "" {
				attrs = append(attrs, "error", e.Err)
			}
			logger.InfoContext(ctx, "step leave", attrs...)
		},
		OnRoute: func(ctx context.Context, e *domain.RouteEvent) {
			attrs := []any{"run_id", e.RunID, "from", e.From, "to", e.To}
			if e.Spent != "" {
				attrs = append(attrs, "spent", e.Spent, "counters", e.Counters)
			}
			logger.DebugContext(ctx, "route", attrs...)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			level := slog.LevelInfo
			if e.Status != domain.StatusSuccess {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "run finished",
				"run_id", e.RunID,
				"status", e.Status,
				"category", e.Category,
				"message", e.Message,
				"steps", e.Steps,
				"duration", e.Duration,
			)
		},
	}
}
