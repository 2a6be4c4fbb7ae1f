package runtime

import (
	"context"
	"time"

	"github.com/aretw0/reel/pkg/domain"
)

func (e *Engine) base(run *Run, t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, RunID: run.ID}
}

func (e *Engine) emitRunStart(ctx context.Context, run *Run) {
	if e.hooks.OnRunStart == nil {
		return
	}
	e.hooks.OnRunStart(ctx, &domain.RunEvent{
		EventBase: e.base(run, domain.EventRunStart),
		Concept:   run.State.Concept,
	})
}

func (e *Engine) emitStepEnter(ctx context.Context, run *Run, step string) {
	if e.hooks.OnStepEnter == nil {
		return
	}
	e.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase:  e.base(run, domain.EventStepEnter),
		Step:       step,
		Invocation: run.Steps,
	})
}

func (e *Engine) emitStepLeave(ctx context.Context, run *Run, step string, outcome domain.Outcome, d time.Duration, err error) {
	if e.hooks.OnStepLeave == nil {
		return
	}
	ev := &domain.StepEvent{
		EventBase:  e.base(run, domain.EventStepLeave),
		Step:       step,
		Invocation: run.Steps,
		Outcome:    outcome,
		Duration:   d,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	e.hooks.OnStepLeave(ctx, ev)
}

func (e *Engine) emitRoute(ctx context.Context, run *Run, from string, route domain.Route) {
	if e.hooks.OnRoute == nil {
		return
	}
	e.hooks.OnRoute(ctx, &domain.RouteEvent{
		EventBase: e.base(run, domain.EventRoute),
		From:      from,
		To:        route.To,
		Spent:     route.Spend,
		Counters:  run.State.Counters,
	})
}

func (e *Engine) emitRunFinish(ctx context.Context, run *Run) {
	if e.hooks.OnRunFinish == nil {
		return
	}
	ev := &domain.RunEvent{
		EventBase: e.base(run, domain.EventRunFinish),
		Status:    run.State.Status,
		Message:   run.State.Message,
		Steps:     run.Steps,
		Duration:  run.FinishedAt.Sub(run.StartedAt),
	}
	if run.Err != nil {
		ev.Category = run.Err.Category
	}
	e.hooks.OnRunFinish(ctx, ev)
}
