package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart  EventType = "run_start"
	EventStepEnter EventType = "step_enter"
	EventStepLeave EventType = "step_leave"
	EventRoute     EventType = "route"
	EventRunFinish EventType = "run_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StepEvent represents entry into or exit from a step.
type StepEvent struct {
	EventBase
	Step string `json:"step"`
	// Invocation is the 1-based global step count of this invocation.
	Invocation int           `json:"invocation"`
	Outcome    Outcome       `json:"outcome,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Err        string        `json:"error,omitempty"`
}

// RouteEvent represents a router decision.
type RouteEvent struct {
	EventBase
	From     string     `json:"from"`
	To       string     `json:"to"`
	Spent    BudgetKind `json:"spent,omitempty"`
	Counters Counters   `json:"counters"`
}

// RunEvent represents the start or the end of a run.
type RunEvent struct {
	EventBase
	Concept  string        `json:"concept,omitempty"`
	Status   Status        `json:"status,omitempty"`
	Category ErrorCategory `json:"category,omitempty"`
	Message  string        `json:"message,omitempty"`
	Steps    int           `json:"steps"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnStepEnter func(context.Context, *StepEvent)
	OnStepLeave func(context.Context, *StepEvent)
	OnRoute     func(context.Context, *RouteEvent)
	OnRunFinish func(context.Context, *RunEvent)
}

// ComposeHooks fans every callback out to each of the given hooks in order.
func ComposeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *RunEvent) {
			for _, h := range all {
				if h.OnRunStart != nil {
					h.OnRunStart(ctx, e)
				}
			}
		},
		OnStepEnter: func(ctx context.Context, e *StepEvent) {
			for _, h := range all {
				if h.OnStepEnter != nil {
					h.OnStepEnter(ctx, e)
				}
			}
		},
		OnStepLeave: func(ctx context.Context, e *StepEvent) {
			for _, h := range all {
				if h.OnStepLeave != nil {
					h.OnStepLeave(ctx, e)
				}
			}
		},
		OnRoute: func(ctx context.Context, e *RouteEvent) {
			for _, h := range all {
				if h.OnRoute != nil {
					h.OnRoute(ctx, e)
				}
			}
		},
		OnRunFinish: func(ctx context.Context, e *RunEvent) {
			for _, h := range all {
				if h.OnRunFinish != nil {
					h.OnRunFinish(ctx, e)
				}
			}
		},
	}
}
