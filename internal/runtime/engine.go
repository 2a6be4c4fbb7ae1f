package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/reel/pkg/domain"
)

// DefaultMaxSteps is the global step ceiling used when none is configured.
const DefaultMaxSteps = 150

// Engine walks a graph for one run at a time. It holds no run data, so a single
// Engine may drive many runs concurrently.
type Engine struct {
	graph    *domain.Graph
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxSteps int
	now      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks sets the observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps sets the global step ceiling.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new engine for the given graph.
func NewEngine(graph *domain.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:    graph,
		maxSteps: DefaultMaxSteps,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return e
}

// MaxSteps returns the configured global step ceiling.
func (e *Engine) MaxSteps() int {
	return e.maxSteps
}

// Run is the engine bookkeeping of one execution.
type Run struct {
	ID         string
	State      domain.State
	Steps      int
	Trail      []string
	Err        *domain.RunError
	StartedAt  time.Time
	FinishedAt time.Time
}

// Result projects the run onto the entry contract.
func (r *Run) Result() domain.Result {
	res := domain.Result{
		RunID:           r.ID,
		Status:          r.State.Status,
		OutputReference: r.State.OutputURL,
		Message:         r.State.Message,
	}
	if res.OutputReference == "" {
		res.OutputReference = r.State.OutputPath
	}
	if r.Err != nil {
		res.Category = r.Err.Category
	}
	return res
}

// Run executes the graph from its entry step until a terminal condition.
//
// Cancellation of ctx is observed only between steps. Steps receive a context that
// keeps ctx's values but not its cancellation, so a step always finishes (bounded by
// its own collaborator timeouts) before the run is aborted.
func (e *Engine) Run(ctx context.Context, initial domain.State) *Run {
	run := &Run{
		ID:        initial.RequestID,
		State:     initial.Clone(),
		StartedAt: e.now(),
	}
	logger := e.logger.With("run_id", run.ID)
	e.emitRunStart(ctx, run)

	stepCtx := context.WithoutCancel(ctx)
	current := e.graph.Entry()

	for {
		if err := ctx.Err(); err != nil {
			e.fail(ctx, logger, run, &domain.RunError{
				Category: domain.CategoryCanceled,
				Step:     current,
				Message:  fmt.Sprintf("run aborted before step %q: %v", current, err),
				Cause:    err,
			})
			break
		}

		if run.Steps >= e.maxSteps {
			e.fail(ctx, logger, run, domain.NewInvariantViolation(current,
				fmt.Sprintf("workflow exceeded maximum steps (%d)", e.maxSteps)))
			break
		}

		node, ok := e.graph.Node(current)
		if !ok {
			e.fail(ctx, logger, run, domain.NewInvariantViolation(current,
				fmt.Sprintf("step %q is not part of the graph", current)))
			break
		}

		run.Steps++
		run.Trail = append(run.Trail, current)

		next, outcome, err := e.invoke(stepCtx, logger, run, node)
		if outcome == domain.OutcomeFatal {
			e.fail(ctx, logger, run, domain.NewStepFailure(domain.CategoryFatal, current, err.Error(), err))
			break
		}
		run.State = guard(run.State, next)

		route := e.resolveRoute(node, run.State)
		if !e.graph.Allows(current, route.To) {
			e.fail(ctx, logger, run, domain.NewInvariantViolation(current,
				fmt.Sprintf("router of step %q selected undeclared step %q", current, route.To)))
			break
		}

		if route.Spend != "" {
			if !run.State.CanSpend(route.Spend) {
				e.fail(ctx, logger, run, domain.NewBudgetExhausted(route.Spend, run.State.Counters.Get(route.Spend)))
				break
			}
			run.State = spend(run.State, route.Spend)
		}
		e.emitRoute(ctx, run, current, route)

		if route.To == domain.End {
			if route.Exhausted != "" {
				e.fail(ctx, logger, run, domain.NewBudgetExhausted(route.Exhausted, run.State.Counters.Get(route.Exhausted)))
				break
			}
			e.finish(ctx, logger, run, current, outcome)
			break
		}

		logger.DebugContext(ctx, "routing", "from", current, "to", route.To, "spent", route.Spend)
		current = route.To
	}

	run.FinishedAt = e.now()
	e.emitRunFinish(ctx, run)
	return run
}

// invoke executes one step and normalizes its result.
func (e *Engine) invoke(ctx context.Context, logger *slog.Logger, run *Run, node domain.Node) (domain.State, domain.Outcome, error) {
	e.emitStepEnter(ctx, run, node.Name)
	start := e.now()

	next, outcome, err := node.Step.Execute(ctx, run.State.Clone())

	switch {
	case err != nil:
		outcome = domain.OutcomeFatal
	case outcome == domain.OutcomeFatal:
		msg := strings.TrimSpace(next.Message)
		if msg == "" {
			msg = "step signaled a fatal error"
		}
		err = errors.New(msg)
	case outcome != domain.OutcomeOK && outcome != domain.OutcomeRecoverable:
		err = fmt.Errorf("step returned unknown outcome %q", outcome)
		outcome = domain.OutcomeFatal
	}

	elapsed := e.now().Sub(start)
	e.emitStepLeave(ctx, run, node.Name, outcome, elapsed, err)
	logger.InfoContext(ctx, "step finished",
		"step", node.Name,
		"outcome", outcome,
		"duration", elapsed,
		"feedback", next.Feedback.Kind(),
	)
	return next, outcome, err
}

// guard carries the engine-owned fields of prev over to the state a step returned.
// Counters and budgets are only ever changed by the engine, and the run's inputs
// stay as they were when the run started.
func guard(prev, next domain.State) domain.State {
	next.Concept = prev.Concept
	next.RequestID = prev.RequestID
	next.WorkDir = prev.WorkDir
	next.Counters = prev.Counters
	next.Budgets = prev.Budgets
	return next
}
