package domain

import "context"

// Outcome is the signal a step returns alongside its replacement state.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeRecoverable Outcome = "recoverable_error"
	OutcomeFatal       Outcome = "fatal_error"
)

// Step is a named unit of work. It computes a replacement record and never decides to retry.
//
// For OutcomeOK and OutcomeRecoverable the returned State replaces the current one.
// For OutcomeFatal the returned error describes the cause and the returned State is discarded.
type Step interface {
	Execute(ctx context.Context, s State) (State, Outcome, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc func(ctx context.Context, s State) (State, Outcome, error)

// Execute implements Step.
func (f StepFunc) Execute(ctx context.Context, s State) (State, Outcome, error) {
	return f(ctx, s)
}

// End is the terminal marker returned by routers and used as a fallback edge.
const End = "__end__"

// Route is a router decision.
type Route struct {
	// To is the next step name or End.
	To string
	// Spend names the budget charged for this traversal. The engine increments its counter.
	Spend BudgetKind
	// Exhausted names the budget that ran out. Only meaningful with To == End.
	Exhausted BudgetKind
}

// Next routes unconditionally to the named step.
func Next(to string) Route { return Route{To: to} }

// Terminate ends the run with whatever status the last step set.
func Terminate() Route { return Route{To: End} }

// Retry routes to the named step, spending one revision of the given budget.
func Retry(to string, kind BudgetKind) Route { return Route{To: to, Spend: kind} }

// Exhausted ends the run because the given budget has no revisions left.
func Exhausted(kind BudgetKind) Route { return Route{To: End, Exhausted: kind} }

// Router selects the next step from the state a step produced. It must be pure and total.
type Router func(s State) Route

// Node binds a step to its routing policy.
type Node struct {
	Name string
	Step Step
	// Router, when set, decides the next step. Targets lists every step it may return.
	Router  Router
	Targets []string
	// Next is the static fallback edge used when Router is nil. Empty means End.
	Next string
}
