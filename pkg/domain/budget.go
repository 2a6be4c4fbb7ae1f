package domain

import "fmt"

// BudgetKind names a purpose-bounded retry loop.
type BudgetKind string

const (
	BudgetEvaluation BudgetKind = "evaluation"
	BudgetRender     BudgetKind = "render"
)

// Label is the human-readable name used in messages.
func (k BudgetKind) Label() string {
	switch k {
	case BudgetEvaluation:
		return "evaluation revision"
	case BudgetRender:
		return "render-error revision"
	default:
		return string(k)
	}
}

// Default budgets.
const (
	DefaultMaxEvaluationRevisions = 3
	DefaultMaxRenderRevisions     = 6
)

// Budgets are the configured maxima of each revision loop.
type Budgets struct {
	MaxEvaluationRevisions int `json:"max_evaluation_revisions" mapstructure:"max_evaluation_revisions"`
	MaxRenderRevisions     int `json:"max_render_revisions" mapstructure:"max_render_revisions"`
}

// DefaultBudgets returns the stock revision budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		MaxEvaluationRevisions: DefaultMaxEvaluationRevisions,
		MaxRenderRevisions:     DefaultMaxRenderRevisions,
	}
}

// Max returns the maximum for the given kind.
func (b Budgets) Max(kind BudgetKind) int {
	switch kind {
	case BudgetEvaluation:
		return b.MaxEvaluationRevisions
	case BudgetRender:
		return b.MaxRenderRevisions
	default:
		return 0
	}
}

// Total is the sum of all budgeted traversals.
func (b Budgets) Total() int {
	return b.MaxEvaluationRevisions + b.MaxRenderRevisions
}

// Validate rejects negative budgets.
func (b Budgets) Validate() error {
	if b.MaxEvaluationRevisions < 0 || b.MaxRenderRevisions < 0 {
		return fmt.Errorf("budgets must not be negative: %+v", b)
	}
	return nil
}

// Counters track how many revisions each loop has spent. They only ever grow.
type Counters struct {
	EvaluationRevisions int `json:"evaluation_revisions"`
	RenderRevisions     int `json:"render_revisions"`
}

// Get returns the counter for the given kind.
func (c Counters) Get(kind BudgetKind) int {
	switch kind {
	case BudgetEvaluation:
		return c.EvaluationRevisions
	case BudgetRender:
		return c.RenderRevisions
	default:
		return 0
	}
}

// Inc returns a copy with the given counter incremented.
func (c Counters) Inc(kind BudgetKind) Counters {
	switch kind {
	case BudgetEvaluation:
		c.EvaluationRevisions++
	case BudgetRender:
		c.RenderRevisions++
	}
	return c
}
