package pipeline_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/reel/internal/pipeline"
	"github.com/aretw0/reel/internal/pipeline/pipelinetest"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterTotality(t *testing.T) {
	for _, silent := range []bool{true, false} {
		g, err := pipeline.Build(pipelinetest.New().Collaborators(), pipeline.Options{SilentFallback: silent})
		require.NoError(t, err)

		statuses := []domain.Status{domain.StatusUnset, domain.StatusSuccess, domain.StatusFailed}
		feedbacks := []domain.Feedback{
			domain.NoFeedback(),
			domain.RawError("boom"),
			domain.Issues(domain.Issue{Scene: 1, Severity: domain.SeverityLow, Description: "minor"}),
		}
		budgets := domain.Budgets{MaxEvaluationRevisions: 2, MaxRenderRevisions: 2}
		counters := []int{0, 2, 3} // under, at, over budget

		for _, name := range g.Names() {
			node, _ := g.Node(name)
			if node.Router == nil {
				continue
			}
			for _, status := range statuses {
				for _, fb := range feedbacks {
					for _, ev := range counters {
						for _, rr := range counters {
							s := domain.State{
								Status:   status,
								Budgets:  budgets,
								Counters: domain.Counters{EvaluationRevisions: ev, RenderRevisions: rr},
							}.WithFeedback(fb)

							label := fmt.Sprintf("%s status=%q feedback=%s eval=%d render=%d", name, status, fb.Kind(), ev, rr)
							var route domain.Route
							require.NotPanics(t, func() { route = node.Router(s) }, label)
							assert.True(t, g.Allows(name, route.To), label)
							if route.Exhausted != "" {
								assert.Equal(t, domain.End, route.To, label)
							}
							if route.Spend != "" {
								assert.True(t, s.CanSpend(route.Spend), "routers never spend an exhausted budget: "+label)
							}
							if status != domain.StatusUnset {
								assert.Equal(t, domain.End, route.To, label)
							}
						}
					}
				}
			}
		}
	}
}

func TestRenderRouterPrecedence(t *testing.T) {
	g, err := pipeline.Build(pipelinetest.New().Collaborators(), pipeline.Options{})
	require.NoError(t, err)
	render, _ := g.Node(pipeline.StepRender)

	s := domain.State{
		Budgets:  domain.Budgets{MaxEvaluationRevisions: 3, MaxRenderRevisions: 1},
		Counters: domain.Counters{EvaluationRevisions: 0, RenderRevisions: 1},
	}.WithFeedback(domain.RawError("render failed"))

	assert.Equal(t, domain.Exhausted(domain.BudgetRender), render.Router(s),
		"render errors are gated by the render budget even when evaluation budget remains")
}

func TestEvaluateRouterIgnoresSeverity(t *testing.T) {
	g, err := pipeline.Build(pipelinetest.New().Collaborators(), pipeline.Options{})
	require.NoError(t, err)
	evaluate, _ := g.Node(pipeline.StepEvaluate)

	s := domain.State{Budgets: domain.DefaultBudgets()}.
		WithFeedback(domain.Issues(domain.Issue{Severity: domain.SeverityLow, Description: "nitpick"}))

	assert.Equal(t, domain.Retry(pipeline.StepGenerate, domain.BudgetEvaluation), evaluate.Router(s))
}
