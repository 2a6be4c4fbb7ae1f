package reel_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/pipeline/pipelinetest"
	"github.com/aretw0/reel/internal/textutil"
	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

func newGenerator(t *testing.T, f *pipelinetest.Fakes, opts ...reel.Option) (*reel.Generator, string) {
	t.Helper()
	root := t.TempDir()
	opts = append([]reel.Option{reel.WithWorkspace(root, false)}, opts...)
	gen, err := reel.New(f.Collaborators(), opts...)
	require.NoError(t, err)
	return gen, root
}

func TestGenerator_Run(t *testing.T) {
	f := pipelinetest.New()
	gen, root := newGenerator(t, f, reel.WithIDGenerator(func() string { return "run-1" }))

	res, err := gen.Run(context.Background(), "  Pythagorean\ttheorem \n", "")
	require.NoError(t, err)

	assert.Equal(t, domain.Result{
		RunID:           "run-1",
		Status:          domain.StatusSuccess,
		OutputReference: "/static/videos/run-1_final.mp4",
	}, res)

	rec, err := gen.Lookup(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Pythagorean theorem", rec.Concept)
	assert.Equal(t, reel.DefaultLanguage, rec.Language)
	assert.Equal(t, 9, rec.Steps)
	assert.False(t, rec.FinishedAt.IsZero())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "the working directory is released after the run")
}

func TestGenerator_KeepWorkspace(t *testing.T) {
	f := pipelinetest.New()
	root := t.TempDir()
	gen, err := reel.New(f.Collaborators(), reel.WithWorkspace(root, true))
	require.NoError(t, err)

	_, err = gen.Run(context.Background(), "circles", "en-US")
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "req_"))
	assert.DirExists(t, filepath.Join(root, entries[0].Name(), "scripts"))
}

func TestGenerator_InvalidInput(t *testing.T) {
	gen, _ := newGenerator(t, pipelinetest.New(), reel.WithMaxInputSize(16))

	_, err := gen.Run(context.Background(), " \n\t ", "en-US")
	assert.ErrorIs(t, err, domain.ErrEmptyConcept)

	_, err = gen.Run(context.Background(), strings.Repeat("x", 17), "en-US")
	assert.ErrorIs(t, err, textutil.ErrInputTooLarge)
}

func TestGenerator_FailedRunIsRecorded(t *testing.T) {
	f := pipelinetest.New()
	f.EvaluateFn = func(int, ports.EvaluationRequest) (ports.Evaluation, error) {
		return ports.Evaluation{
			Verdict: ports.VerdictRevisionNeeded,
			Issues:  []domain.Issue{{Scene: 1, Severity: domain.SeverityLow, Description: "label too small"}},
		}, nil
	}
	store := memory.NewStore()
	gen, _ := newGenerator(t, f,
		reel.WithStore(store),
		reel.WithBudgets(domain.Budgets{MaxEvaluationRevisions: 2, MaxRenderRevisions: 3}),
	)

	res, err := gen.Run(context.Background(), "limits", "en-US")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, domain.CategoryBudgetExhausted, res.Category)
	assert.Contains(t, res.Message, "evaluation revision budget exhausted after 2 revisions")
	assert.Empty(t, res.OutputReference)

	records, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Counters.Get(domain.BudgetEvaluation))
}

func TestGenerator_Submit(t *testing.T) {
	release := make(chan struct{})
	f := pipelinetest.New()
	f.PlanFn = func(string) ([]domain.Scene, error) {
		<-release
		return []domain.Scene{{Title: "Only", Description: "one scene"}}, nil
	}
	gen, _ := newGenerator(t, f)

	req, err := gen.NewRequest("async concept", "pt-BR")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, gen.Submit(ctx, req, nil))
	cancel() // the background run is detached from the request context

	rec, err := gen.Lookup(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, rec.Status)

	close(release)
	gen.Wait()

	rec, err = gen.Lookup(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, rec.Status)
	assert.Equal(t, "pt-BR", rec.Language)
}

func TestGenerator_RunTimeoutAbortsBetweenSteps(t *testing.T) {
	f := pipelinetest.New()
	f.PlanFn = func(string) ([]domain.Scene, error) {
		time.Sleep(50 * time.Millisecond)
		return []domain.Scene{{Title: "Slow", Description: "plan"}}, nil
	}
	gen, _ := newGenerator(t, f, reel.WithRunTimeout(10*time.Millisecond))

	res, err := gen.Run(context.Background(), "slow", "en-US")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, domain.CategoryCanceled, res.Category)
	assert.Equal(t, 1, f.Calls("plan"), "the running step finishes before the abort")
	assert.Zero(t, f.Calls("generate"))
}

func TestGenerator_LookupUnknown(t *testing.T) {
	gen, _ := newGenerator(t, pipelinetest.New())
	_, err := gen.Lookup(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
}

func TestNew_RejectsCeilingBelowBound(t *testing.T) {
	_, err := reel.New(pipelinetest.New().Collaborators(),
		reel.WithBudgets(domain.Budgets{MaxEvaluationRevisions: 10, MaxRenderRevisions: 10}),
		reel.WithMaxSteps(50),
	)
	assert.ErrorContains(t, err, "worst-case run length")
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := reel.New(pipelinetest.New().Collaborators(), reel.WithLogger(nil))
	require.NoError(t, err)

	c := pipelinetest.New().Collaborators()
	c.Renderer = nil
	_, err = reel.New(c)
	assert.Error(t, err)
}
