package reel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/reel/internal/pipeline"
	"github.com/aretw0/reel/internal/runtime"
	"github.com/aretw0/reel/internal/textutil"
	"github.com/aretw0/reel/internal/workspace"
	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// DefaultLanguage is used when a request names no target language.
const DefaultLanguage = "en-US"

// Generator is the high-level entry point of the library.
// It turns a concept into a narrated video by driving the pipeline graph, and it
// owns the per-run working directories and run records.
type Generator struct {
	graph   *domain.Graph
	engine  *runtime.Engine
	store   ports.RunStore
	logger  *slog.Logger
	budgets domain.Budgets

	workspaceRoot string
	keepWorkspace bool
	runTimeout    time.Duration
	maxInput      int
	newID         func() string

	pipelineOpts pipeline.Options
	hooks        domain.LifecycleHooks
	maxSteps     int

	inflight sync.WaitGroup
}

// Option defines a functional option for configuring the Generator.
type Option func(*Generator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(g *Generator) {
		g.hooks = hooks
	}
}

// WithStore sets where run records are kept. The default is an in-memory store.
func WithStore(store ports.RunStore) Option {
	return func(g *Generator) {
		g.store = store
	}
}

// WithBudgets sets the revision budgets of every run.
func WithBudgets(b domain.Budgets) Option {
	return func(g *Generator) {
		g.budgets = b
	}
}

// WithMaxSteps sets the global step ceiling.
func WithMaxSteps(n int) Option {
	return func(g *Generator) {
		g.maxSteps = n
	}
}

// WithWorkspace places run directories under root. With keep set they survive the run.
func WithWorkspace(root string, keep bool) Option {
	return func(g *Generator) {
		g.workspaceRoot = root
		g.keepWorkspace = keep
	}
}

// WithRunTimeout bounds each run. The run is aborted at the next step boundary.
func WithRunTimeout(d time.Duration) Option {
	return func(g *Generator) {
		g.runTimeout = d
	}
}

// WithSilentFallback publishes the silent video when narration or speech fails.
func WithSilentFallback(enabled bool) Option {
	return func(g *Generator) {
		g.pipelineOpts.SilentFallback = enabled
	}
}

// WithTimeouts sets the per-collaborator timeouts.
func WithTimeouts(t pipeline.Timeouts) Option {
	return func(g *Generator) {
		g.pipelineOpts.Timeouts = t
	}
}

// WithMaxInputSize bounds the concept size in bytes.
func WithMaxInputSize(n int) Option {
	return func(g *Generator) {
		g.maxInput = n
	}
}

// WithIDGenerator overrides how run IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(g *Generator) {
		g.newID = fn
	}
}

// New builds the pipeline graph over the given collaborators.
func New(c pipeline.Collaborators, opts ...Option) (*Generator, error) {
	g := &Generator{
		budgets:    domain.DefaultBudgets(),
		runTimeout: 30 * time.Minute,
		maxInput:   textutil.DefaultMaxInputSize,
		newID:      uuid.NewString,
		maxSteps:   runtime.DefaultMaxSteps,
		pipelineOpts: pipeline.Options{
			SilentFallback: true,
			Timeouts:       pipeline.DefaultTimeouts(),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if g.store == nil {
		g.store = memory.NewStore()
	}
	if err := g.budgets.Validate(); err != nil {
		return nil, err
	}
	if bound := pipeline.StepBound(g.budgets); g.maxSteps <= bound {
		return nil, fmt.Errorf("max steps %d must exceed the worst-case run length %d", g.maxSteps, bound)
	}

	g.pipelineOpts.Logger = g.logger
	graph, err := pipeline.Build(c, g.pipelineOpts)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	g.graph = graph
	g.engine = runtime.NewEngine(graph,
		runtime.WithLogger(g.logger),
		runtime.WithLifecycleHooks(g.hooks),
		runtime.WithMaxSteps(g.maxSteps),
	)
	return g, nil
}

// Graph returns the workflow graph.
func (g *Generator) Graph() *domain.Graph {
	return g.graph
}

// Store returns the run record store.
func (g *Generator) Store() ports.RunStore {
	return g.store
}

// Request is a validated generation request.
type Request struct {
	ID       string
	Concept  string
	Language string
}

// NewRequest sanitizes the input and assigns a run ID.
func (g *Generator) NewRequest(concept, language string) (Request, error) {
	clean, err := textutil.SanitizeConcept(concept, g.maxInput)
	if err != nil {
		return Request{}, err
	}
	if clean == "" {
		return Request{}, domain.ErrEmptyConcept
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}
	return Request{ID: g.newID(), Concept: clean, Language: language}, nil
}

// Run generates a video for concept synchronously.
// The error is non-nil only for invalid input; run failures are reported in the Result.
func (g *Generator) Run(ctx context.Context, concept, language string) (domain.Result, error) {
	req, err := g.NewRequest(concept, language)
	if err != nil {
		return domain.Result{}, err
	}
	return g.Execute(ctx, req).Result(), nil
}

// Submit records the request as running and executes it in the background.
// The run is detached from ctx's cancellation but still bounded by the run timeout.
// onDone, if non-nil, receives the final record.
func (g *Generator) Submit(ctx context.Context, req Request, onDone func(domain.RunRecord)) error {
	if err := g.store.Save(ctx, g.pending(req)); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		rec := g.Execute(context.WithoutCancel(ctx), req)
		if onDone != nil {
			onDone(rec)
		}
	}()
	return nil
}

// Wait blocks until every submitted run has finished.
func (g *Generator) Wait() {
	g.inflight.Wait()
}

// Execute runs one validated request to completion and stores its record.
func (g *Generator) Execute(ctx context.Context, req Request) domain.RunRecord {
	logger := g.logger.With("run_id", req.ID)
	started := time.Now()

	if g.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.runTimeout)
		defer cancel()
	}

	rec := g.pending(req)
	rec.StartedAt = started

	dir, err := workspace.Acquire(g.workspaceRoot, req.ID)
	if err != nil {
		rerr := domain.NewStepFailure(domain.CategoryFatal, "workspace", "could not create working directory", err)
		logger.ErrorContext(ctx, "workspace unavailable", "error", err)
		rec.Status = domain.StatusFailed
		rec.Category = rerr.Category
		rec.Message = rerr.Error()
		rec.FinishedAt = time.Now()
		g.save(ctx, logger, rec)
		return rec
	}
	defer func() {
		if err := dir.Release(g.keepWorkspace); err != nil {
			logger.WarnContext(ctx, "failed to release workspace", "error", err)
		}
	}()

	initial := domain.NewState(req.Concept, req.Language, req.ID, dir.Path(), g.budgets)
	run := g.engine.Run(ctx, initial)

	res := run.Result()
	rec.Status = res.Status
	rec.Category = res.Category
	rec.Message = res.Message
	rec.OutputReference = res.OutputReference
	rec.Counters = run.State.Counters
	rec.Steps = run.Steps
	rec.Trail = run.Trail
	rec.StartedAt = run.StartedAt
	rec.FinishedAt = run.FinishedAt
	g.save(ctx, logger, rec)
	return rec
}

func (g *Generator) pending(req Request) domain.RunRecord {
	return domain.RunRecord{
		ID:        req.ID,
		Concept:   req.Concept,
		Language:  req.Language,
		Status:    domain.StatusRunning,
		StartedAt: time.Now(),
	}
}

// save stores the record even when the run's context has ended.
func (g *Generator) save(ctx context.Context, logger *slog.Logger, rec domain.RunRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := g.store.Save(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "failed to store run record", "error", err)
	}
}

// Lookup returns the record of a run, or domain.ErrRunNotFound.
func (g *Generator) Lookup(ctx context.Context, id string) (domain.RunRecord, error) {
	return g.store.Load(ctx, id)
}
