// Package pipeline assembles the concept-to-video workflow graph: the step bodies that
// invoke collaborators and the routers that spend revision budgets.
package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/dsl"
	"github.com/aretw0/reel/pkg/ports"
)

// Step names.
const (
	StepSetup      = "setup"
	StepPlan       = "plan"
	StepGenerate   = "generate_script"
	StepRender     = "render"
	StepResearch   = "research_error"
	StepEvaluate   = "evaluate"
	StepNarrate    = "narrate"
	StepSynthesize = "synthesize_speech"
	StepMux        = "mux"
	StepPublish    = "publish"
)

// mainPathLen is the number of steps of a run that never revises.
const mainPathLen = 9

// stepsPerRevision is the number of steps one traversal of either revision loop adds:
// research, generate, render for render errors; generate, render, evaluate for evaluations.
const stepsPerRevision = 3

// StepBound is the largest number of step invocations a run can make when both revision
// budgets are respected. The engine's global ceiling must exceed it.
func StepBound(b domain.Budgets) int {
	return mainPathLen + stepsPerRevision*b.Total()
}

// Collaborators are the capabilities the steps depend on.
// Researcher, Evaluator, Narrator and Synthesizer are optional.
type Collaborators struct {
	Planner     ports.Planner
	Coder       ports.Coder
	Renderer    ports.Renderer
	Researcher  ports.Researcher
	Evaluator   ports.Evaluator
	Narrator    ports.Narrator
	Synthesizer ports.Synthesizer
	Muxer       ports.Muxer
	Publisher   ports.Publisher
}

// Validate reports missing mandatory collaborators.
func (c Collaborators) Validate() error {
	var errs []error
	if c.Planner == nil {
		errs = append(errs, errors.New("planner is required"))
	}
	if c.Coder == nil {
		errs = append(errs, errors.New("coder is required"))
	}
	if c.Renderer == nil {
		errs = append(errs, errors.New("renderer is required"))
	}
	if c.Muxer == nil {
		errs = append(errs, errors.New("muxer is required"))
	}
	if c.Publisher == nil {
		errs = append(errs, errors.New("publisher is required"))
	}
	return errors.Join(errs...)
}

// Timeouts bound each collaborator call.
type Timeouts struct {
	Plan       time.Duration
	Generate   time.Duration
	Render     time.Duration
	Research   time.Duration
	Evaluate   time.Duration
	Narrate    time.Duration
	Synthesize time.Duration
	Mux        time.Duration
	Publish    time.Duration
}

// DefaultTimeouts returns the stock collaborator timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Plan:       2 * time.Minute,
		Generate:   5 * time.Minute,
		Render:     10 * time.Minute,
		Research:   time.Minute,
		Evaluate:   5 * time.Minute,
		Narrate:    5 * time.Minute,
		Synthesize: 2 * time.Minute,
		Mux:        3 * time.Minute,
		Publish:    time.Minute,
	}
}

// Options tune the pipeline.
type Options struct {
	// SilentFallback publishes the silent video when narration or speech synthesis fails.
	SilentFallback bool
	Timeouts       Timeouts
	Logger         *slog.Logger
}

// Build assembles the workflow graph.
func Build(c Collaborators, opts Options) (*domain.Graph, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	opts.Timeouts = opts.Timeouts.withDefaults()
	p := &steps{c: c, opts: opts, logger: opts.Logger}

	b := dsl.New().Entry(StepSetup)

	b.Add(StepSetup).DoFunc(p.setup).Go(StepPlan)
	b.Add(StepPlan).DoFunc(p.plan).Route(proceedOrStop(StepGenerate), StepGenerate)
	b.Add(StepGenerate).DoFunc(p.generate).Route(proceedOrStop(StepRender), StepRender)
	b.Add(StepRender).DoFunc(p.render).Route(afterRender, StepResearch, StepEvaluate)
	b.Add(StepResearch).DoFunc(p.research).Go(StepGenerate)
	b.Add(StepEvaluate).DoFunc(p.evaluate).Route(afterEvaluate, StepGenerate, StepNarrate)
	b.Add(StepNarrate).DoFunc(p.narrate).Route(afterVoiceover(StepSynthesize, opts.SilentFallback), StepSynthesize, StepMux)
	b.Add(StepSynthesize).DoFunc(p.synthesize).Route(afterVoiceover(StepMux, opts.SilentFallback), StepMux)
	b.Add(StepMux).DoFunc(p.mux).Route(proceedOrStop(StepPublish), StepPublish)
	b.Add(StepPublish).DoFunc(p.publish).Terminal()

	return b.Build()
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	pick := func(v, def time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return def
	}
	return Timeouts{
		Plan:       pick(t.Plan, d.Plan),
		Generate:   pick(t.Generate, d.Generate),
		Render:     pick(t.Render, d.Render),
		Research:   pick(t.Research, d.Research),
		Evaluate:   pick(t.Evaluate, d.Evaluate),
		Narrate:    pick(t.Narrate, d.Narrate),
		Synthesize: pick(t.Synthesize, d.Synthesize),
		Mux:        pick(t.Mux, d.Mux),
		Publish:    pick(t.Publish, d.Publish),
	}
}
