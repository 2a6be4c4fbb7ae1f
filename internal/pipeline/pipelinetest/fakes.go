// Package pipelinetest provides scripted collaborator fakes for pipeline tests.
package pipelinetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/reel/internal/pipeline"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// Fakes implements every collaborator port. Each hook defaults to success; set a
// field to script failures. Calls are counted per capability.
type Fakes struct {
	PlanFn       func(concept string) ([]domain.Scene, error)
	GenerateFn   func(req ports.CodeRequest) (string, error)
	RenderFn     func(attempt int, req ports.RenderRequest) error
	ResearchFn   func(diagnostic string) (string, error)
	EvaluateFn   func(attempt int, req ports.EvaluationRequest) (ports.Evaluation, error)
	NarrateFn    func(req ports.NarrationRequest) (string, error)
	SynthesizeFn func(req ports.SpeechRequest) error
	MuxFn        func(req ports.MuxRequest) error
	PublishFn    func(localPath, name string) (ports.Publication, error)

	mu       sync.Mutex
	calls    map[string]int
	Requests []ports.CodeRequest
}

// New returns fakes that succeed at every stage.
func New() *Fakes {
	return &Fakes{calls: make(map[string]int)}
}

// Collaborators wires the fakes into a pipeline collaborator set.
func (f *Fakes) Collaborators() pipeline.Collaborators {
	return pipeline.Collaborators{
		Planner:     f,
		Coder:       f,
		Renderer:    f,
		Researcher:  f,
		Evaluator:   f,
		Narrator:    f,
		Synthesizer: f,
		Muxer:       f,
		Publisher:   f,
	}
}

// Calls returns how many times the named capability was invoked.
func (f *Fakes) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *Fakes) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.calls[name]
}

func (f *Fakes) Plan(_ context.Context, concept string) ([]domain.Scene, error) {
	f.count("plan")
	if f.PlanFn != nil {
		return f.PlanFn(concept)
	}
	return []domain.Scene{
		{Title: "Right triangle", Description: "Draw a right triangle with legs a and b"},
		{Title: "Squares", Description: "Build squares on each side and compare areas"},
	}, nil
}

func (f *Fakes) Generate(_ context.Context, req ports.CodeRequest) (string, error) {
	f.count("generate")
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	if f.GenerateFn != nil {
		return f.GenerateFn(req)
	}
	return "```python\nfrom manim import *\n\nclass CombinedScene(Scene):\n    def construct(self):\n        self.play(Write(Tex(\"$a^2+b^2=c^2$\")))\n```", nil
}

func (f *Fakes) Render(_ context.Context, req ports.RenderRequest) (string, error) {
	n := f.count("render")
	if f.RenderFn != nil {
		if err := f.RenderFn(n, req); err != nil {
			return "", err
		}
	}
	path := filepath.Join(req.OutputDir, req.RequestID+"_combined_video.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *Fakes) Research(_ context.Context, diagnostic string) (string, error) {
	f.count("research")
	if f.ResearchFn != nil {
		return f.ResearchFn(diagnostic)
	}
	return "Source: https://docs.manim.community\nCheck the spelling of mobject names.", nil
}

func (f *Fakes) Evaluate(_ context.Context, req ports.EvaluationRequest) (ports.Evaluation, error) {
	n := f.count("evaluate")
	if f.EvaluateFn != nil {
		return f.EvaluateFn(n, req)
	}
	return ports.Evaluation{Verdict: ports.VerdictSatisfied}, nil
}

func (f *Fakes) Narrate(_ context.Context, req ports.NarrationRequest) (string, error) {
	f.count("narrate")
	if f.NarrateFn != nil {
		return f.NarrateFn(req)
	}
	return fmt.Sprintf("Today we explore %s.\n\nLet's begin.", req.Concept), nil
}

func (f *Fakes) Synthesize(_ context.Context, req ports.SpeechRequest) (string, error) {
	f.count("synthesize")
	if f.SynthesizeFn != nil {
		if err := f.SynthesizeFn(req); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(req.OutputPath, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

func (f *Fakes) Mux(_ context.Context, req ports.MuxRequest) (string, error) {
	f.count("mux")
	if f.MuxFn != nil {
		if err := f.MuxFn(req); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(req.OutputPath, []byte("final"), 0o644); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

func (f *Fakes) Publish(_ context.Context, localPath, name string) (ports.Publication, error) {
	f.count("publish")
	if f.PublishFn != nil {
		return f.PublishFn(localPath, name)
	}
	return ports.Publication{
		Path: filepath.Join("/published", name),
		URL:  "/static/videos/" + name,
	}, nil
}
