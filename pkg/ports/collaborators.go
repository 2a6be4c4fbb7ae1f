package ports

import (
	"context"

	"github.com/aretw0/reel/pkg/domain"
)

// Planner turns a concept into an ordered scene plan.
type Planner interface {
	Plan(ctx context.Context, concept string) ([]domain.Scene, error)
}

// CodeRequest is the input of the code-generation capability.
type CodeRequest struct {
	Concept  string
	Plan     []domain.Scene
	Revision *domain.Revision
}

// Coder produces animation script text from a plan and optional revision guidance.
type Coder interface {
	Generate(ctx context.Context, req CodeRequest) (string, error)
}

// RenderRequest describes a single render of a script file.
type RenderRequest struct {
	RequestID  string
	ScriptPath string
	SceneClass string
	// MediaDir is the scratch directory for the renderer.
	MediaDir string
	// OutputDir receives the final silent video.
	OutputDir string
}

// Renderer turns a script into a silent video. Errors carry the diagnostic text.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
}

// Researcher gathers context for a render error.
type Researcher interface {
	Research(ctx context.Context, diagnostic string) (string, error)
}

// Verdict is the headline result of an evaluation pass.
type Verdict string

const (
	VerdictSatisfied      Verdict = "SATISFIED"
	VerdictRevisionNeeded Verdict = "REVISION_NEEDED"
)

// EvaluationRequest is the input of the evaluation capability.
type EvaluationRequest struct {
	VideoPath string
	Script    string
	Plan      []domain.Scene
}

// Evaluation is a full re-assessment of the rendered video.
type Evaluation struct {
	Verdict Verdict
	Issues  []domain.Issue
}

// Evaluator reviews a rendered video against its plan.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (Evaluation, error)
}

// NarrationRequest is the input of the narration capability.
type NarrationRequest struct {
	VideoPath string
	Concept   string
	Language  string
	Plan      []domain.Scene
}

// Narrator writes a voiceover script for a video.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (string, error)
}

// SpeechRequest is the input of the speech-synthesis capability.
type SpeechRequest struct {
	Text       string
	Language   string
	OutputPath string
}

// Synthesizer turns narration text into an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (string, error)
}

// MuxRequest combines a video and an optional audio track.
type MuxRequest struct {
	VideoPath string
	// AudioPath may be empty, in which case the silent video becomes the output.
	AudioPath  string
	OutputPath string
}

// Muxer combines video and audio into the final output file.
type Muxer interface {
	Mux(ctx context.Context, req MuxRequest) (string, error)
}

// Publication is the externally reachable location of a published output.
type Publication struct {
	Path string
	URL  string
}

// Publisher moves the final output out of the run's working directory.
type Publisher interface {
	Publish(ctx context.Context, localPath, name string) (Publication, error)
}
