package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/reel/internal/textutil"
	"github.com/aretw0/reel/internal/workspace"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// revisionNeededFallback is recorded when an evaluator asks for a revision without saying why.
const revisionNeededFallback = "revision requested without specific feedback; improve clarity, pacing and layout"

type steps struct {
	c      Collaborators
	opts   Options
	logger *slog.Logger
}

// failed translates a collaborator failure into the feedback channel.
// Permanent rejections become fatal; everything else is left to the router.
func (p *steps) failed(ctx context.Context, step string, s domain.State, err error) (domain.State, domain.Outcome, error) {
	if domain.IsFatal(err) {
		return s, domain.OutcomeFatal, err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%s timed out: %w", step, err)
	}
	p.logger.DebugContext(ctx, "collaborator failed", "run_id", s.RequestID, "step", step, "error", err)
	return s.WithFeedback(domain.RawError(err.Error())), domain.OutcomeRecoverable, nil
}

// succeeded clears the feedback channel on the replacement record.
func succeeded(s domain.State) (domain.State, domain.Outcome, error) {
	s.Feedback = domain.NoFeedback()
	return s, domain.OutcomeOK, nil
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

func (p *steps) setup(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	if s.WorkDir == "" {
		return s, domain.OutcomeFatal, errors.New("run has no working directory")
	}
	if err := workspace.Prepare(s.WorkDir); err != nil {
		return s, domain.OutcomeFatal, err
	}
	if s.Language == "" {
		s.Language = "en-US"
	}
	return succeeded(s)
}

func (p *steps) plan(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	ctx, cancel := bounded(ctx, p.opts.Timeouts.Plan)
	defer cancel()

	scenes, err := p.c.Planner.Plan(ctx, s.Concept)
	if err != nil {
		return p.failed(ctx, StepPlan, s, err)
	}
	if len(scenes) == 0 {
		return p.failed(ctx, StepPlan, s, errors.New("planner returned no scenes"))
	}

	s.Plan = make([]domain.Scene, len(scenes))
	for i, sc := range scenes {
		sc.Number = i + 1
		s.Plan[i] = sc
	}
	return succeeded(s)
}

func (p *steps) generate(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	ctx, cancel := bounded(ctx, p.opts.Timeouts.Generate)
	defer cancel()

	code, err := p.c.Coder.Generate(ctx, ports.CodeRequest{
		Concept:  s.Concept,
		Plan:     s.Plan,
		Revision: domain.RevisionFrom(s),
	})
	if err != nil {
		return p.failed(ctx, StepGenerate, s, err)
	}

	code = textutil.FixInlineLatex(textutil.StripCodeFences(code))
	if strings.TrimSpace(code) == "" {
		return p.failed(ctx, StepGenerate, s, errors.New("code generator returned an empty script"))
	}

	path := filepath.Join(s.WorkDir, workspace.ScriptsDir, fmt.Sprintf("script_%s.py", s.RequestID))
	if err := workspace.WriteFile(path, []byte(code)); err != nil {
		return s, domain.OutcomeFatal, fmt.Errorf("write script: %w", err)
	}

	s.Script = code
	s.ScriptPath = path
	s.SceneClass = textutil.SceneClassName(code)
	s.VideoPath = ""
	s.ResearchContext = ""
	return succeeded(s)
}

func (p *steps) render(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	ctx, cancel := bounded(ctx, p.opts.Timeouts.Render)
	defer cancel()

	video, err := p.c.Renderer.Render(ctx, ports.RenderRequest{
		RequestID:  s.RequestID,
		ScriptPath: s.ScriptPath,
		SceneClass: s.SceneClass,
		MediaDir:   filepath.Join(s.WorkDir, workspace.MediaDir),
		OutputDir:  filepath.Join(s.WorkDir, workspace.BuildDir),
	})
	if err != nil {
		return p.failed(ctx, StepRender, s, err)
	}

	s.VideoPath = video
	return succeeded(s)
}

// research never fails the run: without findings the revision still carries the raw error.
func (p *steps) research(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	raw, ok := s.Feedback.Raw()
	if !ok || p.c.Researcher == nil {
		return s, domain.OutcomeOK, nil
	}

	ctx, cancel := bounded(ctx, p.opts.Timeouts.Research)
	defer cancel()

	findings, err := p.c.Researcher.Research(ctx, raw)
	if err != nil {
		p.logger.WarnContext(ctx, "error research failed", "run_id", s.RequestID, "error", err)
		findings = ""
	}
	s.ResearchContext = findings
	return s, domain.OutcomeOK, nil
}

func (p *steps) evaluate(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	if p.c.Evaluator == nil {
		return succeeded(s)
	}

	ctx, cancel := bounded(ctx, p.opts.Timeouts.Evaluate)
	defer cancel()

	ev, err := p.c.Evaluator.Evaluate(ctx, ports.EvaluationRequest{
		VideoPath: s.VideoPath,
		Script:    s.Script,
		Plan:      s.Plan,
	})
	if err != nil {
		return p.failed(ctx, StepEvaluate, s, err)
	}

	if ev.Verdict == ports.VerdictSatisfied {
		return succeeded(s)
	}

	issues := ev.Issues
	if len(issues) == 0 {
		issues = []domain.Issue{{Severity: domain.SeverityMedium, Description: revisionNeededFallback}}
	}
	p.logger.InfoContext(ctx, "evaluation requested revision", "run_id", s.RequestID, "issues", len(issues))
	return s.WithFeedback(domain.Issues(issues...)), domain.OutcomeOK, nil
}

func (p *steps) narrate(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	if p.c.Narrator == nil {
		return p.failed(ctx, StepNarrate, s, errors.New("no narrator configured"))
	}

	ctx, cancel := bounded(ctx, p.opts.Timeouts.Narrate)
	defer cancel()

	text, err := p.c.Narrator.Narrate(ctx, ports.NarrationRequest{
		VideoPath: s.VideoPath,
		Concept:   s.Concept,
		Language:  s.Language,
		Plan:      s.Plan,
	})
	if err != nil {
		return p.failed(ctx, StepNarrate, s, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return p.failed(ctx, StepNarrate, s, errors.New("narrator returned an empty script"))
	}

	path := filepath.Join(s.WorkDir, workspace.AudioDir, fmt.Sprintf("narration_%s.txt", s.RequestID))
	if err := workspace.WriteFile(path, []byte(text)); err != nil {
		return s, domain.OutcomeFatal, fmt.Errorf("write narration: %w", err)
	}

	s.NarrationScript = text
	s.NarrationPath = path
	return succeeded(s)
}

func (p *steps) synthesize(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	if p.c.Synthesizer == nil {
		return p.failed(ctx, StepSynthesize, s, errors.New("no speech synthesizer configured"))
	}

	ctx, cancel := bounded(ctx, p.opts.Timeouts.Synthesize)
	defer cancel()

	audio, err := p.c.Synthesizer.Synthesize(ctx, ports.SpeechRequest{
		Text:       s.NarrationScript,
		Language:   s.Language,
		OutputPath: filepath.Join(s.WorkDir, workspace.AudioDir, fmt.Sprintf("narration_%s.mp3", s.RequestID)),
	})
	if err != nil {
		return p.failed(ctx, StepSynthesize, s, err)
	}

	s.AudioPath = audio
	return succeeded(s)
}

func (p *steps) mux(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	if s.VideoPath == "" {
		return p.failed(ctx, StepMux, s, errors.New("no rendered video to combine"))
	}
	if !s.Feedback.IsEmpty() {
		p.logger.WarnContext(ctx, "publishing without narration", "run_id", s.RequestID, "reason", s.Feedback.String())
	}

	ctx, cancel := bounded(ctx, p.opts.Timeouts.Mux)
	defer cancel()

	combined, err := p.c.Muxer.Mux(ctx, ports.MuxRequest{
		VideoPath:  s.VideoPath,
		AudioPath:  s.AudioPath,
		OutputPath: filepath.Join(s.WorkDir, workspace.BuildDir, fmt.Sprintf("%s_final.mp4", s.RequestID)),
	})
	if err != nil {
		return p.failed(ctx, StepMux, s, err)
	}

	s.CombinedPath = combined
	return succeeded(s)
}

func (p *steps) publish(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error) {
	ctx, cancel := bounded(ctx, p.opts.Timeouts.Publish)
	defer cancel()

	pub, err := p.c.Publisher.Publish(ctx, s.CombinedPath, fmt.Sprintf("%s_final.mp4", s.RequestID))
	if err != nil {
		return p.failed(ctx, StepPublish, s, err)
	}

	s.OutputPath = pub.Path
	s.OutputURL = pub.URL
	s.Status = domain.StatusSuccess
	return succeeded(s)
}
