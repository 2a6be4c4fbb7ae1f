package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/reel/pkg/ports"
)

const evaluationPrompt = `Analyze the provided Manim Python script AND the corresponding rendered video.

Manim script:
` + "```python\n%s\n```" + `

Examine the video alongside the script and identify significant issues that require code revision:
1. Visual clarity and overlaps: overlapping text or shapes, unreadable text, unclear diagrams.
2. Timing and pacing compared to the script's play and wait calls.
3. Mismatches between what the code intended and what the video shows.
4. Visual clues of errors: garbled LaTeX, elements off-screen, empty boxes where a Text needs a font parameter.

Report each issue on its own line as "Scene N [low|medium|high]: description", including the relevant code snippet when useful.
If there are no significant issues, respond with the single word: SATISFIED
If there are issues, end your reply with the single word: REVISION_NEEDED`

const narrationPrompt = `You are given a silent educational animation video about %q.
Write a concise, engaging voiceover script in %s that:
- matches the video's timeline from start to end;
- contains only the spoken lines, with no timestamps, stage directions or commentary;
- keeps formulas and universal technical terms in English when translating them would be awkward.
Separate paragraphs with a blank line where a short pause fits.
Output ONLY the narration text.`

// Evaluator implements ports.Evaluator.
type Evaluator struct {
	client *Client
}

var _ ports.Evaluator = (*Evaluator)(nil)

// NewEvaluator wraps a client.
func NewEvaluator(c *Client) *Evaluator {
	return &Evaluator{client: c}
}

// Evaluate reviews the rendered video against its script.
func (e *Evaluator) Evaluate(ctx context.Context, req ports.EvaluationRequest) (ports.Evaluation, error) {
	reply, err := e.client.AskAboutVideo(ctx, req.VideoPath, fmt.Sprintf(evaluationPrompt, req.Script))
	if err != nil {
		return ports.Evaluation{}, err
	}
	return ParseVerdict(reply), nil
}

// Narrator implements ports.Narrator.
type Narrator struct {
	client *Client
}

var _ ports.Narrator = (*Narrator)(nil)

// NewNarrator wraps a client.
func NewNarrator(c *Client) *Narrator {
	return &Narrator{client: c}
}

// Narrate writes a voiceover matched to the video.
func (n *Narrator) Narrate(ctx context.Context, req ports.NarrationRequest) (string, error) {
	reply, err := n.client.AskAboutVideo(ctx, req.VideoPath, fmt.Sprintf(narrationPrompt, req.Concept, req.Language))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
