package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/reel/internal/textutil"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

const plannerSystem = "You are an educational planner. Output ONLY the raw JSON list."

const plannerPrompt = `Create a structured plan for an educational Manim animation video explaining the concept: %q.
Favor clear, step-by-step visual intuition.

If the concept implies a duration, plan roughly one scene per 5-10 seconds. Otherwise cover the topic thoroughly.
Use ThreeDScene objects (ThreeDAxes, Surface, Sphere) only when the concept needs 3D; default to 2D.

For each scene give a concise "title" and a detailed "description" covering the key idea,
the visual elements to animate, useful Manim objects or animations, and the takeaway.

Output ONLY a JSON list of objects with keys "title" and "description".
No explanations, no markdown fences. The first character must be [ and the last must be ].`

// Planner implements ports.Planner.
type Planner struct {
	client *Client
}

var _ ports.Planner = (*Planner)(nil)

// NewPlanner wraps a client.
func NewPlanner(c *Client) *Planner {
	return &Planner{client: c}
}

// Plan asks the model for a scene list and numbers it in order.
func (p *Planner) Plan(ctx context.Context, concept string) ([]domain.Scene, error) {
	raw, err := p.client.Complete(ctx, plannerSystem, fmt.Sprintf(plannerPrompt, concept))
	if err != nil {
		return nil, err
	}
	return ParsePlan(raw)
}

// ParsePlan decodes a JSON scene list, tolerating code fences and leading chatter.
func ParsePlan(raw string) ([]domain.Scene, error) {
	text := textutil.StripCodeFences(raw)
	if i := strings.IndexByte(text, '['); i > 0 {
		text = text[i:]
	}
	if i := strings.LastIndexByte(text, ']'); i >= 0 && i < len(text)-1 {
		text = text[:i+1]
	}

	var scenes []domain.Scene
	if err := json.Unmarshal([]byte(text), &scenes); err != nil {
		return nil, fmt.Errorf("plan is not a JSON list: %w", err)
	}
	for i := range scenes {
		if strings.TrimSpace(scenes[i].Title) == "" || strings.TrimSpace(scenes[i].Description) == "" {
			return nil, fmt.Errorf("invalid scene at %d: title and description are required", i)
		}
		scenes[i].Number = i + 1
	}
	return scenes, nil
}
