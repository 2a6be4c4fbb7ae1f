package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

const coderSystem = "You are a senior Manim developer. Output ONLY raw Python code."

// Coder implements ports.Coder.
type Coder struct {
	client *Client
}

var _ ports.Coder = (*Coder)(nil)

// NewCoder wraps a client.
func NewCoder(c *Client) *Coder {
	return &Coder{client: c}
}

// Generate writes or revises a single-class Manim script.
func (c *Coder) Generate(ctx context.Context, req ports.CodeRequest) (string, error) {
	return c.client.Complete(ctx, coderSystem, CodePrompt(req))
}

// CodePrompt renders the user prompt for a generation or a revision.
func CodePrompt(req ports.CodeRequest) string {
	var plan strings.Builder
	for _, s := range req.Plan {
		fmt.Fprintf(&plan, "---\nScene %d: %s\nDescription: %s\n", s.Number, s.Title, s.Description)
	}
	plan.WriteString("---")

	if req.Revision == nil {
		return fmt.Sprintf("Generate one single, complete and runnable Manim Python script containing exactly one Scene class explaining %q.\n"+
			"Implement the scenes sequentially inside construct():\n%s\n\n"+
			"Output ONLY the raw Python code.", req.Concept, plan.String())
	}

	var intro string
	switch req.Revision.Mode {
	case domain.RevisionRenderFix:
		intro = "The previous script for %q failed to render. Revise it to fix the reported error."
	default:
		intro = "The previous script for %q received review feedback. Revise the entire script accordingly."
	}
	return fmt.Sprintf(intro+"\n\nOriginal plan:\n%s\n\n%s\nPrevious code:\n```python\n%s\n```\n\n"+
		"Output ONLY the corrected raw Python code (single Scene class).",
		req.Concept, plan.String(), req.Revision.Guidance(), req.Revision.PreviousScript)
}
