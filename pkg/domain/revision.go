package domain

import (
	"fmt"
	"strings"
)

// RevisionMode tells the code generator what kind of guidance it received.
type RevisionMode string

const (
	RevisionRenderFix  RevisionMode = "render_fix"
	RevisionEvaluation RevisionMode = "evaluation"
)

// Revision is the single merged input handed to the code-generation capability
// when the feedback channel is not empty.
type Revision struct {
	Mode           RevisionMode
	Error          string
	Research       string
	Issues         []Issue
	PreviousScript string
}

// RevisionFrom merges the feedback channel, research context and previous script into
// one revision input. It returns nil when there is nothing to revise.
func RevisionFrom(s State) *Revision {
	switch s.Feedback.Kind() {
	case FeedbackRawError:
		raw, _ := s.Feedback.Raw()
		return &Revision{
			Mode:           RevisionRenderFix,
			Error:          raw,
			Research:       s.ResearchContext,
			PreviousScript: s.Script,
		}
	case FeedbackIssues:
		issues, _ := s.Feedback.IssueList()
		return &Revision{
			Mode:           RevisionEvaluation,
			Issues:         issues,
			PreviousScript: s.Script,
		}
	default:
		return nil
	}
}

// Guidance renders the revision as plain text.
func (r Revision) Guidance() string {
	var b strings.Builder
	switch r.Mode {
	case RevisionRenderFix:
		b.WriteString("The previous script failed to render with this error:\n")
		b.WriteString(r.Error)
		b.WriteString("\n")
		if strings.TrimSpace(r.Research) != "" {
			b.WriteString("\nFindings from a web search for this error:\n")
			b.WriteString(r.Research)
			b.WriteString("\n")
		}
	case RevisionEvaluation:
		b.WriteString("A review of the rendered video found these issues:\n")
		for _, i := range r.Issues {
			fmt.Fprintf(&b, "- %s\n", i)
		}
	}
	return b.String()
}
