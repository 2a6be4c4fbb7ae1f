package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FeedbackKind identifies which variant of the feedback channel is populated.
type FeedbackKind string

const (
	FeedbackNone     FeedbackKind = "none"
	FeedbackRawError FeedbackKind = "raw_error"
	FeedbackIssues   FeedbackKind = "issues"
)

// Severity grades an evaluation issue. It is advisory only: routers never gate on it.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity maps free text onto a Severity, defaulting to medium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minor":
		return SeverityLow
	case "high", "major", "critical":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Issue is a single structured finding produced by an evaluation pass.
type Issue struct {
	// Scene is the 1-based scene number, or 0 when the issue concerns the whole video.
	Scene       int      `json:"scene"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

func (i Issue) String() string {
	if i.Scene > 0 {
		return fmt.Sprintf("scene %d [%s]: %s", i.Scene, i.Severity, i.Description)
	}
	return fmt.Sprintf("video [%s]: %s", i.Severity, i.Description)
}

// Feedback is the revision guidance channel. Exactly one variant is live at a time;
// the zero value is the empty variant. Values are immutable: producing new feedback
// always replaces the previous value.
type Feedback struct {
	kind   FeedbackKind
	raw    string
	issues []Issue
}

// NoFeedback returns the empty variant.
func NoFeedback() Feedback {
	return Feedback{}
}

// RawError returns the raw error variant.
func RawError(text string) Feedback {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "unspecified error"
	}
	return Feedback{kind: FeedbackRawError, raw: text}
}

// Issues returns the structured issues variant. An empty list yields the empty variant.
func Issues(list ...Issue) Feedback {
	if len(list) == 0 {
		return NoFeedback()
	}
	cp := make([]Issue, len(list))
	copy(cp, list)
	return Feedback{kind: FeedbackIssues, issues: cp}
}

// Kind reports the live variant.
func (f Feedback) Kind() FeedbackKind {
	if f.kind == "" {
		return FeedbackNone
	}
	return f.kind
}

// IsEmpty reports whether no guidance is present.
func (f Feedback) IsEmpty() bool {
	return f.Kind() == FeedbackNone
}

// Raw returns the raw error text when that variant is live.
func (f Feedback) Raw() (string, bool) {
	if f.kind != FeedbackRawError {
		return "", false
	}
	return f.raw, true
}

// IssueList returns a copy of the issues when that variant is live.
func (f Feedback) IssueList() ([]Issue, bool) {
	if f.kind != FeedbackIssues {
		return nil, false
	}
	cp := make([]Issue, len(f.issues))
	copy(cp, f.issues)
	return cp, true
}

func (f Feedback) String() string {
	switch f.Kind() {
	case FeedbackRawError:
		return f.raw
	case FeedbackIssues:
		lines := make([]string, 0, len(f.issues))
		for _, i := range f.issues {
			lines = append(lines, "- "+i.String())
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

type feedbackJSON struct {
	Kind   FeedbackKind `json:"kind"`
	Raw    string       `json:"raw,omitempty"`
	Issues []Issue      `json:"issues,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f Feedback) MarshalJSON() ([]byte, error) {
	return json.Marshal(feedbackJSON{Kind: f.Kind(), Raw: f.raw, Issues: f.issues})
}

// UnmarshalJSON implements json.Unmarshaler and rejects payloads carrying both variants.
func (f *Feedback) UnmarshalJSON(data []byte) error {
	var v feedbackJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Raw != "" && len(v.Issues) > 0 {
		return fmt.Errorf("feedback carries both raw error and issues")
	}
	switch v.Kind {
	case FeedbackRawError:
		*f = RawError(v.Raw)
	case FeedbackIssues:
		*f = Issues(v.Issues...)
	case FeedbackNone, "":
		*f = NoFeedback()
	default:
		return fmt.Errorf("unknown feedback kind %q", v.Kind)
	}
	return nil
}
