package domain

// Status is the terminal outcome tag of a run.
type Status string

const (
	// StatusUnset means no terminal step or engine decision has set an outcome yet.
	StatusUnset   Status = ""
	StatusRunning Status = "running" // Only used by run records of in-flight runs.
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Scene is one entry of the structured plan.
type Scene struct {
	Number      int    `json:"scene_num"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// State is the Shared State Record of a single run.
// It is passed by value and replaced once per step; steps never mutate the record they receive.
type State struct {
	// Input
	Concept   string `json:"concept"`
	Language  string `json:"language"`
	RequestID string `json:"request_id"`
	WorkDir   string `json:"work_dir"`

	// Derived artifacts
	Plan            []Scene `json:"plan,omitempty"`
	Script          string  `json:"script,omitempty"`
	ScriptPath      string  `json:"script_path,omitempty"`
	SceneClass      string  `json:"scene_class,omitempty"`
	VideoPath       string  `json:"video_path,omitempty"`
	NarrationScript string  `json:"narration_script,omitempty"`
	NarrationPath   string  `json:"narration_path,omitempty"`
	AudioPath       string  `json:"audio_path,omitempty"`
	CombinedPath    string  `json:"combined_path,omitempty"`

	// OutputPath is the published final output. It is set if and only if Status is StatusSuccess.
	OutputPath string `json:"output_path,omitempty"`
	OutputURL  string `json:"output_url,omitempty"`

	// ResearchContext holds web findings gathered for the current raw error.
	ResearchContext string `json:"research_context,omitempty"`

	// Control
	Counters Counters `json:"counters"`
	Budgets  Budgets  `json:"budgets"`
	Feedback Feedback `json:"feedback"`

	Status  Status `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewState constructs the initial record of a run: all derived fields empty, counters zero.
func NewState(concept, language, requestID, workDir string, budgets Budgets) State {
	return State{
		Concept:   concept,
		Language:  language,
		RequestID: requestID,
		WorkDir:   workDir,
		Budgets:   budgets,
	}
}

// Clone returns a deep copy of the record.
func (s State) Clone() State {
	next := s
	if s.Plan != nil {
		next.Plan = make([]Scene, len(s.Plan))
		copy(next.Plan, s.Plan)
	}
	return next
}

// WithFeedback returns a copy of the record carrying the given feedback.
func (s State) WithFeedback(f Feedback) State {
	next := s.Clone()
	next.Feedback = f
	return next
}

// CanSpend reports whether the budget of the given kind has revisions left.
func (s State) CanSpend(kind BudgetKind) bool {
	return s.Counters.Get(kind) < s.Budgets.Max(kind)
}

// Terminated reports whether a terminal outcome has been recorded.
func (s State) Terminated() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailed
}
