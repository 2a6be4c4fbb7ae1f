package domain

import "time"

// Result is the entry contract returned to callers of a run.
type Result struct {
	RunID           string        `json:"run_id"`
	Status          Status        `json:"status"`
	OutputReference string        `json:"output_reference,omitempty"`
	Message         string        `json:"message,omitempty"`
	Category        ErrorCategory `json:"category,omitempty"`
}

// RunRecord is the persisted summary of a run. The state record itself is never persisted.
type RunRecord struct {
	ID              string        `json:"id"`
	Concept         string        `json:"concept"`
	Language        string        `json:"language"`
	Status          Status        `json:"status"`
	Category        ErrorCategory `json:"category,omitempty"`
	Message         string        `json:"message,omitempty"`
	OutputReference string        `json:"output_reference,omitempty"`
	Counters        Counters      `json:"counters"`
	Steps           int           `json:"steps"`
	Trail           []string      `json:"trail,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at,omitzero"`
}

// Result projects the record onto the entry contract.
func (r RunRecord) Result() Result {
	return Result{
		RunID:           r.ID,
		Status:          r.Status,
		OutputReference: r.OutputReference,
		Message:         r.Message,
		Category:        r.Category,
	}
}
