package model

import "time"

// RunStatus represents the terminal state of a report run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusRejected RunStatus = "rejected"
	RunStatusFailed   RunStatus = "failed"
)

// StepStatus represents the outcome of one pipeline step.
type StepStatus string

const (
	StepStatusComplete StepStatus = "complete"
	StepStatusFailed   StepStatus = "failed"
)

// StepResult holds the outcome of a pipeline step.
type StepResult struct {
	Name     string         `json:"name"`
	Status   StepStatus     `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunResult is the final output of one pipeline run.
type RunResult struct {
	RunID      string            `json:"run_id"`
	Status     RunStatus         `json:"status"`
	Submission FormSubmission    `json:"submission"`
	Contact    *Contact          `json:"contact,omitempty"`
	Report     *GeneratedReport  `json:"report,omitempty"`
	File       *StoredReportFile `json:"file,omitempty"`
	Email      *OutboundEmail    `json:"email,omitempty"`
	Steps      []StepResult      `json:"steps"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Error      string            `json:"error,omitempty"`
}
