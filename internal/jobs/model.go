package jobs

import (
	"errors"
	"time"

	"tender-backend/internal/profiles"
)

// State is a processing job's position in the pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateAnalyzing  State = "analyzing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

var (
	ErrNotFound = errors.New("job not found")
	// ErrStateConflict means the job was not in the expected state when a
	// conditional write ran, usually because another worker moved it first.
	ErrStateConflict = errors.New("job state conflict")
)

var stageOrder = map[State]int{
	StateIdle:       0,
	StateUploading:  1,
	StateProcessing: 2,
	StateAnalyzing:  3,
	StateCompleted:  4,
}

var labels = map[State]string{
	StateIdle:       "Ready to upload",
	StateUploading:  "Uploading document",
	StateProcessing: "Reading document",
	StateAnalyzing:  "Analyzing company profile",
	StateCompleted:  "Profile updated",
	StateError:      "Processing failed",
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Label is the user-facing description of s.
func (s State) Label() string {
	return labels[s]
}

// CanTransition reports whether from -> to is a legal move. Stages only move
// forward one step at a time; any non-terminal state may fail.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateError {
		return true
	}
	f, okFrom := stageOrder[from]
	t, okTo := stageOrder[to]
	return okFrom && okTo && t == f+1
}

// Job is one document's trip through the pipeline.
type Job struct {
	ID           string
	DocumentID   string
	UserID       string
	State        State
	OCRText      string
	Extraction   *profiles.Extraction
	ClaimedStage State
	ClaimedAt    *time.Time
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Status is the externally visible view of a job.
type Status struct {
	JobID        string    `json:"jobId"`
	DocumentID   string    `json:"documentId"`
	State        State     `json:"state"`
	Label        string    `json:"label"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Status returns the view of j.
func (j Job) Status() Status {
	return Status{
		JobID:        j.ID,
		DocumentID:   j.DocumentID,
		State:        j.State,
		Label:        j.State.Label(),
		ErrorMessage: j.ErrorMessage,
		UpdatedAt:    j.UpdatedAt,
	}
}

// Patch carries the partial results written alongside a transition.
type Patch struct {
	OCRText     *string
	Extraction  *profiles.Extraction
	CompletedAt *time.Time
}
