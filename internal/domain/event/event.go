// Package event defines the ordered event vocabulary emitted by the query
// orchestrator, plus the per-request stream state machine.
package event

import (
	"encoding/json"

	"github.com/clearway-labs/regent/internal/domain/citation"
	"github.com/clearway-labs/regent/internal/domain/query"
)

// TaskKind identifies a retrieval task. The wire names are kept short for
// compatibility with existing stream consumers.
type TaskKind string

const (
	TaskRetrieval      TaskKind = "rag"
	TaskCitationSearch TaskKind = "sonar"
)

// Event is one entry in the finite, ordered sequence produced by a single
// orchestration run. Exactly one terminal event closes every sequence.
type Event interface {
	// Terminal reports whether no further events follow this one.
	Terminal() bool
}

// TaskProgress reports that one retrieval task settled successfully.
type TaskProgress struct {
	Kind   TaskKind `json:"-"`
	Status string   `json:"status"`
	Count  int      `json:"count"`
}

// NewTaskProgress builds the progress event for a settled task.
func NewTaskProgress(kind TaskKind, count int) TaskProgress {
	status := "Internal citations retrieved"
	if kind == TaskCitationSearch {
		status = "External citations retrieved"
	}
	return TaskProgress{Kind: kind, Status: status, Count: count}
}

// Terminal implements Event.
func (TaskProgress) Terminal() bool { return false }

// TaskError reports that one retrieval task failed. The failure is isolated:
// the run continues with that task's result set empty.
type TaskError struct {
	Kind    TaskKind `json:"-"`
	Error   string   `json:"error"`
	Details string   `json:"details"`
}

// NewTaskError builds the error event for a failed task.
func NewTaskError(kind TaskKind, err error) TaskError {
	return TaskError{
		Kind:    kind,
		Error:   string(kind) + " module error",
		Details: err.Error(),
	}
}

// Terminal implements Event.
func (TaskError) Terminal() bool { return false }

// HintsReady reports that the next-step hint was generated.
type HintsReady struct {
	Status string `json:"status"`
}

// NewHintsReady builds the hint success event.
func NewHintsReady() HintsReady {
	return HintsReady{Status: "Next step hint generated"}
}

// Terminal implements Event.
func (HintsReady) Terminal() bool { return false }

// HintsError reports that hint generation failed; a fallback sentence has
// been substituted into the result.
type HintsError struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewHintsError builds the hint failure event.
func NewHintsError(err error) HintsError {
	return HintsError{Status: "Error generating hints", Error: err.Error()}
}

// Terminal implements Event.
func (HintsError) Terminal() bool { return false }

// Completed is the successful terminal event carrying the full result.
type Completed struct {
	Result *query.Result
}

// Terminal implements Event.
func (Completed) Terminal() bool { return true }

// MarshalJSON renders the terminal stream payload.
func (c Completed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Query             string            `json:"query"`
		InternalCitations []citation.Record `json:"internal_citations"`
		ExternalCitations []citation.Record `json:"external_citations"`
		NextStepHint      *string           `json:"next_step_hint"`
		Summary           query.Summary     `json:"summary"`
		Status            string            `json:"status"`
	}{
		Query:             c.Result.Query,
		InternalCitations: c.Result.Internal,
		ExternalCitations: c.Result.External,
		NextStepHint:      c.Result.NextStepHint(),
		Summary:           c.Result.Summary(),
		Status:            "completed",
	})
}

// Failed is the terminal event for an unrecovered orchestration-level fault.
type Failed struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Status  string `json:"status"`
}

// NewFailed builds the fatal terminal event.
func NewFailed(details string) Failed {
	return Failed{Error: "Internal server error", Details: details, Status: "error"}
}

// Terminal implements Event.
func (Failed) Terminal() bool { return true }
