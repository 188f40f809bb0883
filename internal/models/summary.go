package models

import (
	"context"
	"errors"
	"time"
)

// RunSummary aggregates one run for summary.json, the notifier and the
// optional record store.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Mode         string         `json:"mode"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	ElapsedSec   float64        `json:"elapsed_sec"`
	Attempted    int            `json:"attempted"`
	Records      int            `json:"records"`
	Partial      int            `json:"partial"`
	PagesVisited int            `json:"pages_visited,omitempty"`
	Counts       map[string]int `json:"counts"`
	StopReason   string         `json:"stop_reason,omitempty"`
	StopPage     int            `json:"stop_page,omitempty"`
}

func (s RunSummary) OKCount() int {
	return s.Counts[string(StatusOK)]
}

// OKRecordCount counts fully extracted records, PARTIAL ones excluded.
// The process exit code is derived from it.
func (s RunSummary) OKRecordCount() int {
	return s.Records - s.Partial
}

// StopCause names why a run ended before its natural bound, for the
// StopReason field.
func StopCause(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "max runtime reached"
	}
	return "cancelled"
}
