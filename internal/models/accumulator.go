package models

import (
	"time"
)

// Accumulator collects records and outcomes while a run progresses. It is
// threaded explicitly through the mode loops instead of living as shared
// state, so the retry and pagination logic stays testable without I/O.
// Access is strictly sequential; see the concurrency model.
type Accumulator struct {
	runID      string
	mode       string
	startedAt  time.Time
	records    []Record
	outcomes   []PageOutcome
	pages      int
	stopReason string
	stopPage   int
}

func NewAccumulator(runID, mode string) *Accumulator {
	return &Accumulator{
		runID:     runID,
		mode:      mode,
		startedAt: time.Now().UTC(),
		records:   make([]Record, 0),
		outcomes:  make([]PageOutcome, 0),
	}
}

// AddOutcome appends one terminal outcome. Arrival order is preserved:
// pdp outcomes land in input order, plp outcomes in page order.
func (a *Accumulator) AddOutcome(o PageOutcome) {
	a.outcomes = append(a.outcomes, o)
}

func (a *Accumulator) AddRecord(r Record) {
	a.records = append(a.records, r)
}

// AddPageVisit counts one visited plp page.
func (a *Accumulator) AddPageVisit() {
	a.pages++
}

// SetStop records why the run stopped before its natural bound. The first
// recorded reason wins.
func (a *Accumulator) SetStop(reason string, page int) {
	if a.stopReason != "" {
		return
	}
	a.stopReason = reason
	a.stopPage = page
}

func (a *Accumulator) Records() []Record {
	return a.records
}

func (a *Accumulator) Outcomes() []PageOutcome {
	return a.outcomes
}

func (a *Accumulator) RunID() string {
	return a.runID
}

// Finalize freezes the run into a summary. Safe to call once the loops are
// done; calling it again recomputes from the same data.
func (a *Accumulator) Finalize() RunSummary {
	finished := time.Now().UTC()
	counts := make(map[string]int, 4)
	for _, o := range a.outcomes {
		counts[string(o.Status)]++
	}
	partial := 0
	for _, r := range a.records {
		if r.Status == StatusPartial {
			partial++
		}
	}
	return RunSummary{
		RunID:        a.runID,
		Mode:         a.mode,
		StartedAt:    a.startedAt,
		FinishedAt:   finished,
		ElapsedSec:   finished.Sub(a.startedAt).Seconds(),
		Attempted:    len(a.outcomes),
		Records:      len(a.records),
		Partial:      partial,
		PagesVisited: a.pages,
		Counts:       counts,
		StopReason:   a.stopReason,
		StopPage:     a.stopPage,
	}
}
