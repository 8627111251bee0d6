package pipeline

import (
	"sync"
	"time"
)

// Outcome classifies how a topic-cycle ended.
type Outcome string

const (
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeSkippedEmpty Outcome = "skipped_empty_evidence"
	OutcomeFailed       Outcome = "failed"
)

// TopicResult is the outcome of one topic-cycle.
type TopicResult struct {
	Category  string
	Topic     string
	Outcome   Outcome
	Persisted int
	Err       string
}

// RunReport aggregates topic-cycle outcomes for one pipeline run.
// Aggregation is order-independent; cycles report in completion order.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	mu      sync.Mutex
	results []TopicResult
}

// NewRunReport starts an empty report stamped with the current time.
func NewRunReport() *RunReport {
	return &RunReport{StartedAt: time.Now()}
}

func (r *RunReport) record(res TopicResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns a copy of all per-topic outcomes.
func (r *RunReport) Results() []TopicResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TopicResult, len(r.results))
	copy(out, r.results)
	return out
}

func (r *RunReport) count(o Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Succeeded returns the number of cycles that persisted their drafts.
func (r *RunReport) Succeeded() int { return r.count(OutcomeSucceeded) }

// Skipped returns the number of cycles skipped for empty evidence.
func (r *RunReport) Skipped() int { return r.count(OutcomeSkippedEmpty) }

// Failed returns the number of cycles that failed after retries.
func (r *RunReport) Failed() int { return r.count(OutcomeFailed) }

// Persisted returns the total number of event records written.
func (r *RunReport) Persisted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		n += res.Persisted
	}
	return n
}
