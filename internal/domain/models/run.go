package models

import "time"

// RunStatus is the overall completion state of a pipeline run.
type RunStatus string

const (
	RunCompleted          RunStatus = "completed"
	RunCompletedWithSkips RunStatus = "completed_with_skips"
	RunFailed             RunStatus = "failed"
)

// SkippedSeries records a series that could not be processed.
type SkippedSeries struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// SinkError records a result consumer that failed.
type SinkError struct {
	Sink   string `json:"sink"`
	Reason string `json:"reason"`
}

// RunResult is everything one pipeline run produced.
type RunResult struct {
	ID         string                   `json:"id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Status     RunStatus                `json:"status"`
	Labeled    map[string]LabeledSeries `json:"-"`
	Summaries  SummaryReport            `json:"summaries"`
	Skipped    []SkippedSeries          `json:"skipped"`
	SinkErrors []SinkError              `json:"sink_errors,omitempty"`
}

// Names returns the processed series names in the order they were requested.
func (r *RunResult) Names(requested []string) []string {
	out := make([]string, 0, len(r.Labeled))
	for _, n := range requested {
		if _, ok := r.Labeled[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// RunReport is the transport view of a RunResult.
type RunReport struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Status     RunStatus       `json:"status"`
	Processed  []SeriesDigest  `json:"processed"`
	Skipped    []SkippedSeries `json:"skipped"`
	SinkErrors []SinkError     `json:"sink_errors,omitempty"`
}

// SeriesDigest summarizes one processed series for reporting.
type SeriesDigest struct {
	Name           string         `json:"name"`
	Rows           int            `json:"rows"`
	MissingReturns int            `json:"missing_returns"`
	RegimeDays     map[Regime]int `json:"regime_days"`
}
