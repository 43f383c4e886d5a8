// Package dashboard assembles the aggregated data items the dashboard
// frontend consumes and serves them over the HTTP feed.
package dashboard

import "time"

// Data item names as published on the feed.
const (
	ItemCurrentTreatmentLevel       = "current.treatmentlevel"
	ItemCurrentMaxTreatmentLevel    = "current.maxtreatmentlevel"
	ItemCumulativeMaxTreatmentLevel = "cumulative.maxtreatmentlevel"
	ItemTimelineMaxTreatmentLevel   = "timeline.maxtreatmentlevel"
)

// Report is one full pipeline run as published on the feed.
type Report struct {
	RunID       string     `json:"run_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Items       []DataItem `json:"items"`
}

// DataItem is one named aggregate. Scalar items fill Values; the
// timeline item fills Timeline instead. CaseIDs is only populated when
// debug output is enabled.
type DataItem struct {
	Name     string              `json:"name"`
	Values   map[string]int      `json:"values,omitempty"`
	Timeline *TimelineSeries     `json:"timeline,omitempty"`
	CaseIDs  map[string][]string `json:"case_ids,omitempty"`
}

// TimelineSeries is a set of per-day count series sharing one date axis.
type TimelineSeries struct {
	Dates  []string         `json:"dates"`
	Series map[string][]int `json:"series"`

	// CaseIDs mirrors Series with the raw case ids per day, debug only.
	CaseIDs map[string][][]string `json:"case_ids,omitempty"`
}
