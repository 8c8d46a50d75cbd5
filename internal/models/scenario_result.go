package models

import "time"

// ScenarioStatus is the outcome of a single scenario
type ScenarioStatus string

const (
	StatusPassed       ScenarioStatus = "passed"
	StatusFailed       ScenarioStatus = "failed"
	StatusInconclusive ScenarioStatus = "inconclusive"
)

// Attachment is a diagnostic file produced by a scenario (screenshot, diff, markup diff)
type Attachment struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	URL         string `json:"url,omitempty"`
}

// AssertionResult is the outcome of one structural or layout check
type AssertionResult struct {
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	Message     string `json:"message,omitempty"`
}

// ScenarioResult is reported for every executed scenario
type ScenarioResult struct {
	Name        string             `json:"name"`
	Kind        string             `json:"kind"`
	URL         string             `json:"url"`
	Status      ScenarioStatus     `json:"status"`
	Error       string             `json:"error,omitempty"`
	Attempts    int                `json:"attempts"`
	Duration    time.Duration      `json:"duration"`
	Comparison  *ComparisonResult  `json:"comparison,omitempty"`
	Assertions  []AssertionResult  `json:"assertions,omitempty"`
	Markup      *MarkupDiffSummary `json:"markup,omitempty"`
	Attachments []Attachment       `json:"attachments,omitempty"`
}

// Failed reports whether the scenario counts as a failure
func (r *ScenarioResult) Failed() bool {
	return r.Status == StatusFailed
}

// MarkupDiffSummary describes drift of a rendered region's markup between runs
type MarkupDiffSummary struct {
	Changed      bool `json:"changed"`
	Bootstrapped bool `json:"bootstrapped,omitempty"`
	Insertions   int  `json:"insertions"`
	Deletions    int  `json:"deletions"`
}

// SuiteReport aggregates one run of the whole suite
type SuiteReport struct {
	RunID        string           `json:"run_id"`
	BaseURL      string           `json:"base_url"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	DesignURL    string           `json:"design_url,omitempty"`
	Baselines    []BaselineImage  `json:"baselines,omitempty"`
	SetupWarning []string         `json:"setup_warnings,omitempty"`
	Results      []ScenarioResult `json:"results"`
	Passed       int              `json:"passed"`
	Failed       int              `json:"failed"`
	Inconclusive int              `json:"inconclusive"`
	ReportPath   string           `json:"report_path,omitempty"`
	// ReportURL is set when the report was uploaded to remote storage
	ReportURL    string           `json:"report_url,omitempty"`
}

// Tally recomputes the aggregate counters from Results
func (s *SuiteReport) Tally() {
	s.Passed, s.Failed, s.Inconclusive = 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusInconclusive:
			s.Inconclusive++
		}
	}
}

// HasFailures reports whether any scenario failed
func (s *SuiteReport) HasFailures() bool {
	return s.Failed > 0
}
