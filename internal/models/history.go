package models

import "time"

// RunSummary is one stored suite run
type RunSummary struct {
	RunID        string    `json:"run_id"`
	BaseURL      string    `json:"base_url"`
	DesignURL    string    `json:"design_url,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Passed       int       `json:"passed"`
	Failed       int       `json:"failed"`
	Inconclusive int       `json:"inconclusive"`
	ReportPath   string    `json:"report_path,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// ScenarioRecord is one stored scenario outcome
type ScenarioRecord struct {
	RunID      string         `json:"run_id"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Status     ScenarioStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	Attempts   int            `json:"attempts"`
	Duration   time.Duration  `json:"duration"`
	DiffPixels int            `json:"diff_pixels"`
	DiffRatio  float64        `json:"diff_ratio"`
	StartedAt  time.Time      `json:"started_at"`
}
