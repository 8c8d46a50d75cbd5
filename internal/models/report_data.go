package models

import "html/template"

// ImageDisplay is an image shown next to a scenario in the HTML report
type ImageDisplay struct {
	Name string
	// Src is a data URI when images are embedded, otherwise a path relative to the report
	Src string
}

// ScenarioDisplay is a ScenarioResult tailored for the HTML report
type ScenarioDisplay struct {
	ScenarioResult
	Images []ImageDisplay
	Links  []Attachment
}

// ReportPageData holds all the data needed to render the HTML report template.
type ReportPageData struct {
	ReportTitle  string
	GeneratedAt  string
	Report       *SuiteReport
	Scenarios    []ScenarioDisplay
	StaticCSS    template.CSS
	ResultsJSON  template.JS
	HasWarnings  bool
	TotalResults int
}
