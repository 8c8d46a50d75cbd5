package models

// DiffOperation defines the type of change.
type DiffOperation int

const (
	DiffEqual  DiffOperation = 0
	DiffInsert DiffOperation = 1
	DiffDelete DiffOperation = -1
)

// MarkupDiffSegment is one run of equal, inserted or deleted markup lines
type MarkupDiffSegment struct {
	Operation DiffOperation `json:"operation"`
	Text      string        `json:"text"`
}

// MarkupDiffResult is the full line diff between a stored markup snapshot and the current render
type MarkupDiffResult struct {
	Segments         []MarkupDiffSegment `json:"segments"`
	LinesAdded       int                 `json:"lines_added"`
	LinesDeleted     int                 `json:"lines_deleted"`
	IsIdentical      bool                `json:"is_identical"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
}

// Summary reduces the result to what a scenario reports
func (r *MarkupDiffResult) Summary() MarkupDiffSummary {
	return MarkupDiffSummary{
		Changed:    !r.IsIdentical,
		Insertions: r.LinesAdded,
		Deletions:  r.LinesDeleted,
	}
}
