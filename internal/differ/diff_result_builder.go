package differ

import (
	"time"

	"github.com/aleister1102/designdiff/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// MarkupDiffResultBuilder builds MarkupDiffResult objects
type MarkupDiffResultBuilder struct {
	result models.MarkupDiffResult
}

// NewMarkupDiffResultBuilder creates a new result builder
func NewMarkupDiffResultBuilder() *MarkupDiffResultBuilder {
	return &MarkupDiffResultBuilder{}
}

// WithError sets an error message
func (rb *MarkupDiffResultBuilder) WithError(errorMessage string) *MarkupDiffResultBuilder {
	rb.result.ErrorMessage = errorMessage
	return rb
}

// WithProcessingTime sets the processing time
func (rb *MarkupDiffResultBuilder) WithProcessingTime(duration time.Duration) *MarkupDiffResultBuilder {
	rb.result.ProcessingTimeMs = duration.Milliseconds()
	return rb
}

// WithDiffs sets the diff segments and statistics
func (rb *MarkupDiffResultBuilder) WithDiffs(diffs []diffmatchpatch.Diff, stats DiffStatistics) *MarkupDiffResultBuilder {
	segments := make([]models.MarkupDiffSegment, 0, len(diffs))
	for _, diff := range diffs {
		segments = append(segments, models.MarkupDiffSegment{
			Operation: mapDiffOperation(diff.Type),
			Text:      diff.Text,
		})
	}
	rb.result.Segments = segments
	rb.result.LinesAdded = stats.LinesAdded
	rb.result.LinesDeleted = stats.LinesDeleted
	rb.result.IsIdentical = stats.IsIdentical
	return rb
}

func mapDiffOperation(diffType diffmatchpatch.Operation) models.DiffOperation {
	switch diffType {
	case diffmatchpatch.DiffInsert:
		return models.DiffInsert
	case diffmatchpatch.DiffDelete:
		return models.DiffDelete
	default:
		return models.DiffEqual
	}
}

// Build creates the final MarkupDiffResult
func (rb *MarkupDiffResultBuilder) Build() *models.MarkupDiffResult {
	return &rb.result
}
