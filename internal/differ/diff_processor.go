package differ

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffProcessor handles the core diffing logic
type DiffProcessor struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewDiffProcessor creates a new diff processor
func NewDiffProcessor() *DiffProcessor {
	return &DiffProcessor{
		dmp: diffmatchpatch.New(),
	}
}

// ProcessDiff diffs two texts line by line. Each returned segment holds whole
// lines; no semantic cleanup is applied since it can split lines.
func (dp *DiffProcessor) ProcessDiff(text1, text2 string) []diffmatchpatch.Diff {
	chars1, chars2, lines := dp.dmp.DiffLinesToChars(text1, text2)
	diffs := dp.dmp.DiffMain(chars1, chars2, false)
	return dp.dmp.DiffCharsToLines(diffs, lines)
}

// PrettyHTML renders diffs as an HTML fragment with <ins>/<del> markup
func (dp *DiffProcessor) PrettyHTML(diffs []diffmatchpatch.Diff) string {
	return dp.dmp.DiffPrettyHtml(diffs)
}

// DiffStatistics holds diff calculation results
type DiffStatistics struct {
	LinesAdded   int
	LinesDeleted int
	IsIdentical  bool
}

// CalculateStats counts inserted and deleted lines
func CalculateStats(diffs []diffmatchpatch.Diff) DiffStatistics {
	stats := DiffStatistics{IsIdentical: true}

	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			stats.LinesAdded += countLines(diff.Text)
			stats.IsIdentical = false
		case diffmatchpatch.DiffDelete:
			stats.LinesDeleted += countLines(diff.Text)
			stats.IsIdentical = false
		}
	}
	return stats
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
