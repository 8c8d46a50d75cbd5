package differ

import (
	"html"

	"github.com/aleister1102/designdiff/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

func toDMP(segments []models.MarkupDiffSegment) []diffmatchpatch.Diff {
	diffs := make([]diffmatchpatch.Diff, 0, len(segments))
	for _, s := range segments {
		op := diffmatchpatch.DiffEqual
		switch s.Operation {
		case models.DiffInsert:
			op = diffmatchpatch.DiffInsert
		case models.DiffDelete:
			op = diffmatchpatch.DiffDelete
		}
		diffs = append(diffs, diffmatchpatch.Diff{Type: op, Text: s.Text})
	}
	return diffs
}

func renderDiffPage(name, body string) string {
	return `<!doctype html>
<html><head><meta charset="utf-8"><title>Markup diff: ` + html.EscapeString(name) + `</title>
<style>body{font-family:monospace}ins{background:#e6ffe6}del{background:#ffe6e6}</style>
</head><body>` + body + `</body></html>
`
}
