package reporter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHtmlReporter(t *testing.T, embed bool) (*HtmlReporter, string) {
	t.Helper()
	cfg := config.NewDefaultReporterConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "reports")
	cfg.EmbedImages = embed
	reporter, err := NewHtmlReporter(cfg, zerolog.Nop())
	require.NoError(t, err)
	return reporter, cfg.OutputDir
}

func sampleReport(t *testing.T) *models.SuiteReport {
	t.Helper()
	diff := filepath.Join(t.TempDir(), "contact-form-diff.png")
	require.NoError(t, os.WriteFile(diff, []byte("\x89PNG fake"), 0644))

	report := &models.SuiteReport{
		RunID:        "20261018-abc",
		BaseURL:      "http://localhost:5178",
		StartedAt:    time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2026, 10, 18, 9, 0, 12, 0, time.UTC),
		DesignURL:    "https://www.figma.com/design/qh39N0zcMJfRKKkjPnBXKJ/?node-id=109-1005",
		SetupWarning: []string{"FIGMA_ACCESS_TOKEN not set"},
		Results: []models.ScenarioResult{
			{
				Name:   "contact-form",
				Kind:   config.KindVisual,
				Status: models.StatusFailed,
				Error:  "150 pixels differ",
				Comparison: &models.ComparisonResult{
					DiffPixels: 150, TotalPixels: 10000, DiffRatio: 0.015, MaxDiffPixels: 100, Threshold: 0.2,
				},
				Attachments: []models.Attachment{{Name: "diff", Path: diff, ContentType: "image/png"}},
			},
			{
				Name:       "contact-form-layout-structure",
				Kind:       config.KindStructural,
				Status:     models.StatusPassed,
				Assertions: []models.AssertionResult{{Description: `label "Name" is visible`, Passed: true}},
			},
		},
	}
	report.Tally()
	return report
}

func TestGenerateReport_WritesHTMLAndJSON(t *testing.T) {
	reporter, outDir := newTestHtmlReporter(t, true)
	report := sampleReport(t)

	path, err := reporter.GenerateReport(report)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "20261018-abc", "report.html"), path)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(html)
	assert.Contains(t, body, "Design vs Code Comparison")
	assert.Contains(t, body, "Contact Form Layout Structure")
	assert.Contains(t, body, "150 of 10000")
	assert.Contains(t, body, "FIGMA_ACCESS_TOKEN not set")
	assert.Contains(t, body, "data:image/png;base64,")

	raw, err := os.ReadFile(filepath.Join(outDir, "20261018-abc", "report.json"))
	require.NoError(t, err)
	var decoded models.SuiteReport
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1, decoded.Failed)
	assert.Equal(t, "contact-form", decoded.Results[0].Name)
}

func TestGenerateReport_LinksImagesWhenNotEmbedding(t *testing.T) {
	reporter, _ := newTestHtmlReporter(t, false)

	path, err := reporter.GenerateReport(sampleReport(t))
	require.NoError(t, err)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "data:image/png;base64,")
	assert.Contains(t, string(html), "contact-form-diff.png")
}

func TestPublish_SetsReportPath(t *testing.T) {
	reporter, _ := newTestHtmlReporter(t, true)
	report := sampleReport(t)

	require.NoError(t, reporter.Publish(context.Background(), report))
	assert.FileExists(t, report.ReportPath)
}

func TestNewHtmlReporter_CustomTemplate(t *testing.T) {
	tmplPath := filepath.Join(t.TempDir(), "custom.tmpl")
	require.NoError(t, os.WriteFile(tmplPath, []byte(`{{ .Report.RunID }}: {{ .Report.Failed }} failed`), 0644))

	cfg := config.NewDefaultReporterConfig()
	cfg.OutputDir = t.TempDir()
	cfg.TemplatePath = tmplPath
	reporter, err := NewHtmlReporter(cfg, zerolog.Nop())
	require.NoError(t, err)

	path, err := reporter.GenerateReport(sampleReport(t))
	require.NoError(t, err)
	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "20261018-abc: 1 failed", string(html))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Full Page", titleCase("full-page"))
	assert.Equal(t, "", titleCase(""))
}
