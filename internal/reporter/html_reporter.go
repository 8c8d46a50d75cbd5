package reporter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
)

// HtmlReporter renders a suite report as a self-contained HTML page plus a JSON document
type HtmlReporter struct {
	cfg         config.ReporterConfig
	logger      zerolog.Logger
	template    *template.Template
	staticCSS   template.CSS
	fileManager *common.FileManager
}

// NewHtmlReporter creates a new HtmlReporter
func NewHtmlReporter(cfg config.ReporterConfig, appLogger zerolog.Logger) (*HtmlReporter, error) {
	moduleLogger := appLogger.With().Str("component", "HtmlReporter").Logger()

	if cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultReporterOutputDir
		moduleLogger.Debug().Str("default_dir", cfg.OutputDir).Msg("OutputDir not specified, using default.")
	}
	if cfg.ReportTitle == "" {
		cfg.ReportTitle = config.DefaultReportTitle
	}

	reporter := &HtmlReporter{
		cfg:         cfg,
		logger:      moduleLogger,
		fileManager: common.NewFileManager(appLogger),
	}

	if err := reporter.setupTemplate(); err != nil {
		return nil, err
	}

	css, err := assetsFS.ReadFile(EmbeddedCSSPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded stylesheet: %w", err)
	}
	reporter.staticCSS = template.CSS(css)

	return reporter, nil
}

// setupTemplate parses the custom template when configured, the embedded one otherwise
func (r *HtmlReporter) setupTemplate() error {
	if r.cfg.TemplatePath != "" {
		r.logger.Info().Str("template_path", r.cfg.TemplatePath).Msg("Loading custom report template from file.")
		tmpl, err := template.New(filepath.Base(r.cfg.TemplatePath)).Funcs(GetCommonTemplateFunctions()).ParseFiles(r.cfg.TemplatePath)
		if err != nil {
			return fmt.Errorf("failed to parse custom report template '%s': %w", r.cfg.TemplatePath, err)
		}
		r.template = tmpl
		return nil
	}

	content, err := templatesFS.ReadFile(EmbeddedTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to load embedded default report template: %w", err)
	}
	cleaned := strings.ReplaceAll(string(content), "\r\n", "\n")
	tmpl, err := template.New(DefaultReportTemplateName).Funcs(GetCommonTemplateFunctions()).Parse(cleaned)
	if err != nil {
		return fmt.Errorf("failed to parse embedded report template: %w", err)
	}
	r.template = tmpl
	return nil
}

// ReportDir is the directory a run's reports are written to
func (r *HtmlReporter) ReportDir(runID string) string {
	return filepath.Join(r.cfg.OutputDir, runID)
}

// Name identifies the reporter in logs
func (r *HtmlReporter) Name() string { return "html-report" }

// Publish writes the reports and records the HTML path on the report
func (r *HtmlReporter) Publish(ctx context.Context, report *models.SuiteReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.GenerateReport(report)
	if err != nil {
		return err
	}
	report.ReportPath = path
	return nil
}

// GenerateReport writes <output_dir>/<run_id>/report.html and report.json and
// returns the HTML path
func (r *HtmlReporter) GenerateReport(report *models.SuiteReport) (string, error) {
	if report == nil {
		return "", common.NewValidationError("report", report, "report cannot be nil")
	}
	dir := r.ReportDir(report.RunID)

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", common.WrapError(err, "failed to marshal report")
	}
	if err := r.fileManager.WriteBytesAtomic(filepath.Join(dir, ReportJSONFile), jsonData); err != nil {
		return "", err
	}

	pageData := r.preparePageData(report, dir)
	htmlBuffer := common.DefaultBufferPool.Get()
	defer common.DefaultBufferPool.Put(htmlBuffer)
	if err := r.template.Execute(htmlBuffer, pageData); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	outputPath := filepath.Join(dir, ReportHTMLFile)
	if err := r.fileManager.WriteBytesAtomic(outputPath, htmlBuffer.Bytes()); err != nil {
		return "", err
	}

	r.logger.Info().Str("path", outputPath).Int("scenarios", len(report.Results)).Msg("HTML report generated")
	return outputPath, nil
}

func (r *HtmlReporter) preparePageData(report *models.SuiteReport, reportDir string) models.ReportPageData {
	pageData := models.ReportPageData{
		ReportTitle:  r.cfg.ReportTitle,
		GeneratedAt:  time.Now().Format("2006-01-02 15:04:05"),
		Report:       report,
		StaticCSS:    r.staticCSS,
		HasWarnings:  len(report.SetupWarning) > 0,
		TotalResults: len(report.Results),
	}

	for _, result := range report.Results {
		display := models.ScenarioDisplay{ScenarioResult: result}
		for _, att := range result.Attachments {
			if att.ContentType == "image/png" {
				if src := r.imageSource(att, reportDir); src != "" {
					display.Images = append(display.Images, models.ImageDisplay{Name: att.Name, Src: src})
				}
				continue
			}
			link := att
			link.Path = relativeTo(reportDir, att.Path)
			display.Links = append(display.Links, link)
		}
		pageData.Scenarios = append(pageData.Scenarios, display)
	}

	if data, err := json.Marshal(report.Results); err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal results to JSON")
		pageData.ResultsJSON = template.JS("[]")
	} else {
		pageData.ResultsJSON = template.JS(data)
	}
	return pageData
}

// imageSource embeds small images as data URIs and links the rest
func (r *HtmlReporter) imageSource(att models.Attachment, reportDir string) string {
	if att.URL != "" {
		return att.URL
	}
	if att.Path == "" {
		return ""
	}
	if !r.cfg.EmbedImages {
		return relativeTo(reportDir, att.Path)
	}

	data, err := r.fileManager.ReadFile(att.Path, MaxEmbeddedImageBytes)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", att.Path).Msg("Linking image instead of embedding")
		return relativeTo(reportDir, att.Path)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func relativeTo(base, target string) string {
	absBase, err1 := filepath.Abs(base)
	absTarget, err2 := filepath.Abs(target)
	if err1 != nil || err2 != nil {
		return target
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
