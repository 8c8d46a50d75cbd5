// Package scenario executes a single configured scenario against an open page
package scenario

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aleister1102/designdiff/internal/assertion"
	"github.com/aleister1102/designdiff/internal/capture"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/differ"
	"github.com/aleister1102/designdiff/internal/figma"
	"github.com/aleister1102/designdiff/internal/imagediff"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aleister1102/designdiff/internal/page"
	"github.com/rs/zerolog"
)

const (
	contentTypePNG  = "image/png"
	contentTypeHTML = "text/html"
)

// Settings are the run-wide inputs every scenario shares
type Settings struct {
	BaseURL               string
	ScreenshotsDir        string
	SnapshotsDir          string
	MissingBaselinePolicy string
	DefaultTolerance      models.Tolerance
}

// SettingsFrom derives runner settings from the global config
func SettingsFrom(cfg *config.GlobalConfig) Settings {
	return Settings{
		BaseURL:               cfg.BaseURL,
		ScreenshotsDir:        cfg.FigmaConfig.ScreenshotsDir,
		SnapshotsDir:          cfg.ComparisonConfig.SnapshotsDir,
		MissingBaselinePolicy: cfg.ComparisonConfig.MissingBaselinePolicy,
		DefaultTolerance:      cfg.ComparisonConfig.DefaultTolerance,
	}
}

// Runner executes scenarios. It holds no per-scenario state and may be
// shared by concurrent workers.
type Runner struct {
	settings     Settings
	capturer     *capture.Capturer
	comparator   *imagediff.Comparator
	checker      *assertion.Checker
	markupDiffer *differ.MarkupDiffer
	logger       zerolog.Logger
}

// NewRunner creates a runner with its own capture, comparison and assertion components
func NewRunner(settings Settings, comparator *imagediff.Comparator, logger zerolog.Logger) *Runner {
	return &Runner{
		settings:     settings,
		capturer:     capture.NewCapturer(logger),
		comparator:   comparator,
		checker:      assertion.NewChecker(logger),
		markupDiffer: differ.NewMarkupDiffer(differ.DefaultDiffConfig(), logger),
		logger:       logger.With().Str("component", "ScenarioRunner").Logger(),
	}
}

// PageURL joins the base URL and a scenario path
func PageURL(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// BaselinePath is the reference image a visual scenario is compared against
func (r *Runner) BaselinePath(sc config.ScenarioConfig) string {
	if sc.Baseline == config.BaselineFigma {
		return figma.BaselinePath(r.settings.ScreenshotsDir, sc.BaselineKey())
	}
	return filepath.Join(r.settings.SnapshotsDir, sc.BaselineKey()+".png")
}

// Execute navigates p to the scenario's page and evaluates it. Failures are
// reported in the result; only the status and error fields describe them.
func (r *Runner) Execute(ctx context.Context, p page.Page, sc config.ScenarioConfig) models.ScenarioResult {
	result := models.ScenarioResult{
		Name: sc.Name,
		Kind: sc.Kind,
		URL:  PageURL(r.settings.BaseURL, sc.PagePath()),
	}

	if err := p.Navigate(ctx, result.URL); err != nil {
		return fail(result, fmt.Errorf("navigation failed: %w", err))
	}
	if !sc.SkipNetworkIdle {
		if err := p.WaitNetworkIdle(ctx); err != nil {
			return fail(result, fmt.Errorf("waiting for network idle: %w", err))
		}
	}

	switch sc.Kind {
	case config.KindVisual:
		return r.runVisual(ctx, p, sc, result)
	case config.KindStructural:
		results, err := r.checker.CheckVisible(ctx, p, sc.Checks)
		return fromAssertions(result, results, err)
	case config.KindLayout:
		results, err := r.checker.CheckLayout(ctx, p, assertion.LayoutFrom(sc))
		return fromAssertions(result, results, err)
	case config.KindMarkup:
		return r.runMarkup(ctx, p, sc, result)
	}
	return fail(result, fmt.Errorf("unknown scenario kind %q", sc.Kind))
}

func (r *Runner) runVisual(ctx context.Context, p page.Page, sc config.ScenarioConfig, result models.ScenarioResult) models.ScenarioResult {
	candidate, err := r.capturer.Capture(ctx, p, sc.Name, sc.Selector, sc.FullPage)
	if err != nil {
		return fail(result, err)
	}

	tol := r.settings.DefaultTolerance
	if sc.Tolerance != nil {
		tol = *sc.Tolerance
	}
	missing := r.settings.MissingBaselinePolicy
	if sc.Baseline == config.BaselineFigma {
		// a design reference can never be created from the implementation
		missing = config.MissingBaselineInconclusive
	}

	baselinePath := r.BaselinePath(sc)
	comparison, err := r.comparator.CompareWithBaseline(ctx, baselinePath, candidate, imagediff.BaselineOptions{
		Tolerance:       tol,
		MissingBaseline: missing,
	})
	if err != nil {
		var mismatch *imagediff.DimensionMismatchError
		if errors.As(err, &mismatch) {
			result.Comparison = &comparison
			result.Attachments = append(result.Attachments, comparisonAttachments(baselinePath, comparison)...)
		}
		return fail(result, err)
	}
	result.Comparison = &comparison

	switch {
	case comparison.Inconclusive:
		result.Status = models.StatusInconclusive
		result.Error = "baseline not available: " + baselinePath
	case comparison.Passed:
		result.Status = models.StatusPassed
	default:
		result.Status = models.StatusFailed
		result.Error = fmt.Sprintf("%d pixels differ (allowed %d, ratio %.4f)", comparison.DiffPixels, comparison.MaxDiffPixels, comparison.DiffRatio)
		result.Attachments = append(result.Attachments, comparisonAttachments(baselinePath, comparison)...)
	}
	return result
}

func comparisonAttachments(baselinePath string, comparison models.ComparisonResult) []models.Attachment {
	attachments := []models.Attachment{{Name: "baseline", Path: baselinePath, ContentType: contentTypePNG}}
	if comparison.ActualArtifactPath != "" {
		attachments = append(attachments, models.Attachment{Name: "actual", Path: comparison.ActualArtifactPath, ContentType: contentTypePNG})
	}
	if comparison.DiffArtifactPath != "" {
		attachments = append(attachments, models.Attachment{Name: "diff", Path: comparison.DiffArtifactPath, ContentType: contentTypePNG})
	}
	return attachments
}

func (r *Runner) runMarkup(ctx context.Context, p page.Page, sc config.ScenarioConfig, result models.ScenarioResult) models.ScenarioResult {
	el, err := p.Locate(ctx, sc.Selector)
	if err != nil {
		return fail(result, err)
	}
	raw, err := el.HTML(ctx)
	if err != nil {
		return fail(result, fmt.Errorf("failed to read markup of '%s': %w", sc.Selector, err))
	}
	normalized, err := differ.NormalizeMarkup(raw, "")
	if err != nil {
		return fail(result, err)
	}

	snapshot := differ.SnapshotPath(r.settings.SnapshotsDir, sc.BaselineKey())
	outcome, err := r.markupDiffer.CompareWithSnapshot(ctx, snapshot, normalized, "", sc.Name)
	if err != nil {
		return fail(result, err)
	}

	summary := outcome.Summary
	result.Markup = &summary
	result.Status = models.StatusPassed
	if summary.Changed {
		result.Attachments = append(result.Attachments, models.Attachment{Name: "markup-diff", Path: outcome.ArtifactPath, ContentType: contentTypeHTML})
		if sc.FailOnDrift {
			result.Status = models.StatusFailed
			result.Error = fmt.Sprintf("markup drifted: +%d -%d lines", summary.Insertions, summary.Deletions)
		}
	}
	return result
}

func fromAssertions(result models.ScenarioResult, assertions []models.AssertionResult, err error) models.ScenarioResult {
	result.Assertions = assertions
	if err != nil {
		return fail(result, err)
	}
	if !assertion.AllPassed(assertions) {
		result.Status = models.StatusFailed
		result.Error = assertion.FailureSummary(assertions)
		return result
	}
	result.Status = models.StatusPassed
	return result
}

func fail(result models.ScenarioResult, err error) models.ScenarioResult {
	result.Status = models.StatusFailed
	result.Error = err.Error()
	return result
}
