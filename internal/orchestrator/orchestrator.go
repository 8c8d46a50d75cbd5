package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/figma"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aleister1102/designdiff/internal/page"
	"github.com/aleister1102/designdiff/internal/scenario"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PageSource hands out fresh, isolated pages
type PageSource interface {
	NewPage(ctx context.Context) (page.Page, error)
}

// BaselineFetcher downloads a design reference image to disk
type BaselineFetcher interface {
	FetchBaseline(ctx context.Context, ref models.DesignReference, name, dir string) (models.BaselineImage, error)
}

// ReportSink consumes the finished suite report. Sinks run in order, so a
// sink may rely on fields set by an earlier one.
type ReportSink interface {
	Name() string
	Publish(ctx context.Context, report *models.SuiteReport) error
}

// Orchestrator runs the setup phase once and then every scenario in parallel
type Orchestrator struct {
	globalConfig *config.GlobalConfig
	env          map[string]string
	pages        PageSource
	fetcher      BaselineFetcher
	runner       *scenario.Runner
	sinks        []ReportSink
	logger       zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(cfg *config.GlobalConfig, env map[string]string, pages PageSource, fetcher BaselineFetcher, runner *scenario.Runner, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		globalConfig: cfg,
		env:          env,
		pages:        pages,
		fetcher:      fetcher,
		runner:       runner,
		logger:       logger.With().Str("component", "Orchestrator").Logger(),
	}
}

// WithSinks appends report sinks
func (o *Orchestrator) WithSinks(sinks ...ReportSink) *Orchestrator {
	o.sinks = append(o.sinks, sinks...)
	return o
}

// SetupResult is what the setup phase produced
type SetupResult struct {
	Reference    models.DesignReference
	TokenPresent bool
	Baselines    []models.BaselineImage
	Warnings     []string
}

type baselineTarget struct {
	name   string
	nodeID string
}

// figmaTargets lists each distinct (baseline name, node id) pair used by visual scenarios
func figmaTargets(scenarios []config.ScenarioConfig, defaultNodeID string) []baselineTarget {
	seen := make(map[baselineTarget]bool)
	var targets []baselineTarget
	for _, sc := range scenarios {
		if sc.Kind != config.KindVisual || sc.Baseline != config.BaselineFigma {
			continue
		}
		nodeID := defaultNodeID
		if sc.NodeID != "" {
			nodeID = models.CanonicalNodeID(sc.NodeID)
		}
		t := baselineTarget{name: sc.BaselineKey(), nodeID: nodeID}
		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}
	return targets
}

// Setup resolves the design reference and fetches design baselines. It never
// fails: problems become warnings and affected scenarios report inconclusive.
func (o *Orchestrator) Setup(ctx context.Context) SetupResult {
	defaults := config.DesignDefaultsFrom(o.globalConfig.FigmaConfig)
	ref, ok := config.ResolveDesignReference(o.env, defaults, o.logger)
	result := SetupResult{Reference: ref, TokenPresent: ok}

	targets := figmaTargets(o.globalConfig.EffectiveScenarios(), ref.NodeID)
	if len(targets) == 0 {
		return result
	}
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s not set: design baselines were not fetched", config.EnvFigmaAccessToken))
		return result
	}

	dir := o.globalConfig.FigmaConfig.ScreenshotsDir
	for _, target := range targets {
		if ctx.Err() != nil {
			result.Warnings = append(result.Warnings, "setup cancelled: "+ctx.Err().Error())
			return result
		}

		targetRef := ref
		targetRef.NodeID = target.nodeID
		baseline, err := o.fetcher.FetchBaseline(ctx, targetRef, target.name, dir)
		if err == nil {
			result.Baselines = append(result.Baselines, baseline)
			continue
		}

		path := figma.BaselinePath(dir, target.name)
		o.logger.Warn().Err(err).Str("name", target.name).Str("node_id", target.nodeID).Msg("Failed to fetch design baseline")
		stale, staleErr := figma.LoadExistingBaseline(path, target.name, target.nodeID)
		if staleErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("baseline %s (node %s) unavailable: %v", target.name, target.nodeID, err))
			continue
		}
		o.logger.Warn().Str("path", path).Time("fetched_at", stale.FetchedAt).Msg("Using design baseline from an earlier run")
		result.Baselines = append(result.Baselines, stale)
		result.Warnings = append(result.Warnings, fmt.Sprintf("baseline %s (node %s) is stale from %s: %v",
			target.name, target.nodeID, stale.FetchedAt.Format(time.RFC3339), err))
	}
	return result
}

// Run executes setup, every scenario and the report sinks. Scenario failures
// are part of the report; the returned error is only set on cancellation.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*models.SuiteReport, error) {
	report := &models.SuiteReport{
		RunID:     runID,
		BaseURL:   o.globalConfig.BaseURL,
		StartedAt: time.Now(),
	}

	setup := o.Setup(ctx)
	report.Baselines = setup.Baselines
	report.SetupWarning = setup.Warnings
	if setup.Reference.FileKey != "" {
		report.DesignURL = setup.Reference.DesignURL()
	}

	scenarios := o.globalConfig.EffectiveScenarios()
	workers, retries := o.globalConfig.RunnerConfig.Effective(config.IsCI(o.env))
	timeout := o.globalConfig.RunnerConfig.ScenarioTimeout()

	o.logger.Info().
		Str("run_id", runID).
		Int("scenarios", len(scenarios)).
		Int("workers", workers).
		Int("retries", retries).
		Dur("timeout", timeout).
		Msg("Running scenarios")

	results := make([]models.ScenarioResult, len(scenarios))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = o.runScenario(ctx, sc, retries, timeout)
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results
	report.FinishedAt = time.Now()
	report.Tally()

	o.logger.Info().
		Int("passed", report.Passed).
		Int("failed", report.Failed).
		Int("inconclusive", report.Inconclusive).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Scenarios finished")

	o.publish(ctx, report)
	return report, ctx.Err()
}

func (o *Orchestrator) publish(ctx context.Context, report *models.SuiteReport) {
	for _, sink := range o.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			o.logger.Error().Err(err).Str("sink", sink.Name()).Msg("Failed to publish report")
		}
	}
}

// runScenario runs one scenario with its retry budget, each attempt on a fresh page
func (o *Orchestrator) runScenario(ctx context.Context, sc config.ScenarioConfig, retries int, timeout time.Duration) models.ScenarioResult {
	start := time.Now()
	logger := o.logger.With().Str("scenario", sc.Name).Logger()

	var result models.ScenarioResult
	attempts := 0
	for attempts <= retries {
		attempts++
		result = o.attempt(ctx, sc, timeout)
		if !result.Failed() || ctx.Err() != nil {
			break
		}
		if attempts <= retries {
			logger.Warn().Int("attempt", attempts).Str("error", result.Error).Msg("Scenario failed, retrying")
		}
	}

	result.Attempts = attempts
	result.Duration = time.Since(start)

	event := logger.Info()
	if result.Failed() {
		event = logger.Error()
	}
	event.Str("status", string(result.Status)).Int("attempts", attempts).Dur("duration", result.Duration).Str("error", result.Error).Msg("Scenario finished")
	return result
}

func (o *Orchestrator) attempt(ctx context.Context, sc config.ScenarioConfig, timeout time.Duration) models.ScenarioResult {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p, err := o.pages.NewPage(sctx)
	if err != nil {
		return models.ScenarioResult{
			Name:   sc.Name,
			Kind:   sc.Kind,
			Status: models.StatusFailed,
			Error:  "failed to open page: " + err.Error(),
		}
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			o.logger.Debug().Err(closeErr).Str("scenario", sc.Name).Msg("Failed to close page")
		}
	}()

	result := o.runner.Execute(sctx, p, sc)
	if result.Failed() && errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.Error = fmt.Sprintf("scenario timed out after %s: %s", timeout, result.Error)
	}
	return result
}
