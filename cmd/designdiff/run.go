package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/aleister1102/designdiff/internal/artifactstore"
	"github.com/aleister1102/designdiff/internal/browser"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/datastore"
	"github.com/aleister1102/designdiff/internal/figma"
	"github.com/aleister1102/designdiff/internal/imagediff"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aleister1102/designdiff/internal/notifier"
	"github.com/aleister1102/designdiff/internal/orchestrator"
	"github.com/aleister1102/designdiff/internal/reporter"
	"github.com/aleister1102/designdiff/internal/scenario"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type runOptions struct {
	baseURL   string
	scenarios []string
	workers   int
	noNotify  bool
	noHistory bool
	noUpload  bool
}

func newRunCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the comparison suite",
		Long:  "Fetch design baselines, run every scenario against the live page and publish the report. Exits with status 1 when a scenario fails.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, rootFlags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Override the base URL of the page under test")
	cmd.Flags().StringSliceVarP(&opts.scenarios, "scenario", "s", nil, "Only run the named scenarios (repeatable)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Override the number of parallel scenarios")
	cmd.Flags().BoolVar(&opts.noNotify, "no-notify", false, "Do not send the Discord summary")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record the run in the history database")
	cmd.Flags().BoolVar(&opts.noUpload, "no-upload", false, "Do not upload artifacts to S3")

	return cmd
}

func runSuite(cmd *cobra.Command, rootFlags *rootFlags, opts *runOptions) error {
	runID := uuid.NewString()
	app, err := loadApp(rootFlags, runID)
	if err != nil {
		return err
	}
	cfg, log := app.cfg, app.logger

	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.workers > 0 {
		cfg.RunnerConfig.Workers = opts.workers
		cfg.RunnerConfig.CIWorkers = opts.workers
	}
	if len(opts.scenarios) > 0 {
		selected, err := selectScenarios(cfg.EffectiveScenarios(), opts.scenarios)
		if err != nil {
			return err
		}
		cfg.Scenarios = selected
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := browser.NewManager(cfg.BrowserConfig, log)
	if err := manager.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer manager.Stop()

	figmaClient, err := figma.NewClient(cfg.FigmaConfig, log)
	if err != nil {
		return err
	}
	comparator := imagediff.NewComparator(imagediff.OptionsFrom(cfg.ComparisonConfig), log)
	runner := scenario.NewRunner(scenario.SettingsFrom(cfg), comparator, log)

	sinks, closeSinks, err := buildSinks(ctx, cfg, opts, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	orch := orchestrator.NewOrchestrator(cfg, app.env, manager, figmaClient, runner, log).WithSinks(sinks...)
	report, err := orch.Run(ctx, runID)
	printSummary(cmd.OutOrStdout(), report)
	if err != nil {
		return &exitError{code: 130, message: "run interrupted: " + err.Error()}
	}
	if report.HasFailures() {
		return &exitError{code: 1, message: fmt.Sprintf("%d of %d scenarios failed", report.Failed, len(report.Results))}
	}
	return nil
}

// buildSinks wires the report consumers in publishing order: the HTML report
// first so the upload and the notification can refer to it.
func buildSinks(ctx context.Context, cfg *config.GlobalConfig, opts *runOptions, log zerolog.Logger) ([]orchestrator.ReportSink, func(), error) {
	htmlReporter, err := reporter.NewHtmlReporter(cfg.ReporterConfig, log)
	if err != nil {
		return nil, nil, err
	}
	sinks := []orchestrator.ReportSink{htmlReporter}
	closers := []func(){}

	if cfg.StorageConfig.S3.Enabled && !opts.noUpload {
		store, err := artifactstore.NewStore(ctx, cfg.StorageConfig.S3, log)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, store)
	}

	if cfg.StorageConfig.HistoryEnabled && !opts.noHistory {
		history, err := datastore.NewHistoryStore(cfg.StorageConfig, log)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, history)
		closers = append(closers, func() { _ = history.Close() })
	}

	if !opts.noNotify {
		helper := notifier.NewNotificationHelper(cfg.NotificationConfig, log)
		if helper.Enabled() {
			sinks = append(sinks, helper)
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func selectScenarios(all []config.ScenarioConfig, names []string) ([]config.ScenarioConfig, error) {
	byName := make(map[string]config.ScenarioConfig, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}
	selected := make([]config.ScenarioConfig, 0, len(names))
	for _, name := range names {
		sc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

func printSummary(w io.Writer, report *models.SuiteReport) {
	if report == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tKIND\tSTATUS\tATTEMPTS\tDETAIL")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Name, r.Kind, r.Status, r.Attempts, r.Error)
	}
	_ = tw.Flush()

	for _, warning := range report.SetupWarning {
		fmt.Fprintln(w, "warning:", warning)
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d inconclusive\n", report.Passed, report.Failed, report.Inconclusive)
	if report.ReportPath != "" {
		fmt.Fprintln(w, "report:", report.ReportPath)
	}
	if report.ReportURL != "" {
		fmt.Fprintln(w, "uploaded:", report.ReportURL)
	}
}
