package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/figma"
	"github.com/aleister1102/designdiff/internal/imagediff"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aleister1102/designdiff/internal/page"
	"github.com/aleister1102/designdiff/internal/page/pagetest"
	"github.com/aleister1102/designdiff/internal/scenario"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 0xee
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pageSource builds a new fake page per call with build
type pageSource struct {
	mu     sync.Mutex
	build  func(call int) page.Page
	calls  int
	opened []page.Page
}

func (s *pageSource) NewPage(ctx context.Context) (page.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p := s.build(s.calls)
	s.opened = append(s.opened, p)
	return p, nil
}

type stubFetcher struct {
	mu    sync.Mutex
	err   error
	data  []byte
	calls []models.DesignReference
}

func (f *stubFetcher) FetchBaseline(ctx context.Context, ref models.DesignReference, name, dir string) (models.BaselineImage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ref)
	f.mu.Unlock()
	if f.err != nil {
		return models.BaselineImage{}, f.err
	}
	path := figma.BaselinePath(dir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.BaselineImage{}, err
	}
	if err := os.WriteFile(path, f.data, 0644); err != nil {
		return models.BaselineImage{}, err
	}
	return models.BaselineImage{Name: name, Path: path, NodeID: ref.NodeID}, nil
}

type recordingSink struct {
	reports []*models.SuiteReport
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(ctx context.Context, report *models.SuiteReport) error {
	s.reports = append(s.reports, report)
	return s.err
}

func testConfig(t *testing.T, scenarios ...config.ScenarioConfig) *config.GlobalConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewDefaultGlobalConfig()
	cfg.FigmaConfig.ScreenshotsDir = filepath.Join(dir, "figma-screenshots")
	cfg.ComparisonConfig.SnapshotsDir = filepath.Join(dir, "snapshots")
	cfg.RunnerConfig.ScenarioTimeoutSecs = 5
	cfg.Scenarios = scenarios
	return cfg
}

func newOrchestrator(cfg *config.GlobalConfig, env map[string]string, pages PageSource, fetcher BaselineFetcher) *Orchestrator {
	runner := scenario.NewRunner(scenario.SettingsFrom(cfg), imagediff.NewComparator(imagediff.OptionsFrom(cfg.ComparisonConfig), zerolog.Nop()), zerolog.Nop())
	return NewOrchestrator(cfg, env, pages, fetcher, runner, zerolog.Nop())
}

var (
	figmaScenario = config.ScenarioConfig{Name: "contact-form", Kind: config.KindVisual, Selector: "form", Baseline: config.BaselineFigma}
	nameScenario  = config.ScenarioConfig{Name: "name-field", Kind: config.KindStructural, Checks: []config.CheckConfig{{Label: "Name"}}}
)

func contactPage(t *testing.T) func(int) page.Page {
	data := formPNG(t)
	return func(int) page.Page {
		return pagetest.NewFakePage().
			With(pagetest.CSS("form"), &pagetest.FakeElement{PNG: data}).
			With(pagetest.Label("Name"), &pagetest.FakeElement{})
	}
}

func TestRun_NoTokenStillRunsStructural(t *testing.T) {
	cfg := testConfig(t, figmaScenario, nameScenario)
	fetcher := &stubFetcher{}
	sink := &recordingSink{}

	report, err := newOrchestrator(cfg, map[string]string{}, &pageSource{build: contactPage(t)}, fetcher).
		WithSinks(sink).
		Run(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Empty(t, fetcher.calls)
	require.Len(t, report.SetupWarning, 1)
	assert.Contains(t, report.SetupWarning[0], config.EnvFigmaAccessToken)

	require.Len(t, report.Results, 2)
	assert.Equal(t, models.StatusInconclusive, report.Results[0].Status)
	assert.Equal(t, models.StatusPassed, report.Results[1].Status)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Inconclusive)
	assert.False(t, report.HasFailures())

	require.Len(t, sink.reports, 1)
	assert.Same(t, report, sink.reports[0])
}

func TestRun_FetchedBaselineIsCompared(t *testing.T) {
	cfg := testConfig(t, figmaScenario)
	fetcher := &stubFetcher{data: formPNG(t)}
	env := map[string]string{config.EnvFigmaAccessToken: "figd_x", config.EnvFigmaNodeID: "1-5"}

	report, err := newOrchestrator(cfg, env, &pageSource{build: contactPage(t)}, fetcher).Run(context.Background(), "run-2")

	require.NoError(t, err)
	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, "1:5", fetcher.calls[0].NodeID)
	require.Len(t, report.Baselines, 1)
	assert.Equal(t, models.StatusPassed, report.Results[0].Status, report.Results[0].Error)
	assert.Equal(t, "https://www.figma.com/design/qh39N0zcMJfRKKkjPnBXKJ/?node-id=1-5", report.DesignURL)
}

func TestSetup_FetchesEachDistinctBaselineOnce(t *testing.T) {
	second := figmaScenario
	second.Name = "contact-form-again"
	second.BaselineName = "contact-form"
	other := figmaScenario
	other.Name = "hero"
	other.NodeID = "2-7"
	cfg := testConfig(t, figmaScenario, second, other)
	fetcher := &stubFetcher{data: formPNG(t)}

	setup := newOrchestrator(cfg, map[string]string{config.EnvFigmaAccessToken: "figd_x"}, &pageSource{}, fetcher).Setup(context.Background())

	assert.True(t, setup.TokenPresent)
	require.Len(t, fetcher.calls, 2)
	assert.Equal(t, config.DefaultFigmaNodeID, fetcher.calls[0].NodeID)
	assert.Equal(t, "2:7", fetcher.calls[1].NodeID)
	assert.Empty(t, setup.Warnings)
}

func TestSetup_FetchErrorWarns(t *testing.T) {
	cfg := testConfig(t, figmaScenario)
	fetcher := &stubFetcher{err: &figma.RemoteAPIError{StatusCode: 403, Message: "Invalid token"}}

	setup := newOrchestrator(cfg, map[string]string{config.EnvFigmaAccessToken: "figd_x"}, &pageSource{}, fetcher).Setup(context.Background())

	require.Len(t, setup.Warnings, 1)
	assert.Contains(t, setup.Warnings[0], "Invalid token")
	assert.Empty(t, setup.Baselines)
}

func TestSetup_FetchErrorReusesStaleBaseline(t *testing.T) {
	cfg := testConfig(t, figmaScenario)
	path := figma.BaselinePath(cfg.FigmaConfig.ScreenshotsDir, "contact-form")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, formPNG(t), 0644))
	fetcher := &stubFetcher{err: &figma.TransportError{URL: "https://api.figma.com", Err: errors.New("dial tcp: timeout")}}

	setup := newOrchestrator(cfg, map[string]string{config.EnvFigmaAccessToken: "figd_x"}, &pageSource{}, fetcher).Setup(context.Background())

	require.Len(t, setup.Baselines, 1)
	assert.True(t, setup.Baselines[0].Stale)
	require.Len(t, setup.Warnings, 1)
	assert.Contains(t, setup.Warnings[0], "stale")
}

func TestRun_RetriesOnFreshPage(t *testing.T) {
	cfg := testConfig(t, nameScenario)
	cfg.RunnerConfig.Retries = 2
	build := contactPage(t)
	pages := &pageSource{build: func(call int) page.Page {
		p := build(call).(*pagetest.FakePage)
		if call == 1 {
			p.NavigateErr = errors.New("net::ERR_CONNECTION_REFUSED")
		}
		return p
	}}

	report, err := newOrchestrator(cfg, map[string]string{}, pages, &stubFetcher{}).Run(context.Background(), "run-3")

	require.NoError(t, err)
	assert.Equal(t, models.StatusPassed, report.Results[0].Status)
	assert.Equal(t, 2, report.Results[0].Attempts)
	require.Len(t, pages.opened, 2)
	for _, p := range pages.opened {
		assert.True(t, p.(*pagetest.FakePage).Closed)
	}
}

func TestRun_CIRetriesFailures(t *testing.T) {
	cfg := testConfig(t, nameScenario)
	pages := &pageSource{build: func(int) page.Page { return pagetest.NewFakePage() }}

	report, err := newOrchestrator(cfg, map[string]string{config.EnvCI: "true"}, pages, &stubFetcher{}).Run(context.Background(), "run-4")

	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, report.Results[0].Status)
	assert.Equal(t, config.DefaultCIRetries+1, report.Results[0].Attempts)
	assert.True(t, report.HasFailures())
}

func TestRun_PreservesScenarioOrder(t *testing.T) {
	var scenarios []config.ScenarioConfig
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		sc := nameScenario
		sc.Name = name
		scenarios = append(scenarios, sc)
	}
	cfg := testConfig(t, scenarios...)
	cfg.RunnerConfig.Workers = 3

	report, err := newOrchestrator(cfg, map[string]string{}, &pageSource{build: contactPage(t)}, &stubFetcher{}).Run(context.Background(), "run-5")

	require.NoError(t, err)
	for i, sc := range scenarios {
		assert.Equal(t, sc.Name, report.Results[i].Name)
	}
	assert.Equal(t, 6, report.Passed)
}

// blockingPage never finishes navigating until its context ends
type blockingPage struct {
	*pagetest.FakePage
}

func (p blockingPage) Navigate(ctx context.Context, url string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_ScenarioTimeout(t *testing.T) {
	cfg := testConfig(t, nameScenario)
	cfg.RunnerConfig.ScenarioTimeoutSecs = 1
	var opened atomic.Int32
	pages := &pageSource{build: func(int) page.Page {
		opened.Add(1)
		return blockingPage{pagetest.NewFakePage()}
	}}

	start := time.Now()
	report, err := newOrchestrator(cfg, map[string]string{}, pages, &stubFetcher{}).Run(context.Background(), "run-6")

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, models.StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, "timed out")
	assert.Equal(t, int32(1), opened.Load())
}

func TestRun_SinkErrorIsNotFatal(t *testing.T) {
	cfg := testConfig(t, nameScenario)
	failing := &recordingSink{err: errors.New("disk full")}
	after := &recordingSink{}

	_, err := newOrchestrator(cfg, map[string]string{}, &pageSource{build: contactPage(t)}, &stubFetcher{}).
		WithSinks(failing, after).
		Run(context.Background(), "run-7")

	require.NoError(t, err)
	assert.Len(t, after.reports, 1)
}
