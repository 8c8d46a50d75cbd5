package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/page"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Manager launches Chromium and hands out pages backed by a pool of browser connections
type Manager struct {
	config      config.BrowserConfig
	logger      zerolog.Logger
	browserPool chan *rod.Browser
	launcher    *launcher.Launcher
	mutex       sync.Mutex
	isRunning   bool
}

// NewManager creates a new browser manager
func NewManager(cfg config.BrowserConfig, logger zerolog.Logger) *Manager {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = config.DefaultBrowserPoolSize
	}
	return &Manager{
		config:      cfg,
		logger:      logger.With().Str("component", "BrowserManager").Logger(),
		browserPool: make(chan *rod.Browser, cfg.PoolSize),
	}
}

// Start launches the browser process and fills the connection pool.
// Failing to launch is the one unrecoverable environment error of a run.
func (m *Manager) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.isRunning {
		return nil
	}

	l := launcher.New().Headless(m.config.Headless)
	if m.config.ChromePath != "" {
		l = l.Bin(m.config.ChromePath)
	}

	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync").
		Set("hide-scrollbars").
		Set("force-color-profile", "srgb").
		Set("font-render-hinting", "none")

	for _, arg := range m.config.BrowserArgs {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	m.launcher = l

	connected := 0
	for i := 0; i < cap(m.browserPool); i++ {
		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			m.logger.Error().Err(err).Int("browser_index", i).Msg("Failed to connect browser")
			continue
		}
		if m.config.IgnoreHTTPSErrors {
			if err := b.IgnoreCertErrors(true); err != nil {
				m.logger.Warn().Err(err).Msg("Failed to ignore certificate errors")
			}
		}
		m.browserPool <- b
		connected++
	}

	if connected == 0 {
		l.Cleanup()
		m.launcher = nil
		return fmt.Errorf("failed to connect to launched browser at %s", controlURL)
	}

	m.isRunning = true
	m.logger.Info().Int("pool_size", connected).Bool("headless", m.config.Headless).Msg("Browser manager started")
	return nil
}

// Stop closes all browser connections and the browser process
func (m *Manager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.isRunning {
		return
	}
	m.isRunning = false

	close(m.browserPool)
	for b := range m.browserPool {
		if b != nil {
			_ = b.Close()
		}
	}
	if m.launcher != nil {
		m.launcher.Cleanup()
	}

	m.logger.Info().Msg("Browser manager stopped")
}

func (m *Manager) running() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.isRunning
}

func (m *Manager) acquire(ctx context.Context) (*rod.Browser, error) {
	if !m.running() {
		return nil, fmt.Errorf("browser manager not running")
	}
	select {
	case b, ok := <-m.browserPool:
		if !ok {
			return nil, fmt.Errorf("browser manager stopped")
		}
		return b, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for a browser: %w", ctx.Err())
	}
}

func (m *Manager) release(b *rod.Browser) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if b == nil {
		return
	}
	if !m.isRunning {
		_ = b.Close()
		return
	}
	select {
	case m.browserPool <- b:
	default:
		_ = b.Close()
	}
}

// NewPage opens a fresh tab with the configured viewport and device scale factor.
// Closing the page returns its browser connection to the pool.
func (m *Manager) NewPage(ctx context.Context) (page.Page, error) {
	b, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}

	p, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		m.release(b)
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.config.WindowWidth,
		Height:            m.config.WindowHeight,
		DeviceScaleFactor: m.config.DeviceScaleFactor,
	}); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to set viewport")
	}

	return &rodPage{
		page:            p,
		release:         func() { m.release(b) },
		pageLoadTimeout: seconds(m.config.PageLoadTimeoutSecs, config.DefaultBrowserPageLoadTimeout),
		locateTimeout:   seconds(m.config.LocateTimeoutSecs, config.DefaultBrowserLocateTimeout),
		networkIdle:     time.Duration(m.config.NetworkIdleMs) * time.Millisecond,
		logger:          m.logger,
	}, nil
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
