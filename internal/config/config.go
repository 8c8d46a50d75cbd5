package config

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const maxConfigFileSize = 10 * 1024 * 1024

type GlobalConfig struct {
	BaseURL            string             `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"required,url"`
	BrowserConfig      BrowserConfig      `json:"browser_config,omitempty" yaml:"browser_config,omitempty"`
	ComparisonConfig   ComparisonConfig   `json:"comparison_config,omitempty" yaml:"comparison_config,omitempty"`
	FigmaConfig        FigmaConfig        `json:"figma_config,omitempty" yaml:"figma_config,omitempty"`
	LogConfig          LogConfig          `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	NotificationConfig NotificationConfig `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	ReporterConfig     ReporterConfig     `json:"reporter_config,omitempty" yaml:"reporter_config,omitempty"`
	RunnerConfig       RunnerConfig       `json:"runner_config,omitempty" yaml:"runner_config,omitempty"`
	Scenarios          []ScenarioConfig   `json:"scenarios,omitempty" yaml:"scenarios,omitempty" validate:"dive"`
	StorageConfig      StorageConfig      `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		BaseURL:            DefaultBaseURL,
		BrowserConfig:      NewDefaultBrowserConfig(),
		ComparisonConfig:   NewDefaultComparisonConfig(),
		FigmaConfig:        NewDefaultFigmaConfig(),
		LogConfig:          NewDefaultLogConfig(),
		NotificationConfig: NewDefaultNotificationConfig(),
		ReporterConfig:     NewDefaultReporterConfig(),
		RunnerConfig:       NewDefaultRunnerConfig(),
		StorageConfig:      NewDefaultStorageConfig(),
	}
}

// EffectiveScenarios returns the configured scenarios, or the built-in contact
// form suite when the config file lists none.
func (c *GlobalConfig) EffectiveScenarios() []ScenarioConfig {
	if len(c.Scenarios) > 0 {
		return c.Scenarios
	}
	return DefaultScenarios()
}

// RunnerConfig controls scenario scheduling
type RunnerConfig struct {
	Workers             int `json:"workers,omitempty" yaml:"workers,omitempty" validate:"omitempty,min=1"`
	CIWorkers           int `json:"ci_workers,omitempty" yaml:"ci_workers,omitempty" validate:"omitempty,min=1"`
	Retries             int `json:"retries" yaml:"retries" validate:"min=0"`
	CIRetries           int `json:"ci_retries" yaml:"ci_retries" validate:"min=0"`
	ScenarioTimeoutSecs int `json:"scenario_timeout_secs,omitempty" yaml:"scenario_timeout_secs,omitempty" validate:"omitempty,min=1"`
}

func NewDefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:             DefaultWorkers,
		CIWorkers:           DefaultCIWorkers,
		Retries:             DefaultRetries,
		CIRetries:           DefaultCIRetries,
		ScenarioTimeoutSecs: DefaultScenarioTimeoutSecs,
	}
}

// Effective resolves worker count and retry budget for the current environment.
// CI runs are serialized and retried, local runs are parallel and never retried.
func (r RunnerConfig) Effective(ci bool) (workers int, retries int) {
	workers, retries = r.Workers, r.Retries
	if ci {
		workers, retries = r.CIWorkers, r.CIRetries
	}
	if workers <= 0 {
		workers = 1
	}
	if retries < 0 {
		retries = 0
	}
	return workers, retries
}

// ScenarioTimeout returns the per-scenario deadline
func (r RunnerConfig) ScenarioTimeout() time.Duration {
	if r.ScenarioTimeoutSecs <= 0 {
		return DefaultScenarioTimeoutSecs * time.Second
	}
	return time.Duration(r.ScenarioTimeoutSecs) * time.Second
}

// FigmaConfig holds the non-secret settings of the images API. The access token
// is only ever read from the environment.
type FigmaConfig struct {
	APIBaseURL     string `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty" validate:"omitempty,url"`
	DefaultFileKey string `json:"default_file_key,omitempty" yaml:"default_file_key,omitempty"`
	DefaultNodeID  string `json:"default_node_id,omitempty" yaml:"default_node_id,omitempty"`
	ExportFormat   string `json:"export_format,omitempty" yaml:"export_format,omitempty" validate:"omitempty,oneof=png jpg"`
	ExportScale    int    `json:"export_scale,omitempty" yaml:"export_scale,omitempty" validate:"omitempty,min=1,max=4"`
	ScreenshotsDir string `json:"screenshots_dir,omitempty" yaml:"screenshots_dir,omitempty"`
	TimeoutSecs    int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
}

func NewDefaultFigmaConfig() FigmaConfig {
	return FigmaConfig{
		APIBaseURL:     DefaultFigmaAPIBaseURL,
		DefaultFileKey: DefaultFigmaFileKey,
		DefaultNodeID:  DefaultFigmaNodeID,
		ExportFormat:   DefaultFigmaExportFormat,
		ExportScale:    DefaultFigmaExportScale,
		ScreenshotsDir: DefaultFigmaScreenshotDir,
		TimeoutSecs:    DefaultFigmaTimeoutSecs,
	}
}

// BrowserConfig configures the headless Chromium used to render pages
type BrowserConfig struct {
	ChromePath          string   `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	Headless            bool     `json:"headless" yaml:"headless"`
	WindowWidth         int      `json:"window_width,omitempty" yaml:"window_width,omitempty" validate:"omitempty,min=100"`
	WindowHeight        int      `json:"window_height,omitempty" yaml:"window_height,omitempty" validate:"omitempty,min=100"`
	DeviceScaleFactor   float64  `json:"device_scale_factor,omitempty" yaml:"device_scale_factor,omitempty" validate:"omitempty,min=1,max=4"`
	PageLoadTimeoutSecs int      `json:"page_load_timeout_secs,omitempty" yaml:"page_load_timeout_secs,omitempty" validate:"omitempty,min=1"`
	LocateTimeoutSecs   int      `json:"locate_timeout_secs,omitempty" yaml:"locate_timeout_secs,omitempty" validate:"omitempty,min=1"`
	NetworkIdleMs       int      `json:"network_idle_ms,omitempty" yaml:"network_idle_ms,omitempty" validate:"omitempty,min=0"`
	PoolSize            int      `json:"pool_size,omitempty" yaml:"pool_size,omitempty" validate:"omitempty,min=1"`
	IgnoreHTTPSErrors   bool     `json:"ignore_https_errors" yaml:"ignore_https_errors"`
	BrowserArgs         []string `json:"browser_args,omitempty" yaml:"browser_args,omitempty"`
}

func NewDefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:            true,
		WindowWidth:         DefaultBrowserWindowWidth,
		WindowHeight:        DefaultBrowserWindowHeight,
		DeviceScaleFactor:   DefaultBrowserDeviceScaleFactor,
		PageLoadTimeoutSecs: DefaultBrowserPageLoadTimeout,
		LocateTimeoutSecs:   DefaultBrowserLocateTimeout,
		NetworkIdleMs:       DefaultBrowserNetworkIdleMs,
		PoolSize:            DefaultBrowserPoolSize,
	}
}

// ComparisonConfig holds image comparison policy
type ComparisonConfig struct {
	SnapshotsDir          string           `json:"snapshots_dir,omitempty" yaml:"snapshots_dir,omitempty"`
	DimensionPolicy       string           `json:"dimension_policy,omitempty" yaml:"dimension_policy,omitempty" validate:"omitempty,dimensionpolicy"`
	MissingBaselinePolicy string           `json:"missing_baseline_policy,omitempty" yaml:"missing_baseline_policy,omitempty" validate:"omitempty,baselinepolicy"`
	IncludeAntiAliasing   bool             `json:"include_anti_aliasing" yaml:"include_anti_aliasing"`
	DefaultTolerance      models.Tolerance `json:"default_tolerance" yaml:"default_tolerance"`
}

func NewDefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		SnapshotsDir:          DefaultSnapshotsDir,
		DimensionPolicy:       DefaultDimensionPolicy,
		MissingBaselinePolicy: DefaultMissingBaselinePolicy,
		DefaultTolerance:      models.DefaultTolerance(),
	}
}

// ReporterConfig defines configuration for generating reports
type ReporterConfig struct {
	OutputDir    string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	ReportTitle  string `json:"report_title,omitempty" yaml:"report_title,omitempty"`
	EmbedImages  bool   `json:"embed_images" yaml:"embed_images"`
	TemplatePath string `json:"template_path,omitempty" yaml:"template_path,omitempty"`
}

func NewDefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		OutputDir:   DefaultReporterOutputDir,
		ReportTitle: DefaultReportTitle,
		EmbedImages: true,
	}
}

// NotificationConfig configures the Discord webhook summary
type NotificationConfig struct {
	DiscordWebhookURL string `json:"discord_webhook_url,omitempty" yaml:"discord_webhook_url,omitempty" validate:"omitempty,url"`
	NotifyOnSuccess   bool   `json:"notify_on_success" yaml:"notify_on_success"`
	AttachReport      bool   `json:"attach_report" yaml:"attach_report"`
	Username          string `json:"username,omitempty" yaml:"username,omitempty"`
	TimeoutSecs       int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
}

func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		AttachReport: true,
		Username:     DefaultNotificationUsername,
		TimeoutSecs:  DefaultNotificationTimeoutSecs,
	}
}

// StorageConfig defines run history and remote artifact storage
type StorageConfig struct {
	HistoryEnabled bool     `json:"history_enabled" yaml:"history_enabled"`
	HistoryDBPath  string   `json:"history_db_path,omitempty" yaml:"history_db_path,omitempty"`
	S3             S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config configures uploading of reports and attachments. Empty credentials
// fall back to the default AWS credential chain.
type S3Config struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	Bucket          string `json:"bucket,omitempty" yaml:"bucket,omitempty" validate:"required_if=Enabled true"`
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" validate:"omitempty,url"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `json:"use_path_style" yaml:"use_path_style"`
	KeyPrefix       string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		HistoryEnabled: true,
		HistoryDBPath:  DefaultHistoryDBPath,
		S3: S3Config{
			KeyPrefix: DefaultS3KeyPrefix,
		},
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// It determines the config file path using GetConfigPath, supports both JSON and YAML formats.
// YAML is used if the file extension is .yaml or .yml.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	fileManager := common.NewFileManager(logger)
	if providedPath != "" && !fileManager.FileExists(providedPath) {
		return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
	}

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		logger.Debug().Msg("No config file found, using defaults")
		return cfg, nil
	}

	data, err := fileManager.ReadFile(filePath, maxConfigFileSize)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	logger.Debug().Str("path", filePath).Msg("Configuration file loaded")
	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
