package config

const (
	// Runner Defaults
	DefaultBaseURL             = "http://localhost:5178"
	DefaultWorkers             = 4
	DefaultCIWorkers           = 1
	DefaultRetries             = 0
	DefaultCIRetries           = 2
	DefaultScenarioTimeoutSecs = 60

	// Figma Defaults
	DefaultFigmaAPIBaseURL    = "https://api.figma.com"
	DefaultFigmaFileKey       = "qh39N0zcMJfRKKkjPnBXKJ"
	DefaultFigmaNodeID        = "109:1005"
	DefaultFigmaExportScale   = 2
	DefaultFigmaExportFormat  = "png"
	DefaultFigmaTimeoutSecs   = 30
	DefaultFigmaScreenshotDir = "tests/figma-screenshots"

	// Browser Defaults
	DefaultBrowserWindowWidth       = 1280
	DefaultBrowserWindowHeight      = 720
	DefaultBrowserDeviceScaleFactor = 2.0
	DefaultBrowserPageLoadTimeout   = 30
	DefaultBrowserLocateTimeout     = 5
	DefaultBrowserNetworkIdleMs     = 500
	DefaultBrowserPoolSize          = 4

	// Comparison Defaults
	DefaultSnapshotsDir          = "tests/snapshots"
	DefaultDimensionPolicy       = "strict"
	DefaultMissingBaselinePolicy = "bootstrap"

	// Reporter Defaults
	DefaultReporterOutputDir = "reports"
	DefaultReportTitle       = "Design vs Code Comparison"

	// Storage Defaults
	DefaultHistoryDBPath = "database/history.db"
	DefaultS3KeyPrefix   = "designdiff"

	// Notification Defaults
	DefaultNotificationTimeoutSecs = 20
	DefaultNotificationUsername    = "designdiff"

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3
)

// Environment keys
const (
	EnvFigmaAccessToken      = "FIGMA_ACCESS_TOKEN"
	EnvFigmaAccessTokenAlias = "figma_token"
	EnvFigmaFileKey          = "FIGMA_FILE_KEY"
	EnvFigmaNodeID           = "FIGMA_NODE_ID"
	EnvCI                    = "CI"
	EnvConfigPath            = "DESIGNDIFF_CONFIG_PATH"
)

// Scenario kinds
const (
	KindVisual     = "visual"
	KindStructural = "structural"
	KindLayout     = "layout"
	KindMarkup     = "markup"
)

// Baseline sources for visual scenarios
const (
	BaselineFigma    = "figma"
	BaselineSnapshot = "snapshot"
)

// Comparison policies
const (
	DimensionPolicyStrict       = "strict"
	DimensionPolicyScale        = "scale"
	MissingBaselineBootstrap    = "bootstrap"
	MissingBaselineInconclusive = "inconclusive"
)
