package notifier

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
)

// NotificationHelper decides whether a finished run is announced and sends the summary
type NotificationHelper struct {
	cfg     config.NotificationConfig
	discord *DiscordNotifier
	logger  zerolog.Logger
}

func NewNotificationHelper(cfg config.NotificationConfig, logger zerolog.Logger) *NotificationHelper {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultNotificationTimeoutSecs * time.Second
	}
	return &NotificationHelper{
		cfg:     cfg,
		discord: NewDiscordNotifier(logger, &http.Client{Timeout: timeout}),
		logger:  logger.With().Str("component", "NotificationHelper").Logger(),
	}
}

// Enabled reports whether a webhook is configured
func (nh *NotificationHelper) Enabled() bool {
	return nh.cfg.DiscordWebhookURL != ""
}

func (nh *NotificationHelper) Name() string { return "discord" }

// Publish announces the run. Passing runs are only announced with notify_on_success.
func (nh *NotificationHelper) Publish(ctx context.Context, report *models.SuiteReport) error {
	if !nh.Enabled() {
		return nil
	}
	if !report.HasFailures() && !nh.cfg.NotifyOnSuccess {
		nh.logger.Debug().Str("run_id", report.RunID).Msg("Run passed, skipping notification")
		return nil
	}

	payload := FormatSuiteSummary(report, nh.cfg.Username)
	return nh.discord.SendNotification(ctx, nh.cfg.DiscordWebhookURL, payload, nh.attachment(report))
}

func (nh *NotificationHelper) attachment(report *models.SuiteReport) string {
	if !nh.cfg.AttachReport || report.ReportPath == "" {
		return ""
	}
	info, err := os.Stat(report.ReportPath)
	if err != nil {
		nh.logger.Warn().Err(err).Str("path", report.ReportPath).Msg("Report not readable, sending summary without it")
		return ""
	}
	if info.Size() > maxDiscordFileSize {
		nh.logger.Warn().Int64("size", info.Size()).Msg("Report exceeds Discord attachment limit, sending summary without it")
		return ""
	}
	return report.ReportPath
}
