package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	payload  models.DiscordMessagePayload
	fileName string
	fileBody string
}

func newWebhook(t *testing.T, statuses ...int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var req capturedRequest
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("payload_json")), &req.payload))
		if file, header, err := r.FormFile("files[0]"); err == nil {
			data, _ := io.ReadAll(file)
			req.fileName = header.Filename
			req.fileBody = string(data)
		}
		captured = append(captured, req)

		status := http.StatusNoContent
		if n < len(statuses) {
			status = statuses[n]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func failingReport(t *testing.T) *models.SuiteReport {
	t.Helper()
	reportPath := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, os.WriteFile(reportPath, []byte("<html>report</html>"), 0644))

	report := &models.SuiteReport{
		RunID:      "run-42",
		BaseURL:    "http://localhost:3000",
		DesignURL:  "https://www.figma.com/design/ABC/?node-id=109-1005",
		FinishedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		ReportPath: reportPath,
		Results: []models.ScenarioResult{
			{Name: "contact-form-design", Status: models.StatusFailed, Error: "812 pixels differ (allowed 100, ratio 0.0081)"},
			{Name: "contact-form-fields", Status: models.StatusPassed},
		},
	}
	report.Tally()
	return report
}

func newHelper(webhookURL string, notifyOnSuccess bool) *NotificationHelper {
	cfg := config.NewDefaultNotificationConfig()
	cfg.DiscordWebhookURL = webhookURL
	cfg.NotifyOnSuccess = notifyOnSuccess
	helper := NewNotificationHelper(cfg, zerolog.Nop())
	helper.discord.retryDelay = time.Millisecond
	return helper
}

func TestPublish_FailureSendsSummaryWithReport(t *testing.T) {
	server, captured := newWebhook(t)

	err := newHelper(server.URL, false).Publish(context.Background(), failingReport(t))

	require.NoError(t, err)
	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, config.DefaultNotificationUsername, req.payload.Username)
	require.Len(t, req.payload.Embeds, 1)
	embed := req.payload.Embeds[0]
	assert.Equal(t, FailureEmbedColor, embed.Color)
	assert.Contains(t, embed.Title, "failed")
	assert.Equal(t, "https://www.figma.com/design/ABC/?node-id=109-1005", embed.URL)
	assert.Equal(t, "report.html", req.fileName)
	assert.Equal(t, "<html>report</html>", req.fileBody)

	var failures string
	for _, f := range embed.Fields {
		if f.Name == "Failures" {
			failures = f.Value
		}
	}
	assert.Contains(t, failures, "contact-form-design")
	assert.NotContains(t, failures, "contact-form-fields")
}

func TestPublish_PassingRunSkippedByDefault(t *testing.T) {
	server, captured := newWebhook(t)
	report := &models.SuiteReport{RunID: "run-1", Results: []models.ScenarioResult{{Name: "a", Status: models.StatusPassed}}}
	report.Tally()

	require.NoError(t, newHelper(server.URL, false).Publish(context.Background(), report))
	assert.Empty(t, *captured)

	require.NoError(t, newHelper(server.URL, true).Publish(context.Background(), report))
	require.Len(t, *captured, 1)
	assert.Equal(t, SuccessEmbedColor, (*captured)[0].payload.Embeds[0].Color)
}

func TestPublish_NoWebhookIsNoop(t *testing.T) {
	helper := newHelper("", true)
	assert.False(t, helper.Enabled())
	assert.NoError(t, helper.Publish(context.Background(), failingReport(t)))
}

func TestSendNotification_RetriesServerErrors(t *testing.T) {
	server, captured := newWebhook(t, http.StatusBadGateway, http.StatusNoContent)

	err := newHelper(server.URL, false).Publish(context.Background(), failingReport(t))

	require.NoError(t, err)
	assert.Len(t, *captured, 2)
}

func TestSendNotification_ClientErrorNotRetried(t *testing.T) {
	server, captured := newWebhook(t, http.StatusBadRequest)

	err := newHelper(server.URL, false).Publish(context.Background(), failingReport(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Len(t, *captured, 1)
}

func TestFormatSuiteSummary_ListsWarningsAndLimitsFailures(t *testing.T) {
	report := &models.SuiteReport{RunID: "run-7", SetupWarning: []string{"design baseline unavailable"}}
	for i := 0; i < maxListedFailures+3; i++ {
		report.Results = append(report.Results, models.ScenarioResult{Name: "s", Status: models.StatusFailed})
	}
	report.Tally()

	payload := FormatSuiteSummary(report, "bot")

	fields := map[string]string{}
	for _, f := range payload.Embeds[0].Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "13", fields["Failed"])
	assert.Contains(t, fields["Warnings"], "design baseline unavailable")
	assert.Contains(t, fields["Failures"], "... and 3 more")
	assert.Equal(t, "run run-7", payload.Embeds[0].Footer.Text)
}

func TestFormatSuiteSummary_PrefersUploadedReport(t *testing.T) {
	report := &models.SuiteReport{RunID: "r", ReportPath: "/tmp/report.html", ReportURL: "https://bucket/r/report.html"}

	payload := FormatSuiteSummary(report, "bot")

	var link string
	for _, f := range payload.Embeds[0].Fields {
		if f.Name == "Report" {
			link = f.Value
		}
	}
	assert.Equal(t, "https://bucket/r/report.html", link)
	assert.Equal(t, SuccessEmbedColor, payload.Embeds[0].Color)
}

func TestEmbedBuilder_TruncatesAndSkipsEmpty(t *testing.T) {
	embed := NewDiscordEmbedBuilder().
		WithTitle(strings.Repeat("t", 300)).
		AddField("empty", "", false).
		AddField("long", strings.Repeat("v", 2000), false).
		Build()

	assert.Len(t, embed.Title, maxTitleLength)
	require.Len(t, embed.Fields, 1)
	assert.Len(t, embed.Fields[0].Value, maxFieldValueLength)
	assert.True(t, strings.HasSuffix(embed.Fields[0].Value, "..."))
}
