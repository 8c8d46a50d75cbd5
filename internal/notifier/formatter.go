package notifier

import (
	"fmt"
	"strings"

	"github.com/aleister1102/designdiff/internal/models"
)

// FormatSuiteSummary builds the webhook message for a finished run
func FormatSuiteSummary(report *models.SuiteReport, username string) models.DiscordMessagePayload {
	title, color := summaryTitle(report)

	builder := NewDiscordEmbedBuilder().
		WithTitle(title).
		WithDescription(fmt.Sprintf("%d scenarios against %s", len(report.Results), report.BaseURL)).
		WithColor(color).
		WithTimestamp(report.FinishedAt).
		WithFooter("run " + report.RunID).
		AddField("Passed", fmt.Sprintf("%d", report.Passed), true).
		AddField("Failed", fmt.Sprintf("%d", report.Failed), true).
		AddField("Inconclusive", fmt.Sprintf("%d", report.Inconclusive), true)

	if report.DesignURL != "" {
		builder.WithURL(report.DesignURL)
	}
	if failures := formatFailures(report.Results); failures != "" {
		builder.AddField("Failures", failures, false)
	}
	if len(report.SetupWarning) > 0 {
		builder.AddField("Warnings", bulletList(report.SetupWarning), false)
	}
	if link := reportLink(report); link != "" {
		builder.AddField("Report", link, false)
	}

	return models.DiscordMessagePayload{
		Username: username,
		Embeds:   []models.DiscordEmbed{builder.Build()},
	}
}

func summaryTitle(report *models.SuiteReport) (string, int) {
	switch {
	case report.Failed > 0:
		return fmt.Sprintf("Design comparison failed (%d of %d)", report.Failed, len(report.Results)), FailureEmbedColor
	case report.Inconclusive > 0:
		return "Design comparison inconclusive", InconclusiveEmbedColor
	default:
		return "Design comparison passed", SuccessEmbedColor
	}
}

func formatFailures(results []models.ScenarioResult) string {
	var lines []string
	hidden := 0
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		if len(lines) == maxListedFailures {
			hidden++
			continue
		}
		line := "**" + r.Name + "**"
		if r.Error != "" {
			line += ": " + truncate(r.Error, 120)
		}
		lines = append(lines, "• "+line)
	}
	if hidden > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more", hidden))
	}
	return strings.Join(lines, "\n")
}

func bulletList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("• ")
		sb.WriteString(item)
	}
	return sb.String()
}

// reportLink prefers an uploaded copy of the report over the local path
func reportLink(report *models.SuiteReport) string {
	if report.ReportURL != "" {
		return report.ReportURL
	}
	if report.ReportPath != "" {
		return "`" + report.ReportPath + "`"
	}
	return ""
}
