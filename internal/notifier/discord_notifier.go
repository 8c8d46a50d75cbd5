package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
)

// DiscordNotifier posts message payloads to a Discord webhook
type DiscordNotifier struct {
	logger     zerolog.Logger
	httpClient *http.Client
	retryDelay time.Duration
}

func NewDiscordNotifier(logger zerolog.Logger, httpClient *http.Client) *DiscordNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &DiscordNotifier{
		logger:     logger.With().Str("component", "DiscordNotifier").Logger(),
		httpClient: httpClient,
		retryDelay: defaultRetryDelay,
	}
}

// SendNotification sends payload, with the file at attachmentPath when it is
// set, as multipart/form-data. Server errors are retried.
func (dn *DiscordNotifier) SendNotification(ctx context.Context, webhookURL string, payload models.DiscordMessagePayload, attachmentPath string) error {
	if webhookURL == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return fmt.Errorf("invalid discord webhook url: %w", err)
	}

	body, contentType, err := buildMultipartBody(payload, attachmentPath)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dn.retryDelay):
			}
		}

		retryable, err := dn.post(ctx, webhookURL, body, contentType)
		if err == nil {
			dn.logger.Info().Msg("Discord notification sent")
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		dn.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Discord notification failed, retrying")
	}
	return lastErr
}

func (dn *DiscordNotifier) post(ctx context.Context, webhookURL string, body []byte, contentType string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := dn.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("failed to send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retryable, fmt.Errorf("discord notification failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return false, nil
}

func buildMultipartBody(payload models.DiscordMessagePayload, attachmentPath string) ([]byte, string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("payload_json", string(payloadJSON)); err != nil {
		return nil, "", fmt.Errorf("failed to write payload_json: %w", err)
	}

	if attachmentPath != "" {
		f, err := os.Open(attachmentPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open attachment '%s': %w", attachmentPath, err)
		}
		defer f.Close()

		part, err := writer.CreateFormFile("files[0]", filepath.Base(attachmentPath))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, "", fmt.Errorf("failed to copy attachment: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}
