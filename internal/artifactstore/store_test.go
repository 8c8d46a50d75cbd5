package artifactstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type putObject struct {
	bucket      string
	contentType string
	body        string
}

type fakePutter struct {
	mu      sync.Mutex
	objects map[string]putObject
	failKey string
}

func newFakePutter() *fakePutter {
	return &fakePutter{objects: map[string]putObject{}}
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if *params.Key == f.failKey {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*params.Key] = putObject{bucket: *params.Bucket, contentType: *params.ContentType, body: string(body)}
	return &s3.PutObjectOutput{}, nil
}

func testS3Config() config.S3Config {
	return config.S3Config{
		Enabled:      true,
		Bucket:       "visual-runs",
		Region:       "eu-west-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		KeyPrefix:    "designdiff/",
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestObjectKeyAndURL(t *testing.T) {
	store := NewStoreWithClient(newFakePutter(), testS3Config(), zerolog.Nop())

	key := store.ObjectKey("run-1", "attachments", "contact form", "contact form-diff.png")

	assert.Equal(t, "designdiff/run-1/attachments/contact form/contact form-diff.png", key)
	assert.Equal(t, "http://localhost:9000/visual-runs/designdiff/run-1/attachments/contact%20form/contact%20form-diff.png", store.ObjectURL(key))
}

func TestObjectURL_Styles(t *testing.T) {
	cfg := testS3Config()
	cfg.UsePathStyle = false
	cfg.Endpoint = "https://storage.example.com"
	assert.Equal(t, "https://visual-runs.storage.example.com/k.png", NewStoreWithClient(nil, cfg, zerolog.Nop()).ObjectURL("k.png"))

	cfg.Endpoint = ""
	assert.Equal(t, "https://visual-runs.s3.eu-west-1.amazonaws.com/k.png", NewStoreWithClient(nil, cfg, zerolog.Nop()).ObjectURL("k.png"))
}

func TestPublish_UploadsReportAndAttachments(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "reports", "run-1", "report.html")
	writeFile(t, reportPath, "<html></html>")
	writeFile(t, filepath.Join(dir, "reports", "run-1", "report.json"), "{}")
	diffPath := filepath.Join(dir, "results", "contact-form-diff.png")
	writeFile(t, diffPath, "png")

	report := &models.SuiteReport{
		RunID:      "run-1",
		ReportPath: reportPath,
		Results: []models.ScenarioResult{{
			Name:   "contact-form",
			Status: models.StatusFailed,
			Attachments: []models.Attachment{
				{Name: "diff", Path: diffPath, ContentType: "image/png"},
				{Name: "gone", Path: filepath.Join(dir, "missing.png"), ContentType: "image/png"},
			},
		}},
	}
	putter := newFakePutter()
	store := NewStoreWithClient(putter, testS3Config(), zerolog.Nop())

	require.NoError(t, store.Publish(context.Background(), report))

	assert.Len(t, putter.objects, 3)
	html := putter.objects["designdiff/run-1/report.html"]
	assert.Equal(t, "visual-runs", html.bucket)
	assert.Equal(t, "<html></html>", html.body)
	assert.Contains(t, html.contentType, "text/html")
	assert.Equal(t, "image/png", putter.objects["designdiff/run-1/attachments/contact-form/contact-form-diff.png"].contentType)

	assert.Equal(t, "http://localhost:9000/visual-runs/designdiff/run-1/report.html", report.ReportURL)
	assert.Equal(t, "http://localhost:9000/visual-runs/designdiff/run-1/attachments/contact-form/contact-form-diff.png", report.Results[0].Attachments[0].URL)
	assert.Empty(t, report.Results[0].Attachments[1].URL)
}

func TestPublish_UploadErrorIsReturned(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.html")
	writeFile(t, reportPath, "<html></html>")

	putter := newFakePutter()
	putter.failKey = "designdiff/run-2/report.html"
	store := NewStoreWithClient(putter, testS3Config(), zerolog.Nop())

	err := store.Publish(context.Background(), &models.SuiteReport{RunID: "run-2", ReportPath: reportPath})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewStore_RequiresBucket(t *testing.T) {
	_, err := NewStore(context.Background(), config.S3Config{Enabled: true}, zerolog.Nop())
	assert.Error(t, err)
}
