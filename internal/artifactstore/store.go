package artifactstore

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRegion     = "us-east-1"
	uploadConcurrency = 4
)

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store uploads run reports and scenario attachments to an S3 compatible bucket
type Store struct {
	client       ObjectPutter
	bucket       string
	region       string
	prefix       string
	endpoint     string
	usePathStyle bool
	logger       zerolog.Logger
}

// NewStore builds an S3 client from cfg. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewStore(ctx context.Context, cfg config.S3Config, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, common.NewValidationError("bucket", cfg.Bucket, "s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	cfg.Region = region
	return NewStoreWithClient(client, cfg, logger), nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client ObjectPutter, cfg config.S3Config, logger zerolog.Logger) *Store {
	return &Store{
		client:       client,
		bucket:       strings.TrimSpace(cfg.Bucket),
		region:       cfg.Region,
		prefix:       strings.Trim(cfg.KeyPrefix, "/"),
		endpoint:     strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		usePathStyle: cfg.UsePathStyle,
		logger:       logger.With().Str("component", "ArtifactStore").Logger(),
	}
}

func (s *Store) Name() string { return "s3" }

// ObjectKey is <prefix>/<runID>/<parts...>
func (s *Store) ObjectKey(runID string, parts ...string) string {
	elems := append([]string{s.prefix, runID}, parts...)
	return path.Join(elems...)
}

// ObjectURL is the public URL of key
func (s *Store) ObjectURL(key string) string {
	escapedKey := strings.ReplaceAll(url.PathEscape(key), "%2F", "/")
	if s.endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escapedKey)
	}
	if s.usePathStyle {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, escapedKey)
	}
	scheme := "https://"
	host := s.endpoint
	if strings.HasPrefix(host, "http://") {
		scheme = "http://"
	}
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return fmt.Sprintf("%s%s.%s/%s", scheme, s.bucket, host, escapedKey)
}

// UploadFile puts the file at localPath under key and returns its URL
func (s *Store) UploadFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(localPath))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s failed: %w", key, err)
	}
	return s.ObjectURL(key), nil
}

// Publish uploads the report files and every scenario attachment, filling in
// report.ReportURL and each Attachment.URL.
func (s *Store) Publish(ctx context.Context, report *models.SuiteReport) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	if report.ReportPath != "" {
		reportDir := filepath.Dir(report.ReportPath)
		entries, err := os.ReadDir(reportDir)
		if err != nil {
			return common.WrapError(err, "failed to read report directory")
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			localPath := filepath.Join(reportDir, entry.Name())
			isReport := localPath == report.ReportPath
			g.Go(func() error {
				objectURL, err := s.UploadFile(gCtx, s.ObjectKey(report.RunID, entry.Name()), localPath, "")
				if err != nil {
					return err
				}
				if isReport {
					report.ReportURL = objectURL
				}
				return nil
			})
		}
	}

	for i := range report.Results {
		result := &report.Results[i]
		for j := range result.Attachments {
			attachment := &result.Attachments[j]
			if attachment.Path == "" {
				continue
			}
			key := s.ObjectKey(report.RunID, "attachments", result.Name, filepath.Base(attachment.Path))
			g.Go(func() error {
				if _, err := os.Stat(attachment.Path); err != nil {
					s.logger.Warn().Err(err).Str("path", attachment.Path).Msg("Attachment missing, not uploaded")
					return nil
				}
				objectURL, err := s.UploadFile(gCtx, key, attachment.Path, attachment.ContentType)
				if err != nil {
					return err
				}
				attachment.URL = objectURL
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return common.WrapError(err, "artifact upload failed")
	}
	s.logger.Info().Str("run_id", report.RunID).Str("bucket", s.bucket).Str("report_url", report.ReportURL).Msg("Artifacts uploaded")
	return nil
}
