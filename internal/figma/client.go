package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/httpclient"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
)

const (
	tokenHeader     = "X-Figma-Token"
	maxAPIBodySize  = 1 << 20
	baselineSuffix  = "-figma.png"
	errorBodyLength = 256
)

// imagesResponse is the payload of GET /v1/images/{file_key}
type imagesResponse struct {
	Err    string             `json:"err"`
	Status int                `json:"status"`
	Images map[string]*string `json:"images"`
}

// Client talks to the Figma images API and stores exports as baselines
type Client struct {
	apiBaseURL   string
	exportScale  int
	exportFormat string
	httpClient   *httpclient.HTTPClient
	fileManager  *common.FileManager
	logger       zerolog.Logger
}

// NewClient creates a client from the figma section of the config
func NewClient(cfg config.FigmaConfig, logger zerolog.Logger) (*Client, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultFigmaTimeoutSecs * time.Second
	}

	httpClient, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(timeout).
		WithMaxContentSize(maxAPIBodySize).
		WithRetries(httpclient.DefaultRetryHandlerConfig()).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to create figma HTTP client")
	}

	return NewClientWithHTTPClient(cfg, httpClient, logger), nil
}

// NewClientWithHTTPClient creates a client on top of an existing HTTP client
func NewClientWithHTTPClient(cfg config.FigmaConfig, httpClient *httpclient.HTTPClient, logger zerolog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultFigmaAPIBaseURL
	}
	scale := cfg.ExportScale
	if scale <= 0 {
		scale = config.DefaultFigmaExportScale
	}
	format := cfg.ExportFormat
	if format == "" {
		format = config.DefaultFigmaExportFormat
	}

	return &Client{
		apiBaseURL:   baseURL,
		exportScale:  scale,
		exportFormat: format,
		httpClient:   httpClient,
		fileManager:  common.NewFileManager(logger),
		logger:       logger.With().Str("component", "FigmaClient").Logger(),
	}
}

// ImagesURL builds the export request URL for a reference
func (c *Client) ImagesURL(ref models.DesignReference) string {
	q := url.Values{}
	q.Set("ids", models.CanonicalNodeID(ref.NodeID))
	q.Set("format", c.exportFormat)
	q.Set("scale", strconv.Itoa(c.exportScale))
	return c.apiBaseURL + "/v1/images/" + url.PathEscape(ref.FileKey) + "?" + q.Encode()
}

// ResolveImageURL asks the images API for the export URL of ref's node
func (c *Client) ResolveImageURL(ctx context.Context, ref models.DesignReference) (models.RemoteImageHandle, error) {
	if ref.AccessToken == "" {
		return models.RemoteImageHandle{}, config.ErrConfigurationMissing
	}
	nodeID := models.CanonicalNodeID(ref.NodeID)
	requestURL := c.ImagesURL(ref)

	resp, err := c.httpClient.Do(&httpclient.HTTPRequest{
		URL:     requestURL,
		Method:  http.MethodGet,
		Headers: map[string]string{tokenHeader: ref.AccessToken, "Accept": "application/json"},
		Context: ctx,
	})
	// Exhausted retries on a retryable status still carry a response whose body explains it
	if err != nil && resp == nil {
		return models.RemoteImageHandle{}, &TransportError{URL: requestURL, Err: err}
	}

	var payload imagesResponse
	if jsonErr := json.Unmarshal(resp.Body, &payload); jsonErr != nil {
		return models.RemoteImageHandle{}, &RemoteAPIError{
			StatusCode: resp.StatusCode,
			NodeID:     nodeID,
			Message:    "unexpected response: " + truncate(string(resp.Body), errorBodyLength),
		}
	}

	if payload.Err != "" {
		return models.RemoteImageHandle{}, &RemoteAPIError{StatusCode: resp.StatusCode, NodeID: nodeID, Message: payload.Err}
	}
	if resp.StatusCode != http.StatusOK {
		return models.RemoteImageHandle{}, &RemoteAPIError{StatusCode: resp.StatusCode, NodeID: nodeID, Message: http.StatusText(resp.StatusCode)}
	}

	for key, imageURL := range payload.Images {
		if models.CanonicalNodeID(key) != nodeID {
			continue
		}
		if imageURL == nil || *imageURL == "" {
			return models.RemoteImageHandle{}, &RemoteAPIError{StatusCode: resp.StatusCode, NodeID: nodeID, Message: "node could not be rendered"}
		}
		c.logger.Debug().Str("node_id", nodeID).Str("file_key", ref.FileKey).Msg("Resolved design export URL")
		return models.RemoteImageHandle{NodeID: nodeID, URL: *imageURL}, nil
	}

	return models.RemoteImageHandle{}, &RemoteAPIError{StatusCode: resp.StatusCode, NodeID: nodeID, Message: "node not present in images response"}
}

// DownloadImage streams the export to dest. The file only appears at dest once
// it is completely written, synced and decodes as an image.
func (c *Client) DownloadImage(ctx context.Context, handle models.RemoteImageHandle, dest string) (models.BaselineImage, error) {
	resp, err := c.httpClient.Stream(&httpclient.HTTPRequest{
		URL:     handle.URL,
		Method:  http.MethodGet,
		Context: ctx,
	})
	if err != nil {
		return models.BaselineImage{}, &DownloadError{Path: dest, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.BaselineImage{}, &DownloadError{
			Path:       dest,
			StatusCode: resp.StatusCode,
			Err:        common.NewHTTPErrorWithURL(resp.StatusCode, http.StatusText(resp.StatusCode), handle.URL),
		}
	}

	var cfg image.Config
	written, err := c.fileManager.WriteAtomic(dest, resp.Body, common.AtomicWriteOptions{
		RequireNonEmpty: true,
		Verify: func(tmpPath string) error {
			var verifyErr error
			cfg, verifyErr = decodeImageConfig(tmpPath)
			return verifyErr
		},
	})
	if err != nil {
		return models.BaselineImage{}, &DownloadError{Path: dest, Err: err}
	}

	baseline := models.BaselineImage{
		Name:      strings.TrimSuffix(filepath.Base(dest), baselineSuffix),
		Path:      dest,
		NodeID:    handle.NodeID,
		Bytes:     written,
		Width:     cfg.Width,
		Height:    cfg.Height,
		FetchedAt: time.Now(),
	}

	c.logger.Info().
		Str("path", dest).
		Int64("bytes", written).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("Design baseline saved")
	return baseline, nil
}

// FetchBaseline resolves and downloads ref to <dir>/<name>-figma.png,
// overwriting any earlier fetch.
func (c *Client) FetchBaseline(ctx context.Context, ref models.DesignReference, name, dir string) (models.BaselineImage, error) {
	handle, err := c.ResolveImageURL(ctx, ref)
	if err != nil {
		return models.BaselineImage{}, err
	}

	baseline, err := c.DownloadImage(ctx, handle, BaselinePath(dir, name))
	if err != nil {
		return models.BaselineImage{}, err
	}
	baseline.Name = name
	return baseline, nil
}

// BaselinePath is where the design baseline for a logical test name is stored
func BaselinePath(dir, name string) string {
	return filepath.Join(dir, name+baselineSuffix)
}

// LoadExistingBaseline describes a baseline file left by an earlier run
func LoadExistingBaseline(path, name, nodeID string) (models.BaselineImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.BaselineImage{}, err
	}
	cfg, err := decodeImageConfig(path)
	if err != nil {
		return models.BaselineImage{}, err
	}
	return models.BaselineImage{
		Name:      name,
		Path:      path,
		NodeID:    nodeID,
		Bytes:     info.Size(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		FetchedAt: info.ModTime(),
		Stale:     true,
	}, nil
}

func decodeImageConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("downloaded file is not a valid image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return image.Config{}, fmt.Errorf("downloaded %s image has no pixels", format)
	}
	return cfg, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
