package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aleister1102/designdiff/internal/page"
	"github.com/rs/zerolog"
)

// Capturer takes candidate screenshots of rendered pages
type Capturer struct {
	logger zerolog.Logger
}

// NewCapturer creates a new Capturer
func NewCapturer(logger zerolog.Logger) *Capturer {
	return &Capturer{logger: logger.With().Str("component", "Capturer").Logger()}
}

// Capture screenshots the first element matching selector, or the whole page
// when fullPage is set. The element must be attached and visible; otherwise
// a *page.ElementNotFoundError is returned. There are no retries here.
func (c *Capturer) Capture(ctx context.Context, p page.Page, name, selector string, fullPage bool) (models.CandidateImage, error) {
	var (
		data []byte
		err  error
	)

	if fullPage {
		data, err = p.Screenshot(ctx, true)
		if err != nil {
			return models.CandidateImage{}, fmt.Errorf("failed to capture full page for '%s': %w", name, err)
		}
	} else {
		data, err = c.captureElement(ctx, p, selector)
		if err != nil {
			return models.CandidateImage{}, err
		}
	}

	if len(data) == 0 {
		return models.CandidateImage{}, fmt.Errorf("empty screenshot for '%s'", name)
	}

	c.logger.Debug().Str("name", name).Str("selector", selector).Bool("full_page", fullPage).Int("bytes", len(data)).Msg("Captured candidate")
	return models.CandidateImage{Name: name, Data: data, CapturedAt: time.Now()}, nil
}

func (c *Capturer) captureElement(ctx context.Context, p page.Page, selector string) ([]byte, error) {
	el, err := p.Locate(ctx, selector)
	if err != nil {
		return nil, err
	}

	visible, err := el.Visible(ctx)
	if err != nil {
		return nil, page.NewElementNotFoundError("css="+selector, "element detached: "+err.Error())
	}
	if !visible {
		return nil, page.NewElementNotFoundError("css="+selector, "element is not visible")
	}

	data, err := el.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture '%s': %w", selector, err)
	}
	return data, nil
}
