package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/designdiff/internal/page"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

type rodPage struct {
	page            *rod.Page
	release         func()
	pageLoadTimeout time.Duration
	locateTimeout   time.Duration
	networkIdle     time.Duration
	logger          zerolog.Logger
	closed          bool
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.pageLoadTimeout)
	defer cancel()

	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("page %s did not finish loading: %w", url, err)
	}
	return nil
}

func (p *rodPage) WaitNetworkIdle(ctx context.Context) error {
	if p.networkIdle <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.pageLoadTimeout)
	defer cancel()

	wait := p.page.Context(ctx).WaitRequestIdle(p.networkIdle, nil, nil, nil)
	wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("network did not become idle: %w", err)
	}
	return nil
}

func (p *rodPage) Locate(ctx context.Context, selector string) (page.Element, error) {
	return p.find(ctx, "css="+selector, func(pg *rod.Page) (*rod.Element, error) {
		return pg.Element(selector)
	})
}

func (p *rodPage) GetByLabel(ctx context.Context, text string) (page.Element, error) {
	return p.byJS(ctx, "label="+text, jsGetByLabel, text)
}

func (p *rodPage) GetByPlaceholder(ctx context.Context, text string) (page.Element, error) {
	return p.byJS(ctx, "placeholder="+text, jsGetByPlaceholder, text)
}

func (p *rodPage) GetByText(ctx context.Context, text string) (page.Element, error) {
	return p.byJS(ctx, "text="+text, jsGetByText, text)
}

func (p *rodPage) GetByRole(ctx context.Context, role, name string) (page.Element, error) {
	return p.byJS(ctx, page.DescribeRole(role, name), jsGetByRole, role, name)
}

func (p *rodPage) byJS(ctx context.Context, locator, js string, args ...interface{}) (page.Element, error) {
	return p.find(ctx, locator, func(pg *rod.Page) (*rod.Element, error) {
		return pg.ElementByJS(rod.Eval(js, args...))
	})
}

// find retries the query until it matches or the locate timeout expires
func (p *rodPage) find(ctx context.Context, locator string, query func(*rod.Page) (*rod.Element, error)) (page.Element, error) {
	locateCtx, cancel := context.WithTimeout(ctx, p.locateTimeout)
	defer cancel()

	el, err := query(p.page.Context(locateCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("no match within %s", p.locateTimeout)
		}
		return nil, page.NewElementNotFoundError(locator, reason)
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.page.Close()
	p.release()
	return err
}
