// Package pagetest provides in-memory page.Page fakes for tests
package pagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aleister1102/designdiff/internal/page"
)

// Locator keys used to register elements on a FakePage
func CSS(selector string) string     { return "css=" + selector }
func Label(text string) string       { return "label=" + text }
func Placeholder(text string) string { return "placeholder=" + text }
func Text(text string) string        { return "text=" + text }
func Role(role, name string) string  { return page.DescribeRole(role, name) }

// FakeElement is a canned element
type FakeElement struct {
	Hidden bool
	PNG    []byte
	Box    page.Box
	Styles map[string]string
	Markup string
}

func (e *FakeElement) Visible(ctx context.Context) (bool, error) {
	return !e.Hidden, ctx.Err()
}

func (e *FakeElement) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.PNG == nil {
		return nil, fmt.Errorf("no screenshot configured")
	}
	return e.PNG, nil
}

func (e *FakeElement) BoundingBox(ctx context.Context) (page.Box, error) {
	return e.Box, ctx.Err()
}

func (e *FakeElement) ComputedStyle(ctx context.Context, property string) (string, error) {
	return e.Styles[property], ctx.Err()
}

func (e *FakeElement) HTML(ctx context.Context) (string, error) {
	return e.Markup, ctx.Err()
}

// FakePage resolves locators from a map keyed by the helpers above
type FakePage struct {
	mu sync.Mutex

	Elements    map[string]*FakeElement
	FullPagePNG []byte
	ViewportPNG []byte
	Document    string
	NavigateErr error
	Navigated   []string
	Closed      bool
	IdleWaits   int
}

// NewFakePage creates an empty page
func NewFakePage() *FakePage {
	return &FakePage{Elements: map[string]*FakeElement{}}
}

// With registers an element under a locator key and returns the page
func (p *FakePage) With(key string, el *FakeElement) *FakePage {
	p.Elements[key] = el
	return p
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigated = append(p.Navigated, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	return ctx.Err()
}

func (p *FakePage) WaitNetworkIdle(ctx context.Context) error {
	p.mu.Lock()
	p.IdleWaits++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *FakePage) lookup(ctx context.Context, key string) (page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	el, ok := p.Elements[key]
	p.mu.Unlock()
	if !ok {
		return nil, page.NewElementNotFoundError(key, "no match")
	}
	return el, nil
}

func (p *FakePage) Locate(ctx context.Context, selector string) (page.Element, error) {
	return p.lookup(ctx, CSS(selector))
}

func (p *FakePage) GetByLabel(ctx context.Context, text string) (page.Element, error) {
	return p.lookup(ctx, Label(text))
}

func (p *FakePage) GetByPlaceholder(ctx context.Context, text string) (page.Element, error) {
	return p.lookup(ctx, Placeholder(text))
}

func (p *FakePage) GetByText(ctx context.Context, text string) (page.Element, error) {
	return p.lookup(ctx, Text(text))
}

func (p *FakePage) GetByRole(ctx context.Context, role, name string) (page.Element, error) {
	return p.lookup(ctx, Role(role, name))
}

func (p *FakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fullPage {
		return p.FullPagePNG, nil
	}
	return p.ViewportPNG, nil
}

func (p *FakePage) HTML(ctx context.Context) (string, error) {
	return p.Document, ctx.Err()
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	p.Closed = true
	p.mu.Unlock()
	return nil
}

var _ page.Page = (*FakePage)(nil)
