// Package page defines the browser capabilities the harness depends on.
// Implementations live in internal/browser; tests use in-memory fakes.
package page

import (
	"context"
	"fmt"
)

// Box is an element's layout rectangle in CSS pixels
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is a single browser tab
type Page interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	// WaitNetworkIdle blocks until no requests have been in flight for the idle window
	WaitNetworkIdle(ctx context.Context) error
	// Locate returns the first element matching a CSS selector
	Locate(ctx context.Context, selector string) (Element, error)
	// GetByLabel returns the form control labelled text
	GetByLabel(ctx context.Context, text string) (Element, error)
	// GetByPlaceholder returns the input or textarea with the placeholder text
	GetByPlaceholder(ctx context.Context, text string) (Element, error)
	// GetByText returns the innermost element whose visible text contains text
	GetByText(ctx context.Context, text string) (Element, error)
	// GetByRole returns the first element with the ARIA role and accessible name
	GetByRole(ctx context.Context, role, name string) (Element, error)
	// Screenshot captures the viewport, or the whole scrollable page when fullPage is set, as PNG
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// HTML returns the serialized document
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Element is a handle to a DOM node
type Element interface {
	Visible(ctx context.Context) (bool, error)
	// Screenshot captures the element as PNG
	Screenshot(ctx context.Context) ([]byte, error)
	BoundingBox(ctx context.Context) (Box, error)
	ComputedStyle(ctx context.Context, property string) (string, error)
	// HTML returns the element's outer HTML
	HTML(ctx context.Context) (string, error)
}

// ElementNotFoundError means no attached, visible element matched a locator in time
type ElementNotFoundError struct {
	Locator string
	Reason  string
}

func (e *ElementNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("element not found: %s (%s)", e.Locator, e.Reason)
	}
	return fmt.Sprintf("element not found: %s", e.Locator)
}

// NewElementNotFoundError creates an ElementNotFoundError
func NewElementNotFoundError(locator, reason string) *ElementNotFoundError {
	return &ElementNotFoundError{Locator: locator, Reason: reason}
}

// DescribeRole formats a role locator the way it is reported
func DescribeRole(role, name string) string {
	if name == "" {
		return fmt.Sprintf("role=%s", role)
	}
	return fmt.Sprintf("role=%s[name=%q]", role, name)
}
