// Package assertion evaluates structural and layout expectations against a live page
package assertion

import (
	"context"
	"fmt"
	"strings"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/aleister1102/designdiff/internal/page"
	"github.com/rs/zerolog"
)

// Checker runs visibility, bounding box and computed style checks
type Checker struct {
	logger zerolog.Logger
}

// NewChecker creates a new Checker
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		logger: logger.With().Str("component", "AssertionChecker").Logger(),
	}
}

// Describe renders a check the way it appears in reports
func Describe(check config.CheckConfig) string {
	switch {
	case check.Label != "":
		return fmt.Sprintf("label %q is visible", check.Label)
	case check.Placeholder != "":
		return fmt.Sprintf("placeholder %q is visible", check.Placeholder)
	case check.Text != "":
		return fmt.Sprintf("text %q is visible", check.Text)
	case check.Role != "":
		if check.Name != "" {
			return fmt.Sprintf("%s %q is visible", check.Role, check.Name)
		}
		return fmt.Sprintf("%s is visible", check.Role)
	}
	return "empty check"
}

func locate(ctx context.Context, p page.Page, check config.CheckConfig) (page.Element, error) {
	switch {
	case check.Label != "":
		return p.GetByLabel(ctx, check.Label)
	case check.Placeholder != "":
		return p.GetByPlaceholder(ctx, check.Placeholder)
	case check.Text != "":
		return p.GetByText(ctx, check.Text)
	case check.Role != "":
		return p.GetByRole(ctx, check.Role, check.Name)
	}
	return nil, fmt.Errorf("check has no locator")
}

// CheckVisible evaluates every check in order. A missing element fails only
// its own check; a cancelled context stops evaluation and is returned.
func (c *Checker) CheckVisible(ctx context.Context, p page.Page, checks []config.CheckConfig) ([]models.AssertionResult, error) {
	results := make([]models.AssertionResult, 0, len(checks))
	for _, check := range checks {
		result := models.AssertionResult{Description: Describe(check)}

		el, err := locate(ctx, p, check)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}
			result.Message = err.Error()
			results = append(results, result)
			continue
		}

		visible, err := el.Visible(ctx)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}
			result.Message = err.Error()
		case !visible:
			result.Message = "element is present but not visible"
		default:
			result.Passed = true
		}

		if !result.Passed {
			c.logger.Debug().Str("check", result.Description).Str("reason", result.Message).Msg("Visibility check failed")
		}
		results = append(results, result)
	}
	return results, nil
}

// LayoutExpectation is what a layout scenario asserts about a page region
type LayoutExpectation struct {
	Selector  string
	MinWidth  float64
	MinHeight float64
	Styles    []config.StyleCheckConfig
}

// LayoutFrom reads the layout expectation of a scenario
func LayoutFrom(sc config.ScenarioConfig) LayoutExpectation {
	return LayoutExpectation{
		Selector:  sc.Selector,
		MinWidth:  sc.MinWidth,
		MinHeight: sc.MinHeight,
		Styles:    sc.StyleChecks,
	}
}

// CheckLayout asserts the region's bounding box exceeds the minima and each computed style matches
func (c *Checker) CheckLayout(ctx context.Context, p page.Page, exp LayoutExpectation) ([]models.AssertionResult, error) {
	var results []models.AssertionResult

	if exp.Selector != "" {
		results = append(results, c.checkBox(ctx, p, exp))
		if err := ctx.Err(); err != nil {
			return results, err
		}
	}

	for _, style := range exp.Styles {
		results = append(results, c.checkStyle(ctx, p, style))
		if err := ctx.Err(); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (c *Checker) checkBox(ctx context.Context, p page.Page, exp LayoutExpectation) models.AssertionResult {
	result := models.AssertionResult{
		Description: fmt.Sprintf("%s is larger than %gx%g", exp.Selector, exp.MinWidth, exp.MinHeight),
	}

	el, err := p.Locate(ctx, exp.Selector)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	box, err := el.BoundingBox(ctx)
	if err != nil {
		result.Message = err.Error()
		return result
	}

	var problems []string
	if exp.MinWidth > 0 && box.Width <= exp.MinWidth {
		problems = append(problems, fmt.Sprintf("width %g <= %g", box.Width, exp.MinWidth))
	}
	if exp.MinHeight > 0 && box.Height <= exp.MinHeight {
		problems = append(problems, fmt.Sprintf("height %g <= %g", box.Height, exp.MinHeight))
	}
	if len(problems) > 0 {
		result.Message = strings.Join(problems, ", ")
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("%gx%g", box.Width, box.Height)
	return result
}

func (c *Checker) checkStyle(ctx context.Context, p page.Page, style config.StyleCheckConfig) models.AssertionResult {
	result := models.AssertionResult{
		Description: fmt.Sprintf("%s has %s %s", style.Selector, style.Property, style.Want),
	}

	el, err := p.Locate(ctx, style.Selector)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	got, err := el.ComputedStyle(ctx, style.Property)
	if err != nil {
		result.Message = err.Error()
		return result
	}

	if normalizeStyle(got) != normalizeStyle(style.Want) {
		result.Message = fmt.Sprintf("got %q", got)
		c.logger.Debug().Str("selector", style.Selector).Str("property", style.Property).Str("got", got).Str("want", style.Want).Msg("Style check failed")
		return result
	}
	result.Passed = true
	return result
}

// normalizeStyle makes "rgb(226,232,240)" and "rgb(226, 232, 240)" compare equal
func normalizeStyle(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' }), ",")
}

// AllPassed reports whether every assertion passed
func AllPassed(results []models.AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// FailureSummary joins the descriptions of failed assertions
func FailureSummary(results []models.AssertionResult) string {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Description+": "+r.Message)
		}
	}
	return strings.Join(failed, "; ")
}
