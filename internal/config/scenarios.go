package config

import "github.com/aleister1102/designdiff/internal/models"

// ScenarioConfig describes one independently runnable check against a page
type ScenarioConfig struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Kind     string `json:"kind" yaml:"kind" validate:"scenariokind"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
	FullPage bool   `json:"full_page,omitempty" yaml:"full_page,omitempty"`

	// Visual scenarios
	Baseline     string            `json:"baseline,omitempty" yaml:"baseline,omitempty" validate:"baselinesource"`
	BaselineName string            `json:"baseline_name,omitempty" yaml:"baseline_name,omitempty"`
	NodeID       string            `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Tolerance    *models.Tolerance `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`

	SkipNetworkIdle bool `json:"skip_network_idle,omitempty" yaml:"skip_network_idle,omitempty"`

	// Structural scenarios
	Checks []CheckConfig `json:"checks,omitempty" yaml:"checks,omitempty"`

	// Layout scenarios. The bounding box must be strictly larger than
	// MinWidth x MinHeight; a zero bound is not checked.
	MinWidth    float64            `json:"min_width,omitempty" yaml:"min_width,omitempty" validate:"min=0"`
	MinHeight   float64            `json:"min_height,omitempty" yaml:"min_height,omitempty" validate:"min=0"`
	StyleChecks []StyleCheckConfig `json:"style_checks,omitempty" yaml:"style_checks,omitempty" validate:"dive"`

	// Markup scenarios
	FailOnDrift bool `json:"fail_on_drift,omitempty" yaml:"fail_on_drift,omitempty"`
}

// CheckConfig is a visibility check. Exactly one locator is used, in the order
// Label, Placeholder, Text, Role.
type CheckConfig struct {
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Role        string `json:"role,omitempty" yaml:"role,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
}

// StyleCheckConfig compares a computed style property of the first element matching Selector
type StyleCheckConfig struct {
	Selector string `json:"selector" yaml:"selector" validate:"required"`
	Property string `json:"property" yaml:"property" validate:"required"`
	Want     string `json:"want" yaml:"want"`
}

// BaselineKey returns the logical name of the image this scenario is compared against
func (s ScenarioConfig) BaselineKey() string {
	if s.BaselineName != "" {
		return s.BaselineName
	}
	return s.Name
}

// PagePath returns the path to navigate to, relative to the base URL
func (s ScenarioConfig) PagePath() string {
	if s.Path == "" {
		return "/"
	}
	return s.Path
}

// DefaultScenarios is the contact form suite run when the config file defines none
func DefaultScenarios() []ScenarioConfig {
	return []ScenarioConfig{
		{
			Name:      "contact-form",
			Kind:      KindVisual,
			Selector:  "form",
			Baseline:  BaselineFigma,
			Tolerance: &models.Tolerance{MaxDiffPixels: 100, Threshold: 0.2},
		},
		{
			Name:      "contact-form-snapshot",
			Kind:      KindVisual,
			Selector:  "form",
			Baseline:  BaselineSnapshot,
			Tolerance: &models.Tolerance{MaxDiffPixels: 100, Threshold: 0.2},
		},
		{
			Name: "contact-form-layout-structure",
			Kind: KindStructural,
			Checks: []CheckConfig{
				{Label: "Name"},
				{Placeholder: "Full Name"},
				{Text: "Enter your email address"},
				{Label: "Address"},
				{Placeholder: "Full Address"},
				{Text: "USA address only"},
				{Label: "Tel"},
				{Placeholder: "Phone Number"},
				{Text: "Format: 561-658-9865"},
				{Label: "Your message"},
				{Placeholder: "Type your message here"},
				{Text: "Your message will be copied to the support team"},
				{Role: "button", Name: "Send Form"},
			},
		},
		{
			Name:      "contact-form-spacing-and-layout",
			Kind:      KindLayout,
			Selector:  "form",
			MinWidth:  400,
			MinHeight: 400,
			StyleChecks: []StyleCheckConfig{
				{Selector: "form > div", Property: "background-color", Want: "rgb(226, 232, 240)"},
			},
		},
		{
			Name:      "full-page",
			Kind:      KindVisual,
			FullPage:  true,
			Baseline:  BaselineSnapshot,
			Tolerance: &models.Tolerance{MaxDiffPixels: 200, Threshold: 0.2},
		},
		{
			Name:     "contact-form-markup",
			Kind:     KindMarkup,
			Selector: "form",
		},
	}
}
