package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("dimensionpolicy", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", DimensionPolicyStrict, DimensionPolicyScale:
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("baselinepolicy", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", MissingBaselineBootstrap, MissingBaselineInconclusive:
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("scenariokind", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case KindVisual, KindStructural, KindLayout, KindMarkup:
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("baselinesource", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", BaselineFigma, BaselineSnapshot:
			return true
		default:
			return false
		}
	})

	return validate
}

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	var messages []string
	if err := newValidator().Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return fmt.Errorf("configuration validation error: %w", err)
		}
		for _, e := range errs {
			messages = append(messages, formatFieldError(e))
		}
	}

	messages = append(messages, validateScenarios(cfg.Scenarios)...)

	if len(messages) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(messages, "\n  "))
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	fieldName := e.Namespace()
	if idx := strings.Index(fieldName, "."); idx >= 0 {
		fieldName = fieldName[idx+1:]
	}
	msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", fieldName, e.Tag())
	if e.Param() != "" {
		msg += fmt.Sprintf(" (expected: %s)", e.Param())
	}
	if e.Value() != nil && e.Value() != "" {
		msg += fmt.Sprintf(", actual: '%v'", e.Value())
	}
	return msg
}

// validateScenarios checks the rules that depend on the scenario kind, which
// struct tags cannot express.
func validateScenarios(scenarios []ScenarioConfig) []string {
	var messages []string
	seen := make(map[string]bool, len(scenarios))

	for i, sc := range scenarios {
		label := fmt.Sprintf("scenarios[%d]", i)
		if sc.Name != "" {
			label = fmt.Sprintf("scenario '%s'", sc.Name)
			if seen[sc.Name] {
				messages = append(messages, fmt.Sprintf("%s: duplicate scenario name", label))
			}
			seen[sc.Name] = true
		}

		switch sc.Kind {
		case KindVisual:
			if sc.Baseline == "" {
				messages = append(messages, fmt.Sprintf("%s: visual scenarios need a baseline source", label))
			}
			if !sc.FullPage && sc.Selector == "" {
				messages = append(messages, fmt.Sprintf("%s: visual scenarios need a selector or full_page", label))
			}
		case KindStructural:
			if len(sc.Checks) == 0 {
				messages = append(messages, fmt.Sprintf("%s: structural scenarios need at least one check", label))
			}
			for j, c := range sc.Checks {
				if c.Label == "" && c.Placeholder == "" && c.Text == "" && c.Role == "" {
					messages = append(messages, fmt.Sprintf("%s: check %d names no locator", label, j))
				}
			}
		case KindLayout:
			if sc.Selector == "" {
				messages = append(messages, fmt.Sprintf("%s: layout scenarios need a selector", label))
			}
		case KindMarkup:
			if sc.Selector == "" {
				messages = append(messages, fmt.Sprintf("%s: markup scenarios need a selector", label))
			}
		}
	}
	return messages
}
