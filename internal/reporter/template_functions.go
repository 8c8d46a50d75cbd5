package reporter

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"

	"github.com/aleister1102/designdiff/internal/models"
)

// titleCase converts string to title case (replaces deprecated strings.Title)
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// GetCommonTemplateFunctions returns common functions for templates
func GetCommonTemplateFunctions() template.FuncMap {
	return template.FuncMap{
		"json": func(v interface{}) (template.JS, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(data), nil
		},
		"title": titleCase,
		"formatTime": func(t time.Time, layout string) string {
			if t.IsZero() {
				return "N/A"
			}
			return t.Format(layout)
		},
		"duration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"percent": func(v float64) string {
			return fmt.Sprintf("%.3f%%", v*100)
		},
		"statusClass": func(s models.ScenarioStatus) string {
			switch s {
			case models.StatusPassed:
				return "status-passed"
			case models.StatusFailed:
				return "status-failed"
			default:
				return "status-inconclusive"
			}
		},
		"inc": func(i int) int {
			return i + 1
		},
		// imgSrc lets data URIs through html/template's URL sanitizer
		"imgSrc": func(s string) template.URL {
			return template.URL(s)
		},
	}
}
