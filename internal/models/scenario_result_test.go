package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuiteReport_Tally(t *testing.T) {
	report := SuiteReport{
		Results: []ScenarioResult{
			{Name: "a", Status: StatusPassed},
			{Name: "b", Status: StatusFailed},
			{Name: "c", Status: StatusInconclusive},
			{Name: "d", Status: StatusPassed},
		},
	}

	report.Tally()

	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Inconclusive)
	assert.True(t, report.HasFailures())
	assert.True(t, report.Results[1].Failed())
}

func TestDefaultTolerance(t *testing.T) {
	tol := DefaultTolerance()
	assert.Equal(t, 100, tol.MaxDiffPixels)
	assert.InDelta(t, 0.2, tol.Threshold, 1e-9)
	assert.Zero(t, tol.MaxDiffPixelRatio)
}
