package models

// Tolerance defines how close two images have to be to count as a match.
// Threshold is the per-pixel perceptual cut-off in [0,1]; MaxDiffPixels caps
// the number of pixels above it. MaxDiffPixelRatio is optional (0 disables it).
type Tolerance struct {
	MaxDiffPixels     int     `json:"max_diff_pixels" yaml:"max_diff_pixels" validate:"min=0"`
	MaxDiffPixelRatio float64 `json:"max_diff_pixel_ratio,omitempty" yaml:"max_diff_pixel_ratio,omitempty" validate:"min=0,max=1"`
	Threshold         float64 `json:"threshold" yaml:"threshold" validate:"min=0,max=1"`
}

// DefaultTolerance matches the defaults used for element comparisons
func DefaultTolerance() Tolerance {
	return Tolerance{
		MaxDiffPixels: 100,
		Threshold:     0.2,
	}
}

// ComparisonResult is the verdict of comparing a candidate against a baseline.
// It is derived deterministically from the two images and the tolerance.
type ComparisonResult struct {
	DiffPixels        int     `json:"diff_pixels"`
	TotalPixels       int     `json:"total_pixels"`
	DiffRatio         float64 `json:"diff_ratio"`
	Threshold         float64 `json:"threshold"`
	MaxDiffPixels     int     `json:"max_diff_pixels"`
	MaxDiffPixelRatio float64 `json:"max_diff_pixel_ratio,omitempty"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	// CandidateWidth and CandidateHeight are set only when the sizes differ
	CandidateWidth  int  `json:"candidate_width,omitempty"`
	CandidateHeight int  `json:"candidate_height,omitempty"`
	Passed            bool    `json:"passed"`

	// PerceptualHashDistance is informational only and never affects Passed
	PerceptualHashDistance int `json:"perceptual_hash_distance"`

	BaselinePath       string `json:"baseline_path,omitempty"`
	DiffArtifactPath   string `json:"diff_artifact_path,omitempty"`
	ActualArtifactPath string `json:"actual_artifact_path,omitempty"`

	// Bootstrapped means no baseline existed and the candidate was stored as the new one
	Bootstrapped bool `json:"bootstrapped,omitempty"`
	// Inconclusive means no baseline existed and nothing was validated
	Inconclusive bool `json:"inconclusive,omitempty"`
}
