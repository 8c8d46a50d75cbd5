package imagediff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
)

const maxBaselineSize = 64 << 20

// BaselineOptions controls CompareWithBaseline
type BaselineOptions struct {
	Tolerance models.Tolerance
	// MissingBaseline is "bootstrap" or "inconclusive"
	MissingBaseline string
	// ArtifactDir receives <name>-diff.png and <name>-actual.png; defaults to the baseline's directory
	ArtifactDir string
}

// DiffArtifactPath is where the highlighted diff for name is written
func DiffArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+"-diff.png")
}

// ActualArtifactPath is where the failing candidate for name is written
func ActualArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+"-actual.png")
}

// CompareWithBaseline compares candidate against the image stored at
// baselinePath. Diff and actual artifacts are written only when the
// comparison fails.
func (c *Comparator) CompareWithBaseline(ctx context.Context, baselinePath string, candidate models.CandidateImage, opts BaselineOptions) (models.ComparisonResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ComparisonResult{}, err
	}

	artifactDir := opts.ArtifactDir
	if artifactDir == "" {
		artifactDir = filepath.Dir(baselinePath)
	}
	name := candidate.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(baselinePath), filepath.Ext(baselinePath))
	}

	if !c.fileManager.FileExists(baselinePath) {
		return c.handleMissingBaseline(baselinePath, candidate, opts)
	}

	baseline, err := c.fileManager.ReadFile(baselinePath, maxBaselineSize)
	if err != nil {
		return models.ComparisonResult{}, common.WrapError(err, "failed to read baseline "+baselinePath)
	}

	result, diffPNG, err := c.Compare(baseline, candidate.Data, opts.Tolerance)
	var mismatch *DimensionMismatchError
	if errors.As(err, &mismatch) {
		return c.handleDimensionMismatch(baselinePath, baseline, candidate, artifactDir, name, opts.Tolerance, mismatch)
	}
	if err != nil {
		return models.ComparisonResult{}, err
	}
	result.BaselinePath = baselinePath

	if result.Passed {
		removeStaleArtifacts(artifactDir, name)
		c.logger.Debug().
			Str("name", name).
			Int("diff_pixels", result.DiffPixels).
			Int("perceptual_hash_distance", result.PerceptualHashDistance).
			Msg("Screenshot matches baseline")
		return result, nil
	}

	diffPath := DiffArtifactPath(artifactDir, name)
	if err := c.fileManager.WriteBytesAtomic(diffPath, diffPNG); err != nil {
		return result, common.WrapError(err, "failed to write diff artifact")
	}
	actualPath := ActualArtifactPath(artifactDir, name)
	if err := c.fileManager.WriteBytesAtomic(actualPath, candidate.Data); err != nil {
		return result, common.WrapError(err, "failed to write actual artifact")
	}
	result.DiffArtifactPath = diffPath
	result.ActualArtifactPath = actualPath

	c.logger.Warn().
		Str("name", name).
		Int("diff_pixels", result.DiffPixels).
		Int("max_diff_pixels", result.MaxDiffPixels).
		Float64("diff_ratio", result.DiffRatio).
		Str("diff", diffPath).
		Msg("Screenshot differs from baseline")
	return result, nil
}

// handleDimensionMismatch keeps the candidate and a side-by-side image so a
// size failure can be inspected. The mismatch is still returned as the error.
func (c *Comparator) handleDimensionMismatch(baselinePath string, baseline []byte, candidate models.CandidateImage, artifactDir, name string, tol models.Tolerance, mismatch *DimensionMismatchError) (models.ComparisonResult, error) {
	total := mismatch.BaselineWidth * mismatch.BaselineHeight
	result := models.ComparisonResult{
		DiffPixels:             total,
		TotalPixels:            total,
		Threshold:              tol.Threshold,
		MaxDiffPixels:          tol.MaxDiffPixels,
		MaxDiffPixelRatio:      tol.MaxDiffPixelRatio,
		Width:                  mismatch.BaselineWidth,
		Height:                 mismatch.BaselineHeight,
		CandidateWidth:         mismatch.CandidateWidth,
		CandidateHeight:        mismatch.CandidateHeight,
		PerceptualHashDistance: -1,
		BaselinePath:           baselinePath,
	}
	if total > 0 {
		result.DiffRatio = 1
	}

	actualPath := ActualArtifactPath(artifactDir, name)
	if err := c.fileManager.WriteBytesAtomic(actualPath, candidate.Data); err != nil {
		return result, common.WrapError(err, "failed to write actual artifact")
	}
	result.ActualArtifactPath = actualPath

	diffPNG, err := sideBySide(baseline, candidate.Data)
	if err != nil {
		return result, common.WrapError(err, "failed to build size diff")
	}
	diffPath := DiffArtifactPath(artifactDir, name)
	if err := c.fileManager.WriteBytesAtomic(diffPath, diffPNG); err != nil {
		return result, common.WrapError(err, "failed to write diff artifact")
	}
	result.DiffArtifactPath = diffPath

	c.logger.Warn().
		Str("name", name).
		Err(mismatch).
		Str("diff", diffPath).
		Msg("Screenshot size differs from baseline")
	return result, mismatch
}

func (c *Comparator) handleMissingBaseline(baselinePath string, candidate models.CandidateImage, opts BaselineOptions) (models.ComparisonResult, error) {
	result := models.ComparisonResult{
		BaselinePath:           baselinePath,
		Threshold:              opts.Tolerance.Threshold,
		MaxDiffPixels:          opts.Tolerance.MaxDiffPixels,
		MaxDiffPixelRatio:      opts.Tolerance.MaxDiffPixelRatio,
		PerceptualHashDistance: -1,
	}

	if opts.MissingBaseline != config.MissingBaselineBootstrap {
		c.logger.Warn().Str("baseline", baselinePath).Msg("Baseline missing, comparison is inconclusive")
		result.Inconclusive = true
		return result, nil
	}

	img, err := decodeNRGBA(candidate.Data)
	if err != nil {
		return result, common.WrapError(err, "failed to decode candidate")
	}
	if err := c.fileManager.WriteBytesAtomic(baselinePath, candidate.Data); err != nil {
		return result, common.WrapError(err, "failed to write new baseline")
	}

	result.Width, result.Height = img.Bounds().Dx(), img.Bounds().Dy()
	result.TotalPixels = result.Width * result.Height
	result.Passed = true
	result.Bootstrapped = true
	c.logger.Warn().Str("baseline", baselinePath).Msg("Baseline missing, stored current screenshot as the new baseline")
	return result, nil
}

// removeStaleArtifacts deletes diff artifacts left by an earlier failing run
func removeStaleArtifacts(dir, name string) {
	_ = os.Remove(DiffArtifactPath(dir, name))
	_ = os.Remove(ActualArtifactPath(dir, name))
}
