package imagediff

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	slate = color.NRGBA{R: 226, G: 232, B: 240, A: 255}
	ink   = color.NRGBA{A: 255}
)

// formImage is a flat w x h image with dots isolated ink pixels on a 6px grid
func formImage(w, h, dots int, bg color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, bg)
		}
	}
	for i := 0; i < dots; i++ {
		img.SetNRGBA((i%15)*6+2, (i/15)*6+2, ink)
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStrict() *Comparator {
	return NewComparator(Options{DimensionPolicy: config.DimensionPolicyStrict}, zerolog.Nop())
}

func TestCompare_IdenticalImagesPass(t *testing.T) {
	data := encode(t, formImage(100, 100, 0, slate))

	result, diffPNG, err := newStrict().Compare(data, data, models.DefaultTolerance())

	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Zero(t, result.DiffPixels)
	assert.Equal(t, 10000, result.TotalPixels)
	assert.Zero(t, result.PerceptualHashDistance)
	assert.NotEmpty(t, diffPNG)
}

func TestCompare_WithinMaxDiffPixels(t *testing.T) {
	baseline := encode(t, formImage(100, 100, 0, slate))
	candidate := encode(t, formImage(100, 100, 50, slate))

	result, _, err := newStrict().Compare(baseline, candidate, models.Tolerance{MaxDiffPixels: 100, Threshold: 0.2})

	require.NoError(t, err)
	assert.Equal(t, 50, result.DiffPixels)
	assert.InDelta(t, 0.005, result.DiffRatio, 1e-9)
	assert.True(t, result.Passed)
}

func TestCompare_ExceedsMaxDiffPixels(t *testing.T) {
	baseline := encode(t, formImage(100, 100, 0, slate))
	candidate := encode(t, formImage(100, 100, 150, slate))

	result, _, err := newStrict().Compare(baseline, candidate, models.Tolerance{MaxDiffPixels: 100, Threshold: 0.2})

	require.NoError(t, err)
	assert.Equal(t, 150, result.DiffPixels)
	assert.False(t, result.Passed)
}

func TestCompare_RatioBound(t *testing.T) {
	baseline := encode(t, formImage(100, 100, 0, slate))
	candidate := encode(t, formImage(100, 100, 50, slate))

	result, _, err := newStrict().Compare(baseline, candidate, models.Tolerance{MaxDiffPixels: 100, MaxDiffPixelRatio: 0.001, Threshold: 0.2})

	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestCompare_SubThresholdColourShiftIgnored(t *testing.T) {
	shifted := slate
	shifted.R += 2
	baseline := encode(t, formImage(40, 40, 0, slate))
	candidate := encode(t, formImage(40, 40, 0, shifted))

	result, _, err := newStrict().Compare(baseline, candidate, models.Tolerance{Threshold: 0.2})

	require.NoError(t, err)
	assert.Zero(t, result.DiffPixels)
	assert.True(t, result.Passed)

	result, _, err = newStrict().Compare(baseline, candidate, models.Tolerance{Threshold: 0})
	require.NoError(t, err)
	assert.Equal(t, 1600, result.DiffPixels)
}

func TestCompare_Deterministic(t *testing.T) {
	baseline := encode(t, formImage(64, 48, 3, slate))
	candidate := encode(t, formImage(64, 48, 40, slate))
	c := newStrict()

	r1, d1, err1 := c.Compare(baseline, candidate, models.DefaultTolerance())
	r2, d2, err2 := c.Compare(baseline, candidate, models.DefaultTolerance())

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, d1, d2)
}

func TestCompare_DiffImageMarksChangedPixels(t *testing.T) {
	baseline := encode(t, formImage(20, 20, 0, slate))
	candidate := encode(t, formImage(20, 20, 1, slate))

	_, diffPNG, err := newStrict().Compare(baseline, candidate, models.DefaultTolerance())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(diffPNG))
	require.NoError(t, err)
	r, g, b, _ := img.At(2, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r, "changed pixel should be red")
	assert.Zero(t, g)
	assert.Zero(t, b)

	r, g, b, _ = img.At(10, 10).RGBA()
	assert.Equal(t, r, g, "unchanged pixel should be grey")
	assert.Equal(t, g, b)
}

func TestCompare_DimensionMismatchStrict(t *testing.T) {
	baseline := encode(t, formImage(100, 100, 0, slate))
	candidate := encode(t, formImage(100, 90, 0, slate))

	_, _, err := newStrict().Compare(baseline, candidate, models.DefaultTolerance())

	var mismatch *DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 100, mismatch.BaselineHeight)
	assert.Equal(t, 90, mismatch.CandidateHeight)
}

func TestCompare_DimensionMismatchScale(t *testing.T) {
	baseline := encode(t, formImage(100, 100, 0, slate))
	candidate := encode(t, formImage(50, 50, 0, slate))
	c := NewComparator(Options{DimensionPolicy: config.DimensionPolicyScale}, zerolog.Nop())

	result, _, err := c.Compare(baseline, candidate, models.DefaultTolerance())

	require.NoError(t, err)
	assert.Equal(t, 100, result.Width)
	assert.True(t, result.Passed)
}

func TestCompare_InvalidImage(t *testing.T) {
	_, _, err := newStrict().Compare([]byte("not a png"), encode(t, formImage(2, 2, 0, slate)), models.DefaultTolerance())
	assert.Error(t, err)

	_, _, err = newStrict().Compare(encode(t, formImage(2, 2, 0, slate)), nil, models.DefaultTolerance())
	assert.Error(t, err)
}

func TestCompareWithBaseline_BootstrapsMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contact-form-snapshot.png")
	candidate := models.CandidateImage{Name: "contact-form-snapshot", Data: encode(t, formImage(30, 20, 0, slate))}

	result, err := newStrict().CompareWithBaseline(context.Background(), path, candidate, BaselineOptions{
		Tolerance:       models.DefaultTolerance(),
		MissingBaseline: config.MissingBaselineBootstrap,
	})

	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, result.Bootstrapped)
	assert.Equal(t, 30, result.Width)

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, candidate.Data, stored)
}

func TestCompareWithBaseline_MissingFigmaIsInconclusive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contact-form-figma.png")
	candidate := models.CandidateImage{Name: "contact-form", Data: encode(t, formImage(30, 20, 0, slate))}

	result, err := newStrict().CompareWithBaseline(context.Background(), path, candidate, BaselineOptions{
		Tolerance:       models.DefaultTolerance(),
		MissingBaseline: config.MissingBaselineInconclusive,
	})

	require.NoError(t, err)
	assert.True(t, result.Inconclusive)
	assert.False(t, result.Passed)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCompareWithBaseline_FailureWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contact-form-figma.png")
	require.NoError(t, os.WriteFile(path, encode(t, formImage(100, 100, 0, slate)), 0644))
	candidate := models.CandidateImage{Name: "contact-form", Data: encode(t, formImage(100, 100, 150, slate))}

	result, err := newStrict().CompareWithBaseline(context.Background(), path, candidate, BaselineOptions{Tolerance: models.DefaultTolerance()})

	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, filepath.Join(dir, "contact-form-diff.png"), result.DiffArtifactPath)
	assert.Equal(t, filepath.Join(dir, "contact-form-actual.png"), result.ActualArtifactPath)
	assert.FileExists(t, result.DiffArtifactPath)
	assert.FileExists(t, result.ActualArtifactPath)

	// a later passing run clears the artifacts
	candidate.Data = encode(t, formImage(100, 100, 0, slate))
	result, err = newStrict().CompareWithBaseline(context.Background(), path, candidate, BaselineOptions{Tolerance: models.DefaultTolerance()})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.NoFileExists(t, filepath.Join(dir, "contact-form-diff.png"))
}

func TestCompareWithBaseline_DimensionMismatchWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contact-form-figma.png")
	require.NoError(t, os.WriteFile(path, encode(t, formImage(100, 100, 0, slate)), 0644))
	candidate := models.CandidateImage{Name: "contact-form", Data: encode(t, formImage(80, 120, 0, slate))}

	result, err := newStrict().CompareWithBaseline(context.Background(), path, candidate, BaselineOptions{Tolerance: models.DefaultTolerance()})

	var mismatch *DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.False(t, result.Passed)
	assert.Equal(t, 100, result.Width)
	assert.Equal(t, 80, result.CandidateWidth)
	assert.Equal(t, 120, result.CandidateHeight)

	actual, err := os.ReadFile(result.ActualArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, candidate.Data, actual)

	f, err := os.Open(result.DiffArtifactPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 180, cfg.Width)
	assert.Equal(t, 120, cfg.Height)
}

func TestCompareWithBaseline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newStrict().CompareWithBaseline(ctx, filepath.Join(t.TempDir(), "x.png"), models.CandidateImage{}, BaselineOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
