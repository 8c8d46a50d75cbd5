package imagediff

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/corona10/goimagehash"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	diffColor = color.NRGBA{R: 255, A: 255}
	aaColor   = color.NRGBA{R: 255, G: 255, A: 255}
)

// fadeAlpha is how strongly unchanged pixels show through in the diff image
const fadeAlpha = 0.1

// DimensionMismatchError is returned under the strict dimension policy
type DimensionMismatchError struct {
	BaselineWidth   int
	BaselineHeight  int
	CandidateWidth  int
	CandidateHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image dimensions differ: baseline %dx%d, candidate %dx%d",
		e.BaselineWidth, e.BaselineHeight, e.CandidateWidth, e.CandidateHeight)
}

// Options configures a Comparator
type Options struct {
	// DimensionPolicy is "strict" (mismatch is an error) or "scale"
	// (the candidate is resized to the baseline's bounds)
	DimensionPolicy string
	// IncludeAntiAliasing counts anti-aliased pixels as differences
	IncludeAntiAliasing bool
}

// OptionsFrom reads comparator options from the comparison config
func OptionsFrom(cfg config.ComparisonConfig) Options {
	return Options{
		DimensionPolicy:     cfg.DimensionPolicy,
		IncludeAntiAliasing: cfg.IncludeAntiAliasing,
	}
}

// Comparator compares baseline and candidate images. It holds no mutable
// state and is safe for concurrent use.
type Comparator struct {
	options     Options
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// NewComparator creates a new Comparator
func NewComparator(opts Options, logger zerolog.Logger) *Comparator {
	if opts.DimensionPolicy == "" {
		opts.DimensionPolicy = config.DimensionPolicyStrict
	}
	return &Comparator{
		options:     opts,
		fileManager: common.NewFileManager(logger),
		logger:      logger.With().Str("component", "Comparator").Logger(),
	}
}

// Compare decodes both images and counts the pixels whose perceptual colour
// difference exceeds tol.Threshold. The result is a pure function of the
// inputs. The returned PNG highlights differences in red and anti-aliasing in
// yellow over a faded copy of the baseline.
func (c *Comparator) Compare(baseline, candidate []byte, tol models.Tolerance) (models.ComparisonResult, []byte, error) {
	img1, err := decodeNRGBA(baseline)
	if err != nil {
		return models.ComparisonResult{}, nil, common.WrapError(err, "failed to decode baseline")
	}
	img2, err := decodeNRGBA(candidate)
	if err != nil {
		return models.ComparisonResult{}, nil, common.WrapError(err, "failed to decode candidate")
	}

	b1, b2 := img1.Bounds(), img2.Bounds()
	if b1.Dx() != b2.Dx() || b1.Dy() != b2.Dy() {
		mismatch := &DimensionMismatchError{
			BaselineWidth: b1.Dx(), BaselineHeight: b1.Dy(),
			CandidateWidth: b2.Dx(), CandidateHeight: b2.Dy(),
		}
		if c.options.DimensionPolicy != config.DimensionPolicyScale {
			return models.ComparisonResult{}, nil, mismatch
		}
		c.logger.Debug().Err(mismatch).Msg("Scaling candidate to baseline dimensions")
		img2 = scaleTo(img2, b1.Dx(), b1.Dy())
	}

	width, height := b1.Dx(), b1.Dy()
	diffImg := image.NewNRGBA(image.Rect(0, 0, width, height))
	diffPixels := countDiff(img1.Pix, img2.Pix, diffImg.Pix, width, height, tol.Threshold, c.options.IncludeAntiAliasing)

	total := width * height
	result := models.ComparisonResult{
		DiffPixels:             diffPixels,
		TotalPixels:            total,
		Threshold:              tol.Threshold,
		MaxDiffPixels:          tol.MaxDiffPixels,
		MaxDiffPixelRatio:      tol.MaxDiffPixelRatio,
		Width:                  width,
		Height:                 height,
		PerceptualHashDistance: perceptualDistance(img1, img2),
	}
	if total > 0 {
		result.DiffRatio = float64(diffPixels) / float64(total)
	}
	result.Passed = withinTolerance(result, tol)

	buf := common.DefaultBufferPool.Get()
	defer common.DefaultBufferPool.Put(buf)
	if err := png.Encode(buf, diffImg); err != nil {
		return result, nil, common.WrapError(err, "failed to encode diff image")
	}
	return result, bytes.Clone(buf.Bytes()), nil
}

// withinTolerance applies every configured bound; a zero ratio bound is disabled
func withinTolerance(r models.ComparisonResult, tol models.Tolerance) bool {
	if r.DiffPixels > tol.MaxDiffPixels {
		return false
	}
	if tol.MaxDiffPixelRatio > 0 && r.DiffRatio > tol.MaxDiffPixelRatio {
		return false
	}
	return true
}

// countDiff compares two equally sized NRGBA buffers and paints out
func countDiff(img1, img2, out []uint8, width, height int, threshold float64, includeAA bool) int {
	maxDelta := maxYIQDelta * threshold * threshold
	diff := 0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pos := (y*width + x) * 4
			delta := colorDelta(img1, img2, pos, pos, false)

			if math.Abs(delta) <= maxDelta {
				drawGrayPixel(img1, pos, out)
				continue
			}

			if !includeAA && (antialiased(img1, x, y, width, height, img2) || antialiased(img2, x, y, width, height, img1)) {
				drawPixel(out, pos, aaColor)
				continue
			}

			drawPixel(out, pos, diffColor)
			diff++
		}
	}
	return diff
}

func drawPixel(out []uint8, pos int, c color.NRGBA) {
	out[pos], out[pos+1], out[pos+2], out[pos+3] = c.R, c.G, c.B, 255
}

func drawGrayPixel(img []uint8, pos int, out []uint8) {
	y := rgb2y(float64(img[pos]), float64(img[pos+1]), float64(img[pos+2]))
	v := uint8(math.Round(blend(y, fadeAlpha*float64(img[pos+3])/255)))
	out[pos], out[pos+1], out[pos+2], out[pos+3] = v, v, v, 255
}

// decodeNRGBA decodes any registered format into an NRGBA image anchored at the origin
func decodeNRGBA(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

// sideBySide places the baseline on the left and the candidate on the right.
// Area covered by neither image is painted in the diff colour.
func sideBySide(baseline, candidate []byte) ([]byte, error) {
	img1, err := decodeNRGBA(baseline)
	if err != nil {
		return nil, err
	}
	img2, err := decodeNRGBA(candidate)
	if err != nil {
		return nil, err
	}

	b1, b2 := img1.Bounds(), img2.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b1.Dx()+b2.Dx(), max(b1.Dy(), b2.Dy())))
	draw.Draw(out, out.Bounds(), image.NewUniform(diffColor), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, b1.Dx(), b1.Dy()), img1, b1.Min, draw.Src)
	draw.Draw(out, image.Rect(b1.Dx(), 0, b1.Dx()+b2.Dx(), b2.Dy()), img2, b2.Min, draw.Src)

	buf := common.DefaultBufferPool.Get()
	defer common.DefaultBufferPool.Put(buf)
	if err := png.Encode(buf, out); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func scaleTo(src *image.NRGBA, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// perceptualDistance is the Hamming distance of the two images' pHashes, or -1
func perceptualDistance(img1, img2 image.Image) int {
	h1, err := goimagehash.PerceptionHash(img1)
	if err != nil {
		return -1
	}
	h2, err := goimagehash.PerceptionHash(img2)
	if err != nil {
		return -1
	}
	d, err := h1.Distance(h2)
	if err != nil {
		return -1
	}
	return d
}
