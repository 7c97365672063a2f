package prep

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyRegion is returned when the computed title crop has no pixels,
// which happens only for degenerate canonical card dimensions.
var ErrEmptyRegion = errors.New("title region has zero area")

// Variant recipe names, in the fixed order Variants produces them.
const (
	VariantOtsu     = "otsu"
	VariantAdaptive = "adaptive"
	VariantEqualize = "equalize"
	VariantInverted = "inverted"
	VariantSharpen  = "sharpen"
)

// Options tunes title extraction and preprocessing. Unset fields resolve
// to their DefaultOptions values when TitleRegion or Variants runs.
type Options struct {
	// Title crop bounds as fractions of the canonical card: vertical
	// [TitleTop, TitleBottom) of the height, horizontal
	// [TitleLeft, TitleRight) of the width. The right margin stops short
	// of the mana-cost symbol.
	TitleTop    float64
	TitleBottom float64
	TitleLeft   float64
	TitleRight  float64

	// UpscaleFactor is the integer factor applied to the title crop
	// before binarization; small title text needs the extra resolution.
	UpscaleFactor int

	// AdaptiveWindow is the side length in pixels of the local-mean
	// neighborhood for the adaptive threshold, after upscaling.
	AdaptiveWindow int

	// AdaptiveBias is subtracted from the local mean; pixels above
	// mean-bias become white.
	AdaptiveBias float64

	// TileSize and ClipLimit control the tile histogram equalization:
	// TileSize is the tile side in pixels, ClipLimit the per-bin cap as a
	// multiple of a uniform histogram.
	TileSize  int
	ClipLimit float64

	// SharpenSigma is the strength of the sharpening convolution.
	SharpenSigma float64
}

// DefaultOptions returns the preprocessing tuning used by the pipeline.
func DefaultOptions() Options {
	return Options{
		TitleTop:       0.045,
		TitleBottom:    0.12,
		TitleLeft:      0.06,
		TitleRight:     0.82,
		UpscaleFactor:  3,
		AdaptiveWindow: 31,
		AdaptiveBias:   10,
		TileSize:       32,
		ClipLimit:      2.0,
		SharpenSigma:   1.0,
	}
}

// WithDefaults returns o with every unset field replaced by its
// DefaultOptions value. The title fractions default as pairs: a band whose
// upper bound does not exceed its lower bound selects the default band.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.TitleBottom <= o.TitleTop {
		o.TitleTop, o.TitleBottom = def.TitleTop, def.TitleBottom
	}
	if o.TitleRight <= o.TitleLeft {
		o.TitleLeft, o.TitleRight = def.TitleLeft, def.TitleRight
	}
	if o.UpscaleFactor < 1 {
		o.UpscaleFactor = def.UpscaleFactor
	}
	if o.AdaptiveWindow <= 0 {
		o.AdaptiveWindow = def.AdaptiveWindow
	}
	if o.AdaptiveBias == 0 {
		o.AdaptiveBias = def.AdaptiveBias
	}
	if o.TileSize <= 0 {
		o.TileSize = def.TileSize
	}
	if o.ClipLimit <= 0 {
		o.ClipLimit = def.ClipLimit
	}
	if o.SharpenSigma <= 0 {
		o.SharpenSigma = def.SharpenSigma
	}
	return o
}

// Variant is one preprocessed rendition of the title region.
type Variant struct {
	// Name identifies the recipe that produced the image.
	Name string

	// Img is the binarized (or contrast-enhanced) grayscale rendition.
	Img *image.Gray
}

// TitleRegion crops the band of a canonical card that carries the printed
// name. The crop is pure (no resampling).
//
// Returns ErrEmptyRegion when the fractional bounds collapse to zero
// pixels; callers treat that as "no candidate" for the slot rather than a
// pipeline failure.
func TitleRegion(card image.Image, opts Options) (image.Image, error) {
	opts = opts.WithDefaults()

	b := card.Bounds()
	w, h := b.Dx(), b.Dy()

	x0 := int(float64(w)*opts.TitleLeft + 0.5)
	x1 := int(float64(w)*opts.TitleRight + 0.5)
	y0 := int(float64(h)*opts.TitleTop + 0.5)
	y1 := int(float64(h)*opts.TitleBottom + 0.5)

	if x1 <= x0 || y1 <= y0 {
		return nil, ErrEmptyRegion
	}

	return imaging.Crop(card, image.Rect(b.Min.X+x0, b.Min.Y+y0, b.Min.X+x1, b.Min.Y+y1)), nil
}

// Variants produces the fixed, ordered set of preprocessed renditions of a
// title region.
//
// A shared preamble converts to grayscale and upscales with Catmull-Rom
// interpolation; each recipe then works on its own copy:
//
//   - otsu: global bimodal threshold
//   - adaptive: local mean threshold
//   - equalize: clip-limited tile histogram equalization, then Otsu
//   - inverted: bitwise inversion of otsu, for light-on-dark title bars
//   - sharpen: sharpening convolution, then Otsu
//
// The order is part of the selection contract: the scorer resolves ties by
// first-produced candidate.
func Variants(title image.Image, opts Options) []Variant {
	opts = opts.WithDefaults()

	pre := preamble(title, opts)

	otsu := binarize(pre, otsuLevel(histogram(pre)))

	equalized := equalizeTiles(pre, opts.TileSize, opts.ClipLimit)

	sharpened := toGray(imaging.Sharpen(pre, opts.SharpenSigma))

	return []Variant{
		{Name: VariantOtsu, Img: otsu},
		{Name: VariantAdaptive, Img: adaptiveThreshold(pre, opts.AdaptiveWindow, opts.AdaptiveBias)},
		{Name: VariantEqualize, Img: binarize(equalized, otsuLevel(histogram(equalized)))},
		{Name: VariantInverted, Img: invert(otsu)},
		{Name: VariantSharpen, Img: binarize(sharpened, otsuLevel(histogram(sharpened)))},
	}
}

// preamble is the shared grayscale + upscale step.
func preamble(title image.Image, opts Options) *image.Gray {
	factor := opts.UpscaleFactor
	if factor < 1 {
		factor = 1
	}

	b := title.Bounds()
	gray := imaging.Grayscale(title)
	if factor > 1 {
		gray = imaging.Resize(gray, b.Dx()*factor, b.Dy()*factor, imaging.CatmullRom)
	}
	return toGray(gray)
}

// toGray flattens an already grayscale NRGBA into the compact Gray form
// the threshold kernels work on.
func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = img.NRGBAAt(b.Min.X+x, b.Min.Y+y).R
		}
	}
	return out
}
