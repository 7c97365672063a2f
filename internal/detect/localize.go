package detect

import (
	"image"
	"image/color"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/cardfolio/cardscan/internal/geometry"
)

// Preset is one edge-detection sensitivity setting: the hysteresis
// thresholds handed to the Canny stage, as 8-bit values.
type Preset struct {
	Low  int `json:"low" yaml:"low"`
	High int `json:"high" yaml:"high"`
}

// Options tunes card localization. Unset fields resolve to their
// DefaultOptions values when Locate runs, so a partially filled Options
// cannot silently disable detection.
type Options struct {
	// MaxDetectSize bounds the long side of the working copy, in pixels.
	// Detection runs on the downscaled copy for speed; reported corners
	// are always at original resolution.
	MaxDetectSize int

	// Presets is the threshold ladder, tried in order with ascending
	// values. The first preset producing an accepted quadrilateral wins.
	Presets []Preset

	// TopK limits how many contours (largest enclosed area first) are
	// examined per preset.
	TopK int

	// AspectMin and AspectMax bound the accepted short/long side ratio of
	// a candidate's minimum-area rectangle. Physical cards measure
	// 63x88 mm, ratio ≈ 0.716.
	AspectMin float64
	AspectMax float64

	// ApproxFraction scales the polygon approximation tolerance: epsilon =
	// ApproxFraction x contour perimeter.
	ApproxFraction float64

	// DilateRadius is the morphological dilation radius applied to each
	// edge map to bridge breaks in the card border.
	DilateRadius float64
}

// DefaultOptions returns the tuning used by the scanning pipeline.
func DefaultOptions() Options {
	return Options{
		MaxDetectSize:  800,
		Presets:        []Preset{{Low: 25, High: 90}, {Low: 50, High: 150}, {Low: 80, High: 220}},
		TopK:           5,
		AspectMin:      0.60,
		AspectMax:      0.80,
		ApproxFraction: 0.02,
		DilateRadius:   1,
	}
}

// WithDefaults returns o with every unset field replaced by its
// DefaultOptions value. DilateRadius is left alone: zero is a valid "no
// dilation" setting.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.MaxDetectSize <= 0 {
		o.MaxDetectSize = def.MaxDetectSize
	}
	if len(o.Presets) == 0 {
		o.Presets = def.Presets
	}
	if o.TopK <= 0 {
		o.TopK = def.TopK
	}
	if o.AspectMin <= 0 {
		o.AspectMin = def.AspectMin
	}
	if o.AspectMax <= 0 {
		o.AspectMax = def.AspectMax
	}
	if o.ApproxFraction <= 0 {
		o.ApproxFraction = def.ApproxFraction
	}
	return o
}

// Detection is the outcome of one localization attempt.
type Detection struct {
	// Found reports whether a card-shaped quadrilateral was accepted.
	// When false the remaining fields are zero and the caller should
	// treat the whole image as the card.
	Found bool `json:"found"`

	// Quad is the accepted outline at original image resolution, corners
	// ordered top-left, top-right, bottom-right, bottom-left.
	Quad geometry.Quad `json:"quad"`

	// Preset is the sensitivity preset that produced the hit.
	Preset Preset `json:"preset"`

	// Area is the enclosed area of Quad in original-resolution pixels.
	Area float64 `json:"area"`
}

// Locate finds the outline of a card within a photograph.
//
// Parameters:
//   - img: Decoded photograph. Any color model; orientation and lighting
//     are unconstrained.
//   - opts: Tuning, usually DefaultOptions with config overrides.
//
// Returns a Detection. Found is false when no preset yields an acceptable
// quadrilateral; that is an expected outcome for cluttered or card-free
// frames, never an error.
//
// # Algorithm
//
//  1. Downscale so the long side is at most MaxDetectSize (speed only).
//  2. Convert to luminance and blur once to suppress sensor noise.
//  3. For each preset, in order: Canny edge detection, dilation to bridge
//     broken borders, connected-component extraction.
//  4. Components are ranked by convex-hull area; the TopK largest are
//     simplified with Douglas-Peucker (epsilon proportional to perimeter).
//  5. A candidate survives only if it simplifies to exactly four vertices
//     and its minimum-area rectangle has a short/long ratio inside the
//     aspect band.
//  6. The first survivor, in (preset, area) order, is corner-ordered,
//     scaled back to original resolution, and returned.
//
// The returned quadrilateral always has four distinct corners and strictly
// positive area.
func Locate(img image.Image, opts Options) Detection {
	opts = opts.WithDefaults()

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return Detection{}
	}

	work := img
	scale := 1.0
	if long := maxInt(origW, origH); long > opts.MaxDetectSize {
		if origW >= origH {
			work = imaging.Resize(img, opts.MaxDetectSize, 0, imaging.Box)
		} else {
			work = imaging.Resize(img, 0, opts.MaxDetectSize, imaging.Box)
		}
		scale = float64(long) / float64(opts.MaxDetectSize)
	}

	gray, w, h := grayFloat(work)
	blurred := gaussianBlur(gray, w, h)

	for _, preset := range opts.Presets {
		edges := canny(blurred, w, h, preset.Low, preset.High)
		edges = dilate(edges, w, h, opts.DilateRadius)

		quad, ok := bestQuad(components(edges, w, h), opts)
		if !ok {
			continue
		}

		scaled := clampQuad(quad.Scale(scale), float64(origW-1), float64(origH-1))
		if scaled.Area() <= 0 {
			continue
		}
		return Detection{Found: true, Quad: scaled, Preset: preset, Area: scaled.Area()}
	}
	return Detection{}
}

// candidate pairs a contour's convex hull with its enclosed area for
// ranking.
type candidate struct {
	hull []geometry.Point
	area float64
}

// bestQuad reduces edge components to the first acceptable card outline, in
// descending order of enclosed area.
func bestQuad(comps [][]image.Point, opts Options) (geometry.Quad, bool) {
	cands := make([]candidate, 0, len(comps))
	for _, comp := range comps {
		hull := geometry.ConvexHull(toGeometry(comp))
		if len(hull) < 4 {
			continue
		}
		area := geometry.PolygonArea(hull)
		if area <= 0 {
			continue
		}
		cands = append(cands, candidate{hull: hull, area: area})
	}

	sortCandidates(cands)
	if len(cands) > opts.TopK {
		cands = cands[:opts.TopK]
	}

	for _, c := range cands {
		eps := opts.ApproxFraction * geometry.Perimeter(c.hull)
		approx := geometry.ApproxPolygon(c.hull, eps)
		if len(approx) != 4 {
			continue
		}

		short, long := geometry.MinAreaRectSides(approx)
		ratio := geometry.AspectRatio(short, long)
		if ratio < opts.AspectMin || ratio > opts.AspectMax {
			continue
		}

		quad, err := geometry.OrderPoints(approx)
		if err != nil {
			continue
		}
		if quad.Area() <= 0 {
			continue
		}
		return quad, true
	}
	return geometry.Quad{}, false
}

// dilate grows edge regions by the given radius using a morphological
// dilation, bridging single-pixel breaks in card borders.
func dilate(edges [][]bool, width, height int, radius float64) [][]bool {
	if radius <= 0 {
		return edges
	}

	src := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] {
				src.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	grown := effect.Dilate(src, radius)

	out := make([][]bool, height)
	for y := 0; y < height; y++ {
		out[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			r, _, _, _ := grown.At(x, y).RGBA()
			out[y][x] = uint8(r>>8) > 127
		}
	}
	return out
}

func toGeometry(comp []image.Point) []geometry.Point {
	out := make([]geometry.Point, len(comp))
	for i, p := range comp {
		out[i] = geometry.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// sortCandidates orders by enclosed area, largest first, keeping equal-area
// candidates in discovery order.
func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].area > cands[j].area
	})
}

// clampQuad snaps corners into [0, maxX] x [0, maxY]; scaling back to the
// original resolution can overshoot the border by a fraction of a pixel.
func clampQuad(q geometry.Quad, maxX, maxY float64) geometry.Quad {
	var out geometry.Quad
	for i, p := range q {
		out[i] = geometry.Point{X: clampFloat(p.X, 0, maxX), Y: clampFloat(p.Y, 0, maxY)}
	}
	return out
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
