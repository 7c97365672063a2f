// Package rectify warps a located card quadrilateral into the canonical
// front-on card image used by the rest of the pipeline.
package rectify

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/cardfolio/cardscan/internal/geometry"
)

// Canonical card dimensions: the 63x88 mm card face upscaled for OCR
// legibility while keeping the printed aspect ratio.
const (
	CanonicalWidth  = 488
	CanonicalHeight = 680
)

// Fit resizes the whole source image to the canonical dimensions without
// perspective correction. Used when localization found no card outline and
// as the fallback for degenerate quadrilaterals.
func Fit(src image.Image, width, height int) *image.NRGBA {
	if width <= 0 || height <= 0 {
		width, height = CanonicalWidth, CanonicalHeight
	}
	return imaging.Resize(src, width, height, imaging.Lanczos)
}

// Warp maps the quadrilateral region of src onto a width x height canonical
// card: top-left to (0,0), top-right to (width-1,0), bottom-right to
// (width-1,height-1), bottom-left to (0,height-1).
//
// The second return value reports whether the perspective transform was
// actually applied. A degenerate quadrilateral (collinear or coincident
// corners) makes the transform singular; Warp then falls back to Fit on the
// whole source and returns false so the caller can log the downgrade. Warp
// never fails.
func Warp(src image.Image, quad geometry.Quad, width, height int) (*image.NRGBA, bool) {
	if width <= 0 || height <= 0 {
		width, height = CanonicalWidth, CanonicalHeight
	}

	// The projective solve below can still produce a rank-deficient
	// transform for coincident or collinear corners, so both are rejected
	// up front.
	if quad.Degenerate() || quad.Area() < 1 {
		return Fit(src, width, height), false
	}

	target := geometry.Quad{
		{X: 0, Y: 0},
		{X: float64(width - 1), Y: 0},
		{X: float64(width - 1), Y: float64(height - 1)},
		{X: 0, Y: float64(height - 1)},
	}

	// Inverse mapping: a homography from canonical corners back onto the
	// photographed corners, so every output pixel samples the source.
	h, ok := homography(target, quad)
	if !ok {
		return Fit(src, width, height), false
	}

	from := imaging.Clone(src)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx, sy, ok := apply(h, float64(x), float64(y))
			if !ok {
				continue
			}
			out.SetNRGBA(x, y, bilinear(from, sx, sy))
		}
	}
	return out, true
}

// homography computes the 3x3 projective transform (row-major, h[8] fixed
// at 1) mapping each p[i] to q[i]. Returns ok=false when the four
// correspondences do not determine a transform (degenerate geometry).
//
// The eight unknowns solve the standard linear system built from
//
//	q.x = (h0*p.x + h1*p.y + h2) / (h6*p.x + h7*p.y + 1)
//	q.y = (h3*p.x + h4*p.y + h5) / (h6*p.x + h7*p.y + 1)
//
// via Gaussian elimination with partial pivoting.
func homography(p, q geometry.Quad) ([9]float64, bool) {
	var m [8][9]float64
	for i := 0; i < 4; i++ {
		px, py := p[i].X, p[i].Y
		qx, qy := q[i].X, q[i].Y

		m[2*i] = [9]float64{px, py, 1, 0, 0, 0, -px * qx, -py * qx, qx}
		m[2*i+1] = [9]float64{0, 0, 0, px, py, 1, -px * qy, -py * qy, qy}
	}

	sol, ok := solve8(&m)
	if !ok {
		return [9]float64{}, false
	}

	return [9]float64{
		sol[0], sol[1], sol[2],
		sol[3], sol[4], sol[5],
		sol[6], sol[7], 1,
	}, true
}

// solve8 runs Gaussian elimination with partial pivoting on an 8x8 system
// in augmented form. A vanishing pivot marks the system singular.
func solve8(m *[8][9]float64) ([8]float64, bool) {
	const eps = 1e-10

	for col := 0; col < 8; col++ {
		// Pivot: largest magnitude in this column, at or below the
		// diagonal.
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < eps {
			return [8]float64{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		// Normalize the pivot row.
		div := m[col][col]
		for k := col; k < 9; k++ {
			m[col][k] /= div
		}

		// Eliminate the column from every other row.
		for row := 0; row < 8; row++ {
			if row == col {
				continue
			}
			factor := m[row][col]
			if factor == 0 {
				continue
			}
			for k := col; k < 9; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}

	var sol [8]float64
	for i := 0; i < 8; i++ {
		sol[i] = m[i][8]
	}
	return sol, true
}

// apply maps (x, y) through the homography. ok=false when the point lands
// on the transform's horizon (zero denominator).
func apply(h [9]float64, x, y float64) (float64, float64, bool) {
	den := h[6]*x + h[7]*y + h[8]
	if math.Abs(den) < 1e-12 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / den, (h[3]*x + h[4]*y + h[5]) / den, true
}

// bilinear samples src at a fractional coordinate, blending the four
// surrounding pixels. Coordinates outside the image return opaque black,
// matching the behavior of warping against an empty background.
func bilinear(src *image.NRGBA, x, y float64) color.NRGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	if x0 < -1 || y0 < -1 || x0 > w-1 || y0 > h-1 {
		return color.NRGBA{A: 255}
	}

	fx := x - float64(x0)
	fy := y - float64(y0)

	p00 := pixelAt(src, x0, y0, w, h)
	p10 := pixelAt(src, x0+1, y0, w, h)
	p01 := pixelAt(src, x0, y0+1, w, h)
	p11 := pixelAt(src, x0+1, y0+1, w, h)

	top := lerpColor(p00, p10, fx)
	bottom := lerpColor(p01, p11, fx)
	return lerpColor(top, bottom, fy)
}

// pixelAt reads a pixel with edge clamping.
func pixelAt(src *image.NRGBA, x, y, w, h int) color.NRGBA {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > w-1 {
		x = w - 1
	}
	if y > h-1 {
		y = h - 1
	}
	return src.NRGBAAt(src.Bounds().Min.X+x, src.Bounds().Min.Y+y)
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: lerp8(a.R, b.R, t),
		G: lerp8(a.G, b.G, t),
		B: lerp8(a.B, b.B, t),
		A: lerp8(a.A, b.A, t),
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t + 0.5)
}
