package detect

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/cardfolio/cardscan/internal/geometry"
)

// Overlay draws quadrilateral outlines over a copy of the source image, one
// hue-spaced color per quad, for visual inspection of localization results.
// The source image is not modified.
func Overlay(img image.Image, quads []geometry.Quad) *image.NRGBA {
	out := imaging.Clone(img)
	if len(quads) == 0 {
		return out
	}

	for i, q := range quads {
		hue := float64(i) * 360.0 / float64(len(quads))
		r, g, b := colorful.Hsv(hue, 0.95, 0.95).RGB255()
		col := color.NRGBA{R: r, G: g, B: b, A: 255}

		for j := 0; j < 4; j++ {
			drawLine(out, q[j], q[(j+1)%4], col)
		}
	}
	return out
}

// drawLine marks a Bresenham line between two points with a 3x3 stamp per
// step so outlines stay visible on high-resolution photos.
func drawLine(dst *image.NRGBA, a, b geometry.Point, col color.NRGBA) {
	x0, y0 := int(a.X+0.5), int(a.Y+0.5)
	x1, y1 := int(b.X+0.5), int(b.Y+0.5)

	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		stamp(dst, x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func stamp(dst *image.NRGBA, cx, cy int, col color.NRGBA) {
	bounds := dst.Bounds()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := cx+dx, cy+dy
			if (image.Point{X: x, Y: y}).In(bounds) {
				dst.SetNRGBA(x, y, col)
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
