package rectify

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/cardfolio/cardscan/internal/geometry"
)

func solidImage(w, h int, col color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, col)
		}
	}
	return img
}

func paintDisk(img *image.NRGBA, cx, cy, radius int, col color.NRGBA) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius && (image.Point{x, y}).In(img.Bounds()) {
				img.SetNRGBA(x, y, col)
			}
		}
	}
}

func channelNear(got, want uint8, tol int) bool {
	return int(got)-int(want) <= tol && int(want)-int(got) <= tol
}

func colorNear(got, want color.NRGBA, tol int) bool {
	return channelNear(got.R, want.R, tol) &&
		channelNear(got.G, want.G, tol) &&
		channelNear(got.B, want.B, tol)
}

func TestWarp_CornerMapping(t *testing.T) {
	// Colored disks at the corners of a skewed quad must land at the
	// corresponding canonical corners.
	src := solidImage(500, 500, color.NRGBA{128, 128, 128, 255})

	quad := geometry.Quad{
		{X: 80, Y: 60},   // top-left
		{X: 420, Y: 90},  // top-right
		{X: 440, Y: 430}, // bottom-right
		{X: 60, Y: 400},  // bottom-left
	}

	red := color.NRGBA{220, 30, 30, 255}
	green := color.NRGBA{30, 200, 30, 255}
	blue := color.NRGBA{30, 30, 220, 255}
	yellow := color.NRGBA{220, 220, 30, 255}
	paintDisk(src, 80, 60, 15, red)
	paintDisk(src, 420, 90, 15, green)
	paintDisk(src, 440, 430, 15, blue)
	paintDisk(src, 60, 400, 15, yellow)

	out, warped := Warp(src, quad, CanonicalWidth, CanonicalHeight)
	if !warped {
		t.Fatal("Warp fell back on a valid quad")
	}
	if out.Bounds().Dx() != CanonicalWidth || out.Bounds().Dy() != CanonicalHeight {
		t.Fatalf("output size: got %v, want %dx%d", out.Bounds(), CanonicalWidth, CanonicalHeight)
	}

	checks := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"top-left", 4, 4, red},
		{"top-right", CanonicalWidth - 5, 4, green},
		{"bottom-right", CanonicalWidth - 5, CanonicalHeight - 5, blue},
		{"bottom-left", 4, CanonicalHeight - 5, yellow},
	}
	for _, c := range checks {
		got := out.NRGBAAt(c.x, c.y)
		if !colorNear(got, c.want, 40) {
			t.Errorf("%s corner: got %v, want near %v", c.name, got, c.want)
		}
	}
}

func TestWarp_AxisAlignedMatchesCropResize(t *testing.T) {
	// Rectifying an axis-aligned region with the target aspect ratio is a
	// crop + resize; quadrant colors must match a direct crop+resize.
	src := solidImage(400, 560, color.NRGBA{10, 10, 10, 255})

	region := image.Rect(50, 70, 250, 350) // 200x280, same aspect as canonical
	quads := []struct {
		rect image.Rectangle
		col  color.NRGBA
	}{
		{image.Rect(50, 70, 150, 210), color.NRGBA{200, 40, 40, 255}},
		{image.Rect(150, 70, 250, 210), color.NRGBA{40, 200, 40, 255}},
		{image.Rect(50, 210, 150, 350), color.NRGBA{40, 40, 200, 255}},
		{image.Rect(150, 210, 250, 350), color.NRGBA{200, 200, 40, 255}},
	}
	for _, q := range quads {
		for y := q.rect.Min.Y; y < q.rect.Max.Y; y++ {
			for x := q.rect.Min.X; x < q.rect.Max.X; x++ {
				src.SetNRGBA(x, y, q.col)
			}
		}
	}

	quad := geometry.Quad{
		{X: float64(region.Min.X), Y: float64(region.Min.Y)},
		{X: float64(region.Max.X - 1), Y: float64(region.Min.Y)},
		{X: float64(region.Max.X - 1), Y: float64(region.Max.Y - 1)},
		{X: float64(region.Min.X), Y: float64(region.Max.Y - 1)},
	}

	out, warped := Warp(src, quad, CanonicalWidth, CanonicalHeight)
	if !warped {
		t.Fatal("Warp fell back on a valid quad")
	}

	direct := imaging.Resize(imaging.Crop(src, region), CanonicalWidth, CanonicalHeight, imaging.Lanczos)

	// Compare at quadrant centers, far from resampling boundaries.
	samples := []struct{ x, y int }{
		{CanonicalWidth / 4, CanonicalHeight / 4},
		{3 * CanonicalWidth / 4, CanonicalHeight / 4},
		{CanonicalWidth / 4, 3 * CanonicalHeight / 4},
		{3 * CanonicalWidth / 4, 3 * CanonicalHeight / 4},
	}
	for _, s := range samples {
		got := out.NRGBAAt(s.x, s.y)
		want := direct.NRGBAAt(s.x, s.y)
		if !colorNear(got, want, 8) {
			t.Errorf("pixel (%d,%d): warp %v vs crop+resize %v", s.x, s.y, got, want)
		}
	}
}

func TestWarp_DegenerateQuadFallsBack(t *testing.T) {
	tests := []struct {
		name string
		quad geometry.Quad
	}{
		{
			"collinear corners",
			geometry.Quad{{X: 10, Y: 10}, {X: 50, Y: 50}, {X: 90, Y: 90}, {X: 130, Y: 130}},
		},
		{
			"duplicate corner",
			geometry.Quad{{X: 10, Y: 10}, {X: 10, Y: 10}, {X: 200, Y: 50}, {X: 50, Y: 200}},
		},
		{
			"zero quad",
			geometry.Quad{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := solidImage(300, 300, color.NRGBA{77, 99, 121, 255})

			out, warped := Warp(src, tt.quad, CanonicalWidth, CanonicalHeight)
			if warped {
				t.Error("Warp claimed success on a degenerate quad")
			}
			if out.Bounds().Dx() != CanonicalWidth || out.Bounds().Dy() != CanonicalHeight {
				t.Errorf("fallback size: got %v, want %dx%d", out.Bounds(), CanonicalWidth, CanonicalHeight)
			}

			// The fallback resizes the whole frame, so the solid color
			// survives at the center.
			got := out.NRGBAAt(CanonicalWidth/2, CanonicalHeight/2)
			if !colorNear(got, color.NRGBA{77, 99, 121, 255}, 4) {
				t.Errorf("fallback center pixel: got %v", got)
			}
		})
	}
}

func TestFit(t *testing.T) {
	src := solidImage(123, 77, color.NRGBA{200, 100, 50, 255})

	out := Fit(src, CanonicalWidth, CanonicalHeight)
	if out.Bounds().Dx() != CanonicalWidth || out.Bounds().Dy() != CanonicalHeight {
		t.Fatalf("size: got %v, want %dx%d", out.Bounds(), CanonicalWidth, CanonicalHeight)
	}

	got := out.NRGBAAt(CanonicalWidth/2, CanonicalHeight/2)
	if !colorNear(got, color.NRGBA{200, 100, 50, 255}, 4) {
		t.Errorf("center pixel: got %v", got)
	}
}

func TestFit_DefaultDimensions(t *testing.T) {
	src := solidImage(50, 50, color.NRGBA{1, 2, 3, 255})

	out := Fit(src, 0, 0)
	if out.Bounds().Dx() != CanonicalWidth || out.Bounds().Dy() != CanonicalHeight {
		t.Errorf("size: got %v, want %dx%d", out.Bounds(), CanonicalWidth, CanonicalHeight)
	}
}

func TestHomography_Identity(t *testing.T) {
	quad := geometry.Quad{{X: 0, Y: 0}, {X: 99, Y: 0}, {X: 99, Y: 99}, {X: 0, Y: 99}}

	h, ok := homography(quad, quad)
	if !ok {
		t.Fatal("identity homography reported singular")
	}

	for _, p := range []geometry.Point{{X: 0, Y: 0}, {X: 99, Y: 0}, {X: 50, Y: 50}, {X: 25, Y: 75}} {
		x, y, ok := apply(h, p.X, p.Y)
		if !ok {
			t.Fatalf("apply failed at %v", p)
		}
		if math.Abs(x-p.X) > 1e-6 || math.Abs(y-p.Y) > 1e-6 {
			t.Errorf("identity moved %v to (%v,%v)", p, x, y)
		}
	}
}

func TestHomography_CornerCorrespondence(t *testing.T) {
	src := geometry.Quad{{X: 0, Y: 0}, {X: 487, Y: 0}, {X: 487, Y: 679}, {X: 0, Y: 679}}
	dst := geometry.Quad{{X: 80, Y: 60}, {X: 420, Y: 90}, {X: 440, Y: 430}, {X: 60, Y: 400}}

	h, ok := homography(src, dst)
	if !ok {
		t.Fatal("homography reported singular for a valid quad pair")
	}

	for i := 0; i < 4; i++ {
		x, y, ok := apply(h, src[i].X, src[i].Y)
		if !ok {
			t.Fatalf("apply failed at corner %d", i)
		}
		if math.Abs(x-dst[i].X) > 1e-6 || math.Abs(y-dst[i].Y) > 1e-6 {
			t.Errorf("corner %d: got (%v,%v), want %v", i, x, y, dst[i])
		}
	}
}
