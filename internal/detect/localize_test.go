package detect

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/cardfolio/cardscan/internal/geometry"
)

func createPhoto(w, h int, bg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, bg)
		}
	}
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, col)
		}
	}
}

// fillRotatedRect fills a w x h rectangle centered at (cx, cy) rotated by
// angle radians.
func fillRotatedRect(img *image.RGBA, cx, cy float64, w, h float64, angle float64, col color.RGBA) {
	cos, sin := math.Cos(angle), math.Sin(angle)
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// Rotate the pixel back into the rectangle's frame.
			dx, dy := float64(x)-cx, float64(y)-cy
			rx := dx*cos + dy*sin
			ry := -dx*sin + dy*cos
			if math.Abs(rx) <= w/2 && math.Abs(ry) <= h/2 {
				img.Set(x, y, col)
			}
		}
	}
}

func cornerNear(corner geometry.Point, x, y, tol float64) bool {
	return math.Abs(corner.X-x) <= tol && math.Abs(corner.Y-y) <= tol
}

func TestLocate_AxisAlignedCard(t *testing.T) {
	// A bright 215x300 card (ratio 0.717) on a dark table.
	photo := createPhoto(640, 480, color.RGBA{25, 30, 35, 255})
	fillRect(photo, image.Rect(150, 80, 365, 380), color.RGBA{235, 230, 220, 255})

	det := Locate(photo, DefaultOptions())
	if !det.Found {
		t.Fatal("card not found in a clean synthetic photo")
	}

	const tol = 8
	checks := []struct {
		name string
		got  geometry.Point
		x, y float64
	}{
		{"top-left", det.Quad[0], 150, 80},
		{"top-right", det.Quad[1], 364, 80},
		{"bottom-right", det.Quad[2], 364, 379},
		{"bottom-left", det.Quad[3], 150, 379},
	}
	for _, c := range checks {
		if !cornerNear(c.got, c.x, c.y, tol) {
			t.Errorf("%s: got %v, want near (%.0f,%.0f)", c.name, c.got, c.x, c.y)
		}
	}

	wantArea := 215.0 * 300.0
	if det.Area < wantArea*0.85 || det.Area > wantArea*1.15 {
		t.Errorf("area: got %.0f, want near %.0f", det.Area, wantArea)
	}
}

func TestLocate_PartialOptions(t *testing.T) {
	// A caller who sets only the preset ladder must still get working
	// defaults for the aspect band and detection size.
	photo := createPhoto(640, 480, color.RGBA{25, 30, 35, 255})
	fillRect(photo, image.Rect(150, 80, 365, 380), color.RGBA{235, 230, 220, 255})

	det := Locate(photo, Options{Presets: []Preset{{Low: 50, High: 150}}})
	if !det.Found {
		t.Fatal("card not found with partially populated options")
	}
	if !cornerNear(det.Quad[0], 150, 80, 8) {
		t.Errorf("top-left: got %v, want near (150,80)", det.Quad[0])
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	resolved := Options{}.WithDefaults()
	def := DefaultOptions()

	if resolved.MaxDetectSize != def.MaxDetectSize {
		t.Errorf("MaxDetectSize: got %d, want %d", resolved.MaxDetectSize, def.MaxDetectSize)
	}
	if resolved.AspectMin != def.AspectMin || resolved.AspectMax != def.AspectMax {
		t.Errorf("aspect band: got [%v, %v], want [%v, %v]",
			resolved.AspectMin, resolved.AspectMax, def.AspectMin, def.AspectMax)
	}
	if len(resolved.Presets) != len(def.Presets) {
		t.Errorf("presets: got %d, want %d", len(resolved.Presets), len(def.Presets))
	}

	// Set fields survive resolution.
	custom := Options{MaxDetectSize: 400, AspectMax: 0.9}.WithDefaults()
	if custom.MaxDetectSize != 400 || custom.AspectMax != 0.9 {
		t.Errorf("set fields overwritten: %+v", custom)
	}
	if custom.AspectMin != def.AspectMin {
		t.Errorf("AspectMin: got %v, want default %v", custom.AspectMin, def.AspectMin)
	}
}

func TestLocate_RotatedCard(t *testing.T) {
	photo := createPhoto(640, 640, color.RGBA{20, 20, 24, 255})
	fillRotatedRect(photo, 320, 320, 215, 300, 20*math.Pi/180, color.RGBA{240, 235, 228, 255})

	det := Locate(photo, DefaultOptions())
	if !det.Found {
		t.Fatal("rotated card not found")
	}

	wantArea := 215.0 * 300.0
	if det.Area < wantArea*0.85 || det.Area > wantArea*1.15 {
		t.Errorf("area: got %.0f, want near %.0f", det.Area, wantArea)
	}

	// All corners should sit close to the true rotated outline corners.
	cos, sin := math.Cos(20*math.Pi/180), math.Sin(20*math.Pi/180)
	expected := make([]geometry.Point, 0, 4)
	for _, c := range [][2]float64{{-107.5, -150}, {107.5, -150}, {107.5, 150}, {-107.5, 150}} {
		expected = append(expected, geometry.Point{
			X: 320 + c[0]*cos - c[1]*sin,
			Y: 320 + c[0]*sin + c[1]*cos,
		})
	}
	for _, got := range det.Quad {
		matched := false
		for _, want := range expected {
			if cornerNear(got, want.X, want.Y, 10) {
				matched = true
				break
			}
		}
		if !matched {
			t.Errorf("corner %v does not match any expected corner %v", got, expected)
		}
	}
}

func TestLocate_DownscaledDetection(t *testing.T) {
	// 1600x1200 forces the detector onto a downscaled working copy; corners
	// must still come back at original resolution.
	photo := createPhoto(1600, 1200, color.RGBA{30, 30, 30, 255})
	fillRect(photo, image.Rect(400, 200, 830, 800), color.RGBA{230, 230, 225, 255})

	det := Locate(photo, DefaultOptions())
	if !det.Found {
		t.Fatal("card not found on downscaled detection path")
	}

	const tol = 16 // detection ran at half resolution
	if !cornerNear(det.Quad[0], 400, 200, tol) {
		t.Errorf("top-left: got %v, want near (400,200)", det.Quad[0])
	}
	if !cornerNear(det.Quad[2], 829, 799, tol) {
		t.Errorf("bottom-right: got %v, want near (829,799)", det.Quad[2])
	}
}

func TestLocate_NoCard(t *testing.T) {
	tests := []struct {
		name  string
		photo *image.RGBA
	}{
		{"flat background", createPhoto(500, 500, color.RGBA{90, 90, 90, 255})},
		{"square shape outside aspect band", func() *image.RGBA {
			p := createPhoto(500, 500, color.RGBA{20, 20, 20, 255})
			fillRect(p, image.Rect(100, 100, 400, 400), color.RGBA{230, 230, 230, 255})
			return p
		}()},
		{"wrong aspect rectangle", func() *image.RGBA {
			p := createPhoto(800, 400, color.RGBA{20, 20, 20, 255})
			fillRect(p, image.Rect(100, 150, 700, 250), color.RGBA{230, 230, 230, 255})
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := Locate(tt.photo, DefaultOptions())
			if det.Found {
				t.Errorf("unexpected detection: %+v", det)
			}
		})
	}
}

func TestLocate_NeverDegenerate(t *testing.T) {
	// Whatever the input, a reported quad must have four distinct corners
	// and positive area.
	photos := []*image.RGBA{
		createPhoto(300, 300, color.RGBA{128, 128, 128, 255}),
		func() *image.RGBA {
			p := createPhoto(400, 400, color.RGBA{0, 0, 0, 255})
			// Dense checkerboard produces edge soup.
			for y := 0; y < 400; y++ {
				for x := 0; x < 400; x++ {
					if (x/25+y/25)%2 == 0 {
						p.Set(x, y, color.RGBA{255, 255, 255, 255})
					}
				}
			}
			return p
		}(),
		func() *image.RGBA {
			p := createPhoto(640, 480, color.RGBA{40, 40, 45, 255})
			fillRect(p, image.Rect(100, 50, 315, 350), color.RGBA{230, 225, 215, 255})
			fillRect(p, image.Rect(350, 100, 565, 400), color.RGBA{210, 205, 195, 255})
			return p
		}(),
		func() *image.RGBA {
			// Card rotated exactly 45 degrees: the corner-ordering rule
			// ties pairwise on such an outline and must reject it rather
			// than report a quad with a repeated corner.
			p := createPhoto(800, 800, color.RGBA{18, 18, 22, 255})
			fillRotatedRect(p, 400, 400, 215, 300, 45*math.Pi/180, color.RGBA{238, 233, 224, 255})
			return p
		}(),
	}

	for i, photo := range photos {
		det := Locate(photo, DefaultOptions())
		if !det.Found {
			continue
		}
		if det.Quad.Area() <= 0 {
			t.Errorf("photo %d: degenerate quad %v", i, det.Quad)
		}
		seen := map[geometry.Point]bool{}
		for _, p := range det.Quad {
			if seen[p] {
				t.Errorf("photo %d: duplicate corner %v", i, p)
			}
			seen[p] = true
		}
	}
}

func TestLocate_EmptyImage(t *testing.T) {
	det := Locate(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultOptions())
	if det.Found {
		t.Error("detection reported on an empty image")
	}
}

func TestOverlay(t *testing.T) {
	photo := createPhoto(200, 200, color.RGBA{50, 50, 50, 255})
	quad := geometry.Quad{{X: 20, Y: 20}, {X: 180, Y: 20}, {X: 180, Y: 180}, {X: 20, Y: 180}}

	out := Overlay(photo, []geometry.Quad{quad})
	if out.Bounds() != photo.Bounds() {
		t.Fatalf("overlay bounds: got %v, want %v", out.Bounds(), photo.Bounds())
	}

	// A pixel on the top edge of the quad must differ from the background.
	r, g, b, _ := out.At(100, 20).RGBA()
	if uint8(r>>8) == 50 && uint8(g>>8) == 50 && uint8(b>>8) == 50 {
		t.Error("outline pixel still matches background")
	}

	// The source must be untouched.
	r, _, _, _ = photo.At(100, 20).RGBA()
	if uint8(r>>8) != 50 {
		t.Error("source image was modified")
	}
}
