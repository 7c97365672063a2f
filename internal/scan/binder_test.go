package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/cardfolio/cardscan/internal/ocr"
)

// binderPage builds a dark 960x720 page with a light card centered in each
// listed cell of the 3x3 grid.
func binderPage(filled ...int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 960, 720))
	fillRegion(img, img.Bounds(), color.NRGBA{28, 30, 34, 255})

	for _, pos := range filled {
		row, col := pos/3, pos%3
		cx := col*320 + 160
		cy := row*240 + 120
		fillRegion(img, image.Rect(cx-75, cy-105, cx+75, cy+105), color.NRGBA{226, 222, 210, 255})
	}
	return img
}

func TestScanBinder_MixedPage(t *testing.T) {
	engine := always("Giant Growth")
	p := New(engine, DefaultOptions(), quietLogger())

	// Pockets 0, 4, and 8 are empty.
	result := p.ScanBinder(context.Background(), binderPage(1, 2, 3, 5, 6, 7))

	if len(result.Slots) != 9 {
		t.Fatalf("slot count: got %d, want 9", len(result.Slots))
	}
	if !result.Complete {
		t.Error("uncancelled scan reported incomplete")
	}

	emptyWant := map[int]bool{0: true, 4: true, 8: true}
	for i, slot := range result.Slots {
		if slot.Position != i {
			t.Errorf("slot %d: position %d, want row-major order", i, slot.Position)
		}
		if emptyWant[i] {
			if !slot.Empty {
				t.Errorf("slot %d: not marked empty", i)
			}
			if slot.Found {
				t.Errorf("slot %d: empty pocket produced %q", i, slot.Name)
			}
			continue
		}
		if slot.Empty {
			t.Errorf("slot %d: card pocket marked empty", i)
			continue
		}
		if !slot.Found || slot.Name != "Giant Growth" {
			t.Errorf("slot %d: got (%q, found=%v), want Giant Growth", i, slot.Name, slot.Found)
		}
	}
}

func TestScanBinder_EngineUnavailable(t *testing.T) {
	engine := &fakeEngine{available: false}
	p := New(engine, DefaultOptions(), quietLogger())

	result := p.ScanBinder(context.Background(), binderPage(0, 1, 2))

	if len(result.Slots) != 9 {
		t.Fatalf("slot count: got %d, want 9", len(result.Slots))
	}
	for i, slot := range result.Slots {
		if slot.Reason != ReasonUnavailable {
			t.Errorf("slot %d: reason %q, want %q", i, slot.Reason, ReasonUnavailable)
		}
	}
	if engine.callCount() != 0 {
		t.Errorf("engine called %d times while unavailable", engine.callCount())
	}
}

func TestScanBinder_CancellationKeepsFinishedSlots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// One worker scans slots in order; the third recognition call cancels
	// the batch.
	engine := &fakeEngine{
		available: true,
		script: func(callCtx context.Context, call int, cfg ocr.Config) (string, error) {
			if call >= 2 {
				cancel()
				return "", errors.New("backend torn down")
			}
			return "Giant Growth", nil
		},
	}
	opts := DefaultOptions()
	opts.Workers = 1
	p := New(engine, opts, quietLogger())

	result := p.ScanBinder(ctx, binderPage(0, 1, 2, 3, 4, 5, 6, 7, 8))

	if result.Complete {
		t.Error("cancelled scan reported complete")
	}
	if len(result.Slots) != 9 {
		t.Fatalf("slot count: got %d, want 9", len(result.Slots))
	}

	for i := 0; i < 2; i++ {
		if !result.Slots[i].Found || result.Slots[i].Name != "Giant Growth" {
			t.Errorf("finished slot %d: got (%q, found=%v), want Giant Growth",
				i, result.Slots[i].Name, result.Slots[i].Found)
		}
	}
	for i := 3; i < 9; i++ {
		if result.Slots[i].Found {
			t.Errorf("slot %d: found %q after cancellation", i, result.Slots[i].Name)
		}
		if result.Slots[i].Reason != ReasonCancelled {
			t.Errorf("slot %d: reason %q, want %q", i, result.Slots[i].Reason, ReasonCancelled)
		}
	}
}

func TestGridCells(t *testing.T) {
	cells := gridCells(image.Rect(0, 0, 960, 720), 3, 3, 10)

	if len(cells) != 9 {
		t.Fatalf("cell count: got %d, want 9", len(cells))
	}
	if want := image.Rect(10, 10, 310, 230); cells[0] != want {
		t.Errorf("cell 0: got %v, want %v", cells[0], want)
	}
	if want := image.Rect(330, 250, 630, 470); cells[4] != want {
		t.Errorf("cell 4: got %v, want %v", cells[4], want)
	}
	if want := image.Rect(650, 490, 950, 710); cells[8] != want {
		t.Errorf("cell 8: got %v, want %v", cells[8], want)
	}
}

func TestGridCells_TinyImageKeepsFullCells(t *testing.T) {
	cells := gridCells(image.Rect(0, 0, 9, 9), 3, 3, 10)

	for i, cell := range cells {
		if cell.Dx() != 3 || cell.Dy() != 3 {
			t.Errorf("cell %d: got %v, want full 3x3 cell", i, cell)
		}
	}
}

func TestIntensityVariance(t *testing.T) {
	flat := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	fillRegion(flat, flat.Bounds(), color.NRGBA{90, 90, 90, 255})

	if v := intensityVariance(flat); v > 1 {
		t.Errorf("flat image variance: got %f, want ~0", v)
	}

	split := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	fillRegion(split, image.Rect(0, 0, 25, 50), color.NRGBA{0, 0, 0, 255})
	fillRegion(split, image.Rect(25, 0, 50, 50), color.NRGBA{255, 255, 255, 255})

	if v := intensityVariance(split); v < 10000 {
		t.Errorf("two-tone image variance: got %f, want > 10000", v)
	}

	if intensityVariance(flat) >= intensityVariance(split) {
		t.Error("flat image not below textured image")
	}
}

func TestWorkerCount(t *testing.T) {
	p := New(always("x"), DefaultOptions(), quietLogger())

	if got := p.workerCount(9); got < 1 || got > 3 {
		t.Errorf("default workers: got %d, want within [1, 3]", got)
	}

	opts := DefaultOptions()
	opts.Workers = 8
	p = New(always("x"), opts, quietLogger())
	if got := p.workerCount(2); got != 2 {
		t.Errorf("workers capped by jobs: got %d, want 2", got)
	}
}
