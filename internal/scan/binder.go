package scan

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// SlotResult is the outcome for one binder pocket. Position is the
// row-major grid index (row 0 column 0 is 0). Empty pockets skip
// recognition entirely and carry a zero CardResult.
type SlotResult struct {
	Position int  `json:"position"`
	Empty    bool `json:"empty"`
	CardResult
}

// BinderResult is the outcome of one binder page scan. Slots holds every
// grid position in row-major order regardless of the order workers finish
// in. Complete is false when the caller cancelled before all slots ran;
// finished slots are still populated and unstarted ones carry
// ReasonCancelled.
type BinderResult struct {
	Slots    []SlotResult `json:"slots"`
	Complete bool         `json:"complete"`
}

// ScanBinder scans a photographed binder page as a grid of card pockets
// (3x3 by default).
//
// # Algorithm
//
// The page divides into GridRows x GridCols cells by integer division,
// each inset by CellPadding to keep neighboring pockets out. A cell whose
// grayscale intensity variance falls below EmptyVariance is an empty
// pocket. Every other cell runs the full single-card pipeline on a bounded
// worker pool; slots are independent, so a hard slot (blurry, empty,
// unreadable) never affects its neighbors.
func (p *Pipeline) ScanBinder(ctx context.Context, img image.Image) BinderResult {
	rows, cols := p.opts.GridRows, p.opts.GridCols
	slots := make([]SlotResult, rows*cols)

	if !p.engine.Available() {
		for i := range slots {
			slots[i] = SlotResult{Position: i, CardResult: CardResult{Reason: ReasonUnavailable}}
		}
		return BinderResult{Slots: slots, Complete: true}
	}

	for i := range slots {
		slots[i] = SlotResult{Position: i, CardResult: CardResult{Reason: ReasonCancelled}}
	}

	cells := gridCells(img.Bounds(), rows, cols, p.opts.CellPadding)

	type job struct {
		pos  int
		cell image.Rectangle
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < p.workerCount(len(cells)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				slots[j.pos] = p.scanSlot(ctx, img, j.pos, j.cell)
			}
		}()
	}

	complete := true
feed:
	for pos, cell := range cells {
		select {
		case <-ctx.Done():
			complete = false
			break feed
		case jobs <- job{pos: pos, cell: cell}:
		}
	}
	close(jobs)
	wg.Wait()

	if complete && ctx.Err() != nil {
		complete = false
	}
	return BinderResult{Slots: slots, Complete: complete}
}

// scanSlot crops one cell, tests it for emptiness, and runs the card
// pipeline when it holds something.
func (p *Pipeline) scanSlot(ctx context.Context, page image.Image, pos int, cell image.Rectangle) SlotResult {
	crop := imaging.Crop(page, cell)

	if intensityVariance(crop) < p.opts.EmptyVariance {
		return SlotResult{Position: pos, Empty: true}
	}

	return SlotResult{Position: pos, CardResult: p.ScanCard(ctx, crop)}
}

// gridCells divides bounds into rows x cols cells, inset by pad on every
// side. Cells too small to survive the inset keep their full extent.
func gridCells(bounds image.Rectangle, rows, cols, pad int) []image.Rectangle {
	cellW := bounds.Dx() / cols
	cellH := bounds.Dy() / rows

	cells := make([]image.Rectangle, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			outer := image.Rect(
				bounds.Min.X+c*cellW,
				bounds.Min.Y+r*cellH,
				bounds.Min.X+(c+1)*cellW,
				bounds.Min.Y+(r+1)*cellH,
			)
			inner := outer.Inset(pad)
			if inner.Empty() {
				inner = outer
			}
			cells = append(cells, inner)
		}
	}
	return cells
}

// intensityVariance computes the grayscale pixel variance of img. Flat
// regions (blank pockets, plain backgrounds) sit near zero; anything with
// printed art scores orders of magnitude higher.
func intensityVariance(img image.Image) float64 {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return 0
	}

	var sum, sumSq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			sum += lum
			sumSq += lum * lum
		}
	}

	mean := sum / n
	return sumSq/n - mean*mean
}

func (p *Pipeline) workerCount(jobs int) int {
	workers := p.opts.Workers
	if workers <= 0 {
		workers = 3
		if procs := runtime.GOMAXPROCS(0); procs < workers {
			workers = procs
		}
	}
	if workers > jobs {
		workers = jobs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
