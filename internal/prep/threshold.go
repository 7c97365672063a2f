package prep

import "image"

// histogram counts the 256 intensity bins of a grayscale image.
func histogram(src *image.Gray) [256]int {
	var hist [256]int
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// otsuLevel picks the global threshold maximizing between-class variance
// (Otsu's method). Works best on bimodal histograms, which is exactly what
// printed text over a title bar produces.
func otsuLevel(hist [256]int) uint8 {
	total := 0
	var sum float64
	for v, n := range hist {
		total += n
		sum += float64(v) * float64(n)
	}
	if total == 0 {
		return 127
	}

	var sumBack, weightBack float64
	bestVar := -1.0
	var best uint8

	for t := 0; t < 256; t++ {
		weightBack += float64(hist[t])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}

		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore

		between := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if between > bestVar {
			bestVar = between
			best = uint8(t)
		}
	}
	return best
}

// binarize maps pixels above the threshold to white and the rest to black.
func binarize(src *image.Gray, threshold uint8) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+b.Dx()]
		outRow := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x, v := range srcRow {
			if v > threshold {
				outRow[x] = 255
			}
		}
	}
	return out
}

// invert flips every intensity; binary images swap foreground and
// background.
func invert(src *image.Gray) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+b.Dx()]
		outRow := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x, v := range srcRow {
			outRow[x] = 255 - v
		}
	}
	return out
}

// adaptiveThreshold binarizes against the local mean: a pixel turns white
// when it exceeds the mean of its window minus bias. An integral image
// makes every window sum O(1), so the window size has no cost.
func adaptiveThreshold(src *image.Gray, window int, bias float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if window < 3 {
		window = 3
	}
	half := window / 2

	// integral[y][x] = sum of all pixels above and left of (x, y).
	integral := make([][]int64, h+1)
	integral[0] = make([]int64, w+1)
	for y := 0; y < h; y++ {
		integral[y+1] = make([]int64, w+1)
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(row[x])
			integral[y+1][x+1] = integral[y][x+1] + rowSum
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0 := clampInt(y-half, 0, h-1)
		y1 := clampInt(y+half, 0, h-1)
		for x := 0; x < w; x++ {
			x0 := clampInt(x-half, 0, w-1)
			x1 := clampInt(x+half, 0, w-1)

			count := int64(x1-x0+1) * int64(y1-y0+1)
			sum := integral[y1+1][x1+1] - integral[y0][x1+1] - integral[y1+1][x0+1] + integral[y0][x0+1]
			mean := float64(sum) / float64(count)

			if float64(src.Pix[y*src.Stride+x]) > mean-bias {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// equalizeTiles applies clip-limited tile histogram equalization: each
// tile gets its own equalization mapping, and every pixel blends the
// mappings of its four surrounding tile centers bilinearly, which removes
// the blocking a per-tile remap would show.
func equalizeTiles(src *image.Gray, tileSize int, clipLimit float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if tileSize < 8 {
		tileSize = 8
	}
	if clipLimit < 1 {
		clipLimit = 1
	}

	tilesX := (w + tileSize - 1) / tileSize
	tilesY := (h + tileSize - 1) / tileSize

	luts := make([][][256]uint8, tilesY)
	for ty := 0; ty < tilesY; ty++ {
		luts[ty] = make([][256]uint8, tilesX)
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileSize, ty*tileSize
			x1, y1 := minInt(x0+tileSize, w), minInt(y0+tileSize, h)
			luts[ty][tx] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		// Tile-center coordinates of this pixel.
		fy := (float64(y)+0.5)/float64(tileSize) - 0.5
		ty0 := clampInt(int(fy), 0, tilesY-1)
		if fy < 0 {
			ty0 = 0
		}
		ty1 := minInt(ty0+1, tilesY-1)
		wy := fy - float64(ty0)
		if wy < 0 {
			wy = 0
		}
		if wy > 1 {
			wy = 1
		}

		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileSize) - 0.5
			tx0 := clampInt(int(fx), 0, tilesX-1)
			if fx < 0 {
				tx0 = 0
			}
			tx1 := minInt(tx0+1, tilesX-1)
			wx := fx - float64(tx0)
			if wx < 0 {
				wx = 0
			}
			if wx > 1 {
				wx = 1
			}

			v := src.Pix[y*src.Stride+x]
			top := (1-wx)*float64(luts[ty0][tx0][v]) + wx*float64(luts[ty0][tx1][v])
			bottom := (1-wx)*float64(luts[ty1][tx0][v]) + wx*float64(luts[ty1][tx1][v])
			out.Pix[y*out.Stride+x] = uint8((1-wy)*top + wy*bottom + 0.5)
		}
	}
	return out
}

// tileLUT builds the clip-limited equalization mapping for one tile.
func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride+x0 : y*src.Stride+x1]
		for _, v := range row {
			hist[v]++
		}
	}

	total := (x1 - x0) * (y1 - y0)
	var lut [256]uint8
	if total == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	// Clip bins at clipLimit x the uniform level and hand the excess back
	// evenly, which caps contrast amplification in flat areas.
	limit := int(clipLimit * float64(total) / 256)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i, n := range hist {
		if n > limit {
			excess += n - limit
			hist[i] = limit
		}
	}
	share := excess / 256
	for i := range hist {
		hist[i] += share
	}

	cum := 0
	for i, n := range hist {
		cum += n
		lut[i] = uint8(float64(cum)/float64(total)*255 + 0.5)
	}
	return lut
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
