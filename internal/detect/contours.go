package detect

import "image"

// minComponentSize discards connected edge fragments smaller than this many
// pixels before any geometric analysis; they are sensor noise, not card
// borders.
const minComponentSize = 20

// components groups connected edge pixels into contours using 8-connected
// flood fill. Each returned component is the unordered set of edge pixels
// belonging to one connected outline fragment.
func components(edges [][]bool, width, height int) [][]image.Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	var out [][]image.Point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				comp := floodFill(edges, visited, x, y, width, height)
				if len(comp) >= minComponentSize {
					out = append(out, comp)
				}
			}
		}
	}
	return out
}

// floodFill collects one connected component starting at (startX, startY).
// Stack-based rather than recursive so card-sized outlines cannot overflow
// the goroutine stack. 8-connectivity includes diagonal neighbors, which
// keeps thin anti-aliased borders in one piece.
func floodFill(edges, visited [][]bool, startX, startY, width, height int) []image.Point {
	var comp []image.Point
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		comp = append(comp, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return comp
}
