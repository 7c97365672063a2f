package geometry

import (
	"errors"
	"math"
	"sort"
)

// ErrDegenerate is returned when an operation that requires four distinct
// corner points receives fewer (duplicate or missing points).
var ErrDegenerate = errors.New("degenerate geometry: four distinct points required")

// Point is a 2D coordinate in image space (origin top-left, Y grows down).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is a quadrilateral with corners in fixed order:
// index 0 = top-left, 1 = top-right, 2 = bottom-right, 3 = bottom-left.
//
// A Quad is only ever constructed through OrderPoints, so consumers can rely
// on the corner order without re-checking it.
type Quad [4]Point

// OrderPoints arranges four unordered corner points into Quad order.
//
// Parameters:
//   - pts: Exactly four points, in any order.
//
// Returns:
//   - Quad: The points ordered top-left, top-right, bottom-right, bottom-left.
//   - error: ErrDegenerate if pts does not contain four distinct points, or
//     if the ordering rule cannot assign each point a unique corner.
//
// # Algorithm
//
// Corners are identified by coordinate sums and differences:
//
//   - top-left: minimum of x+y
//   - bottom-right: maximum of x+y
//   - top-right: minimum of y-x
//   - bottom-left: maximum of y-x
//
// Ties are broken by first-encountered order, which makes the result
// deterministic for a given input slice. Applying OrderPoints to an already
// ordered Quad yields the same Quad.
//
// For a quadrilateral rotated exactly 45 degrees the sums and differences
// tie pairwise, one point wins two corners, and no valid ordering exists;
// that collision is reported as ErrDegenerate so a caller never receives a
// Quad with repeated corners.
func OrderPoints(pts []Point) (Quad, error) {
	var q Quad
	if len(pts) != 4 {
		return q, ErrDegenerate
	}
	if countDistinct(pts) < 4 {
		return q, ErrDegenerate
	}

	tl, br := pts[0], pts[0]
	tr, bl := pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X+p.Y > br.X+br.Y {
			br = p
		}
		if p.Y-p.X < tr.Y-tr.X {
			tr = p
		}
		if p.Y-p.X > bl.Y-bl.X {
			bl = p
		}
	}

	q[0], q[1], q[2], q[3] = tl, tr, br, bl
	if q.Degenerate() {
		return Quad{}, ErrDegenerate
	}
	return q, nil
}

// Degenerate reports whether the quad has fewer than four distinct corners.
// Corner ordering and perspective warping both require all corners distinct.
func (q Quad) Degenerate() bool {
	return countDistinct(q[:]) < 4
}

// Scale returns a copy of the quad with every coordinate multiplied by f.
// Used to map corners found on a downscaled detection image back to the
// original resolution.
func (q Quad) Scale(f float64) Quad {
	var out Quad
	for i, p := range q {
		out[i] = Point{X: p.X * f, Y: p.Y * f}
	}
	return out
}

// Area returns the enclosed area of the quad via the shoelace formula.
func (q Quad) Area() float64 {
	return PolygonArea(q[:])
}

// Perimeter returns the closed-ring perimeter of a polygon.
func Perimeter(ring []Point) float64 {
	if len(ring) < 2 {
		return 0
	}
	var sum float64
	for i := range ring {
		sum += distance(ring[i], ring[(i+1)%len(ring)])
	}
	return sum
}

// PolygonArea returns the absolute enclosed area of a closed polygon ring
// (shoelace formula). The ring must not repeat its first point at the end.
func PolygonArea(ring []Point) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return math.Abs(sum) / 2
}

// ConvexHull computes the convex hull of a point set using Andrew's monotone
// chain. The hull is returned in counter-clockwise order (image coordinates)
// without repeating the first point. Collinear points on the hull boundary
// are dropped.
//
// Returns the input unchanged (copied) when fewer than three points are
// supplied.
func ConvexHull(pts []Point) []Point {
	n := len(pts)
	if n < 3 {
		out := make([]Point, n)
		copy(out, pts)
		return out
	}

	sorted := make([]Point, n)
	copy(sorted, pts)
	sortPoints(sorted)

	hull := make([]Point, 0, 2*n)

	// Lower hull
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Upper hull
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Last point repeats the first
	return hull[:len(hull)-1]
}

// ApproxPolygon simplifies a closed polygon ring with the Douglas-Peucker
// algorithm.
//
// Parameters:
//   - ring: Closed polygon ring (first point not repeated at the end).
//   - epsilon: Maximum allowed deviation of dropped points from the
//     simplified outline, in the same units as the coordinates. Callers
//     typically pass a fraction of the ring's perimeter.
//
// Returns the simplified ring. Rings with three or fewer points are returned
// as copies.
//
// # Algorithm
//
// Douglas-Peucker operates on open chains, so the closed ring is first split
// at its two mutually farthest points. Each half-chain is simplified
// independently and the halves are rejoined without duplicating the split
// points.
func ApproxPolygon(ring []Point, epsilon float64) []Point {
	n := len(ring)
	if n <= 3 {
		out := make([]Point, n)
		copy(out, ring)
		return out
	}

	// Split the ring at the two farthest-apart points.
	ai, bi := 0, 1
	best := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := distance(ring[i], ring[j]); d > best {
				best = d
				ai, bi = i, j
			}
		}
	}

	first := ringSlice(ring, ai, bi)
	second := ringSlice(ring, bi, ai)

	simple1 := douglasPeucker(first, epsilon)
	simple2 := douglasPeucker(second, epsilon)

	// Both chains contain the split points at their ends; drop the
	// duplicates when rejoining.
	out := make([]Point, 0, len(simple1)+len(simple2)-2)
	out = append(out, simple1...)
	out = append(out, simple2[1:len(simple2)-1]...)
	return out
}

// MinAreaRectSides returns the side lengths of the minimum-area rectangle
// enclosing a point set, as (short side, long side).
//
// # Algorithm
//
// Rotating calipers over the convex hull: the minimum-area enclosing
// rectangle has one side collinear with a hull edge, so for each hull edge
// the points are projected onto the edge direction and its normal, and the
// extents give one candidate rectangle. The smallest candidate wins.
//
// Degenerate inputs (fewer than three points, or all collinear) yield a
// zero short side.
func MinAreaRectSides(pts []Point) (short, long float64) {
	hull := ConvexHull(pts)
	if len(hull) < 3 {
		return 0, chainLength(hull)
	}

	bestArea := math.Inf(1)
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		ux, uy := dx/length, dy/length // edge direction
		vx, vy := -uy, ux              // edge normal

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u := p.X*ux + p.Y*uy
			v := p.X*vx + p.Y*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		w := maxU - minU
		h := maxV - minV
		if area := w * h; area < bestArea {
			bestArea = area
			short, long = math.Min(w, h), math.Max(w, h)
		}
	}
	return short, long
}

// AspectRatio returns short/long for a pair of rectangle sides, or 0 when
// the long side is zero. The result is always in [0, 1].
func AspectRatio(short, long float64) float64 {
	if long <= 0 {
		return 0
	}
	return short / long
}

// douglasPeucker simplifies an open chain, always keeping both endpoints.
func douglasPeucker(chain []Point, epsilon float64) []Point {
	if len(chain) <= 2 {
		out := make([]Point, len(chain))
		copy(out, chain)
		return out
	}

	// Find the point farthest from the endpoint segment.
	maxDist := 0.0
	maxIdx := 0
	a, b := chain[0], chain[len(chain)-1]
	for i := 1; i < len(chain)-1; i++ {
		if d := perpendicularDistance(chain[i], a, b); d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= epsilon {
		return []Point{a, b}
	}

	left := douglasPeucker(chain[:maxIdx+1], epsilon)
	right := douglasPeucker(chain[maxIdx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// perpendicularDistance is the distance from p to the line segment ab.
// When a and b coincide it degrades to point distance.
func perpendicularDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return distance(p, a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}

// ringSlice returns the ring points from index i to index j inclusive,
// wrapping past the end of the slice when j < i.
func ringSlice(ring []Point, i, j int) []Point {
	n := len(ring)
	if i <= j {
		out := make([]Point, j-i+1)
		copy(out, ring[i:j+1])
		return out
	}
	out := make([]Point, 0, n-i+j+1)
	out = append(out, ring[i:]...)
	out = append(out, ring[:j+1]...)
	return out
}

// chainLength is the total length of an open polyline.
func chainLength(pts []Point) float64 {
	var sum float64
	for i := 1; i < len(pts); i++ {
		sum += distance(pts[i-1], pts[i])
	}
	return sum
}

// cross returns the z-component of (b-a) x (c-a). Positive means c lies to
// the left of ab in standard orientation.
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func countDistinct(pts []Point) int {
	seen := make(map[Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// sortPoints orders points by X, then Y.
func sortPoints(pts []Point) {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
}
