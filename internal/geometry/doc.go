// Package geometry provides the plane-geometry primitives used by card
// localization: corner ordering, polygon approximation, convex hulls, and
// minimum-area bounding rectangles.
//
// All functions are pure numeric computations on float64 coordinates with
// origin at the top-left. Nothing in this package touches pixels or
// performs I/O.
package geometry
