// Package detect locates the quadrilateral outline of a trading card within
// a photograph.
//
// Detection runs on a bounded-size grayscale copy of the input: a ladder of
// Canny edge-sensitivity presets is tried from least to most sensitive, edge
// maps are dilated to bridge broken card borders, and connected edge
// components are reduced to four-corner polygons whose minimum-area
// rectangle must match real card proportions. Coordinates are always
// reported at the original image resolution.
//
// Localization is heuristic. A miss is an expected outcome, reported as a
// not-found Detection rather than an error; callers fall back to treating
// the whole frame as the card.
package detect
