// Package scan turns card photos into card names.
//
// The Pipeline composes the lower layers into the end-to-end flow: locate
// the card outline (detect), rectify it to canonical portrait dimensions
// (rectify), crop and preprocess the title band (prep), then drive a
// recognition engine (ocr) over every preprocessing variant and
// configuration preset, cleaning and scoring candidates until one wins.
// ScanBinder applies the same flow to each pocket of a photographed binder
// page.
//
// # Result Semantics
//
// A scan that finds no card name is a normal outcome, reported through
// CardResult.Found and CardResult.Reason. Errors never escape a scan:
// blurry photos, empty pockets, unreadable titles, an unavailable engine,
// and caller cancellation all flow back as result values so a batch is
// never sunk by one bad slot.
//
// # Concurrency
//
// A single-card scan is a pure computation over its inputs; one Pipeline
// value serves concurrent scans. Binder slots run on a bounded worker pool
// sized by Options.Workers. On cancellation, finished slots keep their
// results and unstarted slots report ReasonCancelled.
//
// # Tuning
//
// Every threshold (edge presets, aspect band, variance cutoff, early-exit
// score) lives in Options rather than in the algorithms. The defaults are
// empirically chosen; recalibrate against representative photos when
// accuracy drifts.
package scan
