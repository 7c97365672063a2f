package scan

import (
	"context"
	"image"
	"log"
	"time"

	"github.com/cardfolio/cardscan/internal/detect"
	"github.com/cardfolio/cardscan/internal/ocr"
	"github.com/cardfolio/cardscan/internal/prep"
	"github.com/cardfolio/cardscan/internal/rectify"
)

// Result reasons for scans that produced no card name. These are expected
// outcomes, not errors.
const (
	// ReasonUnavailable: the recognition engine reported unavailable at
	// construction; no image work was attempted.
	ReasonUnavailable = "recognition engine unavailable"

	// ReasonUnreadable: every variant and configuration was tried and no
	// candidate survived cleaning.
	ReasonUnreadable = "no readable title"

	// ReasonEmptyTitle: the rectified card was too small to carry a title
	// band.
	ReasonEmptyTitle = "title region empty"

	// ReasonCancelled: the caller abandoned the scan before a candidate
	// was found.
	ReasonCancelled = "scan cancelled"
)

// Options collects every pipeline tunable. The thresholds are empirical;
// start from DefaultOptions and recalibrate against representative photos
// rather than guessing.
type Options struct {
	// Detect tunes card localization.
	Detect detect.Options `json:"detect"`

	// Prep tunes title extraction and preprocessing.
	Prep prep.Options `json:"prep"`

	// CanonicalWidth and CanonicalHeight are the rectification target
	// dimensions.
	CanonicalWidth  int `json:"canonical_width"`
	CanonicalHeight int `json:"canonical_height"`

	// Configs is the recognition preset ladder, tried in order per
	// variant.
	Configs []ocr.Config `json:"configs"`

	// EarlyExitScore stops the candidate search as soon as a candidate
	// scores at least this much. This deliberately trades completeness
	// for latency: later variants could in principle score higher but are
	// skipped. Zero disables the exit.
	EarlyExitScore int `json:"early_exit_score"`

	// RecognizeTimeout bounds each engine call. A timed-out call counts
	// as "no candidate from this config", not a failed scan.
	RecognizeTimeout time.Duration `json:"recognize_timeout"`

	// GridRows and GridCols shape the binder page grid.
	GridRows int `json:"grid_rows"`
	GridCols int `json:"grid_cols"`

	// CellPadding is trimmed inward from every cell edge to keep
	// neighboring pockets out of the crop.
	CellPadding int `json:"cell_padding"`

	// EmptyVariance is the grayscale intensity variance below which a
	// cell is considered an empty pocket and skipped.
	EmptyVariance float64 `json:"empty_variance"`

	// Workers bounds the binder worker pool. Zero resolves to
	// min(3, GOMAXPROCS) at scan time.
	Workers int `json:"workers"`
}

// DefaultOptions returns the tuning the service runs with out of the box.
func DefaultOptions() Options {
	return Options{
		Detect:           detect.DefaultOptions(),
		Prep:             prep.DefaultOptions(),
		CanonicalWidth:   rectify.CanonicalWidth,
		CanonicalHeight:  rectify.CanonicalHeight,
		Configs:          ocr.Presets(),
		EarlyExitScore:   12,
		RecognizeTimeout: 10 * time.Second,
		GridRows:         3,
		GridCols:         3,
		CellPadding:      10,
		EmptyVariance:    500,
		Workers:          0,
	}
}

// CardResult is the outcome of one single-card scan. Found false with a
// Reason is a normal outcome (blurry photo, empty frame), never an error.
type CardResult struct {
	// Name is the best cleaned title candidate.
	Name string `json:"name,omitempty"`

	// Score is the candidate's rating; see ScoreCandidate.
	Score int `json:"score,omitempty"`

	// Variant and Config identify the preprocessing recipe and
	// recognition preset that produced the winning candidate.
	Variant string `json:"variant,omitempty"`
	Config  string `json:"config,omitempty"`

	// Found reports whether any candidate survived.
	Found bool `json:"found"`

	// Located reports whether the localizer found a card outline; false
	// means the full frame was scanned as the presumed card.
	Located bool `json:"located"`

	// EarlyExit reports that the search stopped at the first candidate
	// reaching EarlyExitScore instead of trying every combination.
	EarlyExit bool `json:"early_exit,omitempty"`

	// Reason explains an unfound result.
	Reason string `json:"reason,omitempty"`
}

// Pipeline runs the photo-to-name scan. One Pipeline serves all requests:
// it holds no per-scan state, and the injected engine is required to be
// safe for concurrent use.
type Pipeline struct {
	engine ocr.Engine
	opts   Options
	logger *log.Logger
}

// New builds a Pipeline around engine. Unset fields in opts resolve to
// their DefaultOptions values, field by field, so a caller who overrides
// one knob keeps working defaults for the rest; a nil logger falls back to
// the process logger.
func New(engine ocr.Engine, opts Options, logger *log.Logger) *Pipeline {
	def := DefaultOptions()
	opts.Detect = opts.Detect.WithDefaults()
	opts.Prep = opts.Prep.WithDefaults()
	if opts.CanonicalWidth <= 0 {
		opts.CanonicalWidth = def.CanonicalWidth
	}
	if opts.CanonicalHeight <= 0 {
		opts.CanonicalHeight = def.CanonicalHeight
	}
	if len(opts.Configs) == 0 {
		opts.Configs = def.Configs
	}
	if opts.RecognizeTimeout <= 0 {
		opts.RecognizeTimeout = def.RecognizeTimeout
	}
	if opts.GridRows <= 0 {
		opts.GridRows = def.GridRows
	}
	if opts.GridCols <= 0 {
		opts.GridCols = def.GridCols
	}
	if opts.EmptyVariance <= 0 {
		opts.EmptyVariance = def.EmptyVariance
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{engine: engine, opts: opts, logger: logger}
}

// Engine exposes the injected recognition backend.
func (p *Pipeline) Engine() ocr.Engine { return p.engine }

// Options exposes the resolved tuning.
func (p *Pipeline) Options() Options { return p.opts }

// ScanCard recognizes the card shown in img.
//
// # Stages
//
//  1. Locate the card outline (detect). A miss is tolerated: the full
//     frame is scanned as the presumed card.
//  2. Rectify to canonical portrait dimensions (rectify). A degenerate
//     outline falls back to a plain resize, logged.
//  3. Crop the title band and produce the preprocessed variants (prep).
//  4. Recognize each variant under each configured preset, clean and
//     score candidates, keep the stable first maximum.
//
// Every expected negative (no outline, unreadable title, unavailable
// engine, cancellation) is reported in the result, never as a panic.
func (p *Pipeline) ScanCard(ctx context.Context, img image.Image) CardResult {
	if !p.engine.Available() {
		return CardResult{Reason: ReasonUnavailable}
	}
	if ctx.Err() != nil {
		return CardResult{Reason: ReasonCancelled}
	}

	det := detect.Locate(img, p.opts.Detect)

	var card image.Image
	switch {
	case det.Found:
		warped, ok := rectify.Warp(img, det.Quad, p.opts.CanonicalWidth, p.opts.CanonicalHeight)
		if !ok {
			p.logger.Printf("scan: degenerate outline, rectifying without warp")
		}
		card = warped
	default:
		p.logger.Printf("scan: no card outline found, scanning full frame")
		card = rectify.Fit(img, p.opts.CanonicalWidth, p.opts.CanonicalHeight)
	}

	title, err := prep.TitleRegion(card, p.opts.Prep)
	if err != nil {
		return CardResult{Located: det.Found, Reason: ReasonEmptyTitle}
	}

	best, found, early := p.selectCandidate(ctx, prep.Variants(title, p.opts.Prep))
	if !found {
		reason := ReasonUnreadable
		if ctx.Err() != nil {
			reason = ReasonCancelled
		}
		return CardResult{Located: det.Found, Reason: reason}
	}

	return CardResult{
		Name:      best.name,
		Score:     best.score,
		Variant:   best.variant,
		Config:    best.config,
		Found:     true,
		Located:   det.Found,
		EarlyExit: early,
	}
}

type candidate struct {
	name    string
	score   int
	variant string
	config  string
}

// selectCandidate walks variants x configs in declared order and keeps the
// first maximum. The final return reports an early exit.
func (p *Pipeline) selectCandidate(ctx context.Context, variants []prep.Variant) (candidate, bool, bool) {
	var best candidate
	found := false

	for _, v := range variants {
		for _, cfg := range p.opts.Configs {
			if ctx.Err() != nil {
				return best, found, false
			}

			raw, err := p.recognize(ctx, v.Img, cfg)
			if err != nil {
				if ctx.Err() != nil {
					return best, found, false
				}
				p.logger.Printf("scan: %s/%s: %v", v.Name, cfg.Name, err)
				continue
			}

			cleaned, ok := CleanCandidate(raw)
			if !ok {
				continue
			}

			score := ScoreCandidate(cleaned)
			if !found || score > best.score {
				best = candidate{name: cleaned, score: score, variant: v.Name, config: cfg.Name}
				found = true
			}
			if p.opts.EarlyExitScore > 0 && score >= p.opts.EarlyExitScore {
				return best, true, true
			}
		}
	}
	return best, found, false
}

// recognize bounds one engine call with the per-call timeout. A timeout
// fails this call only; the parent context decides whether the scan as a
// whole goes on.
func (p *Pipeline) recognize(ctx context.Context, img image.Image, cfg ocr.Config) (string, error) {
	callCtx := ctx
	if p.opts.RecognizeTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.RecognizeTimeout)
		defer cancel()
	}
	return p.engine.Recognize(callCtx, img, cfg)
}
