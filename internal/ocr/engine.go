package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// ErrUnavailable reports that the recognition backend cannot serve calls at
// all. It is a persistent condition established at construction, not a
// per-call failure.
var ErrUnavailable = errors.New("recognition engine unavailable")

// Backend names accepted by New.
const (
	BackendTesseract   = "tesseract"
	BackendRekognition = "rekognition"
)

// DefaultLanguage is the Tesseract language code used when none is
// configured.
const DefaultLanguage = "eng"

// TitleWhitelist is the character set expected in a printed card title.
const TitleWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz -',"

// LineMode selects how much page-layout analysis a backend applies before
// recognizing text.
type LineMode int

const (
	// LineSingle treats the input as exactly one line of text.
	LineSingle LineMode = iota

	// LineBlock treats the input as a uniform block of text.
	LineBlock

	// LineRaw recognizes a raw line, bypassing layout analysis entirely.
	LineRaw
)

func (m LineMode) String() string {
	switch m {
	case LineSingle:
		return "single-line"
	case LineBlock:
		return "block"
	case LineRaw:
		return "raw-line"
	}
	return fmt.Sprintf("line-mode(%d)", int(m))
}

// EngineMode selects the recognition model family for backends that
// distinguish between a legacy and a neural recognizer.
type EngineMode int

const (
	// EngineDefault lets the backend pick its standard model.
	EngineDefault EngineMode = iota

	// EngineLSTM forces the neural line recognizer where supported.
	EngineLSTM
)

func (m EngineMode) String() string {
	switch m {
	case EngineDefault:
		return "default"
	case EngineLSTM:
		return "lstm"
	}
	return fmt.Sprintf("engine-mode(%d)", int(m))
}

// Config is one recognition configuration. Name identifies the preset in
// results and logs; the remaining fields steer the backend. Backends without
// an equivalent knob (Rekognition has no line modes or whitelists) treat the
// steering fields as advisory.
type Config struct {
	Name       string     `json:"name"`
	LineMode   LineMode   `json:"line_mode"`
	EngineMode EngineMode `json:"engine_mode"`
	Whitelist  string     `json:"whitelist,omitempty"`
}

// Presets returns the fixed configuration ladder the selector iterates, in
// declared order. The order is part of the selection contract: candidate
// ties resolve to the earliest-produced result.
func Presets() []Config {
	return []Config{
		{Name: "single-default", LineMode: LineSingle, EngineMode: EngineDefault},
		{Name: "single-lstm-title", LineMode: LineSingle, EngineMode: EngineLSTM, Whitelist: TitleWhitelist},
		{Name: "block-default", LineMode: LineBlock, EngineMode: EngineDefault},
		{Name: "raw-lstm", LineMode: LineRaw, EngineMode: EngineLSTM},
	}
}

// Engine converts a preprocessed image region into raw text under one
// configuration. Implementations are safe for concurrent use.
type Engine interface {
	// Recognize runs one recognition pass and returns the backend's raw
	// text, untrimmed. A per-call failure is an error; callers treat it as
	// "no candidate from this config".
	Recognize(ctx context.Context, img image.Image, cfg Config) (string, error)

	// Available reports whether the backend can serve calls. The outcome
	// is determined once at construction and never changes.
	Available() bool

	// Name identifies the backend in results and logs.
	Name() string
}

// Options carries backend construction settings. Zero values select
// defaults.
type Options struct {
	// Language is the Tesseract language code (default "eng").
	Language string

	// Region is the AWS region for the Rekognition backend. Empty defers
	// to the SDK's default resolution chain.
	Region string
}

// New constructs the named backend. A backend that cannot initialize is
// still returned, carrying Available() == false; only an unknown name is an
// error.
func New(ctx context.Context, backend string, opts Options) (Engine, error) {
	switch backend {
	case BackendTesseract:
		lang := opts.Language
		if lang == "" {
			lang = DefaultLanguage
		}
		return NewTesseract(lang), nil
	case BackendRekognition:
		return NewRekognition(ctx, opts.Region), nil
	}
	return nil, fmt.Errorf("unknown recognition backend %q", backend)
}

// encodePNG renders an image to PNG bytes for backends that consume encoded
// input.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
