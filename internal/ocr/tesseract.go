//go:build !ocr

package ocr

import (
	"context"
	"image"
)

// Tesseract is the stand-in compiled when the module is built without the
// ocr tag, keeping the build free of the libtesseract cgo dependency. It
// always reports unavailable; the pipeline surfaces that as a result, not a
// crash.
type Tesseract struct {
	language string
}

// NewTesseract returns the unavailable stand-in.
func NewTesseract(language string) *Tesseract {
	return &Tesseract{language: language}
}

// Recognize always fails with ErrUnavailable.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, cfg Config) (string, error) {
	return "", ErrUnavailable
}

// Available reports false: this build carries no recognizer.
func (t *Tesseract) Available() bool { return false }

// Name identifies the backend.
func (t *Tesseract) Name() string { return BackendTesseract }

// Version reports empty: no libtesseract is linked.
func (t *Tesseract) Version() string { return "" }
