//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text through libtesseract via gosseract. It is only
// compiled with the ocr build tag; without the tag the pure-Go stub in
// tesseract.go takes its place and always reports unavailable.
//
// Availability is probed once at construction: client init, a version
// check, and a trial recognition that catches missing language data. The
// outcome never changes for the lifetime of the engine.
type Tesseract struct {
	language  string
	version   string
	available bool
}

// NewTesseract probes the local Tesseract installation for the given
// language and carries the outcome. The language data must be installed on
// the system (for example tesseract-ocr-eng on Debian).
func NewTesseract(language string) *Tesseract {
	t := &Tesseract{language: language}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return t
	}
	t.version = client.Version()

	// SetLanguage succeeds even when the traineddata file is absent; only
	// a recognition attempt surfaces that.
	probe, err := encodePNG(image.NewGray(image.Rect(0, 0, 16, 16)))
	if err != nil {
		return t
	}
	if err := client.SetImageFromBytes(probe); err != nil {
		return t
	}
	if _, err := client.Text(); err != nil {
		return t
	}

	t.available = true
	return t
}

// Recognize runs one Tesseract pass over img with the page segmentation,
// engine mode, and whitelist from cfg.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, cfg Config) (string, error) {
	if !t.available {
		return "", ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := t.recognize(data, cfg)
		done <- outcome{text: text, err: err}
	}()

	// The C call cannot be interrupted; on cancellation the result is
	// dropped when it eventually arrives.
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case out := <-done:
		return out.text, out.err
	}
}

// recognize performs the blocking gosseract call. Each call gets a fresh
// client: clients are cheap relative to recognition, and sharing one would
// serialize concurrent slots behind a mutex.
func (t *Tesseract) recognize(data []byte, cfg Config) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(pageSegMode(cfg.LineMode)); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	if cfg.EngineMode == EngineLSTM {
		// OEM 1 selects the LSTM-only recognizer.
		if err := client.SetVariable("tessedit_ocr_engine_mode", "1"); err != nil {
			return "", fmt.Errorf("set engine mode: %w", err)
		}
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

func pageSegMode(m LineMode) gosseract.PageSegMode {
	switch m {
	case LineBlock:
		return gosseract.PSM_SINGLE_BLOCK
	case LineRaw:
		return gosseract.PSM_RAW_LINE
	default:
		return gosseract.PSM_SINGLE_LINE
	}
}

// Available reports whether the construction-time probe succeeded.
func (t *Tesseract) Available() bool { return t.available }

// Name identifies the backend.
func (t *Tesseract) Name() string { return BackendTesseract }

// Version reports the libtesseract version found at construction, or empty
// when unavailable.
func (t *Tesseract) Version() string { return t.version }
