package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"mime"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/cardfolio/cardscan/internal/detect"
	"github.com/cardfolio/cardscan/internal/geometry"
	"github.com/cardfolio/cardscan/internal/lookup"
	"github.com/cardfolio/cardscan/internal/scan"
)

// ErrUndecodable reports that the uploaded bytes could not be decoded as
// an image in any supported format.
var ErrUndecodable = errors.New("image data could not be decoded")

// cardScanResponse is the reply to POST /api/scan/card.
type cardScanResponse struct {
	RequestID string          `json:"request_id"`
	Result    scan.CardResult `json:"result"`

	// Card is the resolved card record; absent when resolution is
	// disabled, the name did not match, or nothing was recognized.
	Card *lookup.Record `json:"card,omitempty"`

	// OverlayPNG is a base64 PNG of the photo with the located card
	// outline drawn in, present only with ?debug=1.
	OverlayPNG string `json:"overlay_png,omitempty"`

	ElapsedMS int64 `json:"elapsed_ms"`
}

// binderSlot is one grid position in a binder scan reply.
type binderSlot struct {
	scan.SlotResult
	Card *lookup.Record `json:"card,omitempty"`
}

// binderScanResponse is the reply to POST /api/scan/binder.
type binderScanResponse struct {
	RequestID string       `json:"request_id"`
	Complete  bool         `json:"complete"`
	Slots     []binderSlot `json:"slots"`
	ElapsedMS int64        `json:"elapsed_ms"`
}

// ScanCard handles a single-card photo upload.
func (s *Server) ScanCard(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID()
	start := time.Now()

	img, err := s.readImage(w, r)
	if err != nil {
		s.logger.Printf("server: [%s] card upload rejected: %v", requestID, err)
		s.writeError(w, http.StatusUnprocessableEntity, requestID, err.Error())
		return
	}

	result := s.pipeline.ScanCard(r.Context(), img)
	s.logger.Printf("server: [%s] card scan: found=%t name=%q reason=%q",
		requestID, result.Found, result.Name, result.Reason)

	resp := cardScanResponse{
		RequestID: requestID,
		Result:    result,
		Card:      s.resolveName(r, result),
	}

	if r.URL.Query().Get("debug") == "1" {
		resp.OverlayPNG = s.renderOverlay(img)
	}

	resp.ElapsedMS = time.Since(start).Milliseconds()
	s.writeJSON(w, http.StatusOK, resp)
}

// ScanBinder handles a binder-page photo upload.
func (s *Server) ScanBinder(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID()
	start := time.Now()

	img, err := s.readImage(w, r)
	if err != nil {
		s.logger.Printf("server: [%s] binder upload rejected: %v", requestID, err)
		s.writeError(w, http.StatusUnprocessableEntity, requestID, err.Error())
		return
	}

	result := s.pipeline.ScanBinder(r.Context(), img)

	slots := make([]binderSlot, len(result.Slots))
	for i, slot := range result.Slots {
		slots[i] = binderSlot{
			SlotResult: slot,
			Card:       s.resolveName(r, slot.CardResult),
		}
	}
	s.logger.Printf("server: [%s] binder scan: %d slots, complete=%t",
		requestID, len(slots), result.Complete)

	s.writeJSON(w, http.StatusOK, binderScanResponse{
		RequestID: requestID,
		Complete:  result.Complete,
		Slots:     slots,
		ElapsedMS: time.Since(start).Milliseconds(),
	})
}

// statusResponse is the reply to GET /api/scan/status.
type statusResponse struct {
	Service         string `json:"service_version"`
	Engine          string `json:"engine"`
	EngineAvailable bool   `json:"engine_available"`
	EngineVersion   string `json:"engine_version,omitempty"`
	EngineError     string `json:"engine_error,omitempty"`
	LookupEnabled   bool   `json:"lookup_enabled"`
	GridRows        int    `json:"grid_rows"`
	GridCols        int    `json:"grid_cols"`
	Workers         int    `json:"workers"`
	EarlyExitScore  int    `json:"early_exit_score"`
}

// Status reports the recognition backend and the pipeline settings. The
// availability flag was computed once when the engine was constructed; it
// is reported, never re-probed.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	engine := s.pipeline.Engine()
	opts := s.pipeline.Options()

	resp := statusResponse{
		Service:         s.version,
		Engine:          engine.Name(),
		EngineAvailable: engine.Available(),
		LookupEnabled:   s.resolver != nil,
		GridRows:        opts.GridRows,
		GridCols:        opts.GridCols,
		Workers:         opts.Workers,
		EarlyExitScore:  opts.EarlyExitScore,
	}
	if v, ok := engine.(interface{ Version() string }); ok {
		resp.EngineVersion = v.Version()
	}
	if e, ok := engine.(interface{ InitError() string }); ok {
		resp.EngineError = e.InitError()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// healthResponse is the reply to GET /health.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Health reports liveness. A missing recognition backend degrades the
// service (scans answer "unavailable") but does not kill it, mirrored in
// the status word.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "healthy",
		Version: s.version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}

	status := http.StatusOK
	if !s.pipeline.Engine().Available() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

// readImage extracts and decodes the uploaded photo. Multipart forms are
// checked for a "file" then an "image" field; any other content type is
// read as a raw image body.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			return nil, errors.New("upload too large or malformed form data")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			file, _, err = r.FormFile("image")
			if err != nil {
				return nil, errors.New("no file provided (use a 'file' or 'image' field)")
			}
		}
		defer file.Close()

		img, err := imaging.Decode(file)
		if err != nil {
			return nil, ErrUndecodable
		}
		return img, nil
	}

	img, err := imaging.Decode(r.Body)
	if err != nil {
		return nil, ErrUndecodable
	}
	return img, nil
}

// resolveName looks the recognized name up unless resolution is disabled
// by construction or by ?resolve=0. An unmatched name is a normal outcome;
// transient lookup failures are logged and degrade to "no card record",
// never to a failed scan.
func (s *Server) resolveName(r *http.Request, result scan.CardResult) *lookup.Record {
	if s.resolver == nil || !result.Found || r.URL.Query().Get("resolve") == "0" {
		return nil
	}

	rec, err := s.resolver.ResolveName(r.Context(), result.Name)
	if err != nil {
		if !errors.Is(err, lookup.ErrNotFound) {
			s.logger.Printf("server: lookup %q: %v", result.Name, err)
		}
		return nil
	}
	return &rec
}

// renderOverlay re-runs localization and draws the outline for visual
// debugging. Failure to encode degrades to an absent overlay.
func (s *Server) renderOverlay(img image.Image) string {
	det := detect.Locate(img, s.pipeline.Options().Detect)

	var quads []geometry.Quad
	if det.Found {
		quads = append(quads, det.Quad)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, detect.Overlay(img, quads)); err != nil {
		s.logger.Printf("server: overlay encode: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
