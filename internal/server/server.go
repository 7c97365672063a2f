package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cardfolio/cardscan/internal/lookup"
	"github.com/cardfolio/cardscan/internal/scan"
)

// MaxUploadSize bounds the accepted request body. Phone photos of binder
// pages run large; 20 MB leaves headroom without inviting abuse.
const MaxUploadSize = 20 * 1024 * 1024

// Server handles HTTP requests for card scanning.
type Server struct {
	pipeline *scan.Pipeline
	resolver *lookup.Client // nil disables name resolution
	version  string
	logger   *log.Logger
	started  time.Time
}

// New builds a Server around a constructed pipeline. resolver may be nil,
// in which case responses carry recognized names without card metadata. A
// nil logger falls back to the process logger.
func New(pipeline *scan.Pipeline, resolver *lookup.Client, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		pipeline: pipeline,
		resolver: resolver,
		version:  version,
		logger:   logger,
		started:  time.Now(),
	}
}

// Routes builds the HTTP route table.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/scan/card", s.ScanCard).Methods("POST")
	router.HandleFunc("/api/scan/binder", s.ScanBinder).Methods("POST")
	router.HandleFunc("/api/scan/status", s.Status).Methods("GET")
	router.HandleFunc("/health", s.Health).Methods("GET")

	return router
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("server: encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, requestID, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg, RequestID: requestID})
}

// newRequestID tags one request for log correlation.
func newRequestID() string {
	return uuid.NewString()
}
