package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/time/rate"

	"mediagate/internal/core/domain"
	"mediagate/internal/core/ports"
)

type HTTPHandler struct {
	service ports.Gateway
	limiter *rate.Limiter
}

func NewHTTPHandler(s ports.Gateway, ratePerSecond float64, burst int) *HTTPHandler {
	return &HTTPHandler{
		service: s,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Register wires the API routes onto mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/extract", h.limit(h.HandleExtract))
	mux.HandleFunc("POST /api/download", h.limit(h.HandleDownload))
	mux.HandleFunc("POST /api/download_format", h.limit(h.HandleDownloadFormat))
	mux.HandleFunc("POST /api/download_photo", h.limit(h.HandleDownloadPhoto))
	mux.HandleFunc("GET /api/health", h.HandleHealth)
}

func (h *HTTPHandler) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			writeErrorBody(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}

func (h *HTTPHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	info, err := h.service.ExtractInfo(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (h *HTTPHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	req.FormatID = ""
	h.streamResponse(w, r, func(sink ports.ResponseSink) error {
		return h.service.Download(r.Context(), req, sink)
	})
}

func (h *HTTPHandler) HandleDownloadFormat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	h.streamResponse(w, r, func(sink ports.ResponseSink) error {
		return h.service.Download(r.Context(), req, sink)
	})
}

func (h *HTTPHandler) HandleDownloadPhoto(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	h.streamResponse(w, r, func(sink ports.ResponseSink) error {
		return h.service.DownloadPhoto(r.Context(), req.URL, sink)
	})
}

func (h *HTTPHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// streamResponse runs a download operation against a response sink. If the
// pipeline fails before the first byte an error body is sent; after that
// the body is already partially written and can only be truncated.
func (h *HTTPHandler) streamResponse(w http.ResponseWriter, r *http.Request, run func(ports.ResponseSink) error) {
	sink := newResponseSink(w)
	err := run(sink)
	if err == nil {
		return
	}
	if sink.started {
		log.Printf("stream truncated after %d bytes: %v", sink.written, err)
		return
	}
	writeError(w, err)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (domain.DownloadRequest, bool) {
	var req domain.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorBody(w, http.StatusBadRequest, string(domain.KindBadRequest), "invalid request body")
		return req, false
	}
	if req.URL == "" {
		writeErrorBody(w, http.StatusBadRequest, string(domain.KindBadRequest), "url is required")
		return req, false
	}
	return req, true
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	writeErrorBody(w, statusFor(kind), string(kind), err.Error())
}

func writeErrorBody(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   kind,
		"message": message,
	})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindBadRequest, domain.KindUnsupportedPlatform:
		return http.StatusBadRequest
	case domain.KindContentNotFound, domain.KindFormatNotFound:
		return http.StatusNotFound
	case domain.KindServiceBusy:
		return http.StatusServiceUnavailable
	case domain.KindRelayTimeout, domain.KindRequestTimeout:
		return http.StatusGatewayTimeout
	case domain.KindUpstreamUnavailable, domain.KindUpstreamRead:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// responseSink adapts http.ResponseWriter to the relay's sink port.
type responseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
	written int64
}

func newResponseSink(w http.ResponseWriter) *responseSink {
	flusher, _ := w.(http.Flusher)
	return &responseSink{w: w, flusher: flusher}
}

func (s *responseSink) Start(contentType, filename string, size int64) {
	s.started = true
	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if size > 0 {
		s.w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	s.w.WriteHeader(http.StatusOK)
}

func (s *responseSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.written += int64(n)
	return n, err
}

func (s *responseSink) Flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
