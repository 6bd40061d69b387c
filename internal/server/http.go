package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coffersTech/nanotrace/internal/frame"
	"github.com/coffersTech/nanotrace/internal/logger"
	"github.com/coffersTech/nanotrace/internal/trace"
)

// ViewerServer serves one loaded trace table over a read-only JSON API.
// The table never changes after construction, so handlers need no
// locking.
type ViewerServer struct {
	frame   *frame.Frame
	summary trace.Summary
	source  string
	log     *logger.Logger
	srv     *http.Server
}

func NewViewerServer(f *frame.Frame, source string, log *logger.Logger) *ViewerServer {
	return &ViewerServer{
		frame:   f,
		summary: trace.Summarize(f),
		source:  source,
		log:     log,
	}
}

// Handler builds the route table. Exposed separately from Start so
// tests can drive it without a listener.
func (s *ViewerServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/roles", s.handleRoles)
	mux.HandleFunc("/api/machines", s.handleMachines)
	mux.HandleFunc("/api/columns", s.handleColumns)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/histogram", s.handleHistogram)
	mux.HandleFunc("/healthz", s.handleHealth)

	return s.requestLog(mux)
}

// Start runs the HTTP server.
func (s *ViewerServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *ViewerServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// requestLog tags every request with an ID and logs its outcome.
func (s *ViewerServer) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Infof("%s %s", r.Method, r.URL.Path)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// handleEvents returns filtered rows as JSON objects, in row order.
func (s *ViewerServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	flt := parseFilter(q)

	// Parse limit parameter (default 100)
	limit := 100
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	rows := trace.Select(s.frame, flt, offset, limit)
	events := make([]map[string]string, len(rows))
	for i, rec := range rows {
		ev := make(map[string]string, len(rec))
		for _, fd := range rec {
			ev[fd.Key] = fd.Value
		}
		events[i] = ev
	}

	s.writeJSON(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (s *ViewerServer) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roles, err := trace.Roles(s.frame)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]interface{}{"roles": emptyIfNil(roles)})
}

func (s *ViewerServer) handleMachines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	machines, err := trace.Machines(s.frame)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]interface{}{"machines": emptyIfNil(machines)})
}

func (s *ViewerServer) handleColumns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{"columns": emptyIfNil(s.frame.Columns())})
}

// handleStats returns the precomputed summary of the loaded trace.
func (s *ViewerServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"source":  s.source,
		"summary": s.summary,
	})
}

func (s *ViewerServer) handleHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	// Bucket width in trace seconds (default 1s)
	width := 1.0
	if v := q.Get("width"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			width = parsed
		}
	}

	points := trace.Histogram(s.frame, parseFilter(q), width)
	if points == nil {
		points = []trace.HistogramPoint{}
	}
	s.writeJSON(w, points)
}

func (s *ViewerServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status": "ok",
		"events": s.frame.Len(),
	})
}

func parseFilter(q url.Values) trace.Filter {
	return trace.Filter{
		Type:     q.Get("type"),
		Severity: q.Get("severity"),
		Role:     q.Get("role"),
		Machine:  q.Get("machine"),
		Contains: q.Get("q"),
	}
}

func (s *ViewerServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("JSON encode error")
	}
}

func emptyIfNil(vals []string) []string {
	if vals == nil {
		return []string{}
	}
	return vals
}
