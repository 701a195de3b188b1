package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"timelinecal/internal/config"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/metrics"
	"timelinecal/internal/model"
	"timelinecal/internal/now"
	"timelinecal/internal/refresh"
	"timelinecal/internal/render"
	"timelinecal/internal/timeline"
)

// maxDays bounds the days query parameter.
const maxDays = 31

// Server provides the timeline HTTP API and the SVG preview.
type Server struct {
	cfg     *config.Config
	store   *refresh.Store
	metrics *metrics.Metrics
	clock   now.Clock
	router  *mux.Router

	// Composed frames for GET requests, keyed by date and day count.
	// Entries die with a store reload or after frameCacheTTL.
	framesMu sync.RWMutex
	frames   map[string]frameCacheEntry
}

type frameCacheEntry struct {
	frame       timeline.Frame
	storeUpdate time.Time
	createdAt   time.Time
}

const (
	frameCacheTTL = 30 * time.Second
	// maxCachedFrames caps the cache; keys come from client query params.
	maxCachedFrames = 64
)

// NewServer constructs a new Server. m and clock may be nil.
func NewServer(cfg *config.Config, store *refresh.Store, m *metrics.Metrics, clock now.Clock) *Server {
	if clock == nil {
		clock = now.SystemClock{}
	}
	if store == nil {
		store = refresh.NewStore()
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		metrics: m,
		clock:   clock,
		router:  mux.NewRouter(),
		frames:  make(map[string]frameCacheEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the full middleware chain: recovery, CORS, request
// logging and (if configured) basic auth around the router.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	h = handlers.CustomLoggingHandler(io.Discard, h, logRequest)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
}

// PreviewHandler serves the routes without authentication or CORS, for
// loopback use by the headless capture.
func (s *Server) PreviewHandler() http.Handler {
	return s.router
}

func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	appLog.Debug("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
	)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	appLog.Error("http handler panic", errors.New(fmt.Sprint(v...)))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="timelinecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.handle("/health", "health", s.handleHealth, http.MethodGet)
	s.handle("/api/timeline", "timeline", s.handleTimeline, http.MethodGet)
	s.handle("/api/events", "events", s.handleEvents, http.MethodGet)
	s.handle("/api/layout", "layout", s.handleLayout, http.MethodPost)
	s.handle("/api/pointer", "pointer", s.handlePointer, http.MethodGet)
	s.handle("/preview.svg", "preview", s.handlePreview, http.MethodGet)
	s.router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
}

func (s *Server) handle(path, route string, fn http.HandlerFunc, methods ...string) {
	s.router.Handle(path, s.metrics.Instrument(route, fn)).Methods(methods...)
}

func (s *Server) metricsHandler() http.Handler {
	if s.metrics == nil {
		return http.NotFoundHandler()
	}
	return s.metrics.Handler()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleTimeline returns the composed frame for stored events.
//
// GET /api/timeline?date=2026-10-19&days=3
//   - date: first displayed day (default today in the configured timezone)
//   - days: number of day columns (default timeline.number_of_days)
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	date, days, err := s.viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := s.cachedFrame(date, days)
	if err != nil {
		writeComposeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type eventsResponse struct {
	Events    []model.Event `json:"events"`
	UpdatedAt time.Time     `json:"updated_at"`
	LastError string        `json:"last_error,omitempty"`
}

// handleEvents returns the stored events of the requested window.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	date, days, err := s.viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updatedAt, lastErr := s.store.Status()
	resp := eventsResponse{
		Events:    s.store.Between(date, date.AddDate(0, 0, days)),
		UpdatedAt: updatedAt,
	}
	if lastErr != nil {
		resp.LastError = lastErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// layoutRequest lays out caller-supplied events without touching the store.
type layoutRequest struct {
	Events   []model.Event          `json:"events"`
	Dates    []string               `json:"dates"`
	Timeline *config.TimelineConfig `json:"timeline,omitempty"`
}

// handleLayout is POST /api/layout.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	loc := s.cfg.Location()
	dates := make([]time.Time, 0, len(req.Dates))
	for _, d := range req.Dates {
		t, err := model.ParseDate(d, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date "+strconv.Quote(d))
			return
		}
		dates = append(dates, t)
	}

	opts := s.cfg.Timeline
	if req.Timeline != nil {
		opts = *req.Timeline
		opts.Normalize()
	}
	if req.Timeline == nil || req.Timeline.NumberOfDays == 0 {
		if len(dates) > 0 {
			opts.NumberOfDays = len(dates)
		}
	}

	f, err := s.compose(req.Events, dates, opts)
	if err != nil {
		writeComposeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type pointerResponse struct {
	timeline.NewEventTime
	Draft model.Event `json:"draft"`
}

// handlePointer resolves a long-press position to a time and a draft event.
//
// GET /api/pointer?x=160&y=950&date=2026-10-19&days=3
// y is in content coordinates (scroll offset already added).
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	date, days, err := s.viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}

	opts := s.cfg.Timeline
	opts.NumberOfDays = days
	nt, err := timeline.Resolve(opts, timeline.ColumnDates([]time.Time{date}, days), x, y)
	if err != nil {
		writeComposeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointerResponse{NewEventTime: nt, Draft: timeline.DraftEvent(nt, "")})
}

// handlePreview renders the stored events as SVG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	date, days, err := s.viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := s.cachedFrame(date, days)
	if err != nil {
		writeComposeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(render.SVG(f, render.DefaultOptions()))
}

// viewParams reads date and days from the query.
func (s *Server) viewParams(r *http.Request) (time.Time, int, error) {
	q := r.URL.Query()
	loc := s.cfg.Location()

	date := model.StartOfDay(s.clock.Now().In(loc))
	if v := q.Get("date"); v != "" {
		t, err := model.ParseDate(v, loc)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
		}
		date = t
	}

	days := parseIntDefault(q.Get("days"), s.cfg.Timeline.NumberOfDays)
	if days < 1 || days > maxDays {
		return time.Time{}, 0, fmt.Errorf("days must be within [1,%d]", maxDays)
	}
	return date, days, nil
}

// cachedFrame composes the stored events for [date, date+days).
func (s *Server) cachedFrame(date time.Time, days int) (timeline.Frame, error) {
	key := model.DateKey(date) + "|" + strconv.Itoa(days)
	storeUpdate, _ := s.store.Status()

	s.framesMu.RLock()
	fc, ok := s.frames[key]
	s.framesMu.RUnlock()
	if ok && fc.storeUpdate.Equal(storeUpdate) && time.Since(fc.createdAt) < frameCacheTTL {
		return fc.frame, nil
	}

	opts := s.cfg.Timeline
	opts.NumberOfDays = days
	events := s.store.Between(date, date.AddDate(0, 0, days))
	f, err := s.compose(events, []time.Time{date}, opts)
	if err != nil {
		return timeline.Frame{}, err
	}

	s.putFrame(key, frameCacheEntry{frame: f, storeUpdate: storeUpdate, createdAt: time.Now()})
	return f, nil
}

// putFrame stores e under key after dropping expired entries and entries
// from an older store load. When still full, the oldest entry goes.
func (s *Server) putFrame(key string, e frameCacheEntry) {
	s.framesMu.Lock()
	defer s.framesMu.Unlock()

	for k, fc := range s.frames {
		if !fc.storeUpdate.Equal(e.storeUpdate) || e.createdAt.Sub(fc.createdAt) >= frameCacheTTL {
			delete(s.frames, k)
		}
	}
	if _, ok := s.frames[key]; !ok && len(s.frames) >= maxCachedFrames {
		oldest := ""
		for k, fc := range s.frames {
			if oldest == "" || fc.createdAt.Before(s.frames[oldest].createdAt) {
				oldest = k
			}
		}
		delete(s.frames, oldest)
	}
	s.frames[key] = e
}

func (s *Server) compose(events []model.Event, dates []time.Time, opts config.TimelineConfig) (timeline.Frame, error) {
	start := time.Now()
	f, err := timeline.Compose(events, dates, opts, s.clock)
	if err != nil {
		return timeline.Frame{}, err
	}
	s.metrics.ObserveCompose(time.Since(start), f.EventCount(), f.RejectedCount())
	return f, nil
}

func writeComposeError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrOutOfRangeConfig) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	appLog.Error("compose failed", err)
	writeError(w, http.StatusInternalServerError, "failed to compose timeline")
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
