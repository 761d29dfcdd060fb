package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"rcjcal/internal/cache"
	"rcjcal/internal/config"
	"rcjcal/internal/feed"
	"rcjcal/internal/ics"
	appLog "rcjcal/internal/log"
	"rcjcal/internal/metrics"
	"rcjcal/internal/model"
	"rcjcal/internal/region"
)

// SnapshotReader is the read side of the events cache.
type SnapshotReader interface {
	Current() (*model.Snapshot, error)
}

// Server exposes the calendar feed, the JSON listing and the regional
// landing page APIs over HTTP. Handlers only read the cache.
type Server struct {
	cfg     *config.Config
	cache   SnapshotReader
	regions *config.RegionStore
	loc     *time.Location
	now     func() time.Time
	mux     *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, c SnapshotReader, regions *config.RegionStore) *Server {
	s := &Server{
		cfg:     cfg,
		cache:   c,
		regions: regions,
		loc:     cfg.Location(),
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server, wrapped with
// access logging and CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(accessLog(s.mux))
}

// StartServer serves until ctx is cancelled and then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, c SnapshotReader, regions *config.RegionStore) error {
	s := NewServer(cfg, c, regions)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /file", s.handleCalendarFile)
	s.mux.HandleFunc("GET /api/events/json", s.handleEventsJSON)
	s.mux.HandleFunc("GET /api/regions", s.handleTerritories)
	s.mux.HandleFunc("GET /api/{code}/regions", s.handleRegionView)
	s.mux.HandleFunc("GET /api/{code}/config", s.handleRegionConfig)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendarFile serves the ICS feed.
//
// GET /file?regions=VIC,NSW&hide=workshops
//   - regions: territory codes to include (default: all)
//   - hide:    "competitions" or "workshops"
//
// National events are added whenever an Australian territory is requested.
func (s *Server) handleCalendarFile(w http.ResponseWriter, r *http.Request) {
	events, ok := s.selectEvents(w, r, true)
	if !ok {
		return
	}

	body, err := ics.Render(events, ics.Options{
		Name:         s.cfg.CalendarName,
		Timezone:     s.cfg.Timezone,
		EventURLBase: s.cfg.EventURLBase,
		Now:          s.now(),
	})
	if err != nil {
		appLog.Error("calendar render failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleEventsJSON serves the flat JSON listing. Same parameters as /file,
// without the national inclusion rule.
func (s *Server) handleEventsJSON(w http.ResponseWriter, r *http.Request) {
	events, ok := s.selectEvents(w, r, false)
	if !ok {
		return
	}

	records, err := feed.Project(events)
	if err != nil {
		appLog.Error("json projection failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) selectEvents(w http.ResponseWriter, r *http.Request, includeNational bool) ([]model.Event, bool) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return nil, false
	}

	q := r.URL.Query()
	events, err := feed.Select(snap, feed.Query{
		Regions:         feed.ParseRegions(q.Get("regions")),
		Hide:            q.Get("hide"),
		IncludeNational: includeNational,
	})
	if err != nil {
		if errors.Is(err, feed.ErrInvalidTerritory) {
			writeError(w, http.StatusBadRequest, "Invalid state code(s) provided.")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return events, true
}

// currentSnapshot writes 503 and reports false while the cache is empty.
func (s *Server) currentSnapshot(w http.ResponseWriter) (*model.Snapshot, bool) {
	snap, err := s.cache.Current()
	if err != nil {
		if errors.Is(err, cache.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, "Events cache is not yet populated, please try again shortly.")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return snap, true
}

func (s *Server) handleTerritories(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.cache.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "States cache is not yet populated, please try again shortly.")
		return
	}
	writeJSON(w, http.StatusOK, snap.Territories)
}

// handleRegionView returns a territory's upcoming events grouped by region.
func (s *Server) handleRegionView(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("code"))

	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}

	cfg, ok := s.regions.Lookup(code)
	if !ok {
		writeError(w, http.StatusNotFound, "Regional page not available for state: "+code)
		return
	}

	view, err := region.Build(snap, cfg, s.now().In(s.loc))
	if err != nil {
		if errors.Is(err, region.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, code+" events are not yet available, please try again shortly.")
			return
		}
		appLog.Error("region projection failed", err, "territory", code)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// regionConfigResponse is the public part of a territory's region
// configuration. Keywords are not exposed.
type regionConfigResponse struct {
	Title        string            `json:"title"`
	Year         string            `json:"year"`
	RegionOrder  []string          `json:"regionOrder"`
	RegionTitles map[string]string `json:"regionTitles"`
}

func (s *Server) handleRegionConfig(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("code"))

	cfg, ok := s.regions.Lookup(code)
	if !ok {
		writeError(w, http.StatusNotFound, "Regional page not available for state: "+code)
		return
	}

	writeJSON(w, http.StatusOK, regionConfigResponse{
		Title:        cfg.Title,
		Year:         strconv.Itoa(s.now().In(s.loc).Year()),
		RegionOrder:  cfg.RegionOrder(),
		RegionTitles: cfg.RegionTitles(),
	})
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

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// accessLog writes one line per request and counts it by route and status.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()

		appLog.Info("http request",
			"status", rec.status,
			"method", r.Method,
			"url", r.URL.RequestURI(),
			"elapsed", time.Since(start),
			"forwarded_for", r.Header.Get("X-Forwarded-For"),
		)
	})
}
