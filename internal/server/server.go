package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"airwatch/internal/aqi"
	"airwatch/internal/database"
	"airwatch/internal/forecast"
	"airwatch/internal/location"
	"airwatch/internal/metrics"
	"airwatch/internal/models"
	"airwatch/internal/service"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type FavoriteRequest struct {
	Location string `json:"location"`
}

type SettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Server represents the HTTP server
type Server struct {
	svc    *service.Service
	db     *database.DB
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates a new HTTP server. db may be nil, in which case the
// endpoints backed by storage answer 503.
func NewServer(svc *service.Service, db *database.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		db:     db,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	// Register routes
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/aqi", s.handleAQI)
	s.mux.HandleFunc("/report", s.handleReport)
	s.mux.HandleFunc("/forecast", s.handleForecast)
	s.mux.HandleFunc("/train", s.handleTrain)
	s.mux.HandleFunc("/locations", s.handleLocations)
	s.mux.HandleFunc("/compare", s.handleCompare)
	s.mux.HandleFunc("/measurements", s.handleMeasurements)
	s.mux.HandleFunc("/snapshots", s.handleSnapshots)
	s.mux.HandleFunc("/favorites", s.handleFavorites)
	s.mux.HandleFunc("/history", s.handleHistory)
	s.mux.HandleFunc("/settings", s.handleSettings)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the routes wrapped with access logging, panic recovery and
// request metrics. Access log lines go to out.
func (s *Server) Handler(out io.Writer) http.Handler {
	var h http.Handler = s.instrument(s.mux)
	h = handlers.LoggingHandler(out, h)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
}

// Start starts the HTTP server and shuts it down when ctx is done.
func (s *Server) Start(ctx context.Context, addr string, requestTimeout time.Duration, accessLog io.Writer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.TimeoutHandler(s.Handler(accessLog), requestTimeout, "request timed out"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by registered route so that unknown paths share
// one series.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := s.route(r)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordAPIRequest(route, rec.code)
	})
}

// route returns the mux pattern that serves r, or "other" when none does.
func (s *Server) route(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "other"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, aqi.ErrUnsupportedPollutant),
		errors.Is(err, aqi.ErrInvalidConcentration),
		errors.Is(err, location.ErrQueryTooShort),
		errors.Is(err, service.ErrNoLocations),
		errors.Is(err, forecast.ErrInvalidHorizon):
		return http.StatusBadRequest
	case errors.Is(err, location.ErrUnknownLocation),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, forecast.ErrInsufficientHistory),
		errors.Is(err, forecast.ErrDataGapTooLarge),
		errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, service.ErrNoData):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage is not configured"})
		return false
	}
	return true
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

// handleAQI converts a single concentration to AQI with its advisory.
func (s *Server) handleAQI(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	conc, err := strconv.ParseFloat(q.Get("concentration"), 64)
	if err != nil {
		badRequest(w, "concentration must be a number")
		return
	}

	res, err := s.svc.ComputeAQI(q.Get("pollutant"), conc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	name := r.URL.Query().Get("location")
	if name == "" {
		badRequest(w, "location is required")
		return
	}

	report, err := s.svc.Report(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	if q.Get("location") == "" {
		badRequest(w, "location is required")
		return
	}
	pollutant := q.Get("pollutant")
	if pollutant == "" {
		pollutant = string(aqi.PM25)
	}
	horizon, err := intParam(r, "horizon", 0)
	if err != nil {
		badRequest(w, "horizon must be an integer")
		return
	}

	report, err := s.svc.Forecast(r.Context(), q.Get("location"), pollutant, horizon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleTrain retrains one series on demand.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	q := r.URL.Query()
	if q.Get("location") == "" || q.Get("pollutant") == "" {
		badRequest(w, "location and pollutant are required")
		return
	}

	tm, err := s.svc.Train(r.Context(), q.Get("location"), q.Get("pollutant"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tm)
}

// handleLocations lists the monitored locations, or the one nearest to
// lat/lon when both are given.
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	if q.Has("q") {
		limit, err := intParam(r, "limit", location.DefaultSearchLimit)
		if err != nil {
			badRequest(w, "limit must be an integer")
			return
		}
		locs, err := s.svc.Search(q.Get("q"), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"query":     q.Get("q"),
			"count":     len(locs),
			"locations": locs,
		})
		return
	}
	if q.Get("lat") == "" && q.Get("lon") == "" {
		locs := s.svc.Locations()
		writeJSON(w, http.StatusOK, map[string]any{
			"count":     len(locs),
			"locations": locs,
		})
		return
	}

	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		badRequest(w, "lat and lon must be numbers")
		return
	}
	if lat < -90 || lat > 90 {
		badRequest(w, "Latitude must be between -90 and 90")
		return
	}
	if lon < -180 || lon > 180 {
		badRequest(w, "Longitude must be between -180 and 180")
		return
	}

	loc, km := s.svc.Nearest(lat, lon)
	writeJSON(w, http.StatusOK, map[string]any{
		"location":    loc,
		"distance_km": km,
	})
}

// handleCompare ranks locations by their dominant AQI.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	var names []string
	for _, name := range strings.Split(r.URL.Query().Get("locations"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		badRequest(w, "locations parameter is required")
		return
	}

	rows, err := s.svc.Compare(r.Context(), names)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(rows),
		"locations": rows,
	})
}

// handleMeasurements returns stored readings of one pollutant.
func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) || !s.requireDB(w) {
		return
	}
	q := r.URL.Query()
	loc, err := s.svc.Location(q.Get("location"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := aqi.ParsePollutant(q.Get("pollutant"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hours, err := intParam(r, "hours", 24)
	if err != nil || hours <= 0 {
		badRequest(w, "hours must be a positive integer")
		return
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	ms, err := s.db.GetMeasurements(r.Context(), loc.Name, p, since)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ms == nil {
		ms = []models.Measurement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location":  loc.Name,
		"pollutant": p,
		"hours":     hours,
		"count":     len(ms),
		"data":      ms,
	})
}

// handleSnapshots returns the recorded AQI of a location, newest first.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) || !s.requireDB(w) {
		return
	}
	loc, err := s.svc.Location(r.URL.Query().Get("location"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", 100)
	if err != nil || limit <= 0 {
		badRequest(w, "limit must be a positive integer")
		return
	}

	snaps, err := s.db.GetAQISnapshots(r.Context(), loc.Name, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []models.AQISnapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(snaps),
		"snapshots": snaps,
	})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) || !s.requireDB(w) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		favs, err := s.db.GetFavorites(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if favs == nil {
			favs = []models.Favorite{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":     len(favs),
			"favorites": favs,
		})

	case http.MethodPost:
		var req FavoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid request body: "+err.Error())
			return
		}
		loc, err := s.svc.Location(req.Location)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		fav := &models.Favorite{
			LocationID: loc.ID(),
			Name:       loc.Name,
			Country:    loc.Country,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
		}
		if err := s.db.AddFavorite(r.Context(), fav); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, fav)

	case http.MethodDelete:
		loc, err := s.svc.Location(r.URL.Query().Get("location"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.db.RemoveFavorite(r.Context(), loc.ID()); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodDelete) || !s.requireDB(w) {
		return
	}

	if r.Method == http.MethodDelete {
		if err := s.db.ClearHistory(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	limit, err := intParam(r, "limit", 50)
	if err != nil || limit <= 0 {
		badRequest(w, "limit must be a positive integer")
		return
	}
	entries, err := s.db.GetHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"history": entries,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPut) || !s.requireDB(w) {
		return
	}

	if r.Method == http.MethodPut {
		var req SettingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid request body: "+err.Error())
			return
		}
		if req.Key == "" {
			badRequest(w, "key is required")
			return
		}
		if err := s.db.SetSetting(r.Context(), req.Key, req.Value); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	settings, err := s.db.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
