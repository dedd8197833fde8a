package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	config "github.com/mwantia/linkfilter/internal/config/server"
	"github.com/mwantia/linkfilter/pkg/db/store"
	"github.com/mwantia/linkfilter/pkg/log"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderRequestID = "X-Request-ID"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

// Server serves the shared link API
type Server struct {
	store  store.LinkStore
	log    log.LoggerService
	cfg    config.HTTPServerConfig
	access bool
	router *mux.Router

	// now is replaced in tests
	now func() time.Time
}

// NewServer creates a new API server and registers its routes
func NewServer(links store.LinkStore, logger log.LoggerService, cfg *config.BaseServerConfig) *Server {
	s := &Server{
		store:  links,
		log:    logger,
		cfg:    cfg.HTTP,
		access: cfg.Log.Access,
		router: mux.NewRouter(),
		now:    time.Now,
	}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.router.Use(s.requestID, s.accessLog, s.authenticate)

	// Shared links
	s.router.HandleFunc("/api/shared_links", s.ListLinks).Methods("GET")
	s.router.HandleFunc("/api/shared_links", s.CreateLink).Methods("POST")
	s.router.HandleFunc("/api/shared_links/{id:[0-9]+}", s.GetLink).Methods("GET")
	s.router.HandleFunc("/api/shared_links/{id:[0-9]+}", s.UpdateLink).Methods("PATCH")
	s.router.HandleFunc("/api/shared_links/{id:[0-9]+}/visit", s.VisitLink).Methods("POST")

	// Filter DSL
	s.router.HandleFunc("/api/filter/parse", s.ParseFilter).Methods("GET")
	s.router.HandleFunc("/api/filter/format", s.FormatFilter).Methods("POST")
	s.router.HandleFunc("/api/filter/translate", s.TranslatePreset).Methods("GET")
	s.router.HandleFunc("/api/filter/items", s.ListItems).Methods("GET")

	// Saved searches
	s.router.HandleFunc("/api/searches", s.ListSearches).Methods("GET")
	s.router.HandleFunc("/api/searches", s.CreateSearch).Methods("POST")
	s.router.HandleFunc("/api/searches/{name}", s.GetSearch).Methods("GET")
	s.router.HandleFunc("/api/searches/{name}", s.DeleteSearch).Methods("DELETE")
	s.router.HandleFunc("/api/searches/{name}/links", s.RunSearch).Methods("GET")

	s.router.HandleFunc("/health", s.Health).Methods("GET")
}

// Handler returns the HTTP handler for the API server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Health(r.Context()); err != nil {
		s.fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate takes the user from the X-User-ID header and falls back to
// the configured default user
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			userID = s.cfg.DefaultUser
		}
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+HeaderUserID+" header")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.access {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info("%s %s %d %s [%s]", r.Method, r.URL.RequestURI(), rec.status,
			time.Since(start).Round(time.Microsecond), requestIDFrom(r))
	})
}

func userFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail logs server side failures and answers with the request id so the log
// line can be found again
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s failed [%s]: %v", r.Method, r.URL.Path, requestIDFrom(r), err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestIDFrom(r)})
}
