// Package api exposes the sidecar HTTP surface: the current configuration
// snapshot with ETag revalidation, and remote evaluation for callers that
// cannot embed the SDK.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TimurManjosov/configship/internal/auth"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/internal/telemetry"
)

type Server struct {
	store          *snapshot.Store
	logger         *slog.Logger
	rateLimitPerIP int
	apiKey         string // empty disables bearer auth on /v1
}

func NewServer(store *snapshot.Store, rateLimitPerIP int, apiKey string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, logger: logger, rateLimitPerIP: rateLimitPerIP, apiKey: apiKey}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(telemetry.Middleware)
	if s.rateLimitPerIP > 0 {
		r.Use(httprate.Limit(s.rateLimitPerIP, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, req *http.Request) {
				writeError(w, req, http.StatusTooManyRequests, ErrCodeRateLimited, "rate limit exceeded")
			}),
		))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireKey(s.apiKey))

		// current snapshot (ETag)
		r.Get("/v1/configuration", func(w http.ResponseWriter, req *http.Request) {
			snap, err := s.store.Current()
			if err != nil {
				writeError(w, req, http.StatusServiceUnavailable, ErrCodeNoSnapshot, "no configuration snapshot available yet")
				return
			}
			if inm := req.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("ETag", snap.ETag)
			_ = json.NewEncoder(w).Encode(newSnapshotView(snap))
		})

		r.Post("/v1/evaluate", s.handleEvaluate)
	})

	return r
}

// recoverer turns a handler panic into the structured error envelope instead
// of a bare 500. http.ErrAbortHandler is re-raised so aborted responses keep
// their net/http semantics.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler", "panic", rec, "path", req.URL.Path)
				writeError(w, req, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, req)
	})
}

// snapshotView is the wire shape of GET /v1/configuration.
type snapshotView struct {
	EnvironmentID string    `json:"environmentId"`
	CollectionID  string    `json:"collectionId"`
	ETag          string    `json:"etag"`
	Features      []string  `json:"features"`
	Properties    []string  `json:"properties"`
	Segments      []string  `json:"segments"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newSnapshotView(snap *snapshot.Snapshot) snapshotView {
	view := snapshotView{
		EnvironmentID: snap.EnvironmentID,
		CollectionID:  snap.CollectionID,
		ETag:          snap.ETag,
		UpdatedAt:     snap.UpdatedAt,
	}
	for id := range snap.Features {
		view.Features = append(view.Features, id)
	}
	for id := range snap.Properties {
		view.Properties = append(view.Properties, id)
	}
	for id := range snap.Segments {
		view.Segments = append(view.Segments, id)
	}
	sort.Strings(view.Features)
	sort.Strings(view.Properties)
	sort.Strings(view.Segments)
	return view
}
