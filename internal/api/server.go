// Package api exposes the retrieval engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"wayfarer/internal/cache"
	"wayfarer/internal/models"
	"wayfarer/internal/places"
	"wayfarer/internal/score"
)

// Searcher is the engine surface the handlers call.
type Searcher interface {
	SearchActivity(ctx context.Context, activityID string, regions []models.Coordinate) ([]models.Landmark, []models.RegionFailure, error)
	Rank(profile score.Profile, candidates []score.Candidate) ([]models.MatchResult, map[string]string)
}

// PlacesClient is the upstream surface behind the proxy endpoints.
type PlacesClient interface {
	NearbySearch(ctx context.Context, query models.SearchQuery) ([]places.RawPlace, error)
	Details(ctx context.Context, placeID string) (*places.RawPlace, error)
	PhotoURL(photoRef string, maxWidth int) string
}

// Server holds the handler dependencies. The proxy endpoints keep their own
// caches so a browser hammering the UI does not hammer the metered upstream.
type Server struct {
	search       Searcher
	places       PlacesClient
	nearbyCache  *cache.Cache[[]places.RawPlace]
	detailsCache *cache.Cache[places.RawPlace]
	logger       zerolog.Logger
	rateLimit    int
}

func NewServer(search Searcher, pc PlacesClient, cacheTTL time.Duration, rateLimit int, logger zerolog.Logger) *Server {
	return &Server{
		search:       search,
		places:       pc,
		nearbyCache:  cache.New[[]places.RawPlace](cacheTTL),
		detailsCache: cache.New[places.RawPlace](cacheTTL),
		logger:       logger,
		rateLimit:    rateLimit,
	}
}

// Router wires middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.rateLimit > 0 {
		r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/activities", s.handleActivities)
		r.Get("/places/nearbysearch", s.handleNearbySearch)
		r.Get("/places/details", s.handleDetails)
		r.Get("/places/photo", s.handlePhoto)
		r.Post("/search", s.handleSearch)
		r.Post("/rank", s.handleRank)
	})
	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
