package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"wayfarer/internal/engine"
	"wayfarer/internal/models"
	"wayfarer/internal/places"
	"wayfarer/internal/score"
)

const (
	defaultRadiusMeters = 50_000
	defaultPhotoWidth   = 400
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"activities": engine.Activities()})
}

func (s *Server) handleNearbySearch(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	results, err := s.nearbyCache.GetOrFetch(r.Context(), query.CacheKey(), func(ctx context.Context) ([]places.RawPlace, error) {
		return s.places.NearbySearch(ctx, query)
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	if results == nil {
		results = []places.RawPlace{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "OK",
		"results": results,
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	placeID := r.URL.Query().Get("place_id")
	if placeID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "invalid query", "place_id is required")
		return
	}

	result, err := s.detailsCache.GetOrFetch(r.Context(), "details:"+placeID, func(ctx context.Context) (places.RawPlace, error) {
		raw, err := s.places.Details(ctx, placeID)
		if err != nil {
			return places.RawPlace{}, err
		}
		return *raw, nil
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "OK",
		"result": result,
	})
}

// handlePhoto redirects to the constructed photo URL. Image bytes are never
// fetched or decoded here.
func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("photo_reference")
	if ref == "" {
		writeErrorMsg(w, http.StatusBadRequest, "invalid query", "photo_reference is required")
		return
	}
	maxWidth := defaultPhotoWidth
	if raw := r.URL.Query().Get("maxwidth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErrorMsg(w, http.StatusBadRequest, "invalid query", "maxwidth must be a positive integer")
			return
		}
		maxWidth = n
	}
	http.Redirect(w, r, s.places.PhotoURL(ref, maxWidth), http.StatusFound)
}

type searchRequest struct {
	Activity string              `json:"activity"`
	Regions  []models.Coordinate `json:"regions"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if req.Activity == "" || len(req.Regions) == 0 {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body", "activity and regions are required")
		return
	}

	landmarks, failed, err := s.search.SearchActivity(r.Context(), req.Activity, req.Regions)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "search failed", err.Error())
		return
	}
	if landmarks == nil {
		landmarks = []models.Landmark{}
	}
	if failed == nil {
		failed = []models.RegionFailure{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"landmarks":     landmarks,
		"failedRegions": failed,
	})
}

type rankRequest struct {
	Profile    score.Profile     `json:"profile"`
	Candidates []score.Candidate `json:"candidates"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}

	results, percents := s.search.Rank(req.Profile, req.Candidates)
	if results == nil {
		results = []models.MatchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":        results,
		"percentMatches": percents,
	})
}

func parseSearchQuery(values url.Values) (models.SearchQuery, error) {
	loc, err := parseLocation(values.Get("location"))
	if err != nil {
		return models.SearchQuery{}, err
	}
	query := models.SearchQuery{
		Location:     loc,
		RadiusMeters: defaultRadiusMeters,
		Category:     values.Get("type"),
		Keyword:      values.Get("keyword"),
	}
	if raw := values.Get("radius"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return models.SearchQuery{}, errors.New("radius must be a positive integer")
		}
		query.RadiusMeters = n
	}
	return query, nil
}

func parseLocation(raw string) (models.Coordinate, error) {
	latRaw, lngRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return models.Coordinate{}, errors.New(`location must be "lat,lng"`)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return models.Coordinate{}, errors.New("location latitude is not a number")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return models.Coordinate{}, errors.New("location longitude is not a number")
	}
	return models.Coordinate{Lat: lat, Lng: lng}, nil
}

// writeUpstreamError maps the fetch taxonomy onto HTTP: timeouts become 504,
// everything else upstream-related becomes 502.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	kind, ok := places.ErrKind(err)
	if ok && kind == places.KindTimeout {
		status = http.StatusGatewayTimeout
	}
	s.logger.Warn().Err(err).Msg("upstream fetch failed")
	writeErrorMsg(w, status, "upstream fetch failed", err.Error())
}

func writeErrorMsg(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
