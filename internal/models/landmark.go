package models

import (
	"fmt"
	"strconv"
	"strings"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the coordinate in the "lat,lng" form used by the upstream API.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// IsZero reports whether the coordinate is the (0,0) "unknown location"
// sentinel. Callers must not treat it as a real point.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Landmark is the canonical point-of-interest entity. After normalization
// ID and Name are never empty, so downstream code never branches on a
// missing landmark.
type Landmark struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Location           Coordinate `json:"location"`
	ImageURL           string     `json:"imageUrl"`
	Rating             float64    `json:"rating"`
	PriceTier          int        `json:"priceTier"`
	PrimaryType        string     `json:"type"`
	EstimatedVisitDays float64    `json:"estimatedDays"`
}

// SearchQuery identifies one upstream nearby search. It is immutable and its
// canonical serialization doubles as the cache key.
type SearchQuery struct {
	Location     Coordinate
	RadiusMeters int
	Category     string
	Keyword      string
}

// CacheKey returns the canonical serialization of the query. Field order is
// fixed so identical queries always collide.
func (q SearchQuery) CacheKey() string {
	var b strings.Builder
	b.WriteString("places:")
	b.WriteString(q.Location.String())
	fmt.Fprintf(&b, ":r=%d", q.RadiusMeters)
	b.WriteString(":type=")
	b.WriteString(q.Category)
	b.WriteString(":kw=")
	b.WriteString(q.Keyword)
	return b.String()
}

// MatchResult pairs a candidate with its score and final position.
type MatchResult struct {
	CandidateID string `json:"candidateId"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}

// RegionFailure records why one region of a multi-region search produced no
// results. It is a soft warning, not a blocking error.
type RegionFailure struct {
	Region Coordinate `json:"region"`
	Reason string     `json:"reason"`
}
