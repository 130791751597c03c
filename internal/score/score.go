// Package score ranks candidate destinations against a traveler's
// preference profile using a weighted comparison over five fixed dimensions.
package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"wayfarer/internal/models"
)

// Weights per dimension: exact match, substring containment, miss.
const (
	exactPoints     = 2
	containedPoints = 1
)

// NumDimensions is the fixed size of the profile.
const NumDimensions = 5

// MaxScore is the best possible raw score: every dimension an exact match.
const MaxScore = NumDimensions * exactPoints

// DefaultTopK is the product default for result truncation.
const DefaultTopK = 5

// Profile holds one selected value per preference dimension. The same shape
// serves both the traveler's answers and a candidate's reference answers.
type Profile struct {
	Budget     string `json:"budget"`
	Experience string `json:"experience"`
	Logistics  string `json:"logistics"`
	Social     string `json:"social"`
	Emotional  string `json:"emotional"`
}

func (p Profile) values() [NumDimensions]string {
	return [NumDimensions]string{p.Budget, p.Experience, p.Logistics, p.Social, p.Emotional}
}

// Candidate is a destination with its reference profile.
type Candidate struct {
	ID      string  `json:"id"`
	Profile Profile `json:"profile"`
}

// Score computes the raw match between a traveler and one candidate. Per
// dimension: equal values score 2; a candidate value that contains the
// traveler's value as a substring scores 1 (partial credit for longer
// descriptive values); anything else scores 0. The result is in [0, MaxScore].
func Score(pref, cand Profile) int {
	pv, cv := pref.values(), cand.values()
	total := 0
	for i := 0; i < NumDimensions; i++ {
		switch {
		case cv[i] == pv[i]:
			total += exactPoints
		case strings.Contains(cv[i], pv[i]):
			total += containedPoints
		}
	}
	return total
}

// Rank scores every candidate against pref and returns the top k results in
// descending score order. Ties keep input order. Duplicate candidate ids are
// dropped before scoring, keeping the first occurrence, so the output never
// contains the same id twice. k <= 0 means DefaultTopK.
func Rank(pref Profile, candidates []Candidate, k int) []models.MatchResult {
	if k <= 0 {
		k = DefaultTopK
	}

	seen := make(map[string]struct{}, len(candidates))
	results := make([]models.MatchResult, 0, len(candidates))
	for _, cand := range candidates {
		if _, dup := seen[cand.ID]; dup {
			continue
		}
		seen[cand.ID] = struct{}{}
		results = append(results, models.MatchResult{
			CandidateID: cand.ID,
			Score:       Score(pref, cand.Profile),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// PercentMatches derives presentational "NN%" strings per candidate id.
// Never fed back into sorting.
func PercentMatches(results []models.MatchResult) map[string]string {
	out := make(map[string]string, len(results))
	for _, r := range results {
		pct := math.Round(float64(r.Score) / MaxScore * 100)
		out[r.CandidateID] = fmt.Sprintf("%d%%", int(pct))
	}
	return out
}
