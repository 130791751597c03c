// Package engine composes the places client, fetch cache, normalizer and
// scorer into the single "search near these coordinates for activity X"
// operation the UI consumes.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wayfarer/internal/cache"
	"wayfarer/internal/eventfeed"
	"wayfarer/internal/models"
	"wayfarer/internal/normalize"
	"wayfarer/internal/places"
	"wayfarer/internal/score"
)

// PlacesAPI is the slice of the places client the orchestrator uses.
type PlacesAPI interface {
	NearbySearch(ctx context.Context, query models.SearchQuery) ([]places.RawPlace, error)
}

// Config tunes one orchestrator instance.
type Config struct {
	// RadiusMeters is the search radius applied to every region query.
	RadiusMeters int
	// TopK bounds Rank output.
	TopK int
	// RegionRetries is how many times a failed region fetch is retried.
	// Zero means fail fast and report the region.
	RegionRetries int
	// RetryBackoff is the initial backoff between retries; it doubles per
	// attempt.
	RetryBackoff time.Duration
}

const (
	defaultRadiusMeters = 50_000
	defaultRetryBackoff = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.RadiusMeters <= 0 {
		c.RadiusMeters = defaultRadiusMeters
	}
	if c.TopK <= 0 {
		c.TopK = score.DefaultTopK
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	return c
}

// Orchestrator owns the accumulated candidate pool. Selecting another region
// adds to the visible set; it never clears it. Safe for concurrent callers.
type Orchestrator struct {
	client PlacesAPI
	cache  *cache.Cache[[]models.Landmark]
	norm   *normalize.Normalizer
	feed   eventfeed.Publisher
	logger zerolog.Logger
	cfg    Config

	mu   sync.Mutex
	pool []models.Landmark
	seen map[string]struct{}
}

// New wires an orchestrator. feed may be nil for no event publishing.
func New(client PlacesAPI, c *cache.Cache[[]models.Landmark], norm *normalize.Normalizer, feed eventfeed.Publisher, logger zerolog.Logger, cfg Config) *Orchestrator {
	if feed == nil {
		feed = eventfeed.Noop{}
	}
	return &Orchestrator{
		client: client,
		cache:  c,
		norm:   norm,
		feed:   feed,
		logger: logger,
		cfg:    cfg.withDefaults(),
		seen:   make(map[string]struct{}),
	}
}

// SearchActivity fetches landmarks for one activity across the selected
// regions and folds them into the pool. Regions are fetched concurrently but
// merged in selection order. A failed region never aborts the others; it is
// reported in the second return value. The returned slice is a copy of the
// whole accumulated pool; callers may not reach cached state through it.
func (o *Orchestrator) SearchActivity(ctx context.Context, activityID string, regions []models.Coordinate) ([]models.Landmark, []models.RegionFailure, error) {
	activity, err := lookupActivity(activityID)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()

	results := make([][]models.Landmark, len(regions))
	errs := make([]error, len(regions))

	var wg sync.WaitGroup
	for i, region := range regions {
		wg.Add(1)
		go func(i int, region models.Coordinate) {
			defer wg.Done()
			query := models.SearchQuery{
				Location:     region,
				RadiusMeters: o.cfg.RadiusMeters,
				Category:     activity.Category,
				Keyword:      activity.Keyword,
			}
			results[i], errs[i] = o.fetchRegion(ctx, query)
		}(i, region)
	}
	wg.Wait()

	var failures []models.RegionFailure
	merged := 0
	o.mu.Lock()
	for i, region := range regions {
		if errs[i] != nil {
			o.logger.Warn().Err(errs[i]).Str("region", region.String()).Str("activity", activityID).Msg("region fetch failed")
			failures = append(failures, models.RegionFailure{Region: region, Reason: failureReason(errs[i])})
			continue
		}
		for _, lm := range results[i] {
			if _, dup := o.seen[lm.ID]; dup {
				continue
			}
			o.seen[lm.ID] = struct{}{}
			o.pool = append(o.pool, lm)
			merged++
		}
	}
	snapshot := make([]models.Landmark, len(o.pool))
	copy(snapshot, o.pool)
	o.mu.Unlock()

	o.publish(ctx, eventfeed.Event{
		Activity:      activityID,
		Regions:       len(regions),
		Landmarks:     merged,
		FailedRegions: len(failures),
		Duration:      time.Since(start),
	})
	return snapshot, failures, nil
}

// Rank scores candidates against the traveler's profile.
func (o *Orchestrator) Rank(profile score.Profile, candidates []score.Candidate) ([]models.MatchResult, map[string]string) {
	results := score.Rank(profile, candidates, o.cfg.TopK)
	return results, score.PercentMatches(results)
}

// Reset drops the accumulated pool. Cached fetches survive.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pool = nil
	o.seen = make(map[string]struct{})
}

// fetchRegion runs one region's query through the cache, retrying per
// config. The cache guarantees at most one live upstream call per key no
// matter how many regions or callers collide.
func (o *Orchestrator) fetchRegion(ctx context.Context, query models.SearchQuery) ([]models.Landmark, error) {
	fetch := func(ctx context.Context) ([]models.Landmark, error) {
		raws, err := o.client.NearbySearch(ctx, query)
		if err != nil {
			return nil, err
		}
		return o.norm.Landmarks(raws), nil
	}

	var lastErr error
	for attempt := 0; attempt <= o.cfg.RegionRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, o.cfg.RetryBackoff<<(attempt-1)); err != nil {
				return nil, err
			}
		}
		landmarks, err := o.cache.GetOrFetch(ctx, query.CacheKey(), fetch)
		if err == nil {
			return landmarks, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (o *Orchestrator) publish(ctx context.Context, ev eventfeed.Event) {
	if err := o.feed.Publish(ctx, ev); err != nil {
		o.logger.Warn().Err(err).Msg("event feed publish failed")
	}
}

// failureReason collapses an error to its taxonomy name for the caller; the
// full chain stays in the logs. Reasons are always taxonomy names, never raw
// error strings.
func failureReason(err error) string {
	if kind, ok := places.ErrKind(err); ok {
		return kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return places.KindTimeout.String()
	}
	return places.KindTransport.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
