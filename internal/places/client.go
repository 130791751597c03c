// Package places wraps the upstream points-of-interest API. It issues exactly
// one outbound call per invocation, normalizes upstream statuses into
// success/empty/error and never retries; retry policy belongs to the caller.
package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"wayfarer/internal/models"
)

const (
	// DefaultBaseURL is the Google Places web service root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"
	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 10 * time.Second

	userAgent = "wayfarer/1.0"
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Options tune the client's transport behavior. The zero value gives the
// defaults used in production.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls; the upstream is metered.
	// Zero disables client-side throttling.
	RequestsPerSecond float64
	// BreakerFailures is the consecutive-failure count that opens the
	// circuit. Zero disables the breaker.
	BreakerFailures uint32
	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
}

// Client talks to the upstream places API. The API key is injected and never
// appears in logs or cache keys.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[any]
}

// NewClient builds a places client with the given credential.
func NewClient(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    opts.BaseURL,
		apiKey:     apiKey,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if opts.BreakerFailures > 0 {
		c.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name: "places",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.BreakerFailures
			},
		})
	}
	return c
}

// NearbySearch runs one category/keyword/radius search around a coordinate.
// OK and ZERO_RESULTS are both success; ZERO_RESULTS yields an empty slice.
func (c *Client) NearbySearch(ctx context.Context, query models.SearchQuery) ([]RawPlace, error) {
	params := url.Values{}
	params.Set("location", query.Location.String())
	params.Set("radius", strconv.Itoa(query.RadiusMeters))
	if query.Category != "" {
		params.Set("type", query.Category)
	}
	if query.Keyword != "" {
		params.Set("keyword", query.Keyword)
	}

	var resp searchResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK && resp.Status != statusZeroResults {
		return nil, &FetchError{
			Kind:           KindUpstream,
			Message:        upstreamMessage(resp.ErrorMessage),
			UpstreamStatus: resp.Status,
		}
	}
	return resp.Results, nil
}

// Details fetches the full record for one place id.
func (c *Client) Details(ctx context.Context, placeID string) (*RawPlace, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,vicinity,formatted_address,geometry,photos,rating,price_level,types,user_ratings_total")

	var resp detailsResponse
	if err := c.get(ctx, "/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		return nil, &FetchError{
			Kind:           KindUpstream,
			Message:        upstreamMessage(resp.ErrorMessage),
			UpstreamStatus: resp.Status,
		}
	}
	return &resp.Result, nil
}

// PhotoURL builds the upstream photo URL for a photo reference. Pure URL
// construction; the image itself is never fetched here.
func (c *Client) PhotoURL(photoRef string, maxWidth int) string {
	if photoRef == "" {
		return ""
	}
	params := url.Values{}
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("photo_reference", photoRef)
	params.Set("key", c.apiKey)
	return c.baseURL + "/photo?" + params.Encode()
}

// get performs one throttled, breaker-guarded request and decodes the JSON
// body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return classifyTransport(err)
		}
	}

	do := func() (any, error) {
		return nil, c.doRequest(ctx, path, params, out)
	}
	if c.breaker == nil {
		_, err := do()
		return err
	}
	_, err := c.breaker.Execute(do)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &FetchError{Kind: KindTransport, Message: "upstream circuit open", Err: err}
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &FetchError{Kind: KindTransport, Message: "building request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{
			Kind:    KindTransport,
			Message: fmt.Sprintf("unexpected HTTP status %s", resp.Status),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Kind: KindMalformed, Message: "decoding response body", Err: err}
	}
	return nil
}

// classifyTransport separates deadline failures from other transport errors
// so callers can distinguish a slow upstream from an unreachable one.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Message: "upstream call timed out", Err: err}
	}
	var nerr interface{ Timeout() bool }
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &FetchError{Kind: KindTimeout, Message: "upstream call timed out", Err: err}
	}
	return &FetchError{Kind: KindTransport, Message: "upstream call failed", Err: err}
}

func upstreamMessage(msg string) string {
	if msg == "" {
		return "upstream rejected the request"
	}
	return msg
}
