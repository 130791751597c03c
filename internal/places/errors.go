package places

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. Zero results are not a failure; the
// client reports them as an empty result set.
type Kind int

const (
	// KindTransport covers connection failures, DNS errors and non-2xx
	// responses from the proxy layer.
	KindTransport Kind = iota
	// KindTimeout is a transport failure caused by the per-call deadline.
	KindTimeout
	// KindUpstream is a well-formed response whose status is neither OK nor
	// ZERO_RESULTS (e.g. OVER_QUERY_LIMIT, REQUEST_DENIED).
	KindUpstream
	// KindMalformed is a response body that could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "TransportError"
	case KindTimeout:
		return "Timeout"
	case KindUpstream:
		return "UpstreamError"
	case KindMalformed:
		return "MalformedResponseError"
	}
	return "UnknownError"
}

// FetchError is the single error type surfaced by the places client.
type FetchError struct {
	Kind           Kind
	Message        string
	UpstreamStatus string
	Err            error
}

func (e *FetchError) Error() string {
	if e.UpstreamStatus != "" {
		return fmt.Sprintf("%s: %s (status %s)", e.Kind, e.Message, e.UpstreamStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrKind returns the FetchError kind of err, or KindTransport with false if
// err is not a FetchError.
func ErrKind(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return KindTransport, false
}
