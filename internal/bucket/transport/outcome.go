package transport

import (
	"errors"
	"net/http"
	"time"
)

// Kind classifies the result of one logical call through Chain.
type Kind int

const (
	KindSuccess Kind = iota
	// KindUnauthorized is a 401 with credentials attached.
	KindUnauthorized
	// KindSuspectedFiltering means every primitive tried got 403, or the
	// unauthenticated probe got 403 and the process primitive did not
	// succeed either.
	KindSuspectedFiltering
	// KindNetworkError means no primitive obtained an HTTP response.
	KindNetworkError
	// KindMalformedResponse means the last primitive produced output that
	// was not an HTTP response.
	KindMalformedResponse
	// KindHTTPStatus is any other non-2xx status, returned without
	// escalation.
	KindHTTPStatus
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindUnauthorized:
		return "unauthorized"
	case KindSuspectedFiltering:
		return "suspected_filtering"
	case KindNetworkError:
		return "network_error"
	case KindMalformedResponse:
		return "malformed_response"
	case KindHTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// Attempt records one primitive execution inside a call.
type Attempt struct {
	Primitive string
	Status    int
	Err       error
	Duration  time.Duration
}

// Outcome is the result of Chain.Execute. On success Body holds the winning
// primitive's response. On failure Status and Body hold the last response
// observed, if any, and Err the last transport error.
type Outcome struct {
	Kind          Kind
	Status        int
	Header        http.Header
	Body          []byte
	Primitive     string
	ProbeStatus   int
	ProbeFiltered bool
	Attempts      []Attempt
	Err           error
}

// OK reports whether the call succeeded with a 2xx status.
func (o *Outcome) OK() bool {
	return o != nil && o.Kind == KindSuccess
}

// Filtered reports whether the failure looks like client filtering, either
// from the probe or from 403s on every primitive.
func (o *Outcome) Filtered() bool {
	return o != nil && o.Kind == KindSuspectedFiltering
}

// LastNetError returns the most recent transport error, if any.
func (o *Outcome) LastNetError() *NetError {
	var ne *NetError
	if o != nil && errors.As(o.Err, &ne) {
		return ne
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
