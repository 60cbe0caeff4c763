// Package transport performs single HTTP exchanges against the bucket and
// escalates across mechanisms when the bucket rejects a client.
//
// A Primitive executes exactly one exchange. Three implementations exist:
// PooledClient (net/http with connection reuse), RawClient (hand-written
// HTTP/1.1 over a dialed connection) and ProcessClient (an external curl
// process). Chain orders them and decides when to move to the next one.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/aikea/internal/netx"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 32 << 20

// Request is one HTTP exchange. URL is absolute. Body may be nil; when set
// it is sent for every method, including GET.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Primitive executes one request and returns the raw response, or a
// *NetError when no HTTP response was obtained. Non-2xx statuses are
// responses, not errors.
type Primitive interface {
	Name() string
	Do(ctx context.Context, req *Request) (*Response, error)
}

// NetErrorKind extends netx.Kind with failures specific to a primitive.
type NetErrorKind = netx.Kind

// KindMalformed is reported when a primitive got output that is not an HTTP
// response, e.g. curl printed nothing parseable.
const KindMalformed NetErrorKind = "malformed"

// KindOther covers failures that fit no narrower kind, including a context
// that was canceled before a primitive ran.
const KindOther NetErrorKind = netx.KindOther

// NetError is returned by primitives when the exchange did not produce an
// HTTP response.
type NetError struct {
	Primitive string
	Kind      NetErrorKind
	Err       error
}

func (e *NetError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Primitive, e.Kind, e.Err)
}

func (e *NetError) Unwrap() error {
	return e.Err
}

func newNetError(primitive string, err error) *NetError {
	return &NetError{Primitive: primitive, Kind: netx.Classify(err), Err: err}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
