package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/aikea/internal/logging"
)

const (
	tracerName     = "github.com/dmitrijs2005/aikea/internal/bucket/transport"
	probeUserAgent = "aikea-probe"
)

// Call describes one logical request to the bucket. Body is kept in memory
// so every primitive in the chain can replay it. Probe enables the
// unauthenticated pre-flight request.
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Probe  bool
}

// Chain runs a Call through the primitives in escalation order: pooled,
// then raw after a 403, then the external process. When the probe sees a
// 403 the chain goes straight to the process primitive.
type Chain struct {
	pooled   Primitive
	raw      Primitive
	process  Primitive
	probe    Primitive
	logger   logging.Logger
	observer Observer
	tracer   trace.Tracer
}

type ChainOption func(*Chain)

// WithObserver reports every attempt and probe to o.
func WithObserver(o Observer) ChainOption {
	return func(c *Chain) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) ChainOption {
	return func(c *Chain) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewChain wires the primitives. probe may be nil, in which case Call.Probe
// is ignored.
func NewChain(pooled, raw, process, probe Primitive, logger logging.Logger, opts ...ChainOption) *Chain {
	c := &Chain{
		pooled:   pooled,
		raw:      raw,
		process:  process,
		probe:    probe,
		logger:   logger.With("module", "transport"),
		observer: nopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe sends an unauthenticated GET to url and returns the status code.
// A probe that fails to get a response is inconclusive.
func (c *Chain) Probe(ctx context.Context, url string) (int, error) {
	if c.probe == nil {
		return 0, errors.New("probe primitive not configured")
	}

	ctx, span := c.tracer.Start(ctx, "bucket.probe", trace.WithAttributes(attribute.String("url", url)))
	defer span.End()

	resp, err := c.probe.Do(ctx, &Request{
		Method: http.MethodGet,
		URL:    url,
		Header: http.Header{
			"User-Agent": []string{probeUserAgent},
			"Accept":     []string{"*/*"},
		},
	})
	if err != nil {
		span.RecordError(err)
		c.observer.RecordProbe(0, false)
		c.logger.Debug(ctx, "probe inconclusive", "url", url, "error", err)
		return 0, err
	}

	filtered := resp.StatusCode == http.StatusForbidden
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode), attribute.Bool("filtered", filtered))
	c.observer.RecordProbe(resp.StatusCode, filtered)
	if filtered {
		c.logger.Warn(ctx, "unauthenticated probe got 403, client looks filtered", "url", url)
	}
	return resp.StatusCode, nil
}

// Execute runs call and always returns a non-nil Outcome.
//
// A 2xx response wins immediately. 401 and any non-403 error status end the
// call without escalation. A 403 moves to the next primitive. A transport
// error also moves on, but only once per call.
func (c *Chain) Execute(ctx context.Context, call Call) *Outcome {
	ctx, span := c.tracer.Start(ctx, "bucket.call", trace.WithAttributes(
		attribute.String("http.method", call.Method),
		attribute.String("url", call.URL),
	))
	defer span.End()

	out := &Outcome{}
	steps := c.steps()

	if call.Probe && c.probe != nil {
		status, err := c.Probe(ctx, call.URL)
		out.ProbeStatus = status
		if err == nil && status == http.StatusForbidden {
			out.ProbeFiltered = true
			steps = []Primitive{c.process}
		}
	}

	var (
		lastResp   *Response
		saw403     bool
		netRetried bool
	)

	for _, p := range steps {
		if p == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			out.Err = &NetError{Primitive: p.Name(), Kind: KindOther, Err: err}
			break
		}

		resp, err := c.attempt(ctx, p, call, out)
		if err != nil {
			out.Err = err
			if netRetried {
				break
			}
			netRetried = true
			continue
		}

		lastResp = resp
		out.Err = nil
		switch {
		case isSuccess(resp.StatusCode):
			out.fill(KindSuccess, p.Name(), resp)
			span.SetAttributes(attribute.String("primitive", p.Name()))
			return out
		case resp.StatusCode == http.StatusUnauthorized:
			out.fill(KindUnauthorized, p.Name(), resp)
			span.SetStatus(codes.Error, "unauthorized")
			return out
		case resp.StatusCode == http.StatusForbidden:
			saw403 = true
			c.logger.Info(ctx, "bucket returned 403, escalating", "primitive", p.Name(), "url", call.URL)
		default:
			out.fill(KindHTTPStatus, p.Name(), resp)
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
			return out
		}
	}

	if lastResp != nil {
		out.Status = lastResp.StatusCode
		out.Header = lastResp.Header
		out.Body = lastResp.Body
	}

	switch {
	case saw403 || out.ProbeFiltered:
		out.Kind = KindSuspectedFiltering
	case out.LastNetError() != nil && out.LastNetError().Kind == KindMalformed:
		out.Kind = KindMalformedResponse
	default:
		out.Kind = KindNetworkError
	}

	span.SetStatus(codes.Error, out.Kind.String())
	c.logger.Warn(ctx, "bucket call failed on every primitive",
		"url", call.URL,
		"kind", out.Kind.String(),
		"status", out.Status,
		"attempts", len(out.Attempts),
	)
	return out
}

func (c *Chain) steps() []Primitive {
	return []Primitive{c.pooled, c.raw, c.process}
}

func (c *Chain) attempt(ctx context.Context, p Primitive, call Call, out *Outcome) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "bucket.attempt", trace.WithAttributes(attribute.String("primitive", p.Name())))
	defer span.End()

	start := time.Now()
	resp, err := p.Do(ctx, &Request{
		Method: call.Method,
		URL:    call.URL,
		Header: cloneHeader(call.Header),
		Body:   call.Body,
	})
	d := time.Since(start)

	a := Attempt{Primitive: p.Name(), Err: err, Duration: d}
	if resp != nil {
		a.Status = resp.StatusCode
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.logger.Warn(ctx, "bucket attempt failed", "primitive", p.Name(), "url", call.URL, "error", err)
	}
	out.Attempts = append(out.Attempts, a)
	c.observer.RecordAttempt(a.Primitive, a.Status, err, d)

	return resp, err
}

func (o *Outcome) fill(kind Kind, primitive string, resp *Response) {
	o.Kind = kind
	o.Primitive = primitive
	o.Status = resp.StatusCode
	o.Header = resp.Header
	o.Body = resp.Body
}
