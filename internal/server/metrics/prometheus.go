// Package metrics exports gateway and transport telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/aikea/internal/bucket/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "aikea_gateway"

// Observer records primitive attempts, probes and facade operations. It
// satisfies both transport.Observer and bucket.OperationObserver.
type Observer struct {
	registry *prometheus.Registry

	attempts          *prometheus.CounterVec
	attemptDuration   *prometheus.HistogramVec
	probes            *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
}

// NewObserver registers the gateway metrics on a fresh registry, together
// with the Go runtime and process collectors.
func NewObserver(namespace string) (*Observer, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	o := &Observer{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Transport attempts by primitive and result (HTTP status or network error kind).",
		}, []string{"primitive", "result"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Latency of a single transport attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"primitive"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Unauthenticated probes by outcome.",
		}, []string{"outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of gateway operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Count of failed gateway operations.",
		}, []string{"operation"}),
	}

	cs := []prometheus.Collector{
		o.attempts, o.attemptDuration, o.probes, o.operationDuration, o.operationErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := o.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register gateway metric: %w", err)
		}
	}
	return o, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}

func (o *Observer) RecordAttempt(primitive string, status int, err error, d time.Duration) {
	if o == nil {
		return
	}
	o.attempts.WithLabelValues(primitive, attemptResult(status, err)).Inc()
	o.attemptDuration.WithLabelValues(primitive).Observe(d.Seconds())
}

func (o *Observer) RecordProbe(status int, filtered bool) {
	if o == nil {
		return
	}
	outcome := "open"
	switch {
	case filtered:
		outcome = "filtered"
	case status == 0:
		outcome = "unreachable"
	}
	o.probes.WithLabelValues(outcome).Inc()
}

func (o *Observer) RecordOperation(op string, err error, d time.Duration) {
	if o == nil {
		return
	}
	o.operationDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		o.operationErrors.WithLabelValues(op).Inc()
	}
}

func attemptResult(status int, err error) string {
	if err != nil {
		var ne *transport.NetError
		if errors.As(err, &ne) && ne.Kind != "" {
			return string(ne.Kind)
		}
		return "error"
	}
	return strconv.Itoa(status)
}
