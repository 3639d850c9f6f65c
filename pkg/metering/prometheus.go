package metering

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "dirbridge"
	subsystem = "operations"
)

// PrometheusSink exports metering events as Prometheus metrics.
type PrometheusSink struct {
	calls    *prometheus.CounterVec
	errs     *prometheus.CounterVec
	attempts *prometheus.CounterVec
	durs     *prometheus.HistogramVec
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "total",
			Help:      "Number of directory operations by outcome",
		}, []string{"tenant", "operation", "result"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Number of failed directory operations by error category",
		}, []string{"tenant", "category"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "attempts_total",
			Help:      "Number of outbound HTTP attempts, retries included",
		}, []string{"tenant"}),
		durs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Duration of directory operations from rate limit check to final outcome",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"tenant", "operation"}),
	}

	var err error
	if s.calls, err = register(reg, s.calls); err != nil {
		return nil, err
	}
	if s.errs, err = register(reg, s.errs); err != nil {
		return nil, err
	}
	if s.attempts, err = register(reg, s.attempts); err != nil {
		return nil, err
	}
	if s.durs, err = register(reg, s.durs); err != nil {
		return nil, err
	}
	return s, nil
}

// Record implements Sink.
func (s *PrometheusSink) Record(_ context.Context, e Event) error {
	result := "success"
	if !e.Success {
		result = "failure"
		s.errs.WithLabelValues(e.TenantID, e.Category).Inc()
	}
	s.calls.WithLabelValues(e.TenantID, e.Operation, result).Inc()
	if e.Attempts > 0 {
		s.attempts.WithLabelValues(e.TenantID).Add(float64(e.Attempts))
	}
	s.durs.WithLabelValues(e.TenantID, e.Operation).Observe(e.Duration.Seconds())
	return nil
}

// Forget removes a tenant's series, e.g. after it was deleted.
func (s *PrometheusSink) Forget(tenantID string) {
	labels := prometheus.Labels{"tenant": tenantID}
	s.calls.DeletePartialMatch(labels)
	s.errs.DeletePartialMatch(labels)
	s.attempts.DeletePartialMatch(labels)
	s.durs.DeletePartialMatch(labels)
}

// register reuses a collector that is already registered under the same
// descriptor, so several sinks can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}
