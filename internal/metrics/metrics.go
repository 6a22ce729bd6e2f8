// Package metrics exposes Prometheus instrumentation for classification.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crimson-sun/commentguard/internal/engine/classifier"
	"github.com/crimson-sun/commentguard/internal/model"
)

const namespace = "commentguard"

// Metrics holds the classifier collectors.
type Metrics struct {
	// Classifications counts verdicts.
	// Labels: classification (safe, needs_review)
	Classifications *prometheus.CounterVec

	// Reasons counts individual reasons across all flagged texts.
	Reasons prometheus.Counter

	// Fallbacks counts inference failures answered by the rules.
	// Labels: backend (onnx, openai)
	Fallbacks *prometheus.CounterVec

	// Duration measures end-to-end classification latency.
	Duration prometheus.Histogram
}

// New registers the collectors with reg. A nil reg uses the default registerer.
// Collectors already present in reg are reused, so several classifiers may
// share one registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		Classifications: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Total classified texts by verdict",
		}, []string{"classification"})),
		Reasons: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasons_total",
			Help:      "Total review reasons emitted",
		})),
		Fallbacks: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_fallbacks_total",
			Help:      "Total inference failures answered by the rule-based classifier",
		}, []string{"backend"})),
		Duration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Classification latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		})),
	}
}

// register adds c to reg, returning the existing collector when an identical
// one is already registered. Any other registration error panics.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Observe records one classification.
func (m *Metrics) Observe(r model.Result, d time.Duration) {
	m.Classifications.WithLabelValues(string(r.Classification)).Inc()
	m.Reasons.Add(float64(len(r.Reasons)))
	m.Duration.Observe(d.Seconds())
}

// RecordFallback counts an inference failure. Its signature matches
// classifier.WithFallbackHook.
func (m *Metrics) RecordFallback(backend string, _ error) {
	m.Fallbacks.WithLabelValues(backend).Inc()
}

type instrumented struct {
	next classifier.TextClassifier
	m    *Metrics
}

// Instrument wraps c so every call is observed. A nil m returns c unchanged.
func Instrument(c classifier.TextClassifier, m *Metrics) classifier.TextClassifier {
	if m == nil {
		return c
	}
	return &instrumented{next: c, m: m}
}

func (i *instrumented) Classify(ctx context.Context, text string) model.Result {
	start := time.Now()
	r := i.next.Classify(ctx, text)
	i.m.Observe(r, time.Since(start))
	return r
}
