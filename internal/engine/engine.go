// Package engine assembles the classifier stack from configuration.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/commentguard/internal/config"
	"github.com/crimson-sun/commentguard/internal/engine/classifier"
	"github.com/crimson-sun/commentguard/internal/engine/inference/onnx"
	"github.com/crimson-sun/commentguard/internal/engine/inference/openai"
	"github.com/crimson-sun/commentguard/internal/engine/rules"
	"github.com/crimson-sun/commentguard/internal/metrics"
	"github.com/crimson-sun/commentguard/internal/model"
)

// Backend names.
const (
	BackendRules  = "rules"
	BackendONNX   = "onnx"
	BackendOpenAI = "openai"
)

// Option customizes engine construction.
type Option func(*options)

type options struct {
	metrics   *metrics.Metrics
	predictor classifier.Predictor
	ruleSet   *rules.RuleSet
}

// WithMetrics records every classification in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPredictor uses p instead of building the configured backend.
func WithPredictor(p classifier.Predictor) Option {
	return func(o *options) { o.predictor = p }
}

// WithRuleSet uses rs instead of loading the configured rule file.
func WithRuleSet(rs *rules.RuleSet) Option {
	return func(o *options) { o.ruleSet = rs }
}

// Engine classifies comment text. Safe for concurrent use.
type Engine struct {
	classifier classifier.TextClassifier
	rules      *rules.RuleSet
	model      *classifier.Model
	backend    string
	workers    int
}

// New builds an Engine from cfg. A model backend that cannot be loaded is
// logged and replaced by the rule-based classifier; a bad rule table is an
// error.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rs, err := loadRules(cfg.Rules, o.ruleSet)
	if err != nil {
		return nil, err
	}
	ruleClassifier := classifier.NewRules(rs)

	e := &Engine{
		rules:   rs,
		backend: BackendRules,
		workers: max(cfg.Engine.Workers, 1),
	}

	pred, backend := o.predictor, cfg.Engine.Backend
	if pred == nil && backend != BackendRules {
		pred, err = newPredictor(cfg)
		if err != nil {
			slog.Warn("model backend unavailable, using rule-based classifier",
				"backend", backend, "error", err)
			if o.metrics != nil {
				o.metrics.RecordFallback(backend, err)
			}
		}
	}

	var c classifier.TextClassifier = ruleClassifier
	if pred != nil {
		if o.predictor != nil && backend == BackendRules {
			backend = "custom"
		}
		mopts := []classifier.ModelOption{
			classifier.WithThreshold(cfg.Engine.Threshold),
			classifier.WithTimeout(cfg.Engine.Timeout),
			classifier.WithBackendName(backend),
		}
		if o.metrics != nil {
			mopts = append(mopts, classifier.WithFallbackHook(o.metrics.RecordFallback))
		}
		e.model = classifier.NewModel(pred, ruleClassifier, mopts...)
		e.backend = backend
		c = e.model
	}
	e.classifier = metrics.Instrument(c, o.metrics)

	slog.Info("classifier ready", "backend", e.backend,
		"keywords", len(rs.Keywords()), "patterns", len(rs.Patterns()))
	return e, nil
}

func loadRules(cfg config.RulesConfig, rs *rules.RuleSet) (*rules.RuleSet, error) {
	var err error
	switch {
	case rs != nil:
	case cfg.File != "":
		rs, err = rules.Load(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	default:
		rs = rules.Default()
	}

	rs, err = rs.Override(rules.Overrides{
		MinLength:        cfg.MinLength,
		MaxLength:        cfg.MaxLength,
		PunctuationRatio: cfg.PunctuationRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return rs, nil
}

func newPredictor(cfg config.Config) (classifier.Predictor, error) {
	switch cfg.Engine.Backend {
	case BackendONNX:
		p, err := onnx.New(cfg.ONNX.ModelPath, cfg.ONNX.VocabPath, cfg.ONNX.LabelsPath,
			onnx.WithLibraryPath(cfg.ONNX.LibraryPath),
			onnx.WithSafeLabel(cfg.ONNX.SafeLabel),
			onnx.WithActivation(onnx.Activation(cfg.ONNX.Activation)),
			onnx.WithMaxSeqLen(cfg.ONNX.MaxSeqLen),
			onnx.WithThreads(cfg.ONNX.Threads),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendOpenAI:
		p, err := openai.New(cfg.OpenAI.APIKey,
			openai.WithModel(cfg.OpenAI.Model),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithFlagFloor(cfg.Engine.Threshold),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("engine: unknown backend %q", cfg.Engine.Backend)
	}
}

// Classify classifies a single text.
func (e *Engine) Classify(ctx context.Context, text string) model.Result {
	return e.classifier.Classify(ctx, text)
}

// ClassifyBatch classifies texts concurrently, bounded by the configured
// worker count. Results are in input order.
func (e *Engine) ClassifyBatch(ctx context.Context, texts []string) []model.Result {
	results := make([]model.Result, len(texts))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, text := range texts {
		g.Go(func() error {
			results[i] = e.classifier.Classify(ctx, text)
			return nil
		})
	}
	_ = g.Wait() // workers never fail
	return results
}

// Rules returns the effective rule table.
func (e *Engine) Rules() *rules.RuleSet { return e.rules }

// Backend reports the active backend: "rules", "onnx", "openai" or "custom".
func (e *Engine) Backend() string { return e.backend }

// Close releases model resources.
func (e *Engine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}
