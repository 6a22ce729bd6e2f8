package commentguard

import (
	"context"
	"fmt"

	"github.com/crimson-sun/commentguard/internal/config"
	"github.com/crimson-sun/commentguard/internal/engine"
	"github.com/crimson-sun/commentguard/internal/metrics"
)

// Guard classifies comments. Safe for concurrent use.
type Guard struct {
	engine *engine.Engine
}

// New creates a Guard. It fails on an invalid option or rule table. A model
// that cannot be loaded is not an error: the Guard logs a warning and uses
// the rules alone, which Backend reports.
func New(opts ...Option) (*Guard, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg := configFromOptions(o)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("commentguard: %w", err)
	}

	var eopts []engine.Option
	if o.registerer != nil {
		eopts = append(eopts, engine.WithMetrics(metrics.New(o.registerer)))
	}
	eng, err := engine.New(cfg, eopts...)
	if err != nil {
		return nil, fmt.Errorf("commentguard: %w", err)
	}
	return &Guard{engine: eng}, nil
}

func configFromOptions(o options) config.Config {
	modelPath, vocabPath, labelsPath := modelPaths(o.modelDir)
	return config.Config{
		Log: config.LogConfig{Level: "info"},
		Rules: config.RulesConfig{
			File:             o.rulesFile,
			MinLength:        o.minLength,
			MaxLength:        o.maxLength,
			PunctuationRatio: o.punctuationRatio,
		},
		Engine: config.EngineConfig{
			Backend:   o.backend,
			Threshold: o.modelThreshold,
			Timeout:   o.timeout,
			Workers:   o.workers,
		},
		ONNX: config.ONNXConfig{
			ModelPath:  modelPath,
			VocabPath:  vocabPath,
			LabelsPath: labelsPath,
			SafeLabel:  "non-toxic",
			Activation: "sigmoid",
			MaxSeqLen:  256,
			Threads:    4,
		},
		OpenAI: config.OpenAIConfig{
			APIKey:  o.openAIKey,
			Model:   o.openAIModel,
			BaseURL: o.openAIBaseURL,
		},
		Output: config.OutputConfig{Verbosity: "standard"},
	}
}

// Classify classifies one comment. It never fails: inference problems fall
// back to the rule result.
func (g *Guard) Classify(ctx context.Context, text string) Result {
	return resultFromModel(g.engine.Classify(ctx, text))
}

// ClassifyBatch classifies texts concurrently. Results are in input order.
func (g *Guard) ClassifyBatch(ctx context.Context, texts []string) []Result {
	rs := g.engine.ClassifyBatch(ctx, texts)
	out := make([]Result, len(rs))
	for i, r := range rs {
		out[i] = resultFromModel(r)
	}
	return out
}

// Backend reports what is classifying: "rules", "onnx" or "openai".
func (g *Guard) Backend() string {
	return g.engine.Backend()
}

// Close releases model resources. Must be called when the Guard is no
// longer needed.
func (g *Guard) Close() error {
	return g.engine.Close()
}
