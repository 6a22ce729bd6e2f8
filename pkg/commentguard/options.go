package commentguard

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	rulesFile        string
	minLength        int
	maxLength        int
	punctuationRatio float64

	backend       string
	modelDir      string
	openAIKey     string
	openAIModel   string
	openAIBaseURL string

	modelThreshold float64
	timeout        time.Duration
	workers        int
	registerer     prometheus.Registerer
}

// Option configures a Guard.
type Option func(*options)

// WithRulesFile loads the rule table from a YAML file instead of the
// built-in one.
func WithRulesFile(path string) Option {
	return func(o *options) { o.rulesFile = path }
}

// WithThresholds overrides the rule table's length limits and punctuation
// ratio. Zero keeps the table's value for that field.
func WithThresholds(minLength, maxLength int, punctuationRatio float64) Option {
	return func(o *options) {
		o.minLength = minLength
		o.maxLength = maxLength
		o.punctuationRatio = punctuationRatio
	}
}

// WithONNXModel enables the local toxicity model in dir.
// Expects: model_quantized.onnx, vocab.txt, labels.txt.
func WithONNXModel(dir string) Option {
	return func(o *options) {
		o.backend = "onnx"
		o.modelDir = dir
	}
}

// WithOpenAIModeration enables the OpenAI moderation endpoint. An empty
// model uses omni-moderation-latest.
func WithOpenAIModeration(apiKey, model string) Option {
	return func(o *options) {
		o.backend = "openai"
		o.openAIKey = apiKey
		if model != "" {
			o.openAIModel = model
		}
	}
}

// WithOpenAIBaseURL points the moderation client at a compatible endpoint.
func WithOpenAIBaseURL(url string) Option {
	return func(o *options) { o.openAIBaseURL = url }
}

// WithModelThreshold sets the model score at or above which a comment is
// flagged. Default: 0.5.
func WithModelThreshold(t float64) Option {
	return func(o *options) { o.modelThreshold = t }
}

// WithInferenceTimeout bounds each model call. Zero disables the bound.
// Default: 2s.
func WithInferenceTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithWorkers sets how many texts ClassifyBatch classifies at once.
// Default: 4.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMetrics registers Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func defaultOptions() options {
	return options{
		backend:        "rules",
		modelDir:       "models",
		openAIModel:    "omni-moderation-latest",
		modelThreshold: 0.5,
		timeout:        2 * time.Second,
		workers:        4,
	}
}

// modelPaths returns the model, vocab and labels file paths in dir.
func modelPaths(dir string) (model, vocab, labels string) {
	return filepath.Join(dir, "model_quantized.onnx"),
		filepath.Join(dir, "vocab.txt"),
		filepath.Join(dir, "labels.txt")
}
