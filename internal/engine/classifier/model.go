package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/commentguard/internal/model"
)

// ErrUnavailable is returned by predictors that cannot serve a request,
// for example because the backend is not configured or not reachable.
var ErrUnavailable = errors.New("inference unavailable")

// Prediction is a model's opinion about a text. Score is the probability in
// [0,1] that the text needs review; Label names the dominant category.
type Prediction struct {
	Label string
	Score float64
}

// Predictor runs model inference for a single text.
type Predictor interface {
	Predict(ctx context.Context, text string) (Prediction, error)
	Close() error
}

const (
	defaultThreshold = 0.5
	defaultTimeout   = 2 * time.Second
)

// ModelOption configures a Model classifier.
type ModelOption func(*Model)

// WithThreshold sets the score at or above which the model flags a text. Default: 0.5.
func WithThreshold(t float64) ModelOption {
	return func(m *Model) { m.threshold = t }
}

// WithTimeout bounds each inference call. Zero disables the bound. Default: 2s.
func WithTimeout(d time.Duration) ModelOption {
	return func(m *Model) { m.timeout = d }
}

// WithBackendName sets the backend name reported in logs and fallback hooks.
func WithBackendName(name string) ModelOption {
	return func(m *Model) { m.backend = name }
}

// WithFallbackHook registers a callback invoked whenever inference fails
// and the rule-based result is returned instead.
func WithFallbackHook(f func(backend string, err error)) ModelOption {
	return func(m *Model) { m.onFallback = f }
}

// Model combines a Predictor with the rule-based classifier. Rule reasons
// always come first; the model can add one reason of its own. When the
// predictor fails the rule result is returned unchanged.
type Model struct {
	predictor  Predictor
	rules      *Rules
	threshold  float64
	timeout    time.Duration
	backend    string
	onFallback func(string, error)
}

// NewModel creates a model-backed classifier falling back to fallback.
func NewModel(p Predictor, fallback *Rules, opts ...ModelOption) *Model {
	m := &Model{
		predictor: p,
		rules:     fallback,
		threshold: defaultThreshold,
		timeout:   defaultTimeout,
		backend:   "model",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Classify implements TextClassifier.
func (m *Model) Classify(ctx context.Context, text string) model.Result {
	ruleReasons := m.rules.reasons(text)

	pred, err := m.predict(ctx, text)
	if err != nil {
		slog.Warn("inference failed, using rule-based result",
			"backend", m.backend, "error", err)
		if m.onFallback != nil {
			m.onFallback(m.backend, err)
		}
		return model.NewResult(ruleReasons, m.rules.confidence(len(ruleReasons)), m.rules.safeConf)
	}

	return m.combine(ruleReasons, pred)
}

func (m *Model) predict(ctx context.Context, text string) (Prediction, error) {
	if m.predictor == nil {
		return Prediction{}, ErrUnavailable
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	pred, err := m.predictor.Predict(ctx, text)
	if err != nil {
		return Prediction{}, err
	}
	if !(pred.Score >= 0 && pred.Score <= 1) {
		return Prediction{}, fmt.Errorf("classifier: score %v out of range", pred.Score)
	}
	return pred, nil
}

func (m *Model) combine(ruleReasons []string, pred Prediction) model.Result {
	reasons := ruleReasons
	conf := m.rules.confidence(len(ruleReasons))
	if len(ruleReasons) == 0 {
		conf = 0
	}

	if pred.Score >= m.threshold {
		reasons = append(reasons, fmt.Sprintf("Model flagged: %s (score %.2f)", pred.Label, pred.Score))
		conf = max(conf, pred.Score)
	}
	return model.NewResult(reasons, conf, 1-pred.Score)
}

// Close releases the predictor.
func (m *Model) Close() error {
	if m.predictor == nil {
		return nil
	}
	return m.predictor.Close()
}
