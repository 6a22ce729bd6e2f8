// Package openai scores comments with the OpenAI moderation endpoint.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/crimson-sun/commentguard/internal/engine/classifier"
)

// DefaultModel is the moderation model used when none is configured.
const DefaultModel = "omni-moderation-latest"

type options struct {
	model     string
	baseURL   string
	flagFloor float64
}

// Option configures a Predictor.
type Option func(*options)

// WithModel selects the moderation model.
func WithModel(m string) Option {
	return func(o *options) { o.model = m }
}

// WithBaseURL points the client at an OpenAI-compatible server,
// e.g. "http://localhost:8080/v1".
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithFlagFloor sets the minimum score reported when the API itself flags
// a text. Set it to the classifier threshold so an API verdict is never
// lost to low category scores. Default: 0.5.
func WithFlagFloor(f float64) Option {
	return func(o *options) { o.flagFloor = f }
}

// Predictor implements classifier.Predictor over the moderation endpoint.
type Predictor struct {
	client    *goopenai.Client
	model     string
	flagFloor float64
}

// New creates a moderation predictor. An empty apiKey yields
// classifier.ErrUnavailable.
func New(apiKey string, opts ...Option) (*Predictor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key not set: %w", classifier.ErrUnavailable)
	}
	o := options{model: DefaultModel, flagFloor: 0.5}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}

	return &Predictor{
		client:    goopenai.NewClientWithConfig(cfg),
		model:     o.model,
		flagFloor: o.flagFloor,
	}, nil
}

// Predict implements classifier.Predictor.
func (p *Predictor) Predict(ctx context.Context, text string) (classifier.Prediction, error) {
	resp, err := p.client.Moderations(ctx, goopenai.ModerationRequest{
		Input: text,
		Model: p.model,
	})
	if err != nil {
		return classifier.Prediction{}, fmt.Errorf("openai: moderation request failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return classifier.Prediction{}, fmt.Errorf("openai: moderation returned no results")
	}

	res := resp.Results[0]
	pred := highest(res.CategoryScores)
	if res.Flagged && pred.Score < p.flagFloor {
		pred.Score = p.flagFloor
	}
	return pred, nil
}

// Close implements classifier.Predictor. The HTTP client needs no cleanup.
func (p *Predictor) Close() error { return nil }

// highest returns the category with the largest score.
func highest(s goopenai.ResultCategoryScores) classifier.Prediction {
	scores := []struct {
		label string
		score float32
	}{
		{"harassment", s.Harassment},
		{"harassment/threatening", s.HarassmentThreatening},
		{"hate", s.Hate},
		{"hate/threatening", s.HateThreatening},
		{"self-harm", s.SelfHarm},
		{"self-harm/intent", s.SelfHarmIntent},
		{"self-harm/instructions", s.SelfHarmInstructions},
		{"sexual", s.Sexual},
		{"sexual/minors", s.SexualMinors},
		{"violence", s.Violence},
		{"violence/graphic", s.ViolenceGraphic},
	}

	best := classifier.Prediction{Label: scores[0].label, Score: float64(scores[0].score)}
	for _, c := range scores[1:] {
		if float64(c.score) > best.Score {
			best = classifier.Prediction{Label: c.label, Score: float64(c.score)}
		}
	}
	return best
}
