// Package onnx runs a local text-classification model (for example a
// toxicity fine-tune of BERT) through ONNX Runtime.
//
// The model directory is expected to hold the .onnx file, its WordPiece
// vocab.txt, a labels.txt with one class name per output logit, and the
// libonnxruntime shared library.
package onnx

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/crimson-sun/commentguard/internal/engine/classifier"
)

// Activation maps logits to probabilities.
type Activation string

const (
	// Sigmoid scores each label independently (multi-label toxicity models).
	Sigmoid Activation = "sigmoid"
	// Softmax normalizes logits across labels (single-label models).
	Softmax Activation = "softmax"
)

type options struct {
	libraryPath string
	safeLabel   string
	activation  Activation
	maxSeqLen   int
	threads     int
}

// Option configures a Predictor.
type Option func(*options)

// WithLibraryPath sets the ONNX Runtime shared library path.
// Default: libonnxruntime.so next to the model file.
func WithLibraryPath(p string) Option {
	return func(o *options) { o.libraryPath = p }
}

// WithSafeLabel names the label that means "nothing to review". It never
// counts towards the review score. Default: "non-toxic".
func WithSafeLabel(l string) Option {
	return func(o *options) { o.safeLabel = l }
}

// WithActivation selects sigmoid or softmax. Default: sigmoid.
func WithActivation(a Activation) Option {
	return func(o *options) { o.activation = a }
}

// WithMaxSeqLen caps the number of tokens per text, including [CLS] and [SEP].
func WithMaxSeqLen(n int) Option {
	return func(o *options) { o.maxSeqLen = n }
}

// WithThreads sets intra-op parallelism. Default: 4.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// Predictor scores texts with a local ONNX model. Safe for concurrent use.
type Predictor struct {
	sess       *session
	tok        *wordPiece
	labels     []string
	safe       int // index of the safe label, -1 if absent
	activation Activation
}

// New loads the model, vocabulary and labels.
func New(modelPath, vocabPath, labelsPath string, opts ...Option) (*Predictor, error) {
	o := options{
		safeLabel:  "non-toxic",
		activation: Sigmoid,
		maxSeqLen:  defaultMaxSeqLen,
		threads:    4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.activation != Sigmoid && o.activation != Softmax {
		return nil, fmt.Errorf("onnx: unknown activation %q", o.activation)
	}
	if o.libraryPath == "" {
		o.libraryPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}

	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}

	sess, err := newSession(modelPath, o.libraryPath, o.threads)
	if err != nil {
		return nil, err
	}
	if int(sess.numLabels) != len(labels) {
		sess.close()
		return nil, fmt.Errorf("onnx: model has %d outputs but %d labels were given", sess.numLabels, len(labels))
	}

	return &Predictor{
		sess:       sess,
		tok:        newWordPiece(v, o.maxSeqLen),
		labels:     labels,
		safe:       indexOf(labels, o.safeLabel),
		activation: o.activation,
	}, nil
}

// Predict implements classifier.Predictor. ONNX Runtime calls cannot be
// interrupted, so ctx is only checked before inference starts.
func (p *Predictor) Predict(ctx context.Context, text string) (classifier.Prediction, error) {
	preds, err := p.PredictBatch(ctx, []string{text})
	if err != nil {
		return classifier.Prediction{}, err
	}
	return preds[0], nil
}

// PredictBatch scores several texts in one inference call.
func (p *Predictor) PredictBatch(ctx context.Context, texts []string) ([]classifier.Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logits, err := p.sess.run(p.tok.encodeBatch(texts))
	if err != nil {
		return nil, err
	}

	n := len(p.labels)
	preds := make([]classifier.Prediction, len(texts))
	for i := range texts {
		probs := activate(p.activation, logits[i*n:(i+1)*n])
		if preds[i], err = pick(probs, p.labels, p.safe); err != nil {
			return nil, err
		}
	}
	return preds, nil
}

// Close releases ONNX Runtime resources.
func (p *Predictor) Close() error {
	if p.sess != nil {
		return p.sess.close()
	}
	return nil
}

func activate(a Activation, logits []float32) []float64 {
	probs := make([]float64, len(logits))
	if a == Softmax {
		hi := math.Inf(-1)
		for _, l := range logits {
			hi = math.Max(hi, float64(l))
		}
		var sum float64
		for i, l := range logits {
			probs[i] = math.Exp(float64(l) - hi)
			sum += probs[i]
		}
		for i := range probs {
			probs[i] /= sum
		}
		return probs
	}
	for i, l := range logits {
		probs[i] = 1 / (1 + math.Exp(-float64(l)))
	}
	return probs
}

// pick returns the most probable label other than the safe one.
// NaN probabilities are ignored.
func pick(probs []float64, labels []string, safe int) (classifier.Prediction, error) {
	best := classifier.Prediction{Score: -1}
	for i, pr := range probs {
		if i == safe || math.IsNaN(pr) {
			continue
		}
		if pr > best.Score {
			best = classifier.Prediction{Label: labels[i], Score: pr}
		}
	}
	if best.Score >= 0 {
		return best, nil
	}
	// Only the safe label is usable.
	if safe < 0 || safe >= len(probs) || math.IsNaN(probs[safe]) {
		return classifier.Prediction{}, fmt.Errorf("onnx: no usable probability in model output")
	}
	return classifier.Prediction{Label: labels[safe], Score: 1 - probs[safe]}, nil
}

func indexOf(labels []string, l string) int {
	for i, x := range labels {
		if x == l {
			return i
		}
	}
	return -1
}
