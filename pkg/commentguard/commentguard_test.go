package commentguard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModelDir = "../../models"

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(testModelDir, "model_quantized.onnx")); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

func newGuard(t *testing.T, opts ...Option) *Guard {
	t.Helper()
	g, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestClassifyDefaults(t *testing.T) {
	g := newGuard(t)
	assert.Equal(t, "rules", g.Backend())

	tests := []struct {
		text    string
		flagged bool
		reasons []string
	}{
		{"Great introduction to Django! Very helpful.", false, []string{}},
		{"Buy now! Limited offer!", true, []string{"Contains keywords: buy now, limited offer"}},
		{"You are a stupid idiot", true, []string{"Contains keywords: stupid, idiot"}},
		{"", true, []string{"Comment too short"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := g.Classify(context.Background(), tt.text)
			assert.Equal(t, tt.flagged, r.Flagged)
			assert.Equal(t, tt.reasons, r.Reasons)
			if tt.flagged {
				assert.Equal(t, NeedsReview, r.Classification)
			} else {
				assert.Equal(t, Safe, r.Classification)
				assert.InDelta(t, 0.9, r.Confidence, 1e-9)
			}
		})
	}
}

func TestResultsDoNotAlias(t *testing.T) {
	g := newGuard(t)
	a := g.Classify(context.Background(), "spam")
	a.Reasons[0] = "mutated"
	b := g.Classify(context.Background(), "spam")
	assert.Equal(t, []string{"Contains keywords: spam"}, b.Reasons)
}

func TestClassifyBatch(t *testing.T) {
	g := newGuard(t, WithWorkers(2))
	texts := []string{"hello there", "scam", "ok", "CLICK HERE"}
	got := g.ClassifyBatch(context.Background(), texts)
	require.Len(t, got, 4)
	for i, text := range texts {
		assert.Equal(t, g.Classify(context.Background(), text), got[i], text)
	}
}

func TestConcurrentClassify(t *testing.T) {
	g := newGuard(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := g.Classify(context.Background(), "This is spam")
			assert.True(t, r.Flagged)
		}()
	}
	wg.Wait()
}

func TestWithThresholds(t *testing.T) {
	g := newGuard(t, WithThresholds(10, 40, 0))
	assert.Equal(t, []string{"Comment too short"}, g.Classify(context.Background(), "tiny").Reasons)
	assert.Equal(t, []string{"Comment unusually long"},
		g.Classify(context.Background(), "This comment runs past the forty character cap.").Reasons)

	_, err := New(WithThresholds(0, 0, 1.5))
	assert.Error(t, err)
}

func TestWithRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
keywords: [giveaway]
patterns: []
length: {min: 1, max: 0}
punctuation: {chars: "!", ratio: 0.5}
scoring: {reason_weight: 0.3, safe_confidence: 0.9}
`), 0o644))

	g := newGuard(t, WithRulesFile(path))
	assert.True(t, g.Classify(context.Background(), "Free GIVEAWAY").Flagged)
	assert.False(t, g.Classify(context.Background(), "spam").Flagged)

	_, err := New(WithRulesFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestInvalidOptions(t *testing.T) {
	_, err := New(WithModelThreshold(2))
	assert.ErrorContains(t, err, "threshold")

	_, err = New(WithWorkers(0))
	assert.ErrorContains(t, err, "workers")

	_, err = New(WithOpenAIModeration("", ""))
	assert.ErrorContains(t, err, "API_KEY")
}

func TestMissingModelFallsBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := newGuard(t, WithONNXModel("/nonexistent/path"), WithMetrics(reg))
	assert.Equal(t, "rules", g.Backend())

	r := g.Classify(context.Background(), "This is spam")
	assert.Equal(t, []string{"Contains keywords: spam"}, r.Reasons)

	n, err := testutil.GatherAndCount(reg, "commentguard_inference_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGuardsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newGuard(t, WithMetrics(reg))
	b := newGuard(t, WithMetrics(reg))

	a.Classify(context.Background(), "This is spam")
	b.Classify(context.Background(), "This is a great article! Very informative.")

	expected := `
# HELP commentguard_classifications_total Total classified texts by verdict
# TYPE commentguard_classifications_total counter
commentguard_classifications_total{classification="needs_review"} 1
commentguard_classifications_total{classification="safe"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "commentguard_classifications_total"))
}

func TestOpenAIModeration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"flagged":true,"category_scores":{"hate":0.71}}]}`)
	}))
	defer srv.Close()

	g := newGuard(t,
		WithOpenAIModeration("test-key", ""),
		WithOpenAIBaseURL(srv.URL+"/v1"),
		WithInferenceTimeout(time.Second),
	)
	assert.Equal(t, "openai", g.Backend())

	r := g.Classify(context.Background(), "A perfectly pleasant remark.")
	assert.True(t, r.Flagged)
	assert.Equal(t, []string{"Model flagged: hate (score 0.71)"}, r.Reasons)
}

func TestClassifyWithModel(t *testing.T) {
	skipWithoutModel(t)

	g := newGuard(t, WithONNXModel(testModelDir))
	assert.Equal(t, "onnx", g.Backend())

	r := g.Classify(context.Background(), "You are a worthless piece of garbage and everyone hates you")
	assert.True(t, r.Flagged)
	assert.NotEmpty(t, r.Reasons)
}
