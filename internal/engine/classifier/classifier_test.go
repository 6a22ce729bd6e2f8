package classifier

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/commentguard/internal/engine/rules"
	"github.com/crimson-sun/commentguard/internal/engine/testdata"
	"github.com/crimson-sun/commentguard/internal/model"
)

func newRules(t *testing.T) *Rules {
	t.Helper()
	return NewRules(rules.Default())
}

func TestRulesCorpus(t *testing.T) {
	entries, err := testdata.LoadCorpus()
	require.NoError(t, err)

	r := newRules(t)
	for _, e := range entries {
		t.Run(e.Description, func(t *testing.T) {
			got := r.Classify(context.Background(), e.Text)
			assert.Equal(t, e.ExpectedFlagged, got.Flagged)
			assert.Equal(t, e.ExpectedReasons, got.Reasons)
		})
	}
}

func TestEmptyString(t *testing.T) {
	got := newRules(t).Evaluate("")

	assert.True(t, got.Flagged)
	assert.Equal(t, model.NeedsReview, got.Classification)
	assert.Equal(t, []string{"Comment too short"}, got.Reasons)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
}

func TestSafeComment(t *testing.T) {
	got := newRules(t).Evaluate("This is a great article! Very informative.")

	assert.False(t, got.Flagged)
	assert.Equal(t, model.Safe, got.Classification)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Empty(t, got.Reasons)
	assert.NotNil(t, got.Reasons, "reasons should encode as [] not null")
}

func TestSpamWithShortURL(t *testing.T) {
	got := newRules(t).Evaluate("CLICK HERE http://bit.ly/spam for deals!")

	require.True(t, got.Flagged)
	assert.Contains(t, got.Reasons[0], "click here")
	assert.Contains(t, got.Reasons, `Matches spam pattern: https?://bit\.ly`)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
}

func TestExcessiveCaps(t *testing.T) {
	got := newRules(t).Evaluate("AMAZING DEALS HERE NOW!!!")

	require.True(t, got.Flagged)
	assert.Contains(t, got.Reasons, `Matches spam pattern: \b[A-Z]{5,}\b`)
}

func TestLengthChecks(t *testing.T) {
	r := newRules(t)

	long := strings.Repeat("a b ", 300)
	got := r.Evaluate(long)
	assert.Equal(t, []string{"Comment unusually long"}, got.Reasons)

	// Exactly at the limit is not long.
	atLimit := strings.Repeat("ab ", 333) + "a"
	require.Equal(t, 1000, len(atLimit))
	assert.False(t, r.Evaluate(atLimit).Flagged)

	// Lengths count characters, not bytes.
	assert.False(t, r.Evaluate("日本語").Flagged)
	assert.Equal(t, []string{"Comment too short"}, r.Evaluate(" 日本 ").Reasons)
}

func TestConfidenceCapsAtOne(t *testing.T) {
	// keywords, short link, caps, repeated chars, punctuation: five reasons.
	got := newRules(t).Evaluate("SPAMMY!!!!! http://bit.ly?!?!")

	require.Len(t, got.Reasons, 5)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestInvariants(t *testing.T) {
	entries, err := testdata.LoadCorpus()
	require.NoError(t, err)

	inputs := []string{"\x00\xff", "\n\n\n", strings.Repeat("!", 2000), "ÉÉÉÉÉ"}
	for _, e := range entries {
		inputs = append(inputs, e.Text)
	}

	r := newRules(t)
	for _, in := range inputs {
		got := r.Evaluate(in)
		assert.Equal(t, got.Classification == model.NeedsReview, got.Flagged, "input %q", in)
		assert.GreaterOrEqual(t, got.Confidence, 0.0)
		assert.LessOrEqual(t, got.Confidence, 1.0)
		assert.Equal(t, got, r.Evaluate(in), "classification of %q is not idempotent", in)
	}
}

func TestMonotonicity(t *testing.T) {
	r := newRules(t)
	steps := []string{
		"A perfectly normal remark about the article",
		"A perfectly normal remark about the spam article",
		"A perfectly normal remark about the spam article http://bit.ly/x",
		"A perfectly normal remark about the SPAMMY spam article http://bit.ly/x",
		"A perfectly normal remark about the SPAMMY spam article http://bit.ly/x zzzzzz",
	}

	prevCount := 0
	prevConf := 0.0
	for i, s := range steps {
		got := r.Evaluate(s)
		assert.Len(t, got.Reasons, i, "step %d", i)
		if i > 0 {
			assert.GreaterOrEqual(t, len(got.Reasons), prevCount)
			if i > 1 {
				assert.GreaterOrEqual(t, got.Confidence, prevConf)
			}
			assert.InDelta(t, min(0.3*float64(i), 1.0), got.Confidence, 1e-9)
		}
		prevCount = len(got.Reasons)
		prevConf = got.Confidence
	}
}

func TestPunctuationBoundary(t *testing.T) {
	r := newRules(t)

	// One mark in five runes is exactly the default ratio and passes.
	got := r.Evaluate("ab,cd")
	assert.False(t, got.Flagged)
	assert.Empty(t, got.Reasons)

	got = r.Evaluate("ab,c")
	assert.Equal(t, []string{"Excessive punctuation"}, got.Reasons)
}

func TestConfigurableThresholds(t *testing.T) {
	rs, err := rules.Default().Override(rules.Overrides{MinLength: 10, MaxLength: 20, PunctuationRatio: 0.5})
	require.NoError(t, err)
	r := NewRules(rs)

	assert.Equal(t, []string{"Comment too short"}, r.Evaluate("hi there").Reasons)
	assert.Equal(t, []string{"Comment unusually long"}, r.Evaluate("this comment is longer than twenty").Reasons)
	assert.False(t, r.Evaluate("Wait... what?!").Flagged)
}

func TestConcurrentUse(t *testing.T) {
	r := newRules(t)
	want := r.Evaluate("CLICK HERE http://bit.ly/spam for deals!")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := r.Classify(context.Background(), "CLICK HERE http://bit.ly/spam for deals!")
				if !assert.Equal(t, want, got) {
					return
				}
			}
		}()
	}
	wg.Wait()
}
