package classifier

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/commentguard/internal/engine/rules"
	"github.com/crimson-sun/commentguard/internal/model"
)

// TextClassifier decides whether a piece of text needs human review.
// Implementations never fail: any input yields a well-formed Result.
type TextClassifier interface {
	Classify(ctx context.Context, text string) model.Result
}

// Rules evaluates a rule table against text. It holds no mutable state and
// is safe for concurrent use.
type Rules struct {
	keywords []keyword
	patterns []rules.Pattern
	punct    string
	minLen   int
	maxLen   int
	ratio    float64
	weight   float64
	safeConf float64
}

type keyword struct {
	display string
	lower   string
}

// NewRules creates a rule-based classifier over rs.
func NewRules(rs *rules.RuleSet) *Rules {
	r := &Rules{
		patterns: rs.Patterns(),
		punct:    rs.PunctuationChars(),
		minLen:   rs.MinLength(),
		maxLen:   rs.MaxLength(),
		ratio:    rs.PunctuationRatio(),
		weight:   rs.ReasonWeight(),
		safeConf: rs.SafeConfidence(),
	}
	for _, kw := range rs.Keywords() {
		r.keywords = append(r.keywords, keyword{display: kw, lower: strings.ToLower(kw)})
	}
	return r
}

// Classify implements TextClassifier. The context is unused; rule
// evaluation does no I/O.
func (r *Rules) Classify(_ context.Context, text string) model.Result {
	return r.Evaluate(text)
}

// Evaluate runs every rule against text and derives the verdict.
func (r *Rules) Evaluate(text string) model.Result {
	reasons := r.reasons(text)
	return model.NewResult(reasons, r.confidence(len(reasons)), r.safeConf)
}

func (r *Rules) reasons(text string) []string {
	reasons := []string{}

	lower := strings.ToLower(text)
	var found []string
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw.lower) {
			found = append(found, kw.display)
		}
	}
	if len(found) > 0 {
		reasons = append(reasons, "Contains keywords: "+strings.Join(found, ", "))
	}

	for _, p := range r.patterns {
		if p.Match(text) {
			reasons = append(reasons, "Matches spam pattern: "+p.Source())
		}
	}

	length := utf8.RuneCountInString(text)
	if utf8.RuneCountInString(strings.TrimSpace(text)) < r.minLen {
		reasons = append(reasons, "Comment too short")
	} else if r.maxLen > 0 && length > r.maxLen {
		reasons = append(reasons, "Comment unusually long")
	}

	if r.punctuationRatio(text, length) > r.ratio {
		reasons = append(reasons, "Excessive punctuation")
	}

	return reasons
}

func (r *Rules) punctuationRatio(text string, length int) float64 {
	if r.punct == "" {
		return 0
	}
	count := 0
	for _, c := range text {
		if strings.ContainsRune(r.punct, c) {
			count++
		}
	}
	return float64(count) / float64(max(length, 1))
}

// confidence returns the flagged confidence for n triggered rules.
func (r *Rules) confidence(n int) float64 {
	return min(r.weight*float64(n), 1.0)
}
