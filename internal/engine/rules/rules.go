// Package rules holds the moderation rule table: keywords, spam patterns and
// the tuning constants of the rule-based classifier.
//
// A RuleSet is immutable once built. Load it once at startup and share the
// same value between goroutines.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// ErrInvalidRuleSet is returned when a rule table fails validation.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// RuleSet is the read-only rule table evaluated by the classifier.
type RuleSet struct {
	keywords         []string
	patterns         []Pattern
	minLength        int
	maxLength        int
	punctuation      string
	punctuationRatio float64
	reasonWeight     float64
	safeConfidence   float64
}

type fileSpec struct {
	Keywords    []string      `yaml:"keywords"`
	Patterns    []patternSpec `yaml:"patterns"`
	Length      lengthSpec    `yaml:"length"`
	Punctuation punctSpec     `yaml:"punctuation"`
	Scoring     scoringSpec   `yaml:"scoring"`
}

type patternSpec struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description,omitempty"`
	Regex       string `yaml:"regex,omitempty"`
	Repeat      int    `yaml:"repeat,omitempty"`
}

type lengthSpec struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"` // 0 disables the long-text check
}

type punctSpec struct {
	Chars string  `yaml:"chars"`
	Ratio float64 `yaml:"ratio"`
}

type scoringSpec struct {
	ReasonWeight   float64 `yaml:"reason_weight"`
	SafeConfidence float64 `yaml:"safe_confidence"`
}

// Default returns the built-in rule table.
func Default() *RuleSet {
	rs, err := Parse(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded default table is invalid: %v", err))
	}
	return rs
}

// Load reads and validates a YAML rule table from path.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules: %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates a YAML rule table.
func Parse(data []byte) (*RuleSet, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}
	return fromSpec(spec)
}

func fromSpec(spec fileSpec) (*RuleSet, error) {
	rs := &RuleSet{
		minLength:        spec.Length.Min,
		maxLength:        spec.Length.Max,
		punctuation:      spec.Punctuation.Chars,
		punctuationRatio: spec.Punctuation.Ratio,
		reasonWeight:     spec.Scoring.ReasonWeight,
		safeConfidence:   spec.Scoring.SafeConfidence,
	}

	for _, kw := range spec.Keywords {
		if kw == "" {
			return nil, fmt.Errorf("%w: empty keyword", ErrInvalidRuleSet)
		}
		rs.keywords = append(rs.keywords, kw)
	}

	seen := make(map[string]bool, len(spec.Patterns))
	for _, ps := range spec.Patterns {
		if ps.ID == "" {
			return nil, fmt.Errorf("%w: pattern without id", ErrInvalidRuleSet)
		}
		if seen[ps.ID] {
			return nil, fmt.Errorf("%w: duplicate pattern id %q", ErrInvalidRuleSet, ps.ID)
		}
		seen[ps.ID] = true
		p, err := compilePattern(ps)
		if err != nil {
			return nil, err
		}
		rs.patterns = append(rs.patterns, p)
	}

	if err := rs.validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *RuleSet) validate() error {
	switch {
	case rs.minLength < 0:
		return fmt.Errorf("%w: length.min must not be negative", ErrInvalidRuleSet)
	case rs.maxLength < 0:
		return fmt.Errorf("%w: length.max must not be negative", ErrInvalidRuleSet)
	case rs.maxLength > 0 && rs.maxLength < rs.minLength:
		return fmt.Errorf("%w: length.max %d is below length.min %d", ErrInvalidRuleSet, rs.maxLength, rs.minLength)
	case rs.punctuationRatio <= 0 || rs.punctuationRatio > 1:
		return fmt.Errorf("%w: punctuation.ratio must be in (0,1], got %v", ErrInvalidRuleSet, rs.punctuationRatio)
	case rs.reasonWeight <= 0 || rs.reasonWeight > 1:
		return fmt.Errorf("%w: scoring.reason_weight must be in (0,1], got %v", ErrInvalidRuleSet, rs.reasonWeight)
	case rs.safeConfidence < 0 || rs.safeConfidence > 1:
		return fmt.Errorf("%w: scoring.safe_confidence must be in [0,1], got %v", ErrInvalidRuleSet, rs.safeConfidence)
	}
	return nil
}

// Overrides replaces individual tuning constants. Zero fields keep the
// value of the table being overridden.
type Overrides struct {
	MinLength        int
	MaxLength        int
	PunctuationRatio float64
}

// Override returns a copy of rs with the non-zero overrides applied.
func (rs *RuleSet) Override(o Overrides) (*RuleSet, error) {
	out := *rs
	out.keywords = append([]string(nil), rs.keywords...)
	out.patterns = append([]Pattern(nil), rs.patterns...)
	if o.MinLength != 0 {
		out.minLength = o.MinLength
	}
	if o.MaxLength != 0 {
		out.maxLength = o.MaxLength
	}
	if o.PunctuationRatio != 0 {
		out.punctuationRatio = o.PunctuationRatio
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Keywords returns the keyword list in canonical order.
func (rs *RuleSet) Keywords() []string { return append([]string(nil), rs.keywords...) }

// Patterns returns the spam patterns in evaluation order.
func (rs *RuleSet) Patterns() []Pattern { return append([]Pattern(nil), rs.patterns...) }

// MinLength returns the trimmed rune count below which a text is too short.
func (rs *RuleSet) MinLength() int { return rs.minLength }

// MaxLength returns the rune count above which a text is unusually long.
// Zero disables the check.
func (rs *RuleSet) MaxLength() int { return rs.maxLength }

// PunctuationChars returns the characters counted as punctuation.
func (rs *RuleSet) PunctuationChars() string { return rs.punctuation }

// PunctuationRatio returns the punctuation share a text must exceed to be
// flagged.
func (rs *RuleSet) PunctuationRatio() float64 { return rs.punctuationRatio }

// ReasonWeight returns the confidence added per triggered rule.
func (rs *RuleSet) ReasonWeight() float64 { return rs.reasonWeight }

// SafeConfidence returns the confidence reported for unflagged texts.
func (rs *RuleSet) SafeConfidence() float64 { return rs.safeConfidence }

// Marshal renders the effective rule table as YAML in the file format
// accepted by Parse.
func (rs *RuleSet) Marshal() ([]byte, error) {
	spec := fileSpec{
		Keywords:    rs.Keywords(),
		Length:      lengthSpec{Min: rs.minLength, Max: rs.maxLength},
		Punctuation: punctSpec{Chars: rs.punctuation, Ratio: rs.punctuationRatio},
		Scoring:     scoringSpec{ReasonWeight: rs.reasonWeight, SafeConfidence: rs.safeConfidence},
	}
	for _, p := range rs.patterns {
		spec.Patterns = append(spec.Patterns, p.spec())
	}
	return yaml.Marshal(spec)
}
