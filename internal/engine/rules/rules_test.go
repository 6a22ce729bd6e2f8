package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	rs := Default()

	assert.Equal(t, []string{
		"spam", "scam", "click here", "buy now", "limited offer",
		"damn", "hate", "stupid", "idiot", "jerk",
	}, rs.Keywords())

	var ids, sources []string
	for _, p := range rs.Patterns() {
		ids = append(ids, p.ID())
		sources = append(sources, p.Source())
	}
	assert.Equal(t, []string{"short_url", "suspicious_tld", "excessive_caps", "repeated_chars"}, ids)
	assert.Equal(t, []string{`https?://bit\.ly`, `https?://.*\.xyz`, `\b[A-Z]{5,}\b`, `(.)\1{4,}`}, sources)

	assert.Equal(t, 3, rs.MinLength())
	assert.Equal(t, 1000, rs.MaxLength())
	assert.Equal(t, "!?.,;:", rs.PunctuationChars())
	assert.InDelta(t, 0.2, rs.PunctuationRatio(), 1e-9)
	assert.InDelta(t, 0.3, rs.ReasonWeight(), 1e-9)
	assert.InDelta(t, 0.9, rs.SafeConfidence(), 1e-9)
}

func TestAccessorsReturnCopies(t *testing.T) {
	rs := Default()
	kw := rs.Keywords()
	kw[0] = "mutated"
	assert.Equal(t, "spam", rs.Keywords()[0])
}

func TestPatternMatch(t *testing.T) {
	patterns := map[string]Pattern{}
	for _, p := range Default().Patterns() {
		patterns[p.ID()] = p
	}

	tests := []struct {
		pattern string
		text    string
		want    bool
	}{
		{"short_url", "see http://bit.ly/abc", true},
		{"short_url", "see https://bit.ly/abc", true},
		{"short_url", "see HTTP://BIT.LY/abc", false},
		{"short_url", "see bit.ly/abc", false},
		{"suspicious_tld", "https://definitely-not-a-scam.xyz now", true},
		{"suspicious_tld", "https://example.com", false},
		{"excessive_caps", "AMAZING deals", true},
		{"excessive_caps", "NASA", false},
		{"excessive_caps", "ABCDEfgh", false},
		{"repeated_chars", "soooooo good", true},
		{"repeated_chars", "!!!!!", true},
		{"repeated_chars", "soooo good", false},
		{"repeated_chars", "aa\naaa", false},
		{"repeated_chars", "ééééé", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, patterns[tt.pattern].Match(tt.text))
		})
	}
}

func TestParseInvalid(t *testing.T) {
	base := "punctuation: {chars: '!', ratio: 0.2}\nscoring: {reason_weight: 0.3, safe_confidence: 0.9}\n"
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "keywords: [\n"},
		{"bad regex", base + "patterns: [{id: x, regex: '(['}]\n"},
		{"regex and repeat", base + "patterns: [{id: x, regex: 'a', repeat: 3}]\n"},
		{"no matcher", base + "patterns: [{id: x}]\n"},
		{"repeat too small", base + "patterns: [{id: x, repeat: 1}]\n"},
		{"missing id", base + "patterns: [{regex: 'a'}]\n"},
		{"duplicate id", base + "patterns: [{id: x, regex: 'a'}, {id: x, regex: 'b'}]\n"},
		{"empty keyword", base + "keywords: ['']\n"},
		{"ratio zero", "scoring: {reason_weight: 0.3, safe_confidence: 0.9}\n"},
		{"weight zero", "punctuation: {chars: '!', ratio: 0.2}\n"},
		{"negative min", base + "length: {min: -1}\n"},
		{"max below min", base + "length: {min: 10, max: 5}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRuleSet)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
keywords: [viagra]
patterns:
  - id: money
    regex: '\$\d+'
length: {min: 1, max: 0}
punctuation: {chars: "!", ratio: 0.5}
scoring: {reason_weight: 0.5, safe_confidence: 0.8}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"viagra"}, rs.Keywords())
	require.Len(t, rs.Patterns(), 1)
	assert.True(t, rs.Patterns()[0].Match("only $500"))
	assert.Equal(t, 0, rs.MaxLength())
	assert.InDelta(t, 0.8, rs.SafeConfidence(), 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOverride(t *testing.T) {
	rs := Default()

	out, err := rs.Override(Overrides{MinLength: 5, PunctuationRatio: 0.4})
	require.NoError(t, err)
	assert.Equal(t, 5, out.MinLength())
	assert.Equal(t, 1000, out.MaxLength())
	assert.InDelta(t, 0.4, out.PunctuationRatio(), 1e-9)

	// The source table is untouched.
	assert.Equal(t, 3, rs.MinLength())
	assert.InDelta(t, 0.2, rs.PunctuationRatio(), 1e-9)

	_, err = rs.Override(Overrides{PunctuationRatio: 2})
	assert.ErrorIs(t, err, ErrInvalidRuleSet)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	rs, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default().Keywords(), rs.Keywords())
	require.Len(t, rs.Patterns(), 4)
	assert.Equal(t, `(.)\1{4,}`, rs.Patterns()[3].Source())
}
