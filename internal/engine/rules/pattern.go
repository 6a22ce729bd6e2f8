package rules

import (
	"fmt"
	"regexp"
)

// Pattern is a compiled spam pattern. Patterns are either a regular
// expression or a run detector for repeated identical characters, which
// RE2 cannot express without back-references.
type Pattern struct {
	id          string
	description string
	source      string
	re          *regexp.Regexp
	run         int
}

// ID returns the stable identifier of the pattern.
func (p Pattern) ID() string { return p.id }

// Description returns the human-readable description.
func (p Pattern) Description() string { return p.description }

// Source returns the pattern text used in reasons.
func (p Pattern) Source() string { return p.source }

// Match reports whether the pattern occurs anywhere in text.
func (p Pattern) Match(text string) bool {
	if p.re != nil {
		return p.re.MatchString(text)
	}
	return hasRun(text, p.run)
}

func compilePattern(spec patternSpec) (Pattern, error) {
	p := Pattern{id: spec.ID, description: spec.Description}
	switch {
	case spec.Regex != "" && spec.Repeat != 0:
		return Pattern{}, fmt.Errorf("%w: pattern %q sets both regex and repeat", ErrInvalidRuleSet, spec.ID)
	case spec.Regex != "":
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: pattern %q: %v", ErrInvalidRuleSet, spec.ID, err)
		}
		p.re = re
		p.source = spec.Regex
	case spec.Repeat >= 2:
		p.run = spec.Repeat
		p.source = fmt.Sprintf(`(.)\1{%d,}`, spec.Repeat-1)
	case spec.Repeat != 0:
		return Pattern{}, fmt.Errorf("%w: pattern %q: repeat must be at least 2, got %d", ErrInvalidRuleSet, spec.ID, spec.Repeat)
	default:
		return Pattern{}, fmt.Errorf("%w: pattern %q has neither regex nor repeat", ErrInvalidRuleSet, spec.ID)
	}
	return p, nil
}

func (p Pattern) spec() patternSpec {
	s := patternSpec{ID: p.id, Description: p.description}
	if p.re != nil {
		s.Regex = p.source
	} else {
		s.Repeat = p.run
	}
	return s
}

// hasRun reports whether text holds n or more consecutive identical runes.
// Newlines never extend a run, matching "." semantics.
func hasRun(text string, n int) bool {
	var prev rune
	count := 0
	for _, r := range text {
		if r == '\n' {
			count = 0
			continue
		}
		if count > 0 && r == prev {
			count++
		} else {
			prev = r
			count = 1
		}
		if count >= n {
			return true
		}
	}
	return false
}
