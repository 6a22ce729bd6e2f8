// Package compactor trims moderated comments for output according to a
// verbosity level.
package compactor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/commentguard/internal/model"
)

// Verbosity controls how much detail is retained in emitted comments.
type Verbosity int

const (
	Minimal  Verbosity = iota // text preview only, no review details
	Standard                  // truncated text, full review
	Full                      // everything
)

const (
	previewRunes  = 50
	standardRunes = 2000
	summaryRunes  = 120
)

// ParseVerbosity converts "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("compactor: unknown verbosity %q", s)
	}
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// Compactor shapes comments for output.
type Compactor struct {
	Verbosity Verbosity
}

// New creates a Compactor with the given verbosity level.
func New(v Verbosity) *Compactor {
	return &Compactor{Verbosity: v}
}

// Compact returns a copy of c trimmed to the compactor's verbosity. The
// Flagged field is never altered.
func (cp *Compactor) Compact(c model.Comment) model.Comment {
	out := c
	if c.Review != nil {
		r := c.Review.Clone()
		out.Review = &r
	}

	switch cp.Verbosity {
	case Minimal:
		out.Text = Preview(c.Text)
		out.Review = nil
	case Standard:
		out.Text = truncate(c.Text, standardRunes)
	}
	return out
}

// Preview returns the first 50 characters of text followed by "..." when
// anything was cut.
func Preview(text string) string {
	return truncate(text, previewRunes)
}

// Summary returns the first line of text, cut at a word boundary to at most
// 120 characters. The moderator logs flagged comments with it.
func Summary(text string) string {
	return summarize(text)
}

// truncate cuts s to at most maxRunes runes, appending "..." if cut.
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}

func summarize(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimRight(line, "\r")
	if utf8.RuneCountInString(line) <= summaryRunes {
		return line
	}
	cut := string([]rune(line)[:summaryRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + "..."
}
