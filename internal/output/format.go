package output

import (
	"github.com/crimson-sun/commentguard/internal/engine/compactor"
	"github.com/crimson-sun/commentguard/internal/model"
)

// FormatComment returns a copy of the comment trimmed according to verbosity.
// At Minimal: text becomes a short preview and review details are omitted.
// At Standard: long text is truncated, review kept.
// At Full: all fields preserved.
func FormatComment(c model.Comment, verbosity compactor.Verbosity) model.Comment {
	return compactor.New(verbosity).Compact(c)
}
