package model

import "math"

// Classification is the verdict assigned to a piece of text.
type Classification string

const (
	Safe        Classification = "safe"
	NeedsReview Classification = "needs_review"
)

// Result is the outcome of classifying a single text.
// Reasons are ordered by rule evaluation order, one per triggered rule.
type Result struct {
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Reasons        []string       `json:"reasons"`
	Flagged        bool           `json:"flagged"`
}

// NewResult derives the verdict fields from the collected reasons.
// flaggedConfidence is used when at least one reason fired, safeConfidence otherwise.
func NewResult(reasons []string, flaggedConfidence, safeConfidence float64) Result {
	if reasons == nil {
		reasons = []string{}
	}
	if len(reasons) == 0 {
		return Result{
			Classification: Safe,
			Confidence:     clamp(safeConfidence),
			Reasons:        reasons,
		}
	}
	return Result{
		Classification: NeedsReview,
		Confidence:     clamp(flaggedConfidence),
		Reasons:        reasons,
		Flagged:        true,
	}
}

// Clone returns a copy whose Reasons slice does not alias r's.
func (r Result) Clone() Result {
	out := r
	out.Reasons = append([]string{}, r.Reasons...)
	return out
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
