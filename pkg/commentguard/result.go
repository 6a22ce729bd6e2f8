package commentguard

import "github.com/crimson-sun/commentguard/internal/model"

// Classification labels.
const (
	Safe        = string(model.Safe)
	NeedsReview = string(model.NeedsReview)
)

// Result is the verdict for one comment.
type Result struct {
	Classification string   `json:"classification"` // Safe or NeedsReview
	Confidence     float64  `json:"confidence"`     // 0.0-1.0
	Reasons        []string `json:"reasons"`        // empty when safe
	Flagged        bool     `json:"flagged"`        // Classification == NeedsReview
}

func resultFromModel(r model.Result) Result {
	return Result{
		Classification: string(r.Classification),
		Confidence:     r.Confidence,
		Reasons:        append([]string{}, r.Reasons...),
		Flagged:        r.Flagged,
	}
}
