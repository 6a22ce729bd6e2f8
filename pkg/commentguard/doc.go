// Package commentguard classifies user comments as safe or in need of human
// review.
//
// Quick start:
//
//	g, err := commentguard.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Close()
//
//	r := g.Classify(ctx, "Buy now! Limited offer!")
//	fmt.Println(r.Flagged, r.Reasons) // true [Contains keywords: buy now, limited offer]
//
// By default only the built-in rule table is used. WithONNXModel and
// WithOpenAIModeration layer a toxicity model on top of the rules; whenever
// the model cannot answer, the rule result is returned unchanged.
//
// A Guard is safe for concurrent use. Create once, reuse across requests.
package commentguard
