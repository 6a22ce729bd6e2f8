package commentguard_test

import (
	"context"
	"fmt"
	"log"

	"github.com/crimson-sun/commentguard/pkg/commentguard"
)

func Example() {
	g, err := commentguard.New()
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	r := g.Classify(context.Background(), "Buy now! Limited offer! Click here: http://bit.ly/spam")
	fmt.Println(r.Classification, r.Flagged)
	for _, reason := range r.Reasons {
		fmt.Println(reason)
	}
	fmt.Printf("confidence %.1f\n", r.Confidence)
	// Output:
	// needs_review true
	// Contains keywords: spam, click here, buy now, limited offer
	// Matches spam pattern: https?://bit\.ly
	// confidence 0.6
}

func ExampleGuard_ClassifyBatch() {
	g, err := commentguard.New(commentguard.WithWorkers(2))
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	results := g.ClassifyBatch(context.Background(), []string{
		"Thanks for sharing this.",
		"you idiot",
	})
	for _, r := range results {
		fmt.Println(r.Classification, r.Reasons)
	}
	// Output:
	// safe []
	// needs_review [Contains keywords: idiot]
}
