// Package pipeline moves comment drafts from a source through moderation to
// an output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/moderation"
	"github.com/crimson-sun/commentguard/internal/output"
	"github.com/crimson-sun/commentguard/internal/source"
)

// defaultQueueSize is the number of drafts buffered between source and
// moderator.
const defaultQueueSize = 64

// Moderator turns a draft into a moderated comment.
type Moderator interface {
	Submit(ctx context.Context, d model.CommentDraft) (model.Comment, error)
}

// Summary reports what a run produced.
type Summary struct {
	Posts    int                    `json:"posts"`
	Comments int                    `json:"comments"`
	Flagged  int                    `json:"flagged"`
	Skipped  int                    `json:"skipped"`
	PerPost  []moderation.PostStats `json:"per_post"`
}

// Pipeline connects a source, moderator and output.
type Pipeline struct {
	source    source.Source
	moderator Moderator
	output    output.Output
	skipped   atomic.Int64
}

// New creates a Pipeline from the given components.
func New(src source.Source, mod Moderator, out output.Output) *Pipeline {
	return &Pipeline{source: src, moderator: mod, output: out}
}

// Run drains the source. Drafts the moderator rejects as invalid are logged
// and skipped; any other error stops the run. The output is not closed.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	tally := moderation.NewTally()

	posts, err := p.source.Posts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: list posts: %w", err)
	}
	for _, post := range posts {
		tally.Register(post)
	}

	var skipped int
	g, gctx := errgroup.WithContext(ctx)
	drafts := make(chan model.CommentDraft, defaultQueueSize)

	g.Go(func() error {
		defer close(drafts)
		if err := p.source.Stream(gctx, drafts); err != nil {
			return fmt.Errorf("pipeline source: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		for d := range drafts {
			c, err := p.moderator.Submit(gctx, d)
			if errors.Is(err, moderation.ErrInvalidComment) {
				skipped++
				p.skipped.Add(1)
				slog.Warn("skipping invalid comment",
					"post", d.PostID, "author", d.Author, "error", err)
				continue
			}
			if err != nil {
				return fmt.Errorf("pipeline moderate: %w", err)
			}
			tally.Add(c)
			if err := p.output.Write(gctx, c); err != nil {
				return fmt.Errorf("pipeline output: %w", err)
			}
		}
		return nil
	})

	err = g.Wait()

	s := Summary{PerPost: tally.Posts(), Skipped: skipped}
	s.Posts, s.Comments, s.Flagged = tally.Totals()
	return s, err
}

// SkippedComments returns the number of drafts rejected as invalid across
// all runs.
func (p *Pipeline) SkippedComments() int64 {
	return p.skipped.Load()
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
