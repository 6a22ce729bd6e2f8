// Package seed provides a fixed set of sample posts and comments, half of
// them benign and the rest spam or abuse, for demos and smoke tests.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/source"
)

//go:embed seed.json
var fixture []byte

func init() {
	source.Register("seed", func(source.Config) (source.Source, error) {
		return New()
	})
}

type fixtureFile struct {
	Posts    []model.Post `json:"posts"`
	Comments []struct {
		Post   int64  `json:"post"`
		Author string `json:"author"`
		Text   string `json:"text"`
	} `json:"comments"`
}

// Source replays the embedded fixture.
type Source struct {
	posts  []model.Post
	drafts []model.CommentDraft
}

// New parses the embedded fixture.
func New() (*Source, error) {
	var f fixtureFile
	if err := json.Unmarshal(fixture, &f); err != nil {
		return nil, fmt.Errorf("seed: parse fixture: %w", err)
	}

	titles := make(map[int64]string, len(f.Posts))
	for _, p := range f.Posts {
		titles[p.ID] = p.Title
	}

	s := &Source{posts: f.Posts}
	for _, c := range f.Comments {
		s.drafts = append(s.drafts, model.CommentDraft{
			PostID:    c.Post,
			PostTitle: titles[c.Post],
			Author:    c.Author,
			Text:      c.Text,
		})
	}
	return s, nil
}

// Posts returns the fixture posts.
func (s *Source) Posts(context.Context) ([]model.Post, error) {
	return append([]model.Post(nil), s.posts...), nil
}

// Drafts returns the fixture comments in fixture order.
func (s *Source) Drafts() []model.CommentDraft {
	return append([]model.CommentDraft(nil), s.drafts...)
}

func (s *Source) Stream(ctx context.Context, out chan<- model.CommentDraft) error {
	for _, d := range s.drafts {
		if err := source.Send(ctx, out, d); err != nil {
			return err
		}
	}
	return nil
}
