// Package lines turns each non-blank line of a reader into a comment draft.
package lines

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/source"
)

// maxLineSize bounds a single comment line.
const maxLineSize = 1 << 20

func init() {
	source.Register("lines", func(cfg source.Config) (source.Source, error) {
		return New(cfg.Input, model.Post{ID: cfg.PostID, Title: cfg.PostTitle}, cfg.Author)
	})
}

// Source reads drafts for a single post and author.
type Source struct {
	r      io.Reader
	post   model.Post
	author string
}

// New returns a Source reading r. Every draft is attributed to post and
// author; they are validated by the moderator, not here.
func New(r io.Reader, post model.Post, author string) (*Source, error) {
	if r == nil {
		return nil, errors.New("lines: nil reader")
	}
	return &Source{r: r, post: post, author: author}, nil
}

func (s *Source) Posts(context.Context) ([]model.Post, error) {
	return []model.Post{s.post}, nil
}

// Stream sends one draft per non-blank line. Lines keep their inner
// whitespace; only the trailing carriage return is removed.
func (s *Source) Stream(ctx context.Context, out chan<- model.CommentDraft) error {
	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		d := model.CommentDraft{
			PostID:    s.post.ID,
			PostTitle: s.post.Title,
			Author:    s.author,
			Text:      line,
		}
		if err := source.Send(ctx, out, d); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("lines: read: %w", err)
	}
	return nil
}
