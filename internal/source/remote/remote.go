// Package remote pulls pending comments from a JSON comment API.
//
// The API exposes two endpoints:
//
//	GET /posts                      {"posts": [{"id", "title", "body"}]}
//	GET /comments?page=N&limit=M    {"comments": [{"post", "author", "text"}], "has_more": bool}
//
// Pages are numbered from 1.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/source"
	"github.com/crimson-sun/commentguard/internal/source/httpclient"
)

const defaultPageSize = 100

func init() {
	source.Register("remote", func(cfg source.Config) (source.Source, error) {
		return New(cfg.Endpoint, cfg.Token, WithPageSize(cfg.PageSize))
	})
}

type postsResponse struct {
	Posts []model.Post `json:"posts"`
}

type commentsResponse struct {
	Comments []struct {
		Post   int64  `json:"post"`
		Author string `json:"author"`
		Text   string `json:"text"`
	} `json:"comments"`
	HasMore bool `json:"has_more"`
}

// Option configures a Source.
type Option func(*Source)

// WithPageSize sets the number of comments requested per page. Values <= 0
// keep the default of 100.
func WithPageSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClientOptions passes options to the underlying HTTP client.
func WithClientOptions(opts ...httpclient.Option) Option {
	return func(s *Source) { s.clientOpts = append(s.clientOpts, opts...) }
}

// Source pages through a remote comment API.
type Source struct {
	client     *httpclient.Client
	clientOpts []httpclient.Option
	pageSize   int
	titles     map[int64]string
}

// New returns a Source for the API rooted at endpoint.
func New(endpoint, token string, opts ...Option) (*Source, error) {
	if endpoint == "" {
		return nil, errors.New("remote: endpoint is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("remote: invalid endpoint: %w", err)
	}
	s := &Source{pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	s.client = httpclient.New(endpoint, token, s.clientOpts...)
	return s, nil
}

// Posts fetches the post list. Titles are remembered and attached to the
// drafts produced by a later Stream.
func (s *Source) Posts(ctx context.Context) ([]model.Post, error) {
	var resp postsResponse
	if err := s.client.GetJSON(ctx, "/posts", nil, &resp); err != nil {
		return nil, fmt.Errorf("remote: list posts: %w", err)
	}
	s.titles = make(map[int64]string, len(resp.Posts))
	for _, p := range resp.Posts {
		s.titles[p.ID] = p.Title
	}
	return resp.Posts, nil
}

// Stream pages through /comments until the API reports no more pages.
func (s *Source) Stream(ctx context.Context, out chan<- model.CommentDraft) error {
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(s.pageSize))

		var resp commentsResponse
		if err := s.client.GetJSON(ctx, "/comments", q, &resp); err != nil {
			return fmt.Errorf("remote: fetch comments page %d: %w", page, err)
		}

		for _, c := range resp.Comments {
			d := model.CommentDraft{
				PostID:    c.Post,
				PostTitle: s.titles[c.Post],
				Author:    c.Author,
				Text:      c.Text,
			}
			if err := source.Send(ctx, out, d); err != nil {
				return err
			}
		}

		if !resp.HasMore || len(resp.Comments) == 0 {
			return nil
		}
	}
}
