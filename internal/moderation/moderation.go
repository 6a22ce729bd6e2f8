// Package moderation turns comment drafts into moderated comments, the step
// a blog backend runs once when a comment is created.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/crimson-sun/commentguard/internal/engine/classifier"
	"github.com/crimson-sun/commentguard/internal/engine/compactor"
	"github.com/crimson-sun/commentguard/internal/model"
)

// MaxAuthorLength is the longest accepted author name, in characters.
const MaxAuthorLength = 100

// ErrInvalidComment is returned for drafts that cannot be stored.
var ErrInvalidComment = errors.New("invalid comment")

// Option configures a Moderator.
type Option func(*Moderator)

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Moderator) { m.now = now }
}

// WithIDGenerator sets the comment ID source. Default: random UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(m *Moderator) { m.newID = gen }
}

// WithTally records every accepted comment in t.
func WithTally(t *Tally) Option {
	return func(m *Moderator) { m.tally = t }
}

// Moderator validates drafts and classifies their text exactly once.
type Moderator struct {
	classifier classifier.TextClassifier
	now        func() time.Time
	newID      func() string
	tally      *Tally
}

// New creates a Moderator around c.
func New(c classifier.TextClassifier, opts ...Option) *Moderator {
	m := &Moderator{
		classifier: c,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit validates d, classifies its text and returns the comment to persist.
// The returned comment's Flagged always equals its Review's Flagged.
func (m *Moderator) Submit(ctx context.Context, d model.CommentDraft) (model.Comment, error) {
	if err := Validate(d); err != nil {
		return model.Comment{}, err
	}

	r := m.classifier.Classify(ctx, d.Text)
	c := model.Comment{
		ID:        m.newID(),
		PostID:    d.PostID,
		Author:    d.Author,
		Text:      d.Text,
		Flagged:   r.Flagged,
		CreatedAt: m.now().UTC(),
		Review:    &r,
	}

	if c.Flagged {
		slog.Info("comment flagged for review",
			"comment_id", c.ID, "post", c.PostID, "author", c.Author,
			"text", compactor.Summary(c.Text),
			"confidence", r.Confidence, "reasons", r.Reasons)
	} else {
		slog.Debug("comment accepted", "comment_id", c.ID, "post", c.PostID)
	}
	if m.tally != nil {
		m.tally.Add(c)
	}
	return c, nil
}

// Validate checks the fields a comment must have before classification.
func Validate(d model.CommentDraft) error {
	var problems []string
	if d.PostID <= 0 {
		problems = append(problems, "post id must be positive")
	}
	author := strings.TrimSpace(d.Author)
	switch {
	case author == "":
		problems = append(problems, "author is required")
	case utf8.RuneCountInString(d.Author) > MaxAuthorLength:
		problems = append(problems, fmt.Sprintf("author longer than %d characters", MaxAuthorLength))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidComment, strings.Join(problems, "; "))
	}
	return nil
}

// PostStats counts a post's comments.
type PostStats struct {
	PostID   int64  `json:"post"`
	Title    string `json:"title,omitempty"`
	Comments int    `json:"comment_count"`
	Flagged  int    `json:"flagged_count"`
}

// Tally keeps per-post comment counts. Safe for concurrent use.
type Tally struct {
	mu    sync.Mutex
	posts map[int64]*PostStats
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{posts: make(map[int64]*PostStats)}
}

// Register records a post so it appears in Posts even with no comments.
func (t *Tally) Register(p model.Post) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats(p.ID)
	if p.Title != "" {
		s.Title = p.Title
	}
}

// Add counts c against its post.
func (t *Tally) Add(c model.Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats(c.PostID)
	s.Comments++
	if c.Flagged {
		s.Flagged++
	}
}

func (t *Tally) stats(id int64) *PostStats {
	s, ok := t.posts[id]
	if !ok {
		s = &PostStats{PostID: id}
		t.posts[id] = s
	}
	return s
}

// Post returns the counts for one post.
func (t *Tally) Post(id int64) PostStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.posts[id]; ok {
		return *s
	}
	return PostStats{PostID: id}
}

// Posts returns counts for every known post ordered by post id.
func (t *Tally) Posts() []PostStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PostStats, 0, len(t.posts))
	for _, s := range t.posts {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostID < out[j].PostID })
	return out
}

// Totals sums every post.
func (t *Tally) Totals() (posts, comments, flagged int) {
	for _, s := range t.Posts() {
		posts++
		comments += s.Comments
		flagged += s.Flagged
	}
	return posts, comments, flagged
}
