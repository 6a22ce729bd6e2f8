package model

import "time"

// Post is a blog post that comments attach to.
type Post struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CommentDraft is a submitted comment before moderation.
type CommentDraft struct {
	PostID    int64
	PostTitle string // optional, carried through for reporting
	Author    string
	Text      string
}

// Comment is a moderated comment ready to be persisted by the caller.
type Comment struct {
	ID        string    `json:"id"`
	PostID    int64     `json:"post"`
	Author    string    `json:"author"`
	Text      string    `json:"text,omitempty"`
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"created_at"`
	Review    *Result   `json:"review,omitempty"`
}
