// Package source defines where comment drafts come from and a registry of
// named source implementations.
package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/crimson-sun/commentguard/internal/model"
)

// Source produces comment drafts for the moderation pipeline.
type Source interface {
	// Posts lists the posts the drafts belong to.
	Posts(ctx context.Context) ([]model.Post, error)

	// Stream sends every draft to out and returns when the source is
	// exhausted or ctx is done. It does not close out.
	Stream(ctx context.Context, out chan<- model.CommentDraft) error
}

// Config holds settings shared by source implementations. Each source reads
// only the fields it needs.
type Config struct {
	// Input is read by line-oriented sources.
	Input io.Reader
	// PostID, PostTitle and Author attribute drafts from line-oriented sources.
	PostID    int64
	PostTitle string
	Author    string
	// Endpoint and Token locate a remote comment API.
	Endpoint string
	Token    string
	PageSize int
}

// Constructor builds a Source from cfg.
type Constructor func(cfg Config) (Source, error)

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register adds a source constructor under name.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// Get returns the constructor registered under name.
func Get(name string) (Constructor, error) {
	mu.RLock()
	defer mu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown comment source: %s", name)
	}
	return ctor, nil
}

// Open builds the source registered under name.
func Open(name string, cfg Config) (Source, error) {
	ctor, err := Get(name)
	if err != nil {
		return nil, err
	}
	return ctor(cfg)
}

// Names returns the registered source names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers d to out unless ctx is done first.
func Send(ctx context.Context, out chan<- model.CommentDraft, d model.CommentDraft) error {
	select {
	case out <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
