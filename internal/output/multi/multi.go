// Package multi fans comments out to several outputs.
package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/output"
)

// Multi delivers each comment to every wrapped output in order. A failing
// output does not stop delivery to the rest.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers c to every wrapped output and joins their errors.
func (m *Multi) Write(ctx context.Context, c model.Comment) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every wrapped output and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Filter forwards only comments for which keep returns true.
type Filter struct {
	inner output.Output
	keep  func(model.Comment) bool
}

// NewFilter wraps inner with a predicate.
func NewFilter(inner output.Output, keep func(model.Comment) bool) *Filter {
	return &Filter{inner: inner, keep: keep}
}

// FlaggedOnly forwards only comments that need review.
func FlaggedOnly(inner output.Output) *Filter {
	return NewFilter(inner, func(c model.Comment) bool { return c.Flagged })
}

func (f *Filter) Write(ctx context.Context, c model.Comment) error {
	if !f.keep(c) {
		return nil
	}
	return f.inner.Write(ctx, c)
}

func (f *Filter) Close() error { return f.inner.Close() }
