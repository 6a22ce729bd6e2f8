// Package output defines destinations for moderated comments.
package output

import (
	"context"

	"github.com/crimson-sun/commentguard/internal/model"
)

// Output defines the interface for moderated comment destinations.
type Output interface {
	Write(ctx context.Context, c model.Comment) error
	Close() error
}
