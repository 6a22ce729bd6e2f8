package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/commentguard/internal/engine/compactor"
	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/output"
)

// Output writes JSON-encoded comments to stdout, one per line.
type Output struct {
	mu        sync.Mutex
	enc       *json.Encoder
	verbosity compactor.Verbosity
}

// New creates a stdout Output with verbosity-aware trimming and optional
// pretty-printed JSON.
func New(verbosity compactor.Verbosity, pretty bool) *Output {
	return NewWriter(os.Stdout, verbosity, pretty)
}

// NewWriter is New with an arbitrary destination.
func NewWriter(w io.Writer, verbosity compactor.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, c model.Comment) error {
	formatted := output.FormatComment(c, o.verbosity)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(formatted); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
