package feed

import (
	"context"

	"github.com/quantlab/meanrev/internal/core"
)

// Loader defines the interface for daily-bar data sources.
type Loader interface {
	// Name returns the loader identifier.
	Name() string

	// Load fetches the full bar series from the source, ordered as the
	// source delivers it. Callers validate ordering before use.
	Load(ctx context.Context) ([]core.Bar, error)
}
