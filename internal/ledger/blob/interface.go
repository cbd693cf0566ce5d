package blob

import "context"

// Store is a flat key/value byte store used to persist run artifacts
// (ledger files, summaries). Keys use forward-slash separators.
type Store interface {
	// Put stores data under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the data stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys beginning with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Remove deletes the data stored under key.
	Remove(ctx context.Context, key string) error

	// Exists reports whether key holds data.
	Exists(ctx context.Context, key string) (bool, error)
}
