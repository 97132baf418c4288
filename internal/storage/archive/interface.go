// internal/storage/archive/interface.go

// Package archive persists run artifacts: backtest results, sweep
// leaderboards and the strategy definitions that produced them. A
// Storage backend is a flat keyspace with slash-separated keys; the
// Archive type layers the runs/<id>/<artifact>.json convention on top.
package archive

import "context"

// Storage is a flat key-value artifact store. Keys use forward slashes
// regardless of backend.
type Storage interface {
	// Write stores data at the given key, creating or replacing it.
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves the data stored at the key.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the key.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key holds data.
	Exists(ctx context.Context, key string) (bool, error)
}
