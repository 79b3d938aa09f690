// Package archive provides the blob backends the price cache persists
// through: the local filesystem for single-machine use, or an
// S3-compatible bucket when the cache is shared between machines.
package archive

import "context"

// Storage is a flat keyed blob store. Keys are slash-separated relative
// paths such as "prices/BTCUSDT.csv".
type Storage interface {
	// Write stores data under key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves the value stored under key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all keys beginning with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
