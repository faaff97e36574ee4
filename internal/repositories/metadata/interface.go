package metadata

import (
	"context"
)

// Repository is a small key/value table stored next to the tiddlers.
type Repository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
