// Package blob archives raw uploaded files.
package blob

import "context"

// Store is a write-only archive for raw uploaded files.
type Store interface {
	// Put stores the data under the given name, returning the URL of
	// the stored object.
	Put(ctx context.Context, name string, contentType string, data []byte) (string, error)
}
