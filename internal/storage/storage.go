// Package storage holds the durable object store used for image hosting.
package storage

import "context"

// ObjectStore uploads binary objects and hands back a long-lived readable
// URL for each one.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
