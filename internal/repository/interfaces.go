package repository

import (
	"context"

	"github.com/rpggio/plantrack/internal/domain/changelog"
)

// KVStore is the raw key-value storage behind the persistence gateway.
// Get returns ErrNotFound for keys that were never written.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ChangeRepository manages change log persistence. Since returns entries
// with an id above afterID in ascending id order.
type ChangeRepository interface {
	Log(ctx context.Context, entry *changelog.Entry) error
	List(ctx context.Context, opts changelog.ListOptions) ([]changelog.Entry, error)
	Since(ctx context.Context, afterID int64, limit int) ([]changelog.Entry, error)
}
