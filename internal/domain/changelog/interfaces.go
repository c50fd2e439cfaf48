package changelog

import "context"

// Repository provides persistence operations for change entries.
type Repository interface {
	Log(ctx context.Context, entry *Entry) error
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
}

// Publisher forwards logged entries to an external change feed.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}
