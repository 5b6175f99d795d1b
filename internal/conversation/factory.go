package conversation

import (
	"context"
	"strings"
)

// NewStore picks a backend from databaseURL: postgres:// and postgresql://
// use PostgreSQL, sqlite:// and file: use SQLite, empty keeps turns in memory.
func NewStore(ctx context.Context, databaseURL string, retention int) (Store, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return NewMemoryStore(retention), nil
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(url, "sqlite://"), retention)
	case strings.HasPrefix(url, "file:"):
		return NewSQLiteStore(ctx, url, retention)
	default:
		return NewPostgresStore(ctx, url, retention)
	}
}
