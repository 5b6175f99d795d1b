package conversation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeBackends(t *testing.T, retention int) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "turns.db"), retention)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(retention),
		"sqlite": sqlite,
	}
}

func TestStoreAppendAndRecent(t *testing.T) {
	for name, store := range storeBackends(t, 10) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, turn := range numberedTurns(4) {
				require.NoError(t, store.Append(ctx, "s1", turn))
			}

			got, err := store.Recent(ctx, "s1", 3)
			require.NoError(t, err)
			if diff := cmp.Diff(numberedTurns(4)[1:], got); diff != "" {
				t.Fatalf("Recent() mismatch (-want +got):\n%s", diff)
			}

			all, err := store.Recent(ctx, "s1", 0)
			require.NoError(t, err)
			assert.Len(t, all, 4)

			none, err := store.Recent(ctx, "other", 3)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStoreRetentionEvictsOldest(t *testing.T) {
	for name, store := range storeBackends(t, 5) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, turn := range numberedTurns(12) {
				require.NoError(t, store.Append(ctx, "s1", turn))
			}
			got, err := store.Recent(ctx, "s1", 0)
			require.NoError(t, err)
			if diff := cmp.Diff(numberedTurns(12)[7:], got); diff != "" {
				t.Fatalf("Recent() after eviction mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreScopesAreIsolatedAndForgettable(t *testing.T) {
	for name, store := range storeBackends(t, 10) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Append(ctx, "a", Turn{Role: RoleUser, Content: "from a"}))
			require.NoError(t, store.Append(ctx, "b", Turn{Role: RoleUser, Content: "from b"}))

			got, err := store.Recent(ctx, "a", 10)
			require.NoError(t, err)
			assert.Equal(t, []Turn{{Role: RoleUser, Content: "from a"}}, got)

			require.NoError(t, store.Forget(ctx, "a"))
			got, err = store.Recent(ctx, "a", 10)
			require.NoError(t, err)
			assert.Empty(t, got)

			got, err = store.Recent(ctx, "b", 10)
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestStoreRejectsEmptyScope(t *testing.T) {
	for name, store := range storeBackends(t, 10) {
		t.Run(name, func(t *testing.T) {
			err := store.Append(context.Background(), "", Turn{Role: RoleUser, Content: "x"})
			assert.ErrorIs(t, err, ErrInvalidScope)
		})
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore(1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = store.Append(ctx, SharedScope, Turn{Role: RoleUser, Content: fmt.Sprintf("%d-%d", w, i)})
			}
		}(w)
	}
	wg.Wait()

	got, err := store.Recent(ctx, SharedScope, 0)
	require.NoError(t, err)
	assert.Len(t, got, 400)
	seen := make(map[string]bool, len(got))
	for _, turn := range got {
		assert.False(t, seen[turn.Content], "duplicate turn %q", turn.Content)
		seen[turn.Content] = true
	}
}

func TestNewStoreSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, "", 0)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(ctx, "sqlite://"+filepath.Join(t.TempDir(), "x.db"), 0)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
}
