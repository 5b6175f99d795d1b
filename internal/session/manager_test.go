package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestManagerResolveCreatesAndReuses(t *testing.T) {
	m := NewManager(time.Minute)

	s, created, err := m.Resolve("")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, s.ID)

	again, created, err := m.Resolve(s.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s.ID, again.ID)

	assert.Equal(t, 1, m.ActiveCount())
}

func TestManagerResolveIssuesFreshIDForUnknown(t *testing.T) {
	m := NewManager(time.Minute)

	s, created, err := m.Resolve("client-chosen")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "client-chosen", s.ID)
	_, err = uuid.Parse(s.ID)
	require.NoError(t, err)

	_, err = m.get("client-chosen")
	assert.ErrorIs(t, err, ErrNotFound)

	ended, err := m.End(s.ID)
	require.NoError(t, err)
	reopened, created, err := m.Resolve(ended.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, ended.ID, reopened.ID)
}

func TestManagerResolveRejectsBadIDs(t *testing.T) {
	m := NewManager(time.Minute)
	for _, id := range []string{"has space", strings.Repeat("x", maxIDLength+1)} {
		_, _, err := m.Resolve(id)
		assert.ErrorIs(t, err, ErrInvalidID, "id=%q", id)
	}
}

func TestManagerRecordTurnsAndEnd(t *testing.T) {
	m := NewManager(time.Minute)
	var hooked []string
	m.SetExpireHook(func(s *Session) { hooked = append(hooked, s.ID) })

	s, _, err := m.Resolve("")
	require.NoError(t, err)
	require.NoError(t, m.RecordTurns(s.ID, 2))

	got, err := m.get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Turns)

	ended, err := m.End(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, ended.Status)
	assert.Equal(t, []string{s.ID}, hooked)

	_, err = m.get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.End(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.RecordTurns(s.ID, 1), ErrNotFound)
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	var (
		mu      sync.Mutex
		expired []string
	)
	m.SetExpireHook(func(s *Session) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, s.ID)
	})
	s, _, err := m.Resolve("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	m.StartJanitor(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(expired) == 1 && expired[0] == s.ID
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)

	_, err = m.get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, m.ActiveCount())
}
