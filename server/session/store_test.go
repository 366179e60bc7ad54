package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_History(t *testing.T) {
	store := NewStore()

	t.Run("UnknownSessionIsEmpty", func(t *testing.T) {
		turns := store.History("never-seen")
		require.NotNil(t, turns)
		assert.Empty(t, turns)
	})

	t.Run("AppendPreservesOrder", func(t *testing.T) {
		store.Append("s1", NewTurn(RoleUser, "hello"))
		store.Append("s1", NewTurn(RoleAssistant, "hi there"))

		turns := store.History("s1")
		require.Len(t, turns, 2)
		assert.Equal(t, RoleUser, turns[0].Role)
		assert.Equal(t, "hello", turns[0].Text)
		assert.Equal(t, RoleAssistant, turns[1].Role)
		assert.Equal(t, "hi there", turns[1].Text)
	})

	t.Run("HistoryReturnsCopy", func(t *testing.T) {
		store.Append("s2", NewTurn(RoleUser, "original"))

		turns := store.History("s2")
		turns[0].Text = "mutated"

		again := store.History("s2")
		assert.Equal(t, "original", again[0].Text)
	})

	t.Run("DuplicateUserTurnsTolerated", func(t *testing.T) {
		store.Append("s3", NewTurn(RoleUser, "first try"))
		store.Append("s3", NewTurn(RoleUser, "second try"))

		turns := store.History("s3")
		require.Len(t, turns, 2)
		assert.Equal(t, RoleUser, turns[0].Role)
		assert.Equal(t, RoleUser, turns[1].Role)
	})
}

func TestStore_Recent(t *testing.T) {
	store := NewStore()
	for i := 0; i < 5; i++ {
		store.Append("s1", NewTurn(RoleUser, fmt.Sprintf("msg-%d", i)))
	}

	turns := store.Recent("s1", 2)
	require.Len(t, turns, 2)
	assert.Equal(t, "msg-3", turns[0].Text)
	assert.Equal(t, "msg-4", turns[1].Text)

	all := store.Recent("s1", 0)
	assert.Len(t, all, 5)
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()
	store.Append("s1", NewTurn(RoleUser, "hello"))
	require.Equal(t, 1, store.Count())

	store.Clear("s1")
	assert.Empty(t, store.History("s1"))
	assert.Equal(t, 0, store.Count())

	// Clearing a nonexistent session is a no-op.
	store.Clear("no-such-session")
	assert.Equal(t, 0, store.Count())
}

func TestStore_ConcurrentSessionsDoNotInterfere(t *testing.T) {
	store := NewStore()
	const perSession = 50

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			for i := 0; i < perSession; i++ {
				store.Append(sessionID, NewTurn(RoleUser, sessionID))
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b"} {
		turns := store.History(id)
		require.Len(t, turns, perSession)
		for _, turn := range turns {
			assert.Equal(t, id, turn.Text)
		}
	}
}
