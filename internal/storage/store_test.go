package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreSaveAndList(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(Conversation{ID: NewConversationID(), Title: "first"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Save(Conversation{ID: NewConversationID(), Title: "second"}))

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, "second", list[0].Title)
	require.Equal(t, "first", list[1].Title)

	latest, err := s.Latest()
	require.NoError(t, err)
	require.Equal(t, "second", latest.Title)
}

func TestStoreSaveValidation(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.Error(t, s.Save(Conversation{Title: "no id"}))
	require.Error(t, s.Save(Conversation{ID: "abc123def", Title: " "}))
}

func TestStoreFind(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(Conversation{ID: "aabbccdd11223344", Title: "weather chat"}))
	require.NoError(t, s.Save(Conversation{ID: "aabbzz9988776655", Title: "other"}))

	t.Run("by prefix", func(t *testing.T) {
		got, err := s.Find("aabbcc")
		require.NoError(t, err)
		require.Equal(t, "weather chat", got.Title)
	})

	t.Run("by title", func(t *testing.T) {
		got, err := s.Find("other")
		require.NoError(t, err)
		require.Equal(t, "aabbzz9988776655", got.ID)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := s.Find("aabb")
		require.ErrorIs(t, err, ErrManyMatches)
	})

	t.Run("short input matches titles only", func(t *testing.T) {
		_, err := s.Find("aab")
		require.ErrorIs(t, err, ErrNoMatches)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := s.Find("zzzzzz")
		require.ErrorIs(t, err, ErrNoMatches)
	})
}

func TestStoreDelete(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(Conversation{ID: "aabbccdd11223344", Title: "doomed"}))
	require.NoError(t, s.Delete("aabbccdd11223344"))
	require.Empty(t, s.List())

	// deleting again is a no-op
	require.NoError(t, s.Delete("aabbccdd11223344"))
}

func TestStoreReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(Conversation{ID: "aabbccdd11223344", Title: "persisted", API: "openai", Model: "gpt-4o"}))

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.Find("persisted")
	require.NoError(t, err)
	require.Equal(t, "openai", got.API)
	require.Equal(t, "gpt-4o", got.Model)
}

func TestStoreCompletions(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(Conversation{ID: "aabbccdd11223344", Title: "weather chat"}))

	completions := s.Completions("aabb")
	require.Len(t, completions, 1)
	require.Contains(t, completions[0], "aabbccd")
	require.Contains(t, completions[0], "weather chat")
}

func TestNewConversationID(t *testing.T) {
	a, b := NewConversationID(), NewConversationID()
	require.Len(t, a, 40)
	require.NotEqual(t, a, b)
	require.Equal(t, a[:IDShort], ShortID(a))
	require.Equal(t, "abc", ShortID("abc"))
}
