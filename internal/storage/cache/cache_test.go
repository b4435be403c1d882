package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/proto"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := New[[]proto.Message](t.TempDir())
	require.NoError(t, err)

	transcript := []proto.Message{
		{Role: proto.RoleUser, Content: "hi"},
		{Role: proto.RoleAssistant, Content: "hello"},
	}
	require.NoError(t, c.Write("abc123", transcript))

	var got []proto.Message
	require.NoError(t, c.Read("abc123", &got))
	require.Equal(t, transcript, got)
}

func TestCacheMissingID(t *testing.T) {
	c, err := New[[]proto.Message](t.TempDir())
	require.NoError(t, err)

	var got []proto.Message
	require.ErrorIs(t, c.Read("nope", &got), ErrNotFound)

	require.Error(t, c.Read("", &got))
	require.Error(t, c.Write("", nil))
}

func TestCacheDelete(t *testing.T) {
	c, err := New[[]proto.Message](t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Write("abc123", []proto.Message{{Role: proto.RoleUser, Content: "x"}}))
	require.NoError(t, c.Delete("abc123"))

	var got []proto.Message
	require.ErrorIs(t, c.Read("abc123", &got), ErrNotFound)
}

func TestCacheOverwriteIsAtomicReplacement(t *testing.T) {
	c, err := New[[]proto.Message](t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Write("abc123", []proto.Message{{Role: proto.RoleUser, Content: "old"}}))
	require.NoError(t, c.Write("abc123", []proto.Message{{Role: proto.RoleUser, Content: "new"}}))

	var got []proto.Message
	require.NoError(t, c.Read("abc123", &got))
	require.Len(t, got, 1)
	require.Equal(t, "new", got[0].Content)
}
