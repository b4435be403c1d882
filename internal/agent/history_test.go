package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/proto"
)

func TestHistoryEvictsBeyondWindow(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Record(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	require.Equal(t, 3, h.Len())

	msgs := h.Messages()
	require.Len(t, msgs, 6)
	require.Equal(t, "q2", msgs[0].Content)
	require.Equal(t, proto.RoleUser, msgs[0].Role)
	require.Equal(t, "a4", msgs[5].Content)
	require.Equal(t, proto.RoleAssistant, msgs[5].Role)
}

func TestHistoryRecordAssignsIDs(t *testing.T) {
	h := NewHistory(10)
	a := h.Record("q", "a")
	b := h.Record("q", "a")
	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.False(t, a.At.IsZero())
}

func TestRenderBlock(t *testing.T) {
	require.Empty(t, renderBlock(nil))

	block := renderBlock([]proto.ToolSpec{
		{Name: "search:web_lookup", Description: "look things up"},
		{Name: "files:read"},
	})
	require.Contains(t, block, "search:web_lookup: look things up")
	require.Contains(t, block, "- files:read\n")
}
