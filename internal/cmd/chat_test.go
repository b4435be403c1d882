package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/agent"
	"github.com/strayline/corral/internal/proto"
)

func TestSeedHistory(t *testing.T) {
	h := agent.NewHistory(10)
	seedHistory(h, []proto.Message{
		{Role: proto.RoleSystem, Content: "be nice"},
		{Role: proto.RoleUser, Content: "first question"},
		{Role: proto.RoleAssistant, Content: "first answer"},
		{Role: proto.RoleUser, Content: "second question"},
		{Role: proto.RoleAssistant, ToolCalls: []proto.ToolCall{{ID: "1"}}},
		{Role: proto.RoleAssistant, Content: "second answer"},
	})

	require.Equal(t, 2, h.Len())
	msgs := h.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, "first question", msgs[0].Content)
	require.Equal(t, "first answer", msgs[1].Content)
	require.Equal(t, "second question", msgs[2].Content)
	require.Equal(t, "second answer", msgs[3].Content)
}

func TestSeedHistorySkipsUnansweredInput(t *testing.T) {
	h := agent.NewHistory(10)
	seedHistory(h, []proto.Message{
		{Role: proto.RoleUser, Content: "dangling question"},
	})
	require.Equal(t, 0, h.Len())
}

func TestDurationFlag(t *testing.T) {
	var d time.Duration
	f := newDurationFlag(0, &d)
	require.Empty(t, f.String())

	require.NoError(t, f.Set("90m"))
	require.Equal(t, 90*time.Minute, d)

	require.NoError(t, f.Set("7d"))
	require.Equal(t, 7*24*time.Hour, d)

	require.Error(t, f.Set("nope"))
	require.Equal(t, "duration", f.Type())
}
