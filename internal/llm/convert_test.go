package llm

import (
	"testing"

	"charm.land/fantasy"
	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/proto"
)

func TestToPrompt(t *testing.T) {
	conversation := proto.Conversation{
		{Role: proto.RoleSystem, Content: "be terse"},
		{Role: proto.RoleUser, Content: "what is the weather"},
		{
			Role:    proto.RoleAssistant,
			Content: "checking",
			ToolCalls: []proto.ToolCall{
				{ID: "call-1", Function: proto.Function{Name: "weather:lookup", Arguments: []byte(`{"city":"oslo"}`)}},
			},
		},
		{
			Role:      proto.RoleTool,
			Content:   "12C, clear",
			ToolCalls: []proto.ToolCall{{ID: "call-1", Function: proto.Function{Name: "weather:lookup"}}},
		},
	}

	prompt := toPrompt(conversation)
	require.Len(t, prompt, 4)

	require.Equal(t, fantasy.MessageRoleSystem, prompt[0].Role)
	require.Equal(t, fantasy.MessageRoleUser, prompt[1].Role)

	require.Equal(t, fantasy.MessageRoleAssistant, prompt[2].Role)
	require.Len(t, prompt[2].Content, 2)
	callPart, ok := prompt[2].Content[1].(fantasy.ToolCallPart)
	require.True(t, ok)
	require.Equal(t, "call-1", callPart.ToolCallID)
	require.Equal(t, "weather:lookup", callPart.ToolName)
	require.JSONEq(t, `{"city":"oslo"}`, callPart.Input)

	require.Equal(t, fantasy.MessageRoleTool, prompt[3].Role)
	resultPart, ok := prompt[3].Content[0].(fantasy.ToolResultPart)
	require.True(t, ok)
	require.Equal(t, "call-1", resultPart.ToolCallID)
	text, ok := resultPart.Output.(fantasy.ToolResultOutputContentText)
	require.True(t, ok)
	require.Equal(t, "12C, clear", text.Text)
}

func TestToPromptFailedToolResult(t *testing.T) {
	prompt := toPrompt(proto.Conversation{
		{
			Role:      proto.RoleTool,
			Content:   "connection refused",
			ToolCalls: []proto.ToolCall{{ID: "call-1", IsError: true, Function: proto.Function{Name: "weather:lookup"}}},
		},
	})
	require.Len(t, prompt, 1)
	resultPart, ok := prompt[0].Content[0].(fantasy.ToolResultPart)
	require.True(t, ok)
	failure, ok := resultPart.Output.(fantasy.ToolResultOutputContentError)
	require.True(t, ok)
	require.EqualError(t, failure.Error, "connection refused")
}

func TestToPromptSkipsEmptyAssistantTurns(t *testing.T) {
	prompt := toPrompt(proto.Conversation{{Role: proto.RoleAssistant}})
	require.Empty(t, prompt)
}

func TestToolChoice(t *testing.T) {
	require.Nil(t, toolChoice(nil))

	choice := toolChoice([]proto.ToolSpec{{Name: "search:web_lookup"}})
	require.NotNil(t, choice)
	require.Equal(t, fantasy.ToolChoiceAuto, *choice)
}

func TestToTools(t *testing.T) {
	tools := toTools([]proto.ToolSpec{
		{
			Name:        "search:web_lookup",
			Description: "look things up",
			InputSchema: map[string]any{"type": "object"},
		},
	})
	require.Len(t, tools, 1)
	ft, ok := tools[0].(fantasy.FunctionTool)
	require.True(t, ok)
	require.Equal(t, "search:web_lookup", ft.Name)
	require.Equal(t, map[string]any{"type": "object"}, ft.InputSchema)
}
