// Package proto defines the wire-level types exchanged between the agent
// runtime, the language model, and the tool orchestrator.
package proto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a message author role.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Function describes the invoked function of a tool call.
type Function struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID       string   `json:"id"`
	IsError  bool     `json:"is_error,omitempty"`
	Function Function `json:"function"`
}

// Message is a single transcript entry.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolSpec advertises a callable tool to the language model.
//
// InputSchema is a JSON-schema-shaped object; the model is responsible for
// producing arguments that validate against it.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Observation is the result of a tool call fed back into the reasoning loop.
// It is immutable once constructed.
type Observation struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Failed reports whether the observed tool call failed.
func (o Observation) Failed() bool { return o.Error != "" }

// Message renders the observation as a transcript entry so the model can see
// the outcome of its own tool call.
func (o Observation) Message() Message {
	content := o.Result
	if o.Failed() {
		content = o.Error
	}
	return Message{
		Role:    RoleTool,
		Content: content,
		ToolCalls: []ToolCall{{
			ID:       o.ToolCallID,
			IsError:  o.Failed(),
			Function: Function{Name: o.ToolName},
		}},
	}
}

// Conversation is a printable transcript.
type Conversation []Message

func (c Conversation) String() string {
	var sb strings.Builder
	for _, msg := range c {
		switch msg.Role {
		case RoleUser:
			sb.WriteString("> " + msg.Content + "\n\n")
		case RoleAssistant:
			if msg.Content != "" {
				sb.WriteString(msg.Content + "\n\n")
			}
			for _, call := range msg.ToolCalls {
				sb.WriteString(fmt.Sprintf("* called %s\n", call.Function.Name))
			}
		case RoleSystem, RoleTool:
			// not rendered
		}
	}
	return sb.String()
}
