package proto

import "encoding/json"

// ResponseType discriminates StreamResponse events.
type ResponseType string

// Stream event types. Every turn ends with exactly one ResponseDone or
// ResponseError event; nothing follows the terminal event.
const (
	ResponseContent   ResponseType = "content"
	ResponseReasoning ResponseType = "reasoning"
	ResponseToolCall  ResponseType = "tool_call"
	ResponseError     ResponseType = "error"
	ResponseDone      ResponseType = "done"
)

// ToolCallEvent describes a tool invocation surfaced on the stream.
type ToolCallEvent struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// StreamResponse is one event in the ordered response stream for a user turn.
type StreamResponse struct {
	Type     ResponseType   `json:"type"`
	Content  string         `json:"content,omitempty"`
	ToolCall *ToolCallEvent `json:"tool_call,omitempty"`
	Err      string         `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (r StreamResponse) Terminal() bool {
	return r.Type == ResponseDone || r.Type == ResponseError
}

// ContentEvent builds a content delta event.
func ContentEvent(delta string) StreamResponse {
	return StreamResponse{Type: ResponseContent, Content: delta}
}

// ReasoningEvent builds a reasoning delta event.
func ReasoningEvent(delta string) StreamResponse {
	return StreamResponse{Type: ResponseReasoning, Content: delta}
}

// ToolCallResponse builds a tool call announcement event.
func ToolCallResponse(id, name string, args json.RawMessage) StreamResponse {
	return StreamResponse{Type: ResponseToolCall, ToolCall: &ToolCallEvent{ID: id, Name: name, Arguments: args}}
}

// ErrorEvent builds the terminal error event.
func ErrorEvent(msg string) StreamResponse {
	return StreamResponse{Type: ResponseError, Err: msg}
}

// DoneEvent builds the terminal done event.
func DoneEvent() StreamResponse {
	return StreamResponse{Type: ResponseDone}
}
