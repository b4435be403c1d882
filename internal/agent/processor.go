package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/strayline/corral/internal/llm"
	"github.com/strayline/corral/internal/mcp"
	"github.com/strayline/corral/internal/proto"
)

// Model is the language model capability the processors drive. Step runs one
// completion over the transcript, forwarding deltas to emit, and returns the
// settled turn.
type Model interface {
	Step(ctx context.Context, conversation proto.Conversation, tools []proto.ToolSpec, emit func(proto.StreamResponse)) (llm.Turn, error)
}

// Processor is one reasoning strategy. Run drives the model/tool loop over
// the transcript until a final answer, an unrecoverable error, or the
// iteration cap. It emits content, reasoning, and tool_call events only;
// terminal events belong to the Runtime.
type Processor interface {
	Run(ctx context.Context, transcript proto.Conversation, emit func(proto.StreamResponse)) (proto.Conversation, error)
}

// Processor kinds.
const (
	KindReAct = "react"
	KindCoAct = "coact"
)

func newProcessor(kind string, d deps) (Processor, error) {
	switch kind {
	case KindReAct, "":
		return &reactProcessor{deps: d}, nil
	case KindCoAct:
		return &coactProcessor{deps: d}, nil
	default:
		return nil, fmt.Errorf("unknown processor %q", kind)
	}
}

// deps is the shared wiring both processors run on.
type deps struct {
	model         Model
	orch          mcp.ToolOrchestrator
	cat           *catalog
	maxIterations int
	log           *log.Logger
}

// execute invokes one tool call and folds every failure mode, including
// malformed arguments, into an Observation. Observations are never fatal;
// they go back to the model as context.
func (d deps) execute(ctx context.Context, call proto.ToolCall) proto.Observation {
	obs := proto.Observation{ToolCallID: call.ID, ToolName: call.Function.Name}

	args, err := decodeArgs(call.Function.Arguments)
	if err != nil {
		obs.Error = fmt.Sprintf("invalid tool arguments: %v", err)
		return obs
	}

	res := d.orch.CallTool(ctx, call.Function.Name, args)
	if res.Success {
		obs.Result = res.Data
	} else {
		obs.Error = res.Error
	}
	d.log.Debug("tool call settled",
		"tool", call.Function.Name, "ok", res.Success, "took", res.ExecutionTime)
	return obs
}

func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// ensureCallIDs fills in IDs for providers that omit them, so observations
// can always be correlated.
func ensureCallIDs(calls []proto.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
	}
}

func assistantMessage(turn llm.Turn) proto.Message {
	return proto.Message{
		Role:      proto.RoleAssistant,
		Content:   turn.Content,
		ToolCalls: turn.ToolCalls,
	}
}

func announceCall(emit func(proto.StreamResponse), call proto.ToolCall) {
	emit(proto.ToolCallResponse(call.ID, call.Function.Name, call.Function.Arguments))
}
