// Package llm streams model completions through charm.land/fantasy and
// reduces each completion to a single assistant turn.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"charm.land/fantasy"

	"github.com/strayline/corral/internal/proto"
)

// Config selects a provider, a model, and the sampling knobs for it.
type Config struct {
	API         string
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int64
	Temperature *float64
	HTTPClient  *http.Client
}

// Turn is one settled assistant step: the streamed text plus any tool calls
// the model proposed. A turn with tool calls means the reasoning loop is not
// done yet.
type Turn struct {
	Content   string
	ToolCalls []proto.ToolCall
}

// Client talks to one configured provider.
type Client struct {
	provider fantasy.Provider
	cfg      Config
}

func New(cfg Config) (*Client, error) {
	if cfg.API == "" {
		return nil, fmt.Errorf("missing provider configuration")
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{provider: provider, cfg: cfg}, nil
}

// Step runs one streaming completion over the conversation. Text and
// reasoning deltas are forwarded to emit as they arrive; tool calls are
// deduplicated by ID and collected into the returned turn. Provider-executed
// tool calls are skipped since the server already ran them.
func (c *Client) Step(ctx context.Context, conversation proto.Conversation, tools []proto.ToolSpec, emit func(proto.StreamResponse)) (Turn, error) {
	model, err := c.provider.LanguageModel(ctx, c.cfg.Model)
	if err != nil {
		return Turn{}, fmt.Errorf("language model %q: %w", c.cfg.Model, err)
	}

	call := fantasy.Call{
		Prompt:          toPrompt(conversation),
		Temperature:     c.cfg.Temperature,
		Tools:           toTools(tools),
		ToolChoice:      toolChoice(tools),
		ProviderOptions: fantasy.ProviderOptions{},
	}
	if c.cfg.MaxTokens > 0 {
		call.MaxOutputTokens = fantasy.Opt(c.cfg.MaxTokens)
	}

	seq, err := model.Stream(ctx, call)
	if err != nil {
		return Turn{}, fmt.Errorf("stream: %w", err)
	}

	var (
		text strings.Builder
		turn Turn
		seen = map[string]struct{}{}
	)
	for part := range seq {
		if ctx.Err() != nil {
			return Turn{}, ctx.Err()
		}
		switch part.Type {
		case fantasy.StreamPartTypeTextDelta:
			text.WriteString(part.Delta)
			if emit != nil {
				emit(proto.ContentEvent(part.Delta))
			}
		case fantasy.StreamPartTypeReasoningDelta:
			if emit != nil {
				emit(proto.ReasoningEvent(part.Delta))
			}
		case fantasy.StreamPartTypeToolCall:
			if part.ProviderExecuted {
				continue
			}
			if _, dup := seen[part.ID]; dup {
				continue
			}
			seen[part.ID] = struct{}{}
			turn.ToolCalls = append(turn.ToolCalls, proto.ToolCall{
				ID: part.ID,
				Function: proto.Function{
					Name:      part.ToolCallName,
					Arguments: []byte(part.ToolCallInput),
				},
			})
		case fantasy.StreamPartTypeError:
			if part.Error != nil {
				return Turn{}, part.Error
			}
		}
	}

	turn.Content = text.String()
	return turn, nil
}
