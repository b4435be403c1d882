package agent

import (
	"context"

	"github.com/strayline/corral/internal/proto"
)

// reactProcessor is the strict reason-then-act loop: each iteration asks the
// model for the next step and executes at most one tool call before asking
// again. Extra proposals in the same turn are dropped from the transcript so
// every recorded call has a matching observation.
type reactProcessor struct {
	deps
}

func (p *reactProcessor) Run(ctx context.Context, transcript proto.Conversation, emit func(proto.StreamResponse)) (proto.Conversation, error) {
	for i := 0; i < p.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return transcript, err
		}

		turn, err := p.model.Step(ctx, transcript, p.cat.Specs(), emit)
		if err != nil {
			return transcript, err
		}

		if len(turn.ToolCalls) == 0 {
			transcript = append(transcript, assistantMessage(turn))
			return transcript, nil
		}

		ensureCallIDs(turn.ToolCalls)
		turn.ToolCalls = turn.ToolCalls[:1]
		transcript = append(transcript, assistantMessage(turn))

		call := turn.ToolCalls[0]
		announceCall(emit, call)
		obs := p.execute(ctx, call)
		transcript = append(transcript, obs.Message())
	}
	return transcript, ErrIterationLimit
}
