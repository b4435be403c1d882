package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/strayline/corral/internal/proto"
)

// coactProcessor allows coordinated action batches: every tool call proposed
// in one model turn is executed, concurrently, and the observations are
// appended in proposal order so the transcript stays deterministic.
type coactProcessor struct {
	deps
}

func (p *coactProcessor) Run(ctx context.Context, transcript proto.Conversation, emit func(proto.StreamResponse)) (proto.Conversation, error) {
	for i := 0; i < p.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return transcript, err
		}

		turn, err := p.model.Step(ctx, transcript, p.cat.Specs(), emit)
		if err != nil {
			return transcript, err
		}

		ensureCallIDs(turn.ToolCalls)
		transcript = append(transcript, assistantMessage(turn))
		if len(turn.ToolCalls) == 0 {
			return transcript, nil
		}

		for _, call := range turn.ToolCalls {
			announceCall(emit, call)
		}

		observations := make([]proto.Observation, len(turn.ToolCalls))
		var g errgroup.Group
		for idx, call := range turn.ToolCalls {
			idx, call := idx, call
			g.Go(func() error {
				observations[idx] = p.execute(ctx, call)
				return nil
			})
		}
		_ = g.Wait()

		for _, obs := range observations {
			transcript = append(transcript, obs.Message())
		}
	}
	return transcript, ErrIterationLimit
}
