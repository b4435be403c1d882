// Package agent drives the reasoning loop: it turns one user message into an
// ordered stream of typed events, calling tools through the orchestrator as
// the model requests them.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/strayline/corral/internal/config"
	"github.com/strayline/corral/internal/mcp"
	"github.com/strayline/corral/internal/proto"
)

const defaultSystemPrompt = "You are a helpful assistant. Use the available tools when they help you answer; otherwise answer directly. Be concise."

// memoryToolName is the local tool name that, when advertised by any
// connected server, receives completed exchanges as a side effect.
const memoryToolName = "memory"

// terminalGrace bounds how long a turn's goroutine waits to deliver the
// terminal event to a caller that stopped draining.
const terminalGrace = time.Second

// ModelFactory builds the language model for a turn. Building is deferred so
// credential resolution happens with a live context.
type ModelFactory func(ctx context.Context) (Model, error)

// Runtime holds the per-session agent state.
type Runtime struct {
	orch     mcp.ToolOrchestrator
	newModel ModelFactory
	history  *History
	log      *log.Logger

	mu   sync.Mutex
	cfg  config.AgentConfig
	proc Processor
	cat  *catalog

	sideEffects sync.WaitGroup
}

func NewRuntime(cfg config.AgentConfig, orch mcp.ToolOrchestrator, newModel ModelFactory, logger *log.Logger) *Runtime {
	if logger == nil {
		logger = log.Default()
	}
	return &Runtime{
		orch:     orch,
		newModel: newModel,
		history:  NewHistory(cfg.HistoryWindow),
		log:      logger.With("component", "agent"),
		cfg:      cfg,
		cat:      newCatalog(orch),
	}
}

// Respond runs one user turn. The returned channel yields ordered events and
// is closed after exactly one terminal done or error event. Canceling ctx
// aborts the loop mid-iteration.
func (r *Runtime) Respond(ctx context.Context, input string) <-chan proto.StreamResponse {
	out := make(chan proto.StreamResponse, 16)

	go func() {
		defer close(out)
		emit := func(ev proto.StreamResponse) {
			if ev.Terminal() {
				// The terminal event must land even when the caller
				// canceled mid-stream with the buffer full. Give a
				// draining consumer time to free a slot before giving up.
				select {
				case out <- ev:
				case <-time.After(terminalGrace):
				}
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}

		proc, err := r.prepare(ctx)
		if err != nil {
			emit(proto.ErrorEvent(err.Error()))
			return
		}

		transcript, err := proc.Run(ctx, r.buildTranscript(input), emit)
		if err != nil {
			emit(proto.ErrorEvent(err.Error()))
			return
		}
		emit(proto.DoneEvent())

		answer := finalAnswer(transcript)
		r.sideEffects.Add(1)
		go func() {
			defer r.sideEffects.Done()
			r.remember(input, answer)
		}()
	}()

	return out
}

// Reset drops the processor and tool catalog so the next turn rebuilds both.
// Call it after credential or configuration changes.
func (r *Runtime) Reset() {
	r.mu.Lock()
	r.proc = nil
	r.cat.Invalidate()
	r.mu.Unlock()
}

// Configure replaces the agent configuration and resets the session.
func (r *Runtime) Configure(cfg config.AgentConfig) {
	r.mu.Lock()
	r.cfg = cfg
	r.proc = nil
	r.cat.Invalidate()
	r.mu.Unlock()
}

// History exposes the bounded conversation memory.
func (r *Runtime) History() *History { return r.history }

// Wait blocks until pending memory side effects have settled. Intended for
// shutdown and tests.
func (r *Runtime) Wait() { r.sideEffects.Wait() }

// prepare invalidates the tool catalog, then builds the processor if a reset
// or configuration change dropped it.
func (r *Runtime) prepare(ctx context.Context) (Processor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cat.Invalidate()
	if r.proc != nil {
		return r.proc, nil
	}

	model, err := r.newModel(ctx)
	if err != nil {
		return nil, err
	}
	iterations := r.cfg.MaxIterations
	if iterations < 1 {
		iterations = 10
	}
	proc, err := newProcessor(r.cfg.Processor, deps{
		model:         model,
		orch:          r.orch,
		cat:           r.cat,
		maxIterations: iterations,
		log:           r.log,
	})
	if err != nil {
		return nil, err
	}
	r.proc = proc
	return proc, nil
}

func (r *Runtime) buildTranscript(input string) proto.Conversation {
	r.mu.Lock()
	system := r.cfg.SystemPrompt
	r.mu.Unlock()
	if system == "" {
		system = defaultSystemPrompt
	}
	if block := r.cat.Block(); block != "" {
		system += "\n\n" + block
	}

	transcript := proto.Conversation{{Role: proto.RoleSystem, Content: system}}
	transcript = append(transcript, r.history.Messages()...)
	transcript = append(transcript, proto.Message{Role: proto.RoleUser, Content: input})
	return transcript
}

// remember records the exchange in the bounded history and, when any server
// advertises a memory tool, appends it there too. Failures are logged and
// never surfaced.
func (r *Runtime) remember(input, answer string) {
	exchange := r.history.Record(input, answer)

	tool, ok := r.memoryTool()
	if !ok {
		return
	}

	r.mu.Lock()
	timeout := r.cfg.CallTimeout
	r.mu.Unlock()
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := r.orch.CallTool(ctx, tool, map[string]any{
		"id":     exchange.ID,
		"input":  exchange.Input,
		"answer": exchange.Answer,
	})
	if !res.Success {
		r.log.Warn("memory append failed", "tool", tool, "err", res.Error)
	}
}

func (r *Runtime) memoryTool() (string, bool) {
	for _, spec := range r.orch.ToolSpecs() {
		local := spec.Name
		if _, l, ok := mcp.ParseToolName(spec.Name); ok {
			local = l
		}
		if local == memoryToolName {
			return spec.Name, true
		}
	}
	return "", false
}

// finalAnswer extracts the last assistant text from the transcript.
func finalAnswer(transcript proto.Conversation) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == proto.RoleAssistant && transcript[i].Content != "" {
			return strings.TrimSpace(transcript[i].Content)
		}
	}
	return ""
}
