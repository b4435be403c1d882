package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	mmcp "github.com/mark3labs/mcp-go/mcp"
)

// invoker executes tool calls. Every outcome, including resolution failures
// and transport errors, is folded into a CallResult so callers feed it back
// to the model as an observation instead of aborting the reasoning loop.
type invoker struct {
	o           *orchestrator
	reg         *registry
	callTimeout time.Duration
	log         *log.Logger
}

func (inv *invoker) call(ctx context.Context, name string, args map[string]any) CallResult {
	start := time.Now()

	conn, desc, rerr := inv.resolveHealthy(ctx, name)
	if rerr != nil {
		return failedResult(rerr, time.Since(start))
	}

	data, err := inv.execute(ctx, conn, desc, args)

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		// The connection died inside the trust window. Mark it down,
		// allow one reconnect cycle, and retry the call exactly once.
		// Re-resolving by the qualified name keeps the retry working for
		// calls that came in under a bare tool name.
		inv.o.noteError(conn.Server)
		conn.markUnhealthy()
		inv.log.Warn("tool call hit a dead connection, retrying once", "tool", desc.Name, "err", err)

		conn, desc, rerr = inv.resolveHealthy(ctx, desc.Name)
		if rerr != nil {
			return failedResult(rerr, time.Since(start))
		}
		data, err = inv.execute(ctx, conn, desc, args)
	}
	if err != nil {
		inv.o.noteError(conn.Server)
		return failedResult(err, time.Since(start))
	}

	return CallResult{Success: true, Data: data, ExecutionTime: time.Since(start)}
}

// errUnavailable marks a known server that stayed down after its one
// recovery attempt.
var errUnavailable = errors.New("server is unavailable")

// resolveHealthy resolves the tool name and makes sure its server is usable,
// re-resolving afterwards since a reconnect replaces the connection. A name
// with no owning connection fails with NotFoundError; a known server that
// stays down after its recovery attempt fails with ConnectionError.
func (inv *invoker) resolveHealthy(ctx context.Context, name string) (*Connection, ToolDescriptor, error) {
	conn, desc, ok := inv.reg.resolve(name)
	if !ok {
		// Namespaced name against a known but disconnected server: give it
		// one recovery attempt before giving up.
		server, _, qualified := ParseToolName(name)
		if !qualified || inv.o.connection(server) == nil {
			return nil, ToolDescriptor{}, &NotFoundError{Tool: name}
		}
		if !inv.o.ensureHealthy(ctx, server) {
			return nil, ToolDescriptor{}, &ConnectionError{Server: server, Err: errUnavailable}
		}
		conn, desc, ok = inv.reg.resolve(name)
		if !ok {
			return nil, ToolDescriptor{}, &NotFoundError{Tool: name}
		}
		return conn, desc, nil
	}
	if !inv.o.ensureHealthy(ctx, conn.Server) {
		return nil, ToolDescriptor{}, &ConnectionError{Server: conn.Server, Err: errUnavailable}
	}
	conn, desc, ok = inv.reg.resolve(name)
	if !ok {
		// The reconnect came back without this tool.
		return nil, ToolDescriptor{}, &NotFoundError{Tool: name}
	}
	return conn, desc, nil
}

func (inv *invoker) execute(ctx context.Context, conn *Connection, desc ToolDescriptor, args map[string]any) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, inv.callTimeout)
	defer cancel()

	req := mmcp.CallToolRequest{}
	req.Params.Name = desc.OriginalName
	req.Params.Arguments = args

	res, err := conn.session.CallTool(callCtx, req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return "", &TimeoutError{Op: "call " + desc.Name, After: inv.callTimeout}
		}
		return "", &ConnectionError{Server: conn.Server, Err: err}
	}

	text := flattenContent(res.Content)
	if res.IsError {
		return "", &ToolError{Tool: desc.Name, Message: text}
	}
	return text, nil
}

// flattenContent joins the textual parts of a tool result. Non-text parts
// are carried as their JSON encoding so nothing is silently dropped.
func flattenContent(parts []mmcp.Content) string {
	var b strings.Builder
	for _, part := range parts {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		switch c := part.(type) {
		case mmcp.TextContent:
			b.WriteString(c.Text)
		default:
			if raw, err := json.Marshal(part); err == nil {
				b.Write(raw)
			}
		}
	}
	return b.String()
}
