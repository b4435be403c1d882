// Package mcp maintains connections to MCP tool servers and routes
// namespaced tool calls to the server that owns them.
package mcp

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/strayline/corral/internal/config"
	"github.com/strayline/corral/internal/proto"
)

// ToolOrchestrator is the surface the reasoning layer drives. It hides
// connection lifecycle entirely: callers see tools and call results, never
// sessions.
type ToolOrchestrator interface {
	Initialize(ctx context.Context) error
	Tools() []ToolDescriptor
	ToolSpecs() []proto.ToolSpec
	CallTool(ctx context.Context, name string, args map[string]any) CallResult
	Status(ctx context.Context) map[string]ServerStatus
	Disconnect()
}

// Manager wires the connection manager, orchestrator, registry, and invoker
// into one facade. It implements ToolOrchestrator.
type Manager struct {
	servers config.Servers
	orch    *orchestrator
	reg     *registry
	inv     *invoker
	log     *log.Logger
}

var _ ToolOrchestrator = (*Manager)(nil)

// Options carries the tunables for a Manager. Zero-value fields fall back to
// the corresponding defaults.
type Options struct {
	ConnectTimeout time.Duration
	HealthTimeout  time.Duration
	CallTimeout    time.Duration
	TrustWindow    time.Duration
	Retry          RetryPolicy
	Logger         *log.Logger
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = 5 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
	if o.TrustWindow <= 0 {
		o.TrustWindow = 5 * time.Second
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = DefaultRetryPolicy()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

func NewManager(servers config.Servers, opts Options) *Manager {
	opts = opts.withDefaults()
	logger := opts.Logger.With("component", "mcp")
	cm := newConnManager(opts.ConnectTimeout, opts.HealthTimeout, opts.Retry, logger)
	orch := newOrchestrator(cm, opts.TrustWindow, logger)
	reg := &registry{o: orch}
	inv := &invoker{o: orch, reg: reg, callTimeout: opts.CallTimeout, log: logger}
	return &Manager{servers: servers, orch: orch, reg: reg, inv: inv, log: logger}
}

// Initialize connects to all configured servers concurrently. It succeeds if
// at least one server comes up and returns ErrNoServers only on a total
// wipeout. With no servers configured it is a no-op so tool-less chat works.
func (m *Manager) Initialize(ctx context.Context) error {
	if len(m.servers) == 0 {
		return nil
	}
	return m.orch.initializeAll(ctx, m.servers)
}

// Tools lists every available tool across connected servers.
func (m *Manager) Tools() []ToolDescriptor {
	return m.reg.all()
}

// ToolSpecs lists the available tools in the shape the language model
// consumes.
func (m *Manager) ToolSpecs() []proto.ToolSpec {
	descriptors := m.reg.all()
	specs := make([]proto.ToolSpec, 0, len(descriptors))
	for _, d := range descriptors {
		specs = append(specs, d.Spec())
	}
	return specs
}

// CallTool routes a tool call to its owning server and returns the result
// envelope. It never returns an error and never panics; failures come back
// as unsuccessful results.
func (m *Manager) CallTool(ctx context.Context, name string, args map[string]any) CallResult {
	return m.inv.call(ctx, name, args)
}

// Status probes every known server and reports per-server health, including
// servers that never connected.
func (m *Manager) Status(ctx context.Context) map[string]ServerStatus {
	m.orch.healthCheckAll(ctx)
	return m.orch.status()
}

// Disconnect closes every connection, best effort.
func (m *Manager) Disconnect() {
	m.orch.disconnectAll()
}
