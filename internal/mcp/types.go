package mcp

import (
	"sync"
	"time"

	mmcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/strayline/corral/internal/config"
	"github.com/strayline/corral/internal/proto"
)

// ToolDescriptor describes one remote tool under its namespaced name.
// Descriptors are rebuilt whenever the owning connection (re)fetches its tool
// list; they are never mutated afterwards.
type ToolDescriptor struct {
	Name         string
	Description  string
	InputSchema  mmcp.ToolInputSchema
	Server       string
	OriginalName string
}

// Spec converts the descriptor into the shape advertised to the language
// model.
func (d ToolDescriptor) Spec() proto.ToolSpec {
	schema := map[string]any{
		"type":       "object",
		"properties": d.InputSchema.Properties,
	}
	if len(d.InputSchema.Required) > 0 {
		schema["required"] = d.InputSchema.Required
	}
	return proto.ToolSpec{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: schema,
	}
}

// Connection is the live state of one tool server link. It is created by the
// connection manager and published by the orchestrator; after publication only
// the health fields change (guarded by mu). A connection is either fully
// connected with a populated tool map, or disconnected with a nil tool map.
type Connection struct {
	Server string
	Config config.ServerConfig

	session session

	mu        sync.RWMutex
	connected bool
	lastCheck time.Time
	tools     map[string]ToolDescriptor // keyed by local name
}

// Connected reports whether the connection is currently usable.
func (c *Connection) Connected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastCheck returns the time of the last successful health probe.
func (c *Connection) LastCheck() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCheck
}

// Tool returns the descriptor for a local tool name.
func (c *Connection) Tool(local string) (ToolDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.tools[local]
	return d, ok
}

// Tools returns a snapshot of the connection's tool map, or nil when
// disconnected.
func (c *Connection) Tools() map[string]ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil
	}
	snapshot := make(map[string]ToolDescriptor, len(c.tools))
	for name, d := range c.tools {
		snapshot[name] = d
	}
	return snapshot
}

func (c *Connection) markHealthy(at time.Time) {
	c.mu.Lock()
	c.connected = true
	c.lastCheck = at
	c.mu.Unlock()
}

func (c *Connection) markUnhealthy() {
	c.mu.Lock()
	c.connected = false
	c.tools = nil
	c.mu.Unlock()
}

// CallResult is the envelope produced by every tool invocation. It is either
// successful with Data set, or failed with Error set; never both, never
// partially filled.
type CallResult struct {
	Success       bool          `json:"success"`
	Data          string        `json:"data,omitempty"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}

func failedResult(err error, took time.Duration) CallResult {
	return CallResult{Success: false, Error: err.Error(), ExecutionTime: took}
}

// ServerStatus is the per-server entry returned by Status for health
// dashboards.
type ServerStatus struct {
	Connected  bool      `json:"connected"`
	ToolCount  int       `json:"tool_count"`
	LastCheck  time.Time `json:"last_check"`
	ErrorCount int       `json:"error_count"`
}
