package agent

import (
	"strings"
	"sync"

	"github.com/strayline/corral/internal/mcp"
	"github.com/strayline/corral/internal/proto"
)

// catalog caches the advertised tool specs and their rendered description
// block. The cache lives for one processor build: tool sets can change
// between turns, so the runtime invalidates it before each build.
type catalog struct {
	orch mcp.ToolOrchestrator

	mu     sync.Mutex
	specs  []proto.ToolSpec
	block  string
	loaded bool
}

func newCatalog(orch mcp.ToolOrchestrator) *catalog {
	return &catalog{orch: orch}
}

// Specs returns the cached tool specs, loading them on first use.
func (c *catalog) Specs() []proto.ToolSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	return c.specs
}

// Block returns the tool-description block for the system prompt, empty when
// no tools are available.
func (c *catalog) Block() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	return c.block
}

// Invalidate drops the cache so the next access refetches.
func (c *catalog) Invalidate() {
	c.mu.Lock()
	c.specs = nil
	c.block = ""
	c.loaded = false
	c.mu.Unlock()
}

func (c *catalog) loadLocked() {
	if c.loaded {
		return
	}
	c.specs = c.orch.ToolSpecs()
	c.block = renderBlock(c.specs)
	c.loaded = true
}

func renderBlock(specs []proto.ToolSpec) string {
	if len(specs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("You have access to the following tools:\n")
	for _, spec := range specs {
		sb.WriteString("- ")
		sb.WriteString(spec.Name)
		if spec.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(spec.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
