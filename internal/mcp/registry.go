package mcp

import "sort"

// registry is the read side of the connection map: tool discovery and name
// resolution over whatever is currently connected. It holds no state of its
// own, so a reconnect is visible on the very next lookup.
type registry struct {
	o *orchestrator
}

// all returns every tool currently available across connected servers,
// sorted by namespaced name for stable listings.
func (r *registry) all() []ToolDescriptor {
	var out []ToolDescriptor
	for _, conn := range r.o.snapshot() {
		for _, d := range conn.Tools() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// resolve maps a tool name, namespaced or bare, to its owning connection and
// descriptor.
func (r *registry) resolve(name string) (*Connection, ToolDescriptor, bool) {
	conn := findOwningConnection(name, r.o.snapshot())
	if conn == nil {
		return nil, ToolDescriptor{}, false
	}
	d, ok := conn.Tool(localToolName(name))
	return conn, d, ok
}
