package mcp

import "strings"

// Separator qualifies a local tool name with its owning server,
// as in "search:web_lookup". Server names must not contain it.
const Separator = ":"

// ParseToolName splits a namespaced tool name into server and local name.
// Splitting occurs on the first separator only, so local names may themselves
// contain the separator. ok is false for bare (unqualified) names.
func ParseToolName(name string) (server, local string, ok bool) {
	return strings.Cut(name, Separator)
}

// FormatToolName namespaces a local tool name with its server.
func FormatToolName(server, local string) string {
	return server + Separator + local
}

// findOwningConnection locates the connected server that serves the given tool
// name. Namespaced names take the fast path via a direct server lookup; bare
// names fall back to a linear scan over every connected server's tool map,
// matching the local name or the fully qualified one (for legacy callers).
//
// The scan is O(servers × tools); fine at current scale, revisit with an index
// if tool counts grow large.
func findOwningConnection(name string, conns map[string]*Connection) *Connection {
	if server, local, ok := ParseToolName(name); ok {
		conn := conns[server]
		if conn == nil || !conn.Connected() {
			return nil
		}
		if _, exists := conn.Tool(local); exists {
			return conn
		}
		return nil
	}

	for _, conn := range conns {
		if !conn.Connected() {
			continue
		}
		for local := range conn.Tools() {
			if local == name || FormatToolName(conn.Server, local) == name {
				return conn
			}
		}
	}
	return nil
}

// localToolName translates a possibly namespaced tool name into the name the
// owning server knows it by.
func localToolName(name string) string {
	if _, local, ok := ParseToolName(name); ok {
		return local
	}
	return name
}
