package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/strayline/corral/internal/config"
)

// orchestrator owns the connection map. All writes to the map go through it;
// readers get snapshots. Servers that fail to connect keep a disconnected
// placeholder entry so status reporting can still name them.
type orchestrator struct {
	cm          *connManager
	trustWindow time.Duration
	log         *log.Logger

	mu         sync.RWMutex
	conns      map[string]*Connection
	errorCount map[string]int

	// reconnects coalesces concurrent reconnect attempts per server so a
	// flapping server triggers at most one dial cycle at a time.
	reconnects singleflight.Group
}

func newOrchestrator(cm *connManager, trustWindow time.Duration, logger *log.Logger) *orchestrator {
	return &orchestrator{
		cm:          cm,
		trustWindow: trustWindow,
		log:         logger,
		conns:       make(map[string]*Connection),
		errorCount:  make(map[string]int),
	}
}

// initializeAll connects to every configured server concurrently and waits
// for all attempts to settle. Individual failures are recorded, not fatal;
// only a total wipeout (zero servers connected) is an error.
func (o *orchestrator) initializeAll(ctx context.Context, servers config.Servers) error {
	var g errgroup.Group
	for _, cfg := range servers {
		cfg := cfg
		g.Go(func() error {
			conn, err := o.cm.open(ctx, cfg)
			if err != nil {
				o.log.Warn("server unavailable", "server", cfg.Name, "err", err)
				conn = &Connection{Server: cfg.Name, Config: cfg}
				o.noteError(cfg.Name)
			}
			o.publish(conn)
			return nil
		})
	}
	_ = g.Wait()

	if o.connectedCount() == 0 {
		return ErrNoServers
	}
	return nil
}

// ensureHealthy guarantees the named server's connection is usable before a
// call. Checks inside the trust window are skipped. A failed probe triggers
// exactly one reconnect cycle; concurrent callers share its outcome.
func (o *orchestrator) ensureHealthy(ctx context.Context, server string) bool {
	conn := o.connection(server)
	if conn == nil {
		return false
	}
	if conn.Connected() && time.Since(conn.LastCheck()) < o.trustWindow {
		return true
	}
	if conn.Connected() && o.cm.healthCheck(ctx, conn) {
		return true
	}

	fresh, err, _ := o.reconnects.Do(server, func() (any, error) {
		current := o.connection(server)
		if current.Connected() {
			// another caller already brought it back
			return current, nil
		}
		// Drop the stale transport before dialing again so a server that
		// stays down does not hold a dead session open.
		o.cm.close(current)
		o.log.Info("reconnecting", "server", server)
		replacement, openErr := o.cm.open(ctx, current.Config)
		if openErr != nil {
			o.noteError(server)
			return nil, openErr
		}
		o.publish(replacement)
		return replacement, nil
	})
	if err != nil {
		o.log.Warn("reconnect failed", "server", server, "err", err)
		return false
	}
	return fresh.(*Connection).Connected()
}

// healthCheckAll probes every known server concurrently, reconnecting the
// ones that fail. Used by the status surface.
func (o *orchestrator) healthCheckAll(ctx context.Context) {
	var g errgroup.Group
	for server := range o.snapshot() {
		server := server
		g.Go(func() error {
			o.ensureHealthy(ctx, server)
			return nil
		})
	}
	_ = g.Wait()
}

// disconnectAll closes every connection. Entries remain in the map, marked
// disconnected, so status keeps reporting them.
func (o *orchestrator) disconnectAll() {
	o.mu.RLock()
	conns := make([]*Connection, 0, len(o.conns))
	for _, conn := range o.conns {
		conns = append(conns, conn)
	}
	o.mu.RUnlock()
	for _, conn := range conns {
		o.cm.close(conn)
	}
}

// status reports per-server health, including servers that never connected.
func (o *orchestrator) status() map[string]ServerStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]ServerStatus, len(o.conns))
	for name, conn := range o.conns {
		out[name] = ServerStatus{
			Connected:  conn.Connected(),
			ToolCount:  len(conn.Tools()),
			LastCheck:  conn.LastCheck(),
			ErrorCount: o.errorCount[name],
		}
	}
	return out
}

func (o *orchestrator) connection(server string) *Connection {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.conns[server]
}

func (o *orchestrator) snapshot() map[string]*Connection {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]*Connection, len(o.conns))
	for name, conn := range o.conns {
		out[name] = conn
	}
	return out
}

func (o *orchestrator) connectedCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n := 0
	for _, conn := range o.conns {
		if conn.Connected() {
			n++
		}
	}
	return n
}

func (o *orchestrator) publish(conn *Connection) {
	o.mu.Lock()
	if old := o.conns[conn.Server]; old != nil && old != conn {
		o.mu.Unlock()
		o.cm.close(old)
		o.mu.Lock()
	}
	o.conns[conn.Server] = conn
	o.mu.Unlock()
}

func (o *orchestrator) noteError(server string) {
	o.mu.Lock()
	o.errorCount[server]++
	o.mu.Unlock()
}
