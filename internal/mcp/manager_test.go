package mcp

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	mmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/config"
)

type fakeSession struct {
	mu      sync.Mutex
	tools   []mmcp.Tool
	listErr error
	callFn  func(mmcp.CallToolRequest) (*mmcp.CallToolResult, error)
	closed  bool
}

func (s *fakeSession) ListTools(_ context.Context, _ mmcp.ListToolsRequest) (*mmcp.ListToolsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &mmcp.ListToolsResult{Tools: s.tools}, nil
}

func (s *fakeSession) CallTool(_ context.Context, req mmcp.CallToolRequest) (*mmcp.CallToolResult, error) {
	s.mu.Lock()
	fn := s.callFn
	s.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return textResult("ok"), nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func textResult(text string) *mmcp.CallToolResult {
	return &mmcp.CallToolResult{
		Content: []mmcp.Content{mmcp.TextContent{Type: "text", Text: text}},
	}
}

func tool(name string) mmcp.Tool {
	return mmcp.Tool{
		Name:        name,
		InputSchema: mmcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}
}

// fakeDialer routes dial attempts by target and counts them.
type fakeDialer struct {
	mu       sync.Mutex
	sessions map[string][]session // popped in order; last entry repeats
	errs     map[string]error
	dials    map[string]int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		sessions: make(map[string][]session),
		errs:     make(map[string]error),
		dials:    make(map[string]int),
	}
}

func (d *fakeDialer) serve(target string, sessions ...session) { d.sessions[target] = sessions }
func (d *fakeDialer) fail(target string, err error)            { d.errs[target] = err }

func (d *fakeDialer) dial(_ context.Context, target string) (session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[target]++
	if err := d.errs[target]; err != nil {
		return nil, err
	}
	queue := d.sessions[target]
	if len(queue) == 0 {
		return nil, errors.New("no session scripted for " + target)
	}
	next := queue[0]
	if len(queue) > 1 {
		d.sessions[target] = queue[1:]
	}
	return next, nil
}

func (d *fakeDialer) dialCount(target string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[target]
}

func serverConfig(name, url string, port int) config.ServerConfig {
	return config.ServerConfig{Name: name, URL: url, Port: port}
}

func newTestManager(servers config.Servers, d *fakeDialer, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	}
	m := NewManager(servers, opts)
	m.orch.cm.dial = d.dial
	return m
}

func TestInitializeSurvivesPartialFailure(t *testing.T) {
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}})
	d.fail("http://localhost:8811/mcp", errors.New("connection refused"))

	m := newTestManager(config.Servers{
		serverConfig("search", "http://localhost", 8810),
		serverConfig("broken", "http://localhost", 8811),
	}, d, Options{})

	require.NoError(t, m.Initialize(context.Background()))

	status := m.Status(context.Background())
	require.Len(t, status, 2)
	require.True(t, status["search"].Connected)
	require.Equal(t, 1, status["search"].ToolCount)
	require.False(t, status["broken"].Connected)
	require.Zero(t, status["broken"].ToolCount)
	require.Positive(t, status["broken"].ErrorCount)
}

func TestInitializeFailsWhenNothingConnects(t *testing.T) {
	d := newFakeDialer()
	d.fail("http://localhost:8810/mcp", errors.New("connection refused"))

	m := newTestManager(config.Servers{
		serverConfig("search", "http://localhost", 8810),
	}, d, Options{})

	err := m.Initialize(context.Background())
	require.ErrorIs(t, err, ErrNoServers)
}

func TestInitializeWithoutServers(t *testing.T) {
	m := newTestManager(nil, newFakeDialer(), Options{})
	require.NoError(t, m.Initialize(context.Background()))
	require.Empty(t, m.Tools())
}

func TestCallToolByQualifiedAndBareName(t *testing.T) {
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}})

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d, Options{})
	require.NoError(t, m.Initialize(context.Background()))

	for _, name := range []string{"search:web_lookup", "web_lookup"} {
		res := m.CallTool(context.Background(), name, map[string]any{"q": "go"})
		require.True(t, res.Success, name)
		require.Equal(t, "ok", res.Data, name)
		require.Empty(t, res.Error, name)
		require.GreaterOrEqual(t, res.ExecutionTime, time.Duration(0))
	}
}

func TestCallToolUnknownToolFailsGracefully(t *testing.T) {
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}})

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d, Options{})
	require.NoError(t, m.Initialize(context.Background()))

	res := m.CallTool(context.Background(), "search:missing", nil)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "missing")
	require.GreaterOrEqual(t, res.ExecutionTime, time.Duration(0))
}

func TestCallToolReconnectsOnceOnDeadConnection(t *testing.T) {
	dead := &fakeSession{
		tools: []mmcp.Tool{tool("web_lookup")},
		callFn: func(mmcp.CallToolRequest) (*mmcp.CallToolResult, error) {
			return nil, errors.New("broken pipe")
		},
	}
	healthy := &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}}

	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", dead, healthy)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d, Options{})
	require.NoError(t, m.Initialize(context.Background()))

	res := m.CallTool(context.Background(), "search:web_lookup", nil)
	require.True(t, res.Success)
	require.Equal(t, "ok", res.Data)
	require.Equal(t, 2, d.dialCount("http://localhost:8810/mcp"))
	require.True(t, dead.isClosed())
}

func TestCallToolToolErrorDoesNotReconnect(t *testing.T) {
	sess := &fakeSession{
		tools: []mmcp.Tool{tool("web_lookup")},
		callFn: func(mmcp.CallToolRequest) (*mmcp.CallToolResult, error) {
			return &mmcp.CallToolResult{
				Content: []mmcp.Content{mmcp.TextContent{Type: "text", Text: "rate limited"}},
				IsError: true,
			}, nil
		},
	}
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", sess)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d, Options{})
	require.NoError(t, m.Initialize(context.Background()))

	res := m.CallTool(context.Background(), "search:web_lookup", nil)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "rate limited")
	require.Equal(t, 1, d.dialCount("http://localhost:8810/mcp"))
}

func TestToolSpecs(t *testing.T) {
	sess := &fakeSession{tools: []mmcp.Tool{
		{
			Name:        "web_lookup",
			Description: "look things up",
			InputSchema: mmcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{"q": map[string]any{"type": "string"}},
				Required:   []string{"q"},
			},
		},
	}}
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", sess)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d, Options{})
	require.NoError(t, m.Initialize(context.Background()))

	specs := m.ToolSpecs()
	require.Len(t, specs, 1)
	require.Equal(t, "search:web_lookup", specs[0].Name)
	require.Equal(t, "look things up", specs[0].Description)
	require.Equal(t, "object", specs[0].InputSchema["type"])
	require.Equal(t, []string{"q"}, specs[0].InputSchema["required"])
}

func TestDisconnectClosesSessions(t *testing.T) {
	sess := &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}}
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", sess)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d, Options{})
	require.NoError(t, m.Initialize(context.Background()))

	m.Disconnect()
	require.True(t, sess.isClosed())
	require.Empty(t, m.Tools())
}

func TestHealthProbeTrustWindow(t *testing.T) {
	sess := &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}}
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", sess)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d,
		Options{TrustWindow: time.Hour})
	require.NoError(t, m.Initialize(context.Background()))

	// Break the session. Inside the trust window no probe runs, so the
	// next call flows to the dead session and triggers the retry path.
	sess.mu.Lock()
	sess.listErr = errors.New("gone")
	sess.callFn = func(mmcp.CallToolRequest) (*mmcp.CallToolResult, error) {
		return nil, errors.New("gone")
	}
	sess.mu.Unlock()

	res := m.CallTool(context.Background(), "search:web_lookup", nil)
	require.False(t, res.Success)
	// initial connect plus the single reconnect attempt
	require.Equal(t, 2, d.dialCount("http://localhost:8810/mcp"))
}

func TestCallToolReportsUnavailableServerAfterDisconnect(t *testing.T) {
	sess := &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}}
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", sess)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d,
		Options{TrustWindow: time.Nanosecond})
	require.NoError(t, m.Initialize(context.Background()))

	res := m.CallTool(context.Background(), "search:web_lookup", nil)
	require.True(t, res.Success)

	// The server goes away between calls. The probe fails and the reconnect
	// is refused; the failure must name the dead connection, not the tool.
	sess.mu.Lock()
	sess.listErr = errors.New("gone")
	sess.mu.Unlock()

	res = m.CallTool(context.Background(), "search:web_lookup", nil)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "unavailable")
	require.Contains(t, res.Error, "search")
	require.NotContains(t, res.Error, "not found")
	require.GreaterOrEqual(t, res.ExecutionTime, time.Duration(0))
}

func TestReconnectFailureClosesStaleSession(t *testing.T) {
	sess := &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}}
	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", sess)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d,
		Options{TrustWindow: time.Nanosecond})
	require.NoError(t, m.Initialize(context.Background()))

	sess.mu.Lock()
	sess.listErr = errors.New("gone")
	sess.mu.Unlock()

	res := m.CallTool(context.Background(), "search:web_lookup", nil)
	require.False(t, res.Success)
	// The failed reconnect must not leave the dead transport open.
	require.True(t, sess.isClosed())
}

func TestBareNameCallReconnectsOnDeadConnection(t *testing.T) {
	dead := &fakeSession{
		tools: []mmcp.Tool{tool("web_lookup")},
		callFn: func(mmcp.CallToolRequest) (*mmcp.CallToolResult, error) {
			return nil, errors.New("broken pipe")
		},
	}
	healthy := &fakeSession{tools: []mmcp.Tool{tool("web_lookup")}}

	d := newFakeDialer()
	d.serve("http://localhost:8810/mcp", dead, healthy)

	m := newTestManager(config.Servers{serverConfig("search", "http://localhost", 8810)}, d, Options{})
	require.NoError(t, m.Initialize(context.Background()))

	res := m.CallTool(context.Background(), "web_lookup", nil)
	require.True(t, res.Success)
	require.Equal(t, "ok", res.Data)
	require.Equal(t, 2, d.dialCount("http://localhost:8810/mcp"))
	require.True(t, dead.isClosed())
}
