package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/client"
	mmcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/strayline/corral/internal/config"
)

// session is the subset of an MCP client session the orchestration layer
// depends on. *client.Client satisfies it; tests substitute fakes.
type session interface {
	ListTools(ctx context.Context, request mmcp.ListToolsRequest) (*mmcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mmcp.CallToolRequest) (*mmcp.CallToolResult, error)
	Close() error
}

// dialer opens a transport session against a target URL and completes the
// protocol handshake.
type dialer func(ctx context.Context, target string) (session, error)

// dialStreamableHTTP is the production dialer: a streamable HTTP MCP client.
func dialStreamableHTTP(ctx context.Context, target string) (session, error) {
	cli, err := client.NewStreamableHttpClient(target)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("start transport: %w", err)
	}
	if _, err := cli.Initialize(ctx, mmcp.InitializeRequest{}); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("initialize session: %w", err)
	}
	return cli, nil
}

// connManager opens, health-checks, and closes the connection to a single
// tool server. open is the only method that can fail; healthCheck and close
// degrade to bool/void and log.
type connManager struct {
	dial           dialer
	connectTimeout time.Duration
	healthTimeout  time.Duration
	retry          RetryPolicy
	log            *log.Logger
}

func newConnManager(connectTimeout, healthTimeout time.Duration, retry RetryPolicy, logger *log.Logger) *connManager {
	return &connManager{
		dial:           dialStreamableHTTP,
		connectTimeout: connectTimeout,
		healthTimeout:  healthTimeout,
		retry:          retry,
		log:            logger,
	}
}

// open validates the config, dials the server with a hard timeout, fetches
// its tool list, and returns a fully connected Connection.
func (m *connManager) open(ctx context.Context, cfg config.ServerConfig) (*Connection, error) {
	if err := validateServerConfig(cfg); err != nil {
		return nil, err
	}
	target := cfg.Target()

	var sess session
	err := m.retry.Do(ctx, func() error {
		dialCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
		defer cancel()
		s, dialErr := m.dial(dialCtx, target)
		if dialErr != nil {
			if errors.Is(dialErr, context.DeadlineExceeded) {
				return &TimeoutError{Op: "connect " + cfg.Name, After: m.connectTimeout}
			}
			if ctx.Err() != nil {
				return backoff.Permanent(dialErr)
			}
			return dialErr
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, &ConnectionError{Server: cfg.Name, Err: err}
	}

	listCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()
	listed, err := sess.ListTools(listCtx, mmcp.ListToolsRequest{})
	if err != nil {
		m.closeSession(cfg.Name, sess)
		return nil, &ConnectionError{Server: cfg.Name, Err: fmt.Errorf("list tools: %w", err)}
	}

	tools := make(map[string]ToolDescriptor, len(listed.Tools))
	for _, tool := range listed.Tools {
		tools[tool.Name] = ToolDescriptor{
			Name:         FormatToolName(cfg.Name, tool.Name),
			Description:  tool.Description,
			InputSchema:  tool.InputSchema,
			Server:       cfg.Name,
			OriginalName: tool.Name,
		}
	}

	m.log.Info("connected to tool server", "server", cfg.Name, "tools", len(tools))
	return &Connection{
		Server:    cfg.Name,
		Config:    cfg,
		session:   sess,
		connected: true,
		lastCheck: time.Now(),
		tools:     tools,
	}, nil
}

// healthCheck probes the connection with a lightweight capability listing.
// Any failure flips the connection to disconnected and returns false; this is
// the single place a connection transitions from healthy to unhealthy.
func (m *connManager) healthCheck(ctx context.Context, conn *Connection) bool {
	if conn == nil || conn.session == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, m.healthTimeout)
	defer cancel()
	if _, err := conn.session.ListTools(probeCtx, mmcp.ListToolsRequest{}); err != nil {
		m.log.Warn("health check failed", "server", conn.Server, "err", err)
		conn.markUnhealthy()
		return false
	}
	conn.markHealthy(time.Now())
	return true
}

// close tears the connection down, best effort.
func (m *connManager) close(conn *Connection) {
	if conn == nil {
		return
	}
	m.closeSession(conn.Server, conn.session)
	conn.markUnhealthy()
}

func (m *connManager) closeSession(server string, sess session) {
	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		m.log.Debug("close transport", "server", server, "err", err)
	}
}

func validateServerConfig(cfg config.ServerConfig) error {
	if cfg.Name == "" {
		return &ConfigError{Server: cfg.Name, Field: "name", Reason: "must not be empty"}
	}
	if _, _, ok := ParseToolName(cfg.Name); ok {
		return &ConfigError{Server: cfg.Name, Field: "name", Reason: fmt.Sprintf("must not contain %q", Separator)}
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Server: cfg.Name, Field: "url", Reason: fmt.Sprintf("%q is not a valid URL", cfg.URL)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Server: cfg.Name, Field: "url", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ConfigError{Server: cfg.Name, Field: "port", Reason: fmt.Sprintf("%d is out of range 1..65535", cfg.Port)}
	}
	return nil
}
