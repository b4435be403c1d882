package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ConfigError reports an invalid server configuration. It is raised before any
// I/O is attempted.
type ConfigError struct {
	Server string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config for server %q: %s: %s", e.Server, e.Field, e.Reason)
}

// ConnectionError reports a handshake or transport failure for one server.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("server %q: connection failed: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports an operation that exceeded its deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// Is lets TimeoutError match context deadline checks.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// ToolError reports an application-level failure returned by a remote tool.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}

// NotFoundError reports a tool name with no owning connection.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found on any connected server", e.Tool)
}

// ErrNoServers is returned by Initialize when not a single configured server
// could be connected.
var ErrNoServers = errors.New("no tool servers could be connected")
