package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		var cfg Config
		require.NoError(t, yaml.Unmarshal([]byte("call-timeout: 45s"), &cfg))
		require.Equal(t, 45*time.Second, cfg.CallTimeout.Std())
	})

	t.Run("extended units", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte("1d")))
		require.Equal(t, 24*time.Hour, d.Std())
	})

	t.Run("invalid", func(t *testing.T) {
		var d Duration
		require.Error(t, d.UnmarshalText([]byte("soon")))
	})
}

func TestServersUnmarshal(t *testing.T) {
	const in = `
servers:
  search:
    url: http://localhost
    port: 9001
  notes:
    url: https://notes.internal
    port: 9002
    endpoint: /tools
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(in), &cfg))
	require.Len(t, cfg.Servers, 2)

	// File order is preserved.
	require.Equal(t, "search", cfg.Servers[0].Name)
	require.Equal(t, "notes", cfg.Servers[1].Name)

	require.Equal(t, "http://localhost:9001/mcp", cfg.Servers[0].Target())
	require.Equal(t, "https://notes.internal:9002/tools", cfg.Servers[1].Target())
}

func TestServerTarget(t *testing.T) {
	require.Equal(
		t,
		"http://localhost:9001/mcp",
		ServerConfig{URL: "http://localhost/", Port: 9001}.Target(),
	)
	require.Equal(
		t,
		"http://localhost:9001/tools",
		ServerConfig{URL: "http://localhost", Port: 9001, Endpoint: "tools"}.Target(),
	)
}

func TestProvidersFind(t *testing.T) {
	const in = `
apis:
  openai:
    api-key-env: OPENAI_API_KEY
  hosted:
    base-url: https://llm.internal/v1
    api-key-cmd: pass show llm
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(in), &cfg))
	require.Len(t, cfg.Providers, 2)

	p, ok := cfg.Providers.Find("hosted")
	require.True(t, ok)
	require.Equal(t, "https://llm.internal/v1", p.BaseURL)

	_, ok = cfg.Providers.Find("nope")
	require.False(t, ok)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)
	require.Equal(t, "react", cfg.Processor)
	require.Equal(t, 10, cfg.MaxIterations)
	require.Equal(t, 50, cfg.HistoryWindow)
	require.Equal(t, 80, cfg.WordWrap)
	require.Equal(t, 10*time.Second, cfg.ConnectTimeout.Std())
	require.Equal(t, 5*time.Second, cfg.HealthTimeout.Std())
	require.Equal(t, 30*time.Second, cfg.CallTimeout.Std())
}

func TestWriteConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corral.yml")
	require.NoError(t, WriteConfigFile(path))

	// The generated template parses back into a valid config.
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
	require.Equal(t, "openai", cfg.API)

	// Writing again keeps the existing file.
	require.NoError(t, WriteConfigFile(path))
}
