package mcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/config"
)

func TestParseToolName(t *testing.T) {
	tests := []struct {
		name   string
		server string
		local  string
		ok     bool
	}{
		{"search:web_lookup", "search", "web_lookup", true},
		{"fs:path:read", "fs", "path:read", true},
		{"web_lookup", "", "web_lookup", false},
		{":tool", "", "tool", true},
		{"", "", "", false},
	}
	for _, tc := range tests {
		server, local, ok := ParseToolName(tc.name)
		require.Equal(t, tc.ok, ok, tc.name)
		require.Equal(t, tc.server, server, tc.name)
		require.Equal(t, tc.local, local, tc.name)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	name := FormatToolName("search", "web_lookup")
	require.Equal(t, "search:web_lookup", name)

	server, local, ok := ParseToolName(name)
	require.True(t, ok)
	require.Equal(t, "search", server)
	require.Equal(t, "web_lookup", local)
}

func TestFindOwningConnection(t *testing.T) {
	conns := map[string]*Connection{
		"search": {
			Server:    "search",
			connected: true,
			tools: map[string]ToolDescriptor{
				"web_lookup": {Name: "search:web_lookup", Server: "search", OriginalName: "web_lookup"},
			},
		},
		"files": {
			Server:    "files",
			connected: true,
			tools: map[string]ToolDescriptor{
				"read": {Name: "files:read", Server: "files", OriginalName: "read"},
			},
		},
		"down": {Server: "down"},
	}

	t.Run("namespaced and bare resolve to the same server", func(t *testing.T) {
		byQualified := findOwningConnection("search:web_lookup", conns)
		byBare := findOwningConnection("web_lookup", conns)
		require.NotNil(t, byQualified)
		require.Same(t, byQualified, byBare)
		require.Equal(t, "search", byQualified.Server)
	})

	t.Run("unknown tool", func(t *testing.T) {
		require.Nil(t, findOwningConnection("nope", conns))
		require.Nil(t, findOwningConnection("search:nope", conns))
		require.Nil(t, findOwningConnection("ghost:web_lookup", conns))
	})

	t.Run("disconnected server is skipped", func(t *testing.T) {
		require.Nil(t, findOwningConnection("down:anything", conns))
	})
}

func TestValidateServerConfig(t *testing.T) {
	valid := serverConfig("search", "http://localhost", 8810)
	require.NoError(t, validateServerConfig(valid))

	tests := []struct {
		mutate func(*config.ServerConfig)
		field  string
	}{
		{func(c *config.ServerConfig) { c.Name = "" }, "name"},
		{func(c *config.ServerConfig) { c.Name = "a:b" }, "name"},
		{func(c *config.ServerConfig) { c.URL = "not a url" }, "url"},
		{func(c *config.ServerConfig) { c.URL = "ftp://host" }, "url"},
		{func(c *config.ServerConfig) { c.Port = 0 }, "port"},
		{func(c *config.ServerConfig) { c.Port = 70000 }, "port"},
	}
	for _, tc := range tests {
		cfg := valid
		tc.mutate(&cfg)
		err := validateServerConfig(cfg)
		require.Error(t, err)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		require.Equal(t, tc.field, cfgErr.Field)
	}
}
