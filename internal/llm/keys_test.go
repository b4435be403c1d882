package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/config"
)

func TestResolveKeyLiteral(t *testing.T) {
	key, err := ResolveKey(context.Background(), config.Provider{Name: "openai", APIKey: "sk-literal"})
	require.NoError(t, err)
	require.Equal(t, "sk-literal", key)
}

func TestResolveKeyFromEnv(t *testing.T) {
	t.Setenv("CORRAL_TEST_KEY", "sk-env")
	key, err := ResolveKey(context.Background(), config.Provider{Name: "openai", APIKeyEnv: "CORRAL_TEST_KEY"})
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)
}

func TestResolveKeyFromCommand(t *testing.T) {
	key, err := ResolveKey(context.Background(), config.Provider{Name: "ollama", APIKeyCmd: "echo sk-cmd"})
	require.NoError(t, err)
	require.Equal(t, "sk-cmd", key)
}

func TestResolveKeyDefaultEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-default")
	key, err := ResolveKey(context.Background(), config.Provider{Name: "openai"})
	require.NoError(t, err)
	require.Equal(t, "sk-default", key)
}

func TestResolveKeyEmptyForLocalEndpoints(t *testing.T) {
	key, err := ResolveKey(context.Background(), config.Provider{Name: "ollama"})
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestResolveKeyBadCommand(t *testing.T) {
	_, err := ResolveKey(context.Background(), config.Provider{Name: "openai", APIKeyCmd: "unterminated 'quote"})
	require.Error(t, err)
}
