package llm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/caarlos0/go-shellwords"

	"github.com/strayline/corral/internal/config"
	"github.com/strayline/corral/internal/errs"
)

// defaultKeyEnv maps well-known APIs to their conventional key variable.
func defaultKeyEnv(api string) string {
	switch api {
	case apiOpenAI:
		return "OPENAI_API_KEY"
	case apiAnthropic:
		return "ANTHROPIC_API_KEY"
	case apiGoogle:
		return "GOOGLE_API_KEY"
	case apiOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// ResolveKey resolves the API key for a provider, in order: the literal
// api-key, the configured api-key-env variable, the api-key-cmd command, and
// finally the API's conventional environment variable. An empty result is not
// an error since local endpoints often need no key.
func ResolveKey(ctx context.Context, p config.Provider) (string, error) {
	key := p.APIKey
	if key == "" && p.APIKeyEnv != "" && p.APIKeyCmd == "" {
		key = os.Getenv(p.APIKeyEnv)
	}
	if key == "" && p.APIKeyCmd != "" {
		args, err := shellwords.Parse(p.APIKeyCmd)
		if err != nil {
			return "", errs.Error{Err: err, Reason: fmt.Sprintf("Failed to parse api-key-cmd for %q.", p.Name)}
		}
		// #nosec G204 -- api-key-cmd is explicitly configured by the local user.
		out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return "", errs.Error{Err: err, Reason: fmt.Sprintf("Cannot exec api-key-cmd for %q.", p.Name)}
		}
		key = strings.TrimSpace(string(out))
	}
	if key == "" {
		if env := defaultKeyEnv(p.Name); env != "" {
			key = os.Getenv(env)
		}
	}
	return key, nil
}
