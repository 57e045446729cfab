package gateway

import (
	"fmt"
	"os"
	"strings"

	"github.com/dohr-michael/sheetchat/internal/config"
	"github.com/dohr-michael/sheetchat/internal/secrets"
)

// ResolveAPIKey resolves the API key for a provider.
// Resolution order: direct api_key (plain, ${VAR} or ENC[age:...]) → driver default env.
// Encrypted values are decrypted with the age identity at keyPath.
func ResolveAPIKey(cfg config.ProviderConfig, keyPath string) (string, error) {
	if key := expandVar(cfg.Auth.APIKey); key != "" {
		return secrets.Resolve(key, keyPath)
	}

	var envVars []string
	switch strings.ToLower(cfg.Driver) {
	case "azure":
		envVars = []string{"AZURE_OPENAI_API_KEY"}
	case "openai":
		envVars = []string{"OPENAI_API_KEY", "OPENAI_KEY"}
	default:
		return "", fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}

	for _, name := range envVars {
		if key := os.Getenv(name); key != "" {
			return secrets.Resolve(key, keyPath)
		}
	}
	return "", fmt.Errorf("%s not set", envVars[0])
}

func expandVar(v string) string {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		return os.Getenv(trimmed[2 : len(trimmed)-1])
	}
	return trimmed
}
