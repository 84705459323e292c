package dispatch

import (
	"fmt"
	"os"
	"strings"
)

// APIKeyForProvider resolves a provider credential from the process
// environment: the provider name is uppercased, non-alphanumerics
// become underscores, and "_API_KEY" is appended ("openai" reads
// OPENAI_API_KEY). Secret management beyond this lookup is external.
func APIKeyForProvider(provider string) (string, error) {
	envName := keyEnvName(provider)
	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("no API key for provider %q (set %s)", provider, envName)
	}
	return key, nil
}

func keyEnvName(provider string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(provider) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String() + "_API_KEY"
}
