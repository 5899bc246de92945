package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a credential using the *_FILE convention: if
// envName+"_FILE" is set the secret is read from that file (trailing
// whitespace stripped), otherwise the plain env var is used. Returns an
// empty string when neither is set.
func ResolveSecret(envName string) (string, error) {
	if path := os.Getenv(envName + "_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret %s_FILE=%s: %w", envName, path, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return os.Getenv(envName), nil
}
