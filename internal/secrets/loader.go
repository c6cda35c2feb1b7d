package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Env names an environment variable holding the secret value.
	Env string
	// File points to a file containing the secret value. When set it takes
	// precedence over Env.
	File string
}

// Load returns the resolved secret value from the provided source. When File
// is set it takes precedence over Env. The returned secret is always trimmed.
// An error is returned when neither File nor Env contain a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		secret := strings.TrimSpace(os.Getenv(env))
		if secret == "" {
			return "", fmt.Errorf("%s is not set in environment variable %s", name, env)
		}
		return secret, nil
	}

	return "", fmt.Errorf("%s is not configured", name)
}
