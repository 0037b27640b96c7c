package main

import (
	"os"
	"path/filepath"
	"testing"
)

// getBinaryPath returns the path to the ocrwatch binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "ocrwatch"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/ocrwatch ./cmd/ocrwatch'", binaryPath)
	}

	return binaryPath
}

// withoutCredentialEnv returns the current environment with the Google
// credential variables removed, so tests see the unauthenticated path.
func withoutCredentialEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if hasPrefixAny(e, "GEMINI_API_KEY=", "GOOGLE_APPLICATION_CREDENTIALS=") {
			continue
		}
		env = append(env, e)
	}
	return env
}

func hasPrefixAny(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}
