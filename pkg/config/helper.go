package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var isGCP = os.Getenv("GOOGLE_CLOUD_PROJECT") != ""

// secrets is set while NewConfig runs on GCP
var secrets *secretSource

// getSecret retrieves the value of a secret from Google Cloud Secret Manager, falling back to
// environment variables for keys that are not stored there.
func getSecret(key string) (string, error) {
	if secrets != nil {
		value, err := secrets.access(key)
		if err == nil {
			return value, nil
		}
		if os.Getenv(key) == "" {
			return "", err
		}
	}

	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("environment variable %q not set", key)
	}
	return value, nil
}

// getRequiredSecret is a helper func to get a required secret or fatal log on error.
func getRequiredSecret(key string) string {
	val, err := getSecret(key)
	if err != nil {
		log.Fatalf("FATAL: Cannot get required secret %q: %v", key, err)
	}
	if val == "" {
		log.Fatalf("FATAL: Required secret %q is empty", key)
	}
	return val
}

// getOptionalSecret is a helper func to get an optional secret with a default value.
func getOptionalSecret(key, defaultValue string) string {
	val, err := getSecret(key)
	if err != nil || val == "" {
		return defaultValue
	}
	return val
}

// parseOptionalInt is a helper func to parse an integer from a secret, falling back to a default.
func parseOptionalInt(key string, defaultValue int) int {
	valStr := getOptionalSecret(key, "")
	if valStr == "" {
		return defaultValue
	}
	val, err := cast.ToIntE(valStr)
	if err != nil {
		log.Fatalf("FATAL: Invalid integer value for secret %q: %v", key, err)
	}
	return val
}

// parseOptionalBool is a helper func to parse a boolean from a secret (e.g., "true", "1").
func parseOptionalBool(key string, defaultValue bool) bool {
	valStr := getOptionalSecret(key, "")
	if valStr == "" {
		return defaultValue
	}
	val, err := cast.ToBoolE(valStr)
	if err != nil {
		log.Fatalf("FATAL: Invalid boolean value for secret %q: %v", key, err)
	}
	return val
}

// parseOptionalDuration is a helper func to parse a duration from a secret (e.g., "15m", "1h").
func parseOptionalDuration(key string, defaultValue time.Duration) time.Duration {
	valStr := getOptionalSecret(key, "")
	if valStr == "" {
		return defaultValue
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		log.Fatalf("FATAL: Invalid duration value for secret %q (e.g. '15m'): %v", key, err)
	}
	return val
}

// parseList is a helper func to split a comma separated secret.
func parseList(key string, defaultValue []string) []string {
	valStr := getOptionalSecret(key, "")
	if valStr == "" {
		return defaultValue
	}
	return splitList(valStr)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
