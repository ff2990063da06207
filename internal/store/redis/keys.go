package redis

import "fmt"

const (
	// KeyPrefixGeneration is the prefix for cache generation hashes
	KeyPrefixGeneration = "tracker:cache:gen:"
	// KeyAllGenerations is the key for the set of all generation names
	KeyAllGenerations = "tracker:cache:generations"
)

// GenerationKey returns the Redis hash holding a generation's entries
func GenerationKey(name string) string {
	return KeyPrefixGeneration + name
}

// AllGenerationsKey returns the key for the set of all generation names
func AllGenerationsKey() string {
	return KeyAllGenerations
}

// ExtractGeneration extracts the generation name from a Redis key
func ExtractGeneration(key string) (string, error) {
	if len(key) <= len(KeyPrefixGeneration) || key[:len(KeyPrefixGeneration)] != KeyPrefixGeneration {
		return "", fmt.Errorf("invalid generation key: %s", key)
	}
	return key[len(KeyPrefixGeneration):], nil
}
