package cache

import "strings"

const (
	GlobalKeyPrefix = "profscore"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// SubmissionClaimKey guards the single scored submission of a question.
func SubmissionClaimKey(sessionID, questionID string) string {
	return GenerateCacheKey("scoring", "claim", sessionID, questionID)
}

// SignalsKey holds the integrity counters and baseline of a session as a hash.
func SignalsKey(sessionID string) string {
	return GenerateCacheKey("integrity", "signals", sessionID)
}

// ResultKey caches the serialized assessment result of a completed session.
func ResultKey(sessionID string) string {
	return GenerateCacheKey("session", "result", sessionID)
}
