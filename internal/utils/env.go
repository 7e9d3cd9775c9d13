package utils

import "os"

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// BuildInfo reports the commit and build time injected at deploy time.
func BuildInfo() (commit, buildTime string) {
	return SafeEnv("ENCUESTA_COMMIT", "dev"), SafeEnv("ENCUESTA_BUILD_TIME", "")
}
