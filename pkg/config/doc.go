// Package config loads application configuration from TRIMSLOT_* environment
// variables with sensible defaults, and validates the result before the
// server starts. Malformed optional values fall back to their defaults;
// missing required values (database URL, token secret) fail startup.
package config
