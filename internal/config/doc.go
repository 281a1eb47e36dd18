// Package config provides environment-based configuration.
//
// Loads plain environment variables with defaults, validates required
// fields, and parses the Redis operation timeout.
package config
