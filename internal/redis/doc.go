// Package redis implements the Redis-backed permission cache.
//
// Values are JSON-encoded permission sets with a 24-hour TTL. Every
// operation carries an explicit timeout; transient failures degrade to
// cache misses instead of surfacing as errors.
package redis
