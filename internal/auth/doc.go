// Package auth computes authorization decisions from cached, wildcard-based
// permission sets, and keeps that cache consistent across mutations.
package auth
