// Package domain defines the core domain types and interfaces.
//
// No implementation code lives here, just contracts shared between the
// real-time fanout layer, the authorization layer, and their adapters.
// Keeping interfaces here prevents circular imports between packages.
package domain
