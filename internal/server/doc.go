// Package server implements the HTTP server using the Echo framework.
//
// Routes: health checks, prometheus metrics, the per-school websocket
// endpoint, and the authenticated API group guarded by the JWT and
// permission middlewares. CRUD module handlers attach to APIGroup.
package server
