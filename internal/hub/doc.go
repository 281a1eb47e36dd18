// Package hub implements the websocket connection registry and broadcaster.
//
// Connections are bucketed by school id. Broadcast snapshots a bucket under
// the lock, releases it, performs non-blocking sends, then reacquires the
// lock only to filter out connections whose send failed. Per-connection
// write goroutines keep slow clients from blocking anyone else.
package hub
