package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/ftyszyx/school-manager/internal/domain"
	"github.com/ftyszyx/school-manager/internal/metrics"
)

// Hub is the connection registry and broadcaster. It keeps one bucket of
// live ClientWriters per school and fans change events out to them.
//
// The mutex guards only bucket mutation and snapshotting. Broadcast copies
// the bucket under the lock, releases it, performs the sends, and reacquires
// the lock only to filter out failed connections. The lock is never held
// across transport I/O, so a slow client cannot block registration or
// delivery to any other school.
type Hub struct {
	mu      sync.Mutex
	buckets map[int32][]*ClientWriter
	clock   clockwork.Clock
	closed  bool
}

func New(clock clockwork.Clock) *Hub {
	return &Hub{
		buckets: make(map[int32][]*ClientWriter),
		clock:   clock,
	}
}

// Register wraps the connection in a ClientWriter and appends it to the
// school's bucket, creating the bucket if absent. Safe under concurrent
// calls from session handlers and Broadcast. The returned writer is the
// handle the session hands back to Unregister when its read loop exits.
func (h *Hub) Register(schoolID int32, conn *websocket.Conn) *ClientWriter {
	cw := newClientWriter(conn, h.clock)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cw.stop()
		return cw
	}
	h.buckets[schoolID] = append(h.buckets[schoolID], cw)
	total := len(h.buckets[schoolID])
	schools := len(h.buckets)
	h.mu.Unlock()

	metrics.HubConnectedClients.Inc()
	metrics.HubActiveSchools.Set(float64(schools))
	slog.Debug("Client registered", "school_id", schoolID, "total_clients", total)
	return cw
}

// Unregister removes the writer from the school's bucket and stops it.
// Called by the session handler when its read loop ends, so disconnects are
// cleaned up promptly instead of waiting for the next broadcast to prune.
func (h *Hub) Unregister(schoolID int32, cw *ClientWriter) {
	h.mu.Lock()
	bucket := h.buckets[schoolID]
	removed := false
	for i, c := range bucket {
		if c == cw {
			bucket[i] = bucket[len(bucket)-1]
			h.buckets[schoolID] = bucket[:len(bucket)-1]
			removed = true
			break
		}
	}
	if len(h.buckets[schoolID]) == 0 {
		delete(h.buckets, schoolID)
	}
	schools := len(h.buckets)
	h.mu.Unlock()

	cw.stop()

	if removed {
		metrics.HubConnectedClients.Dec()
		metrics.HubActiveSchools.Set(float64(schools))
		slog.Debug("Client unregistered", "school_id", schoolID)
	}
}

// Broadcast sends the event to every live connection of the school.
// Delivery is best effort: a connection whose send fails is removed from
// the bucket after all sends complete (lazy prune).
func (h *Hub) Broadcast(schoolID int32, event domain.ChangeEvent) {
	metrics.HubBroadcastsTotal.Inc()

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal change event", "school_id", schoolID, "error", err)
		return
	}

	h.mu.Lock()
	snapshot := make([]*ClientWriter, len(h.buckets[schoolID]))
	copy(snapshot, h.buckets[schoolID])
	h.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	var dead []*ClientWriter
	for _, cw := range snapshot {
		if !cw.trySend(data) {
			dead = append(dead, cw)
		}
	}

	if len(dead) == 0 {
		return
	}

	deadSet := make(map[*ClientWriter]struct{}, len(dead))
	for _, cw := range dead {
		deadSet[cw] = struct{}{}
	}

	h.mu.Lock()
	bucket := h.buckets[schoolID]
	live := bucket[:0]
	pruned := 0
	for _, cw := range bucket {
		if _, gone := deadSet[cw]; gone {
			pruned++
			continue
		}
		live = append(live, cw)
	}
	h.buckets[schoolID] = live
	if len(live) == 0 {
		delete(h.buckets, schoolID)
	}
	schools := len(h.buckets)
	h.mu.Unlock()

	for _, cw := range dead {
		cw.stop()
	}

	if pruned > 0 {
		metrics.HubPrunedConnections.Add(float64(pruned))
		metrics.HubConnectedClients.Sub(float64(pruned))
		metrics.HubActiveSchools.Set(float64(schools))
		slog.Info("Pruned dead connections during broadcast", "school_id", schoolID, "pruned", pruned)
	}
}

// ClientCount returns the number of live connections for a school.
func (h *Hub) ClientCount(schoolID int32) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buckets[schoolID])
}

// Stop closes every connection and rejects further registrations.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.closed = true
	var all []*ClientWriter
	total := 0
	for schoolID, bucket := range h.buckets {
		all = append(all, bucket...)
		total += len(bucket)
		delete(h.buckets, schoolID)
	}
	h.mu.Unlock()

	for _, cw := range all {
		cw.stopGraceful("server shutting down")
	}

	metrics.HubConnectedClients.Sub(float64(total))
	metrics.HubActiveSchools.Set(0)
	slog.Info("Hub stopped", "disconnected_clients", total)
}
