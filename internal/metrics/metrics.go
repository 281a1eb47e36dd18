package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket Hub Metrics
var (
	// HubConnectedClients tracks currently connected websocket clients
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Currently connected websocket clients across all schools",
		},
	)

	// HubActiveSchools tracks schools with at least one live connection
	HubActiveSchools = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_schools",
			Help: "Schools with at least one live websocket connection",
		},
	)

	// HubBroadcastsTotal tracks broadcast calls issued to the hub
	HubBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcast calls issued to the hub",
		},
	)

	// HubPrunedConnections tracks connections removed during broadcast
	HubPrunedConnections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_pruned_connections_total",
			Help: "Dead connections pruned during broadcast",
		},
	)
)

// Change Listener Metrics
var (
	// ListenerEventsTotal tracks feed messages by status (delivered/dropped)
	ListenerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_events_total",
			Help: "Change feed messages by status (delivered/dropped)",
		},
		[]string{"status"},
	)

	// ListenerRestartsTotal tracks supervised listener restarts
	ListenerRestartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listener_restarts_total",
			Help: "Times the change listener was restarted after a failure",
		},
	)
)

// Permission Cache Metrics
var (
	// PermissionCacheOpsTotal tracks cache lookups by result (hit/miss/error)
	PermissionCacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_cache_operations_total",
			Help: "Permission cache lookups by result (hit/miss/error)",
		},
		[]string{"result"},
	)

	// PermissionChecksTotal tracks authorization decisions by outcome
	PermissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_checks_total",
			Help: "Authorization decisions by outcome (allow/deny)",
		},
		[]string{"outcome"},
	)
)
