// Package monitor streams pipeline graph lifecycle notifications to
// WebSocket clients.
//
// The monitor subscribes to a graph Notifier and broadcasts every
// consumer-added and source-added event as JSON. Clients connecting
// mid-build receive a replay of recent events first, so a visualizer
// can reconstruct the graph without racing construction. Delivery is
// best effort; pipeline correctness never depends on the monitor.
package monitor
