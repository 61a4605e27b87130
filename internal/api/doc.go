// Package api assembles the relay's HTTP surface.
//
// Routes:
//   - the WebSocket endpoint (default /ws), served by connection.Server
//   - GET /health: liveness plus connection and router counters
//   - GET /debug/connections: registered connections
//   - GET /debug/routes: the routing table
//   - GET /metrics: Prometheus exposition, when a gatherer is supplied
package api
