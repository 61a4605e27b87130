// Package connection implements the WebSocket transport.
//
// The transport:
//   - Upgrades HTTP requests and assigns each session a fresh handle
//   - Reports open, message and close events to an EventHandler
//   - Queues outbound frames in a bounded per-session outbox drained by a
//     dedicated writer goroutine, so one slow client never blocks another
//   - Pings clients and drops sessions that stop answering
package connection
