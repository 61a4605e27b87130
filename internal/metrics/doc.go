// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Inbound message rates by classification
//   - Dropped messages by reason
//   - Fan-out deliveries, recipient counts and send failures
//   - Open connections per role
package metrics
