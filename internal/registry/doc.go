// Package registry implements the Connection Registry component.
//
// The Connection Registry:
//   - Tracks every open connection by handle
//   - Records each connection's role and, for customers, its table number
//   - Maintains the role index used to compute fan-out sets
//   - Serves copied snapshots so callers never iterate shared state
package registry
