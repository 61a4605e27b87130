// Package model defines shared data types used across the order relay.
//
// Conventions:
//   - Handles: opaque per-session identifiers, uuid.UUID under the hood
//   - Roles: closed enum, wire names are the ones the restaurant clients send
//     ("cocina", "barra", "camarero", "cliente")
//   - Table numbers: only meaningful for customer connections
package model
