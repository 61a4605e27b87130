package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Handles
// -----------------------------------------------------------------------------

// Handle identifies one live connection session. Handles are never reused
// while the session is open.
type Handle uuid.UUID

// NewHandle generates a fresh random handle.
func NewHandle() Handle {
	return Handle(uuid.New())
}

// ParseHandle parses the canonical string form of a handle.
func ParseHandle(s string) (Handle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, err
	}
	return Handle(id), nil
}

// String returns the canonical UUID representation.
func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// MarshalText encodes the handle in its canonical string form.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// -----------------------------------------------------------------------------
// Roles
// -----------------------------------------------------------------------------

// Role classifies a participant. The zero value is RoleUnknown.
type Role int

const (
	RoleUnknown Role = iota
	RoleKitchen
	RoleBar
	RoleWaiter
	RoleCustomer
)

// Roles lists every role a connection can register as (RoleUnknown excluded).
var Roles = []Role{RoleKitchen, RoleBar, RoleWaiter, RoleCustomer}

var roleWireNames = map[Role]string{
	RoleUnknown:  "desconocido",
	RoleKitchen:  "cocina",
	RoleBar:      "barra",
	RoleWaiter:   "camarero",
	RoleCustomer: "cliente",
}

var wireNameRoles = map[string]Role{
	"cocina":   RoleKitchen,
	"barra":    RoleBar,
	"camarero": RoleWaiter,
	"cliente":  RoleCustomer,
}

// ParseRole maps a wire role name to a Role. "desconocido" is not accepted:
// a client cannot register itself as unknown.
func ParseRole(s string) (Role, bool) {
	r, ok := wireNameRoles[s]
	return r, ok
}

// String returns the wire name of the role.
func (r Role) String() string {
	if s, ok := roleWireNames[r]; ok {
		return s
	}
	return "desconocido"
}

// Valid reports whether r is a registrable role.
func (r Role) Valid() bool {
	return r >= RoleKitchen && r <= RoleCustomer
}

// MarshalText encodes the role by its wire name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// -----------------------------------------------------------------------------
// Connections
// -----------------------------------------------------------------------------

// Connection is the registry's record of one live session.
type Connection struct {
	Handle       Handle    `json:"handle"`
	Role         Role      `json:"role"`
	TableNumber  *int      `json:"table_number,omitempty"` // customers only
	ConnectedAt  time.Time `json:"connected_at"`
	RegisteredAt time.Time `json:"registered_at,omitzero"` // zero until the first registration
}

// HasTable reports whether the connection is a customer seated at table n.
func (c Connection) HasTable(n int) bool {
	return c.Role == RoleCustomer && c.TableNumber != nil && *c.TableNumber == n
}
