package routing

import (
	"fmt"
	"sort"

	"github.com/rickgao/comandas/internal/model"
)

// Notification types understood by the restaurant clients.
const (
	TypeProductReady       = "productoListo"
	TypeOrderReady         = "pedidoListo"
	TypeProductServed      = "productoServido"
	TypeOrderServed        = "pedidoServido"
	TypeNewOrder           = "nuevoPedido"
	TypeOrderInPreparation = "pedidoEnPreparacion"
)

// Table maps a notification type to its ordered destination roles.
type Table struct {
	routes map[string][]model.Role
}

// DefaultRoutes returns the routes of the stock restaurant workflow. Kitchen
// and waiters both follow every lifecycle event of a product or order.
func DefaultRoutes() map[string][]model.Role {
	readyDest := []model.Role{model.RoleWaiter, model.RoleKitchen}
	otherDest := []model.Role{model.RoleKitchen, model.RoleWaiter}

	return map[string][]model.Role{
		TypeProductReady:       readyDest,
		TypeOrderReady:         readyDest,
		TypeProductServed:      otherDest,
		TypeOrderServed:        otherDest,
		TypeNewOrder:           otherDest,
		TypeOrderInPreparation: otherDest,
	}
}

// Default returns the table built from DefaultRoutes.
func Default() *Table {
	t, _ := New(DefaultRoutes())
	return t
}

// New builds a table from routes. Duplicate roles within one route are
// collapsed, keeping first-seen order. Unknown roles are rejected.
func New(routes map[string][]model.Role) (*Table, error) {
	t := &Table{routes: make(map[string][]model.Role, len(routes))}

	for typ, roles := range routes {
		seen := make(map[model.Role]struct{}, len(roles))
		dest := make([]model.Role, 0, len(roles))
		for _, r := range roles {
			if !r.Valid() {
				return nil, fmt.Errorf("route %q: invalid destination role %d", typ, int(r))
			}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			dest = append(dest, r)
		}
		if len(dest) > 0 {
			t.routes[typ] = dest
		}
	}
	return t, nil
}

// Lookup returns the destination roles for typ, or nil when typ is not
// enrolled. The returned slice is a copy.
func (t *Table) Lookup(typ string) []model.Role {
	dest, ok := t.routes[typ]
	if !ok {
		return nil
	}
	out := make([]model.Role, len(dest))
	copy(out, dest)
	return out
}

// Types returns every enrolled notification type, sorted.
func (t *Table) Types() []string {
	types := make([]string, 0, len(t.routes))
	for typ := range t.routes {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Len returns the number of enrolled types.
func (t *Table) Len() int {
	return len(t.routes)
}
