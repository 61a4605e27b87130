package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/comandas/internal/model"
)

// Errors
var (
	ErrDuplicateHandle   = errors.New("duplicate handle")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Registry holds all open connections and the role index derived from them.
// A single lock guards both so a fan-out snapshot is never read mid-mutation.
type Registry struct {
	mu sync.RWMutex

	// All open connections indexed by handle.
	conns map[model.Handle]*model.Connection

	// Role → handles currently holding that role. RoleUnknown is never indexed.
	byRole map[model.Role]map[model.Handle]struct{}

	now func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	byRole := make(map[model.Role]map[model.Handle]struct{}, len(model.Roles))
	for _, r := range model.Roles {
		byRole[r] = make(map[model.Handle]struct{})
	}
	return &Registry{
		conns:  make(map[model.Handle]*model.Connection),
		byRole: byRole,
		now:    time.Now,
	}
}

// Register adds a connection with role unknown.
func (r *Registry) Register(h model.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[h]; ok {
		return ErrDuplicateHandle
	}
	r.conns[h] = &model.Connection{
		Handle:      h,
		Role:        model.RoleUnknown,
		ConnectedAt: r.now(),
	}
	return nil
}

// SetRole binds h to role, moving it out of whatever role set held it.
// table is kept only for customers. Returns the previous role.
func (r *Registry) SetRole(h model.Handle, role model.Role, table *int) (model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[h]
	if !ok {
		return model.RoleUnknown, ErrUnknownConnection
	}

	prev := c.Role
	if set, ok := r.byRole[prev]; ok {
		delete(set, h)
	}

	c.Role = role
	c.TableNumber = nil
	if role == model.RoleCustomer && table != nil {
		n := *table
		c.TableNumber = &n
	}
	c.RegisteredAt = r.now()

	if set, ok := r.byRole[role]; ok {
		set[h] = struct{}{}
	}
	return prev, nil
}

// Remove deletes h from the registry and the role index. Removing an absent
// handle is a no-op; the return value reports whether h was present.
func (r *Registry) Remove(h model.Handle) (model.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[h]
	if !ok {
		return model.Connection{}, false
	}
	if set, ok := r.byRole[c.Role]; ok {
		delete(set, h)
	}
	delete(r.conns, h)
	return copyConn(c), true
}

// Get returns a copy of the connection record for h.
func (r *Registry) Get(h model.Handle) (model.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[h]
	if !ok {
		return model.Connection{}, false
	}
	return copyConn(c), true
}

// ConnectionsForRole returns a snapshot of the handles registered as role.
func (r *Registry) ConnectionsForRole(role model.Role) []model.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byRole[role]
	result := make([]model.Handle, 0, len(set))
	for h := range set {
		result = append(result, h)
	}
	return result
}

// ConnectionsForRoles returns one snapshot of the handles holding any of
// roles, taken under a single lock. Each handle appears once.
func (r *Registry) ConnectionsForRoles(roles ...model.Role) []model.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, role := range roles {
		n += len(r.byRole[role])
	}
	result := make([]model.Handle, 0, n)
	seen := make(map[model.Handle]struct{}, n)
	for _, role := range roles {
		for h := range r.byRole[role] {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			result = append(result, h)
		}
	}
	return result
}

// ConnectionsForTable returns a snapshot of the customer handles seated at
// table n.
func (r *Registry) ConnectionsForTable(n int) []model.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []model.Handle
	for h := range r.byRole[model.RoleCustomer] {
		if c := r.conns[h]; c != nil && c.HasTable(n) {
			result = append(result, h)
		}
	}
	return result
}

// Len returns the number of open connections, registered or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Count returns the number of connections holding role. For RoleUnknown it
// counts connections that have not registered yet.
func (r *Registry) Count(role model.Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if role == model.RoleUnknown {
		n := len(r.conns)
		for _, set := range r.byRole {
			n -= len(set)
		}
		return n
	}
	return len(r.byRole[role])
}

// Snapshot returns copies of every connection, oldest first.
func (r *Registry) Snapshot() []model.Connection {
	r.mu.RLock()
	result := make([]model.Connection, 0, len(r.conns))
	for _, c := range r.conns {
		result = append(result, copyConn(c))
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].ConnectedAt.Equal(result[j].ConnectedAt) {
			return result[i].Handle.String() < result[j].Handle.String()
		}
		return result[i].ConnectedAt.Before(result[j].ConnectedAt)
	})
	return result
}

func copyConn(c *model.Connection) model.Connection {
	out := *c
	if c.TableNumber != nil {
		n := *c.TableNumber
		out.TableNumber = &n
	}
	return out
}
