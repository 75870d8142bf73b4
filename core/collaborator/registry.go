package collaborator

import (
	"fmt"
	"sort"
	"time"
)

// DefaultLockTimeout bounds how long registry accessors wait for the
// structural lock before degrading to an empty result.
const DefaultLockTimeout = 5 * time.Second

type prioritized struct {
	priority     int
	collaborator Collaborator
}

// Registry is the ordered set of collaborators the dispatcher can delegate
// to. It is read-mostly; all accessors take a short-hold lock with a bounded
// wait and report failure instead of blocking indefinitely.
type Registry struct {
	lock        chan struct{}
	lockTimeout time.Duration

	operators map[string]Collaborator
	// serves maps a location reference (operator, pool, station or EVSE id)
	// to the operator that owns it.
	serves   map[string]string
	cso      []prioritized
	emp      []prioritized
	provider map[string]Collaborator
}

// NewRegistry creates an empty registry. A non-positive lockTimeout selects
// DefaultLockTimeout.
func NewRegistry(lockTimeout time.Duration) *Registry {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Registry{
		lock:        make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		operators:   make(map[string]Collaborator),
		serves:      make(map[string]string),
		provider:    make(map[string]Collaborator),
	}
}

func (r *Registry) acquire() bool {
	select {
	case r.lock <- struct{}{}:
		return true
	case <-time.After(r.lockTimeout):
		return false
	}
}

func (r *Registry) release() { <-r.lock }

// RegisterOperator adds a local operator together with the location
// references it serves. The operator's own id always resolves to it.
func (r *Registry) RegisterOperator(op Collaborator, serves ...string) error {
	if op == nil {
		return fmt.Errorf("collaborator: nil operator")
	}
	if !r.acquire() {
		return fmt.Errorf("collaborator: registry lock timeout")
	}
	defer r.release()
	r.operators[op.ID()] = op
	r.serves[op.ID()] = op.ID()
	for _, ref := range serves {
		if ref != "" {
			r.serves[ref] = op.ID()
		}
	}
	return nil
}

// RegisterRoamingProvider adds a CSO or EMP roaming provider at the given
// priority. Lower priorities are consulted first.
func (r *Registry) RegisterRoamingProvider(p Collaborator, priority int) error {
	if p == nil {
		return fmt.Errorf("collaborator: nil roaming provider")
	}
	var list *[]prioritized
	switch p.Role() {
	case RoleCSORoaming:
		list = &r.cso
	case RoleEMPRoaming:
		list = &r.emp
	default:
		return fmt.Errorf("collaborator: %s is not a roaming provider role", p.Role())
	}
	if !r.acquire() {
		return fmt.Errorf("collaborator: registry lock timeout")
	}
	defer r.release()
	*list = append(*list, prioritized{priority: priority, collaborator: p})
	sort.SliceStable(*list, func(i, j int) bool { return (*list)[i].priority < (*list)[j].priority })
	return nil
}

// RegisterProvider adds a directly-registered e-mobility provider.
func (r *Registry) RegisterProvider(p Collaborator) error {
	if p == nil {
		return fmt.Errorf("collaborator: nil provider")
	}
	if !r.acquire() {
		return fmt.Errorf("collaborator: registry lock timeout")
	}
	defer r.release()
	r.provider[p.ID()] = p
	return nil
}

// Unregister removes the collaborator with the given id from every index.
func (r *Registry) Unregister(id string) {
	if !r.acquire() {
		return
	}
	defer r.release()
	delete(r.operators, id)
	delete(r.provider, id)
	for ref, op := range r.serves {
		if op == id {
			delete(r.serves, ref)
		}
	}
	r.cso = removeID(r.cso, id)
	r.emp = removeID(r.emp, id)
}

func removeID(list []prioritized, id string) []prioritized {
	out := list[:0]
	for _, e := range list {
		if e.collaborator.ID() != id {
			out = append(out, e)
		}
	}
	return out
}

// ResolveLocalOperator finds the operator owning any of the given location
// references. The second return value is false when no operator matches or
// the lock could not be acquired within the bounded wait.
func (r *Registry) ResolveLocalOperator(refs ...string) (Collaborator, bool) {
	if !r.acquire() {
		return nil, false
	}
	defer r.release()
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if opID, ok := r.serves[ref]; ok {
			if op, ok := r.operators[opID]; ok {
				return op, true
			}
		}
	}
	return nil, false
}

// Operators returns all registered local operators in id order.
func (r *Registry) Operators() []Collaborator {
	if !r.acquire() {
		return nil
	}
	defer r.release()
	out := make([]Collaborator, 0, len(r.operators))
	for _, op := range r.operators {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RoamingProviders returns roaming providers of the given role in ascending
// priority order. An empty slice is returned when the lock times out.
func (r *Registry) RoamingProviders(role Role) []Collaborator {
	if !r.acquire() {
		return nil
	}
	defer r.release()
	var list []prioritized
	switch role {
	case RoleCSORoaming:
		list = r.cso
	case RoleEMPRoaming:
		list = r.emp
	}
	out := make([]Collaborator, 0, len(list))
	for _, e := range list {
		out = append(out, e.collaborator)
	}
	return out
}

// DirectProviders returns the directly-registered e-mobility providers in id
// order.
func (r *Registry) DirectProviders() []Collaborator {
	if !r.acquire() {
		return nil
	}
	defer r.release()
	out := make([]Collaborator, 0, len(r.provider))
	for _, p := range r.provider {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Lookup returns the collaborator with the given id, regardless of role.
func (r *Registry) Lookup(id string) (Collaborator, bool) {
	if id == "" {
		return nil, false
	}
	if !r.acquire() {
		return nil, false
	}
	defer r.release()
	if op, ok := r.operators[id]; ok {
		return op, true
	}
	if p, ok := r.provider[id]; ok {
		return p, true
	}
	for _, list := range [][]prioritized{r.cso, r.emp} {
		for _, e := range list {
			if e.collaborator.ID() == id {
				return e.collaborator, true
			}
		}
	}
	return nil, false
}
