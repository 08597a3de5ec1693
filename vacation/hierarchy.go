package vacation

import (
	"context"
	"fmt"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// HIERARCHY RESOLVER - Read-only traversal of the Jefe forest
// =============================================================================

// HierarchyResolver walks the employee forest. Every traversal tracks the ids
// it has seen and fails with a CycleError on a repeat.
type HierarchyResolver struct {
	store EmployeeStore
}

func NewHierarchyResolver(store EmployeeStore) *HierarchyResolver {
	return &HierarchyResolver{store: store}
}

// Superiors returns the chain above id, nearest first.
func (h *HierarchyResolver) Superiors(ctx context.Context, id generic.EntityID) ([]Employee, error) {
	e, err := h.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := map[generic.EntityID]bool{id: true}
	path := []generic.EntityID{id}
	var chain []Employee
	for e.HasJefe() {
		if seen[e.JefeID] {
			return nil, &generic.CycleError{Path: append(path, e.JefeID)}
		}
		seen[e.JefeID] = true
		path = append(path, e.JefeID)

		jefe, err := h.store.GetEmployee(ctx, e.JefeID)
		if err != nil {
			return nil, fmt.Errorf("superior of %s: %w", e.ID, err)
		}
		chain = append(chain, jefe)
		e = jefe
	}
	return chain, nil
}

// IsInChain is true iff candidate is a direct or transitive superior of
// employee. An employee is never in its own chain.
func (h *HierarchyResolver) IsInChain(ctx context.Context, candidate, employee generic.EntityID) (bool, error) {
	if candidate == "" || candidate == employee {
		return false, nil
	}
	chain, err := h.Superiors(ctx, employee)
	if err != nil {
		return false, err
	}
	for _, s := range chain {
		if s.ID == candidate {
			return true, nil
		}
	}
	return false, nil
}

// Subordinates returns everyone below id breadth-first, up to depth levels.
// depth <= 0 means unlimited.
func (h *HierarchyResolver) Subordinates(ctx context.Context, id generic.EntityID, depth int) ([]Employee, error) {
	seen := map[generic.EntityID]bool{id: true}
	frontier := []generic.EntityID{id}
	var out []Employee

	for level := 1; len(frontier) > 0 && (depth <= 0 || level <= depth); level++ {
		var next []generic.EntityID
		for _, parent := range frontier {
			children, err := h.store.ListSubordinates(ctx, parent)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				if seen[c.ID] {
					return nil, &generic.CycleError{Path: []generic.EntityID{id, parent, c.ID}}
				}
				seen[c.ID] = true
				out = append(out, c)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return out, nil
}

// CheckAssignment verifies that making superior the Jefe of subject keeps the
// forest acyclic. It walks up from superior and rejects if subject is met.
func (h *HierarchyResolver) CheckAssignment(ctx context.Context, subject, superior generic.EntityID) error {
	if superior == "" {
		return nil
	}
	if subject == superior {
		return &generic.ValidationError{Field: "jefeId", Reason: "an employee cannot be its own superior"}
	}
	if _, err := h.store.GetEmployee(ctx, superior); err != nil {
		return err
	}
	chain, err := h.Superiors(ctx, superior)
	if err != nil {
		return err
	}
	path := []generic.EntityID{subject, superior}
	for _, s := range chain {
		path = append(path, s.ID)
		if s.ID == subject {
			return fmt.Errorf("%w: %w", generic.ErrConflict, &generic.CycleError{Path: path})
		}
	}
	return nil
}

// CanView reports whether actor may read data owned by employee: the
// employee itself, anyone above it, or an admin.
func (h *HierarchyResolver) CanView(ctx context.Context, actor Actor, employee generic.EntityID) (bool, error) {
	if actor.ID == employee || actor.IsAdmin() {
		return true, nil
	}
	return h.IsInChain(ctx, actor.ID, employee)
}
