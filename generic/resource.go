/*
resource.go - Resource type registration and lookup

PURPOSE:
  Domain packages register their ResourceType values so storage can turn
  the persisted string back into the concrete type.

USAGE:
  // In vacation/types.go
  func init() {
      generic.RegisterResource(KindLibres)
      generic.RegisterResource(KindBloque)
  }

  // In store/sqlite
  kind := generic.GetOrCreateResource("libres")  // returns vacation.KindLibres
*/
package generic

import (
	"sync"
)

var (
	resourceRegistry = make(map[string]ResourceType)
	registryMu       sync.RWMutex
)

// RegisterResource adds a resource type to the global registry.
func RegisterResource(r ResourceType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	resourceRegistry[r.ResourceID()] = r
}

// LookupResource finds a registered resource type by ID.
// Returns nil if not found.
func LookupResource(id string) ResourceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return resourceRegistry[id]
}

// StringResource is the fallback for ids with no registered type.
type StringResource struct {
	ID     string
	Domain string
}

func (r StringResource) ResourceID() string     { return r.ID }
func (r StringResource) ResourceDomain() string { return r.Domain }

// GetOrCreateResource looks up a resource type, or creates a StringResource fallback.
func GetOrCreateResource(id string) ResourceType {
	if r := LookupResource(id); r != nil {
		return r
	}
	return StringResource{ID: id, Domain: "unknown"}
}
