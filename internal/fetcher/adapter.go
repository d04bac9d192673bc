package fetcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter fetches the payload for one entity class. Implementations return
// plain errors; the executor classifies them. Adapters must be safe for
// concurrent use and must not retry internally.
type Adapter interface {
	Entity() EntityClass
	Source() SourceClass
	Fetch(ctx context.Context, f *Fetcher) (any, error)
}

var (
	adapterRegistry = make(map[EntityClass]Adapter)
	adapterMu       sync.RWMutex
)

// RegisterAdapter registers an adapter for its entity class. Providers call
// this from init; duplicate registration is a programming error.
func RegisterAdapter(a Adapter) {
	if a == nil {
		panic("adapter is nil")
	}
	class := a.Entity()
	if class == "" {
		panic("adapter entity class is empty")
	}

	adapterMu.Lock()
	defer adapterMu.Unlock()
	if _, exists := adapterRegistry[class]; exists {
		panic(fmt.Sprintf("adapter %s already registered", class))
	}
	adapterRegistry[class] = a
}

func ResolveAdapter(class EntityClass) (Adapter, bool) {
	adapterMu.RLock()
	defer adapterMu.RUnlock()
	a, ok := adapterRegistry[class]
	return a, ok
}

func ListAdapters() []Adapter {
	adapterMu.RLock()
	defer adapterMu.RUnlock()

	all := make([]Adapter, 0, len(adapterRegistry))
	for _, a := range adapterRegistry {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Entity() < all[j].Entity()
	})
	return all
}
