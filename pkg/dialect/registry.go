package dialect

import (
	"sort"
	"sync"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
)

// Info describes a registered dialect for UI discovery.
type Info struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	// SupportsDynamicTable tells the UI whether the dynamic/materialized
	// table artifact can be requested for this dialect.
	SupportsDynamicTable bool `json:"supports_dynamic_table"`
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Dialect)
)

// Register is called by each dialect subpackage's init() function.
// Thread-safe for concurrent init() calls.
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[name]
	if !ok {
		return Dialect{}, apperrors.ErrUnknownDialect
	}
	return d, nil
}

// IsRegistered checks if a dialect name is available.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Registered returns info for all registered dialects, sorted by name so
// API responses are stable.
func Registered() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Info, 0, len(registry))
	for _, d := range registry {
		result = append(result, Info{
			Name:                 d.Name,
			DisplayName:          d.DisplayName,
			SupportsDynamicTable: d.MaterializedTable != nil,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
