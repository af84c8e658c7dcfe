package ledger

import (
	"fmt"
	"sync"
)

// Constructor creates a Client from a Config.
// Implementations register themselves with the registry using Register().
type Constructor func(cfg Config) (Client, error)

// registry maps backend types to their constructors
var (
	registry      = make(map[Type]Constructor)
	registryMutex sync.RWMutex
)

// Register registers a backend constructor.
// This is called from init() functions in implementation packages.
//
// Example:
//
//	func init() {
//	    ledger.Register(ledger.TypeRedis, New)
//	}
func Register(t Type, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("ledger: Register constructor is nil for type %s", t))
	}

	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("ledger: Register called twice for type %s", t))
	}

	registry[t] = constructor
}

// getConstructor retrieves the constructor for a backend type.
// Returns nil if the type is not registered.
func getConstructor(t Type) Constructor {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return registry[t]
}

// IsRegistered returns true if a constructor is registered for the given type.
func IsRegistered(t Type) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, exists := registry[t]
	return exists
}

// RegisteredTypes returns all registered backend types.
// Useful for testing and for factory error messages.
func RegisteredTypes() []Type {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// UnregisterAll clears all registered constructors.
// This is primarily useful for testing.
func UnregisterAll() {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry = make(map[Type]Constructor)
}
