package ledger

import "fmt"

// Open creates a Client for the backend named in cfg.Backend.
//
// The backend's implementation package must be linked into the binary so
// its init() has registered a constructor; cmd/cintel imports all of them
// for side effect. An empty Backend defaults to TypeMemory, which keeps
// tests and demos free of external services.
func Open(cfg Config) (Client, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = TypeMemory
	}

	constructor := getConstructor(backend)
	if constructor == nil {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrNotRegistered, backend, RegisteredTypes())
	}

	client, err := constructor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s ledger: %w", backend, err)
	}

	return client, nil
}
