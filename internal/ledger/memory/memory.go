// Package memory implements the ledger Client on a process-local map.
//
// It exists for tests, demos, and single-process trials: semantics match
// the real substrates (per-key atomic get/set, empty means absent) and the
// client adds knobs for fault injection so concurrency and retry behavior
// can be exercised without a server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

func init() {
	ledger.Register(ledger.TypeMemory, func(cfg ledger.Config) (ledger.Client, error) {
		return New(), nil
	})
}

// Client is an in-process ledger backend. All methods are safe for
// concurrent use.
type Client struct {
	mu        sync.RWMutex
	data      map[string][]byte
	closed    bool
	available bool

	// fault injection
	failGets   int
	failSets   int
	writeDelay time.Duration

	// counters
	gets int
	sets int
}

// New creates an empty, available in-memory ledger.
func New() *Client {
	return &Client{
		data:      make(map[string][]byte),
		available: true,
	}
}

// Name returns the backend type.
func (c *Client) Name() ledger.Type {
	return ledger.TypeMemory
}

// IsAvailable reports the injected availability state.
func (c *Client) IsAvailable(ctx context.Context) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available && !c.closed
}

// GetData returns a copy of the value under key, or nil for an absent key.
func (c *Client) GetData(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	if c.failGets > 0 {
		c.failGets--
		return nil, fmt.Errorf("injected read failure: %w", ledger.ErrUnavailable)
	}

	val, ok := c.data[key]
	if !ok || len(val) == 0 {
		return nil, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// SetData atomically overwrites the value under key.
func (c *Client) SetData(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Applied outside the lock so concurrent writers genuinely overlap;
	// the lock below still makes the final store per-key atomic.
	if d := c.delay(); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++
	if err := c.checkLocked(); err != nil {
		return err
	}
	if c.failSets > 0 {
		c.failSets--
		return fmt.Errorf("injected write failure: %w", ledger.ErrUnavailable)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	c.data[key] = stored
	return nil
}

// Close marks the client closed. Further calls return ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) checkLocked() error {
	if c.closed {
		return ledger.ErrClosed
	}
	if !c.available {
		return fmt.Errorf("backend offline: %w", ledger.ErrUnavailable)
	}
	return nil
}

func (c *Client) delay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writeDelay
}

// ===================
// Test Hooks
// ===================

// SetAvailable flips the availability probe and makes calls fail with
// ErrUnavailable while false.
func (c *Client) SetAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = available
}

// FailGets makes the next n GetData calls fail with ErrUnavailable.
func (c *Client) FailGets(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failGets = n
}

// FailSets makes the next n SetData calls fail with ErrUnavailable.
func (c *Client) FailSets(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSets = n
}

// SetWriteDelay inserts a pause before each write lands. Tests use this to
// widen the read-modify-write window when demonstrating index races.
func (c *Client) SetWriteDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeDelay = d
}

// Keys returns all non-empty keys in sorted order.
func (c *Client) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.data))
	for k, v := range c.data {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Counts returns the number of GetData and SetData calls served.
func (c *Client) Counts() (gets, sets int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gets, c.sets
}
