package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

// ErrClosed is returned by Append after Close has run.
var ErrClosed = errors.New("index manager closed")

// Config holds settings for the index Manager.
type Config struct {
	// Namespace prefixes the index key. Empty uses schema.DefaultNamespace.
	Namespace string

	// Logger receives warnings and retry notices. Defaults to stderr
	// with an [index] prefix.
	Logger *log.Logger

	// Retry bounds re-attempts on transient ledger failures.
	Retry ledger.RetryPolicy

	// QueueDepth is the append request buffer. Submitters beyond this
	// depth block until the coordinator catches up.
	QueueDepth int
}

// DefaultConfig returns the configuration used when callers pass a zero
// Config field.
func DefaultConfig() Config {
	return Config{
		Namespace:  schema.DefaultNamespace,
		Retry:      ledger.DefaultRetryPolicy(),
		QueueDepth: 64,
	}
}

// Stats counts coordinator activity since the Manager started.
type Stats struct {
	// Applied is the number of appends that extended the index.
	Applied int64

	// Deduped is the number of appends acknowledged without a write
	// because the id was already present.
	Deduped int64
}

// Manager maintains the ordered id list stored under the single index
// key. All writes to that key funnel through one coordinator goroutine,
// so concurrent submitters within this process can never lose each
// other's appends. See the package documentation for the hazard this
// design exists to close.
type Manager struct {
	client ledger.Client
	ns     string
	logger *log.Logger
	retry  ledger.RetryPolicy

	requests chan appendRequest
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	applied int64
	deduped int64
}

type appendRequest struct {
	ctx   context.Context
	id    string
	reply chan error
}

// New creates a Manager and starts its coordinator goroutine. Callers
// must Close the Manager to stop the coordinator.
func New(client ledger.Client, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[index] ", log.LstdFlags)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = def.Retry
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}

	m := &Manager{
		client:   client,
		ns:       schema.Namespace(cfg.Namespace),
		logger:   cfg.Logger,
		retry:    cfg.Retry,
		requests: make(chan appendRequest, cfg.QueueDepth),
		done:     make(chan struct{}),
	}

	m.wg.Add(1)
	go m.coordinate()

	return m
}

// Append adds id to the index, waiting for the coordinator to apply it.
// Appending an id that is already indexed is an acknowledged no-op, which
// makes retried submissions safe.
//
// If ctx is canceled or the Manager is closed while the request is
// queued, the caller gets the context error or ErrClosed, but the
// coordinator may still apply the append; the idempotency rule means
// re-running the call converges rather than duplicating.
func (m *Manager) Append(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("record id is required")
	}

	req := appendRequest{ctx: ctx, id: id, reply: make(chan error, 1)}

	select {
	case m.requests <- req:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// The send above can win its race against a concurrent Close: the
	// requests channel is buffered, so it stays ready even after the
	// coordinator has drained and exited. Watching done here keeps such
	// a request from waiting on a reply that will never come.
	select {
	case err := <-req.reply:
		return err
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns the ordered id list. An absent index reads as empty. An
// unparsable index also reads as empty with a logged warning: readers
// degrade, they do not crash, and the next successful append rebuilds
// the key.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	var data []byte
	err := m.retry.Do(ctx, m.logger, "index read", func() error {
		var readErr error
		data, readErr = m.client.GetData(ctx, schema.IndexKey(m.ns))
		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(data) == 0 {
		return []string{}, nil
	}

	ids, err := schema.DecodeIndex(data)
	if err != nil {
		m.logger.Printf("index is unreadable, treating as empty: %v", err)
		return []string{}, nil
	}
	return ids, nil
}

// Stats returns coordinator activity counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Applied: atomic.LoadInt64(&m.applied),
		Deduped: atomic.LoadInt64(&m.deduped),
	}
}

// Close stops the coordinator. Queued appends that have not been applied
// are failed with ErrClosed. Close is idempotent.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
	return nil
}
