// Package ledger provides a unified interface for the shared key-value
// substrate that intelligence records and their index live on.
//
// This package abstracts the differences between the supported backends
// (in-memory, Redis, embedded libSQL, etcd), enabling the registry core to
// work against any of them. The design follows a strategy pattern with
// registered constructors and factory creation.
//
// # Architecture
//
// The Client interface is deliberately narrow. The substrate guarantees
// exactly three things and nothing more:
//   - per-key atomic get and set
//   - total ordering of writes to a single key
//   - an availability probe
//
// There is no enumeration, no multi-key transaction, and no conditional
// write. Everything the registry layers on top (the record index, the
// workflow guards) must be built from these three calls alone.
//
// # Usage
//
//	client, err := ledger.Open(ledger.Config{Backend: ledger.TypeRedis})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	val, err := client.GetData(ctx, "cintel/index")
//
// # Implementations
//
//   - internal/ledger/memory: in-process map, used by tests and demos
//   - internal/ledger/redis: Redis via go-redis
//   - internal/ledger/sqlite: embedded libSQL database file
//   - internal/ledger/etcd: etcd v3 cluster
package ledger

import (
	"context"
	"time"
)

// Type represents the ledger backend type
type Type string

const (
	// TypeMemory indicates the in-process map backend
	TypeMemory Type = "memory"

	// TypeRedis indicates a Redis backend
	TypeRedis Type = "redis"

	// TypeSQLite indicates an embedded libSQL file backend
	TypeSQLite Type = "sqlite"

	// TypeEtcd indicates an etcd v3 backend
	TypeEtcd Type = "etcd"
)

// String returns the string representation of the backend type
func (t Type) String() string {
	return string(t)
}

// Client defines the narrow contract every ledger backend satisfies.
//
// An empty value is indistinguishable from an absent key on purpose: the
// substrate models "never written" and "written empty" identically, and
// callers treat both as absence.
type Client interface {
	// Name returns the backend type (memory, redis, sqlite, etcd)
	Name() Type

	// IsAvailable reports whether the ledger can currently serve calls.
	// It never blocks longer than the context allows.
	IsAvailable(ctx context.Context) bool

	// GetData returns the value stored under key. An absent key yields
	// a nil slice and a nil error; failures to reach the substrate wrap
	// ErrUnavailable.
	GetData(ctx context.Context, key string) ([]byte, error)

	// SetData overwrites the value under key in a single atomic step.
	// Writes to the same key are totally ordered by the substrate; writes
	// to different keys have no ordering relationship at all.
	SetData(ctx context.Context, key string, value []byte) error

	// Close releases any resources held by the client.
	Close() error
}

// Config selects and parameterizes a backend. Only the section matching
// Backend is consulted; the rest may be zero.
type Config struct {
	// Backend selects the implementation. Empty defaults to TypeMemory.
	Backend Type

	Redis  RedisConfig
	SQLite SQLiteConfig
	Etcd   EtcdConfig
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password is the optional AUTH password.
	Password string

	// DB is the logical database number.
	DB int
}

// SQLiteConfig holds settings for the embedded libSQL backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string
}

// EtcdConfig holds connection settings for the etcd backend.
type EtcdConfig struct {
	// Endpoints lists the cluster endpoints, e.g. ["localhost:2379"].
	Endpoints []string

	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration
}
