// Package store reads and writes individual intelligence records on the
// shared ledger.
//
// It is a pure translation layer: one Get or Put is one ledger call plus
// codec work, nothing else. No retries happen here (callers own retry
// policy) and no listing happens here (that is the index's job). The
// package's main value is the error contract: absence, damage, and
// substrate failure come back as three distinct kinds so callers can
// skip, log, or retry appropriately.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

// ErrNotFound is returned when a record key is absent from the ledger.
// Absence is normal (a never-submitted id, an abandoned submission) and
// distinct from schema.ErrDecode, which means the key held damaged bytes.
var ErrNotFound = errors.New("record not found")

// Store translates between Record values and ledger payloads.
type Store struct {
	client ledger.Client
	ns     string
}

// New creates a Store over the given ledger client and namespace.
// An empty namespace uses schema.DefaultNamespace.
func New(client ledger.Client, namespace string) *Store {
	return &Store{
		client: client,
		ns:     schema.Namespace(namespace),
	}
}

// Namespace returns the namespace this store operates in.
func (s *Store) Namespace() string {
	return s.ns
}

// Get fetches and decodes the record with the given id.
//
// Error kinds:
//   - ErrNotFound: the key is absent (empty value)
//   - schema.ErrDecode: the key holds bytes that do not parse
//   - ledger.ErrUnavailable: the substrate could not be reached
func (s *Store) Get(ctx context.Context, id string) (*schema.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("record id is required")
	}

	data, err := s.client.GetData(ctx, schema.RecordKey(s.ns, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}

	rec, err := schema.DecodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}
	if rec.ID != id {
		// The payload decoded cleanly but belongs to a different id:
		// a misplaced write from a buggy client. Treat as damage.
		return nil, fmt.Errorf("record %s: payload claims id %s: %w", id, rec.ID, schema.ErrDecode)
	}

	return rec, nil
}

// Put validates, encodes, and writes the record as a full-value
// overwrite. One ledger write per call; partial-field updates do not
// exist at this layer.
func (s *Store) Put(ctx context.Context, rec *schema.Record) error {
	data, err := schema.EncodeRecord(rec)
	if err != nil {
		return err
	}

	if err := s.client.SetData(ctx, schema.RecordKey(s.ns, rec.ID), data); err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
	}
	return nil
}

// ReadMeta fetches the namespace metadata, or ErrNotFound if no writer
// has initialized the namespace yet.
func (s *Store) ReadMeta(ctx context.Context) (*schema.Meta, error) {
	data, err := s.client.GetData(ctx, schema.MetaKey(s.ns))
	if err != nil {
		return nil, fmt.Errorf("failed to read namespace meta: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("namespace meta: %w", ErrNotFound)
	}

	meta, err := schema.DecodeMeta(data)
	if err != nil {
		return nil, fmt.Errorf("namespace meta: %w", err)
	}
	return meta, nil
}

// WriteMeta records the namespace metadata.
func (s *Store) WriteMeta(ctx context.Context, meta *schema.Meta) error {
	data, err := schema.EncodeMeta(meta)
	if err != nil {
		return err
	}

	if err := s.client.SetData(ctx, schema.MetaKey(s.ns), data); err != nil {
		return fmt.Errorf("failed to write namespace meta: %w", err)
	}
	return nil
}
