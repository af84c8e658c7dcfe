package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/index"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/store"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

// Config holds settings for the workflow Engine.
type Config struct {
	// Policy is the transition authorization rule. Nil uses
	// DefaultPolicy.
	Policy *Policy

	// Retry bounds re-attempts on transient ledger failures.
	Retry ledger.RetryPolicy

	// Logger receives transition and retry notices. Defaults to stderr
	// with a [workflow] prefix.
	Logger *log.Logger

	// Clock supplies the current time; tests substitute a fixed one.
	Clock func() time.Time
}

// SubmitRequest carries the caller-supplied fields of a new record. The
// submitter is not a field: it is always the acting identity on the
// operation context.
type SubmitRequest struct {
	// CrimeType categorizes the infrastructure. Required.
	CrimeType string

	// Ciphertext is the pre-encrypted payload. Required, bounded by
	// schema.MaxCiphertextSize, and never inspected.
	Ciphertext []byte

	// ThreatLevel defaults to medium when empty.
	ThreatLevel schema.ThreatLevel
}

// Engine drives records through the status workflow.
//
// Every transition is guarded twice: once when the decision is made
// (state and authorization preconditions against a fresh read) and once
// immediately before the write (the status must still be the one the
// decision was made against, else ErrConflict). The record write and the
// index append of a submission remain two separate ledger calls; a crash
// between them leaves an orphan that readers tolerate and doctor can
// repair.
type Engine struct {
	store  *store.Store
	index  *index.Manager
	policy Policy
	retry  ledger.RetryPolicy
	logger *log.Logger
	clock  func() time.Time

	metaOnce sync.Once
}

// New creates an Engine over the given store and index manager. The
// effective transition policy is logged once so deployments can audit
// which rule is live.
func New(st *store.Store, idx *index.Manager, cfg Config) *Engine {
	policy := DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[workflow] ", log.LstdFlags)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = ledger.DefaultRetryPolicy()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	e := &Engine{
		store:  st,
		index:  idx,
		policy: policy,
		retry:  cfg.Retry,
		logger: cfg.Logger,
		clock:  cfg.Clock,
	}
	e.logger.Printf("transition policy: %s", policy)
	return e
}

// Submit creates a record in Pending and makes it discoverable.
//
// The two ledger writes (record, then index entry) are not atomic as a
// pair. Failure after the first write leaves an orphaned record; Submit
// reports the failure rather than unwinding, because the record key is
// already durable and a later re-append converges.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	actor := identity.FromContext(ctx)
	if actor == "" {
		return "", fmt.Errorf("%w: no acting identity on context", ErrUnauthorized)
	}
	if req.CrimeType == "" {
		return "", fmt.Errorf("crime type is required")
	}
	if len(req.Ciphertext) == 0 {
		return "", fmt.Errorf("ciphertext is required")
	}
	if len(req.Ciphertext) > schema.MaxCiphertextSize {
		return "", fmt.Errorf("ciphertext exceeds %d bytes", schema.MaxCiphertextSize)
	}

	now := e.clock()
	rec := &schema.Record{
		ID:          NewRecordID(now),
		Ciphertext:  req.Ciphertext,
		Submitter:   actor,
		CrimeType:   req.CrimeType,
		ThreatLevel: req.ThreatLevel,
		Status:      schema.StatusPending,
		CreatedAt:   now.Unix(),
	}
	rec.SetDefaults()

	e.ensureMeta(ctx)

	err := e.retry.Do(ctx, e.logger, "record write", func() error {
		return e.store.Put(ctx, rec)
	})
	if err != nil {
		return "", err
	}

	if err := e.index.Append(ctx, rec.ID); err != nil {
		e.logger.Printf("record %s is written but not indexed; run doctor --repair to relink: %v", rec.ID, err)
		return "", fmt.Errorf("failed to index record %s: %w", rec.ID, err)
	}

	e.logger.Printf("record %s submitted by %s (%s, threat %s)", rec.ID, actor, rec.CrimeType, rec.ThreatLevel)
	return rec.ID, nil
}

// Analyze moves a Pending record to Analyzed. Authorization follows the
// engine's policy; by default only the submitter may analyze.
func (e *Engine) Analyze(ctx context.Context, id string) error {
	return e.transition(ctx, id, schema.StatusAnalyzed)
}

// MarkActioned moves an Analyzed record to its terminal Actioned state.
// Authorization follows the engine's policy; by default any actor may
// action an analyzed record.
func (e *Engine) MarkActioned(ctx context.Context, id string) error {
	return e.transition(ctx, id, schema.StatusActioned)
}

// Policy returns the transition rule the engine enforces.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Get fetches a record under the engine's retry policy. Absence and
// damage return immediately with their distinct kinds; only transient
// substrate failures retry.
func (e *Engine) Get(ctx context.Context, id string) (*schema.Record, error) {
	return e.get(ctx, id)
}

// transition applies the shared guard sequence: decision read, state
// precondition, authorization, pre-write re-read, conflict check, write.
func (e *Engine) transition(ctx context.Context, id string, target schema.Status) error {
	actor := identity.FromContext(ctx)

	rec, err := e.get(ctx, id)
	if err != nil {
		return err
	}

	if err := ValidateTransition(rec.Status, target); err != nil {
		return err
	}
	if err := e.policy.Authorize(rec, target, actor); err != nil {
		return err
	}

	// Re-read immediately before the write. Another client may have
	// moved the record while the decision above was being made.
	fresh, err := e.get(ctx, id)
	if err != nil {
		return err
	}
	if fresh.Status != rec.Status {
		return fmt.Errorf("%w: record %s moved from %s to %s mid-transition", ErrConflict, id, rec.Status, fresh.Status)
	}

	updated := fresh.Clone()
	updated.Status = target

	err = e.retry.Do(ctx, e.logger, "record write", func() error {
		return e.store.Put(ctx, updated)
	})
	if err != nil {
		return err
	}

	e.logger.Printf("record %s: %s to %s by %s", id, rec.Status, target, actor)
	return nil
}

// get wraps store.Get with the engine's retry policy. Only transient
// substrate failures retry; absence and damage return immediately.
func (e *Engine) get(ctx context.Context, id string) (*schema.Record, error) {
	var rec *schema.Record
	err := e.retry.Do(ctx, e.logger, "record read", func() error {
		var getErr error
		rec, getErr = e.store.Get(ctx, id)
		return getErr
	})
	return rec, err
}

// ensureMeta initializes the namespace meta key the first time this
// engine writes anything. Best-effort: a meta failure never blocks a
// submission.
func (e *Engine) ensureMeta(ctx context.Context) {
	e.metaOnce.Do(func() {
		_, err := e.store.ReadMeta(ctx)
		if err == nil {
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Printf("namespace meta unreadable: %v", err)
			return
		}

		meta := &schema.Meta{
			SchemaVersion: schema.SchemaVersion,
			CreatedAt:     e.clock().Unix(),
		}
		if err := e.store.WriteMeta(ctx, meta); err != nil {
			e.logger.Printf("failed to initialize namespace meta: %v", err)
		}
	})
}
