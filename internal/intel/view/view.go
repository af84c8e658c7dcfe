// Package view rebuilds a consistent local read model from the index and
// record store.
//
// # Overview
//
// The ledger can only answer point reads, so every listing is a
// composition: read the index, then fetch each record it names. Any of
// those fetches can fail independently (absent orphan sibling, damaged
// payload, transient substrate error) and a listing that refused to
// render because one entry is bad would be useless exactly when the
// substrate is degraded. Refresh therefore never fails on item errors:
// it returns what resolved plus a side list naming what did not and why.
//
// # Ordering
//
// Records sort by creation time, newest first, with id ascending as the
// tiebreak so same-second submissions render identically here and in the
// cache mirror's SQL ordering.
package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/index"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/store"
)

// Skip reasons recorded on partial failures.
const (
	// SkipAbsent means the indexed id resolved to no record. Usually a
	// foreign namespace writer or an index entry whose record write
	// never landed.
	SkipAbsent = "absent"

	// SkipUndecodable means the record key held bytes that do not
	// parse.
	SkipUndecodable = "undecodable"

	// SkipUnreachable means the substrate failed while fetching this
	// record. A later refresh will likely resolve it.
	SkipUnreachable = "unreachable"
)

// SkippedRecord names one id a refresh could not resolve and why.
type SkippedRecord struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Snapshot is the read model produced by one Refresh: the resolved
// records in display order plus the ids that failed to resolve. Partial
// results are a valid, expected outcome, not an error state.
type Snapshot struct {
	Records     []*schema.Record `json:"records"`
	Skipped     []SkippedRecord  `json:"skipped,omitempty"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// Get returns the record with the given id, if the snapshot holds it.
func (s *Snapshot) Get(id string) (*schema.Record, bool) {
	for _, rec := range s.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

// Filter applies f to the snapshot's records. See Apply.
func (s *Snapshot) Filter(f Filter) []*schema.Record {
	return Apply(s.Records, f)
}

// Stats summarizes a snapshot for dashboards and doctor output.
type Stats struct {
	Total    int                        `json:"total"`
	ByStatus map[schema.Status]int      `json:"by_status"`
	ByThreat map[schema.ThreatLevel]int `json:"by_threat"`
	Skipped  int                        `json:"skipped"`
}

// Stats computes counts over the snapshot.
func (s *Snapshot) Stats() Stats {
	stats := Stats{
		Total:    len(s.Records),
		ByStatus: make(map[schema.Status]int),
		ByThreat: make(map[schema.ThreatLevel]int),
		Skipped:  len(s.Skipped),
	}
	for _, rec := range s.Records {
		stats.ByStatus[rec.Status]++
		stats.ByThreat[rec.ThreatLevel]++
	}
	return stats
}

// Config holds settings for the view Builder.
type Config struct {
	// Logger receives one line per skipped record. Defaults to stderr
	// with a [view] prefix.
	Logger *log.Logger

	// Concurrency bounds parallel record fetches during Refresh.
	// Defaults to 8.
	Concurrency int
}

// Builder composes the index manager and record store into snapshots.
type Builder struct {
	store       *store.Store
	index       *index.Manager
	logger      *log.Logger
	concurrency int
}

// New creates a Builder.
func New(st *store.Store, idx *index.Manager, cfg Config) *Builder {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[view] ", log.LstdFlags)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Builder{
		store:       st,
		index:       idx,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Refresh rebuilds the read model.
//
// The index read is the one hard dependency: with no id list there is
// nothing to fetch, so its failure fails the refresh. Everything after
// that degrades per record. Fetches run concurrently up to the
// configured bound.
func (b *Builder) Refresh(ctx context.Context) (*Snapshot, error) {
	ids, err := b.index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh aborted: %w", err)
	}

	resolved := make([]*schema.Record, len(ids))
	skipped := make([]*SkippedRecord, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, getErr := b.store.Get(gctx, id)
			if getErr != nil {
				reason := classifySkip(getErr)
				b.logger.Printf("skipping %s (%s): %v", id, reason, getErr)
				skipped[i] = &SkippedRecord{ID: id, Reason: reason}
				return nil
			}
			resolved[i] = rec
			return nil
		})
	}
	// Workers never return errors; Wait is for completion only.
	_ = g.Wait()

	snap := &Snapshot{RefreshedAt: time.Now()}
	for i := range ids {
		if resolved[i] != nil {
			snap.Records = append(snap.Records, resolved[i])
		}
		if skipped[i] != nil {
			snap.Skipped = append(snap.Skipped, *skipped[i])
		}
	}

	// Newest first, id ascending on ties. The cache mirror orders with
	// ORDER BY created_at DESC, id ASC; both paths must agree so the
	// dashboard and the cached CLI listing render the same sequence.
	sort.Slice(snap.Records, func(i, j int) bool {
		if snap.Records[i].CreatedAt != snap.Records[j].CreatedAt {
			return snap.Records[i].CreatedAt > snap.Records[j].CreatedAt
		}
		return snap.Records[i].ID < snap.Records[j].ID
	})

	return snap, nil
}

// classifySkip maps a fetch failure to its skip reason.
func classifySkip(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return SkipAbsent
	case errors.Is(err, schema.ErrDecode):
		return SkipUndecodable
	default:
		return SkipUnreachable
	}
}
