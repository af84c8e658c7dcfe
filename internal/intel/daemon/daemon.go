// Package daemon runs the long-lived ingest and refresh loop for one
// site.
//
// The daemon is the deployment's single writer: agencies drop intel
// files into its ingest directory or POST to its dashboard submit
// endpoint, and every resulting index append funnels through the one
// coordinator this process owns (see internal/intel/index for why that
// matters). Alongside ingestion it rebuilds the read view on an
// interval, mirrors it into the local cache, feeds the dashboard, and
// optionally republishes record events to NATS.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/cache"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/dashboard"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/sealer"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/workflow"
)

// Config holds daemon settings.
type Config struct {
	// IngestDir is watched for dropped intel files. Empty disables
	// file ingestion.
	IngestDir string

	// ArchiveDir receives processed files. Defaults to
	// <IngestDir>/processed.
	ArchiveDir string

	// Actor is the fallback submitter identity for ingest files that
	// name none.
	Actor string

	// RefreshInterval is how often the read view is rebuilt.
	RefreshInterval time.Duration

	// DebounceInterval batches rapid file events together.
	DebounceInterval time.Duration

	// Logger receives daemon activity. Defaults to stderr with a
	// [daemon] prefix.
	Logger *log.Logger
}

// DefaultConfig returns the settings used for zero Config fields.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:  15 * time.Second,
		DebounceInterval: 250 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates ingestion, refresh, and event fanout.
type Daemon struct {
	engine  *workflow.Engine
	builder *view.Builder
	seal    sealer.Sealer
	cfg     Config

	// Optional collaborators; any may be nil.
	mirror    *cache.Cache
	dash      *dashboard.Handler
	publisher *Publisher

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time
	changeQueueMu sync.Mutex

	lastStatus   map[string]schema.Status
	lastStatusMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon. Engine, builder, and seal are required; mirror,
// dash, and publisher are optional and skipped when nil.
func New(engine *workflow.Engine, builder *view.Builder, seal sealer.Sealer, cfg Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("view builder is required")
	}
	if seal == nil {
		return nil, fmt.Errorf("sealer is required")
	}

	def := DefaultConfig()
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = def.DebounceInterval
	}
	if cfg.IngestDir != "" && cfg.ArchiveDir == "" {
		cfg.ArchiveDir = filepath.Join(cfg.IngestDir, "processed")
	}

	return &Daemon{
		engine:      engine,
		builder:     builder,
		seal:        seal,
		cfg:         cfg,
		changeQueue: make(map[string]time.Time),
	}, nil
}

// SetMirror attaches the local read-view cache.
func (d *Daemon) SetMirror(c *cache.Cache) { d.mirror = c }

// SetDashboard attaches the dashboard event handler.
func (d *Daemon) SetDashboard(h *dashboard.Handler) { d.dash = h }

// SetPublisher attaches the NATS event publisher.
func (d *Daemon) SetPublisher(p *Publisher) { d.publisher = p }

// Start runs the daemon until ctx is canceled. It performs one refresh
// and one ingest sweep up front so the daemon is useful immediately,
// then settles into its loops.
func (d *Daemon) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)
	defer d.cancel()

	d.cfg.Logger.Printf("starting (sealer=%s, refresh=%v)", d.seal.Name(), d.cfg.RefreshInterval)

	d.refresh(ctx)

	if d.cfg.IngestDir != "" {
		if err := os.MkdirAll(d.cfg.IngestDir, 0o755); err != nil {
			return fmt.Errorf("failed to create ingest directory: %w", err)
		}

		// Sweep files that were dropped while the daemon was down.
		d.sweepIngestDir(ctx)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create ingest watcher: %w", err)
		}
		d.watcher = watcher
		if err := watcher.Add(d.cfg.IngestDir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch ingest directory: %w", err)
		}
		d.cfg.Logger.Printf("watching %s", d.cfg.IngestDir)

		d.wg.Add(2)
		go d.watchIngestEvents(ctx)
		go d.processChangeQueue(ctx)
	}

	d.wg.Add(1)
	go d.refreshLoop(ctx)

	<-ctx.Done()
	return d.stop()
}

// Stop cancels the daemon's loops and waits for them to exit.
func (d *Daemon) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return nil
}

func (d *Daemon) stop() error {
	d.cfg.Logger.Println("stopping")
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.cfg.Logger.Printf("error closing watcher: %v", err)
		}
	}
	d.wg.Wait()
	d.publisher.Close()
	d.cfg.Logger.Println("stopped")
	return nil
}

// refreshLoop rebuilds the read view on the configured interval.
func (d *Daemon) refreshLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.refresh(ctx)
		}
	}
}

// refresh rebuilds the view and pushes it to the mirror and dashboard.
// Failures are logged and retried on the next tick, never fatal.
func (d *Daemon) refresh(ctx context.Context) {
	start := time.Now()
	snap, err := d.builder.Refresh(ctx)
	if err != nil {
		d.cfg.Logger.Printf("refresh failed: %v", err)
		return
	}
	elapsed := time.Since(start)

	if len(snap.Skipped) > 0 {
		d.cfg.Logger.Printf("refresh resolved %d records, skipped %d, in %v",
			len(snap.Records), len(snap.Skipped), elapsed.Round(time.Millisecond))
	}

	if d.mirror != nil {
		if err := d.mirror.ReplaceSnapshot(ctx, snap); err != nil {
			d.cfg.Logger.Printf("failed to mirror snapshot: %v", err)
		}
	}
	if d.dash != nil {
		d.dash.OnRefreshComplete(snap, elapsed)
	}

	d.announceTransitions(snap)
}

// announceTransitions diffs record statuses against the previous
// snapshot and fans out one transitioned event per change. Status
// changes land in other processes (the analyze and action commands
// write straight to the ledger), so the refresh diff is where this
// daemon observes them.
func (d *Daemon) announceTransitions(snap *view.Snapshot) {
	d.lastStatusMu.Lock()
	prev := d.lastStatus
	next := make(map[string]schema.Status, len(snap.Records))
	for _, rec := range snap.Records {
		next[rec.ID] = rec.Status
	}
	d.lastStatus = next
	d.lastStatusMu.Unlock()

	// The first refresh has no baseline to diff against.
	if prev == nil {
		return
	}

	for _, rec := range snap.Records {
		from, ok := prev[rec.ID]
		if !ok || from == rec.Status {
			continue
		}
		d.cfg.Logger.Printf("observed %s transition %s -> %s", rec.ID, from, rec.Status)
		if d.dash != nil {
			d.dash.OnRecordTransitioned(rec, from)
		}
		d.publisher.Publish(eventFromRecord("transitioned", rec))
	}
}

// watchIngestEvents queues ingest file events for debounced processing.
func (d *Daemon) watchIngestEvents(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isIngestFile(event.Name) {
				continue
			}
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.cfg.Logger.Printf("watcher error: %v", err)
		}
	}
}

func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	d.changeQueue[path] = time.Now()
}

// processChangeQueue ingests queued files once their events have been
// quiet for the debounce interval, so half-written drops settle first.
func (d *Daemon) processChangeQueue(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.processPendingChanges(ctx)
		}
	}
}

func (d *Daemon) processPendingChanges(ctx context.Context) {
	d.changeQueueMu.Lock()
	now := time.Now()
	var ready []string
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) >= d.cfg.DebounceInterval {
			ready = append(ready, path)
			delete(d.changeQueue, path)
		}
	}
	d.changeQueueMu.Unlock()

	ingested := false
	for _, path := range ready {
		if d.ingestFile(ctx, path) {
			ingested = true
		}
	}
	if ingested {
		d.refresh(ctx)
	}
}

// sweepIngestDir processes files already present at startup.
func (d *Daemon) sweepIngestDir(ctx context.Context) {
	entries, err := os.ReadDir(d.cfg.IngestDir)
	if err != nil {
		d.cfg.Logger.Printf("failed to sweep ingest directory: %v", err)
		return
	}

	ingested := false
	for _, entry := range entries {
		if entry.IsDir() || !isIngestFile(entry.Name()) {
			continue
		}
		if d.ingestFile(ctx, filepath.Join(d.cfg.IngestDir, entry.Name())) {
			ingested = true
		}
	}
	if ingested {
		d.refresh(ctx)
	}
}

// ingestFile parses, seals, and submits one dropped file, then archives
// it. Returns true when a record was submitted.
func (d *Daemon) ingestFile(ctx context.Context, path string) bool {
	// The file may already be gone (processed by an earlier sweep, or
	// removed by the operator).
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}

	in, err := ReadIngestFile(path)
	if err != nil {
		d.cfg.Logger.Printf("rejecting %s: %v", filepath.Base(path), err)
		if archiveErr := archive(path, d.cfg.ArchiveDir, true); archiveErr != nil {
			d.cfg.Logger.Printf("%v", archiveErr)
		}
		return false
	}

	actor := in.Submitter
	if actor == "" {
		actor = d.cfg.Actor
	}
	if actor == "" {
		d.cfg.Logger.Printf("rejecting %s: no submitter and no daemon actor configured", filepath.Base(path))
		if archiveErr := archive(path, d.cfg.ArchiveDir, true); archiveErr != nil {
			d.cfg.Logger.Printf("%v", archiveErr)
		}
		return false
	}

	ciphertext, err := d.seal.Seal(ctx, []byte(in.Plaintext))
	if err != nil {
		d.cfg.Logger.Printf("failed to seal %s: %v", filepath.Base(path), err)
		if archiveErr := archive(path, d.cfg.ArchiveDir, true); archiveErr != nil {
			d.cfg.Logger.Printf("%v", archiveErr)
		}
		return false
	}

	id, err := d.engine.Submit(identity.WithActor(ctx, actor), workflow.SubmitRequest{
		CrimeType:   in.CrimeType,
		Ciphertext:  ciphertext,
		ThreatLevel: in.ThreatLevel,
	})
	if err != nil {
		// Leave the file in place: a transient ledger failure should
		// not cost the drop, the next sweep retries it.
		d.cfg.Logger.Printf("failed to submit %s: %v", filepath.Base(path), err)
		d.queueChange(path)
		return false
	}

	d.cfg.Logger.Printf("ingested %s as %s", filepath.Base(path), id)
	if err := archive(path, d.cfg.ArchiveDir, false); err != nil {
		d.cfg.Logger.Printf("%v", err)
	}

	d.announce(ctx, id)
	return true
}

// announce pushes a freshly submitted record to the dashboard and the
// event bus. Best-effort: a failed read just skips the fanout.
func (d *Daemon) announce(ctx context.Context, id string) {
	if d.dash == nil && d.publisher == nil {
		return
	}

	rec, err := d.engine.Get(ctx, id)
	if err != nil {
		d.cfg.Logger.Printf("submitted %s but could not read it back for fanout: %v", id, err)
		return
	}

	if d.dash != nil {
		d.dash.OnRecordSubmitted(rec)
	}
	d.publisher.Publish(eventFromRecord("submitted", rec))
}
