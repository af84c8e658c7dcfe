package view

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/index"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/store"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger/memory"
)

type viewEnv struct {
	client  *memory.Client
	store   *store.Store
	index   *index.Manager
	builder *Builder
}

func newViewEnv(t *testing.T) *viewEnv {
	t.Helper()

	client := memory.New()
	st := store.New(client, "")

	idxCfg := index.DefaultConfig()
	idxCfg.Logger = log.New(io.Discard, "", 0)
	idx := index.New(client, idxCfg)

	builder := New(st, idx, Config{Logger: log.New(io.Discard, "", 0)})

	t.Cleanup(func() {
		idx.Close()
		client.Close()
	})
	return &viewEnv{client: client, store: st, index: idx, builder: builder}
}

func (env *viewEnv) seed(t *testing.T, id string, createdAt int64, status schema.Status) *schema.Record {
	t.Helper()

	rec := &schema.Record{
		ID:          id,
		Ciphertext:  []byte(id + "-cipher"),
		Submitter:   "agencyA",
		CrimeType:   "C2 Server",
		ThreatLevel: schema.ThreatMedium,
		Status:      status,
		CreatedAt:   createdAt,
	}
	ctx := context.Background()
	if err := env.store.Put(ctx, rec); err != nil {
		t.Fatalf("Put(%s) failed: %v", id, err)
	}
	if err := env.index.Append(ctx, id); err != nil {
		t.Fatalf("Append(%s) failed: %v", id, err)
	}
	return rec
}

func TestRefreshEmptyNamespace(t *testing.T) {
	env := newViewEnv(t)

	snap, err := env.builder.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if len(snap.Records) != 0 || len(snap.Skipped) != 0 {
		t.Errorf("Expected empty snapshot, got %d records %d skipped", len(snap.Records), len(snap.Skipped))
	}
}

func TestRefreshListsEverySubmittedIDOnce(t *testing.T) {
	env := newViewEnv(t)

	const n = 25
	for i := 0; i < n; i++ {
		env.seed(t, fmt.Sprintf("cr-%03d", i), int64(1755801600+i), schema.StatusPending)
	}

	snap, err := env.builder.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	seen := make(map[string]int)
	for _, rec := range snap.Records {
		seen[rec.ID]++
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("cr-%03d", i)
		if seen[id] != 1 {
			t.Errorf("Expected %s exactly once, got %d", id, seen[id])
		}
	}
}

func TestRefreshSortsNewestFirst(t *testing.T) {
	env := newViewEnv(t)

	env.seed(t, "cr-old", 1755801000, schema.StatusPending)
	env.seed(t, "cr-new", 1755802000, schema.StatusPending)
	env.seed(t, "cr-mid", 1755801500, schema.StatusPending)

	snap, err := env.builder.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	want := []string{"cr-new", "cr-mid", "cr-old"}
	for i, id := range want {
		if snap.Records[i].ID != id {
			t.Errorf("Expected records[%d] = %s, got %s", i, id, snap.Records[i].ID)
		}
	}
}

func TestRefreshTieBreaksByID(t *testing.T) {
	env := newViewEnv(t)

	// Appended in reverse id order so append order and id order disagree;
	// equal timestamps must come back id ascending, matching the cache
	// mirror's ORDER BY created_at DESC, id ASC.
	env.seed(t, "cr-bbb", 1755801600, schema.StatusPending)
	env.seed(t, "cr-aaa", 1755801600, schema.StatusPending)

	snap, err := env.builder.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if snap.Records[0].ID != "cr-aaa" || snap.Records[1].ID != "cr-bbb" {
		t.Errorf("Expected id-ascending order for equal timestamps, got %s then %s",
			snap.Records[0].ID, snap.Records[1].ID)
	}
}

func TestRefreshSkipsOrphanIndexEntries(t *testing.T) {
	env := newViewEnv(t)
	ctx := context.Background()

	env.seed(t, "cr-good", 1755801600, schema.StatusPending)
	// An index entry whose record never landed.
	if err := env.index.Append(ctx, "cr-ghost"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	snap, err := env.builder.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	if len(snap.Records) != 1 || snap.Records[0].ID != "cr-good" {
		t.Fatalf("Expected only cr-good to resolve, got %+v", snap.Records)
	}
	if len(snap.Skipped) != 1 {
		t.Fatalf("Expected one skipped entry, got %v", snap.Skipped)
	}
	if snap.Skipped[0].ID != "cr-ghost" || snap.Skipped[0].Reason != SkipAbsent {
		t.Errorf("Expected cr-ghost skipped as %s, got %+v", SkipAbsent, snap.Skipped[0])
	}
}

func TestRefreshSkipsUndecodableRecords(t *testing.T) {
	env := newViewEnv(t)
	ctx := context.Background()

	env.seed(t, "cr-good", 1755801600, schema.StatusPending)

	if err := env.client.SetData(ctx, schema.RecordKey("", "cr-bad"), []byte("****")); err != nil {
		t.Fatalf("SetData() failed: %v", err)
	}
	if err := env.index.Append(ctx, "cr-bad"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var buf bytes.Buffer
	env.builder.logger = log.New(&buf, "", 0)

	snap, err := env.builder.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() must not fail on one bad record: %v", err)
	}

	if len(snap.Records) != 1 {
		t.Errorf("Expected one resolved record, got %d", len(snap.Records))
	}
	if len(snap.Skipped) != 1 || snap.Skipped[0].Reason != SkipUndecodable {
		t.Errorf("Expected cr-bad skipped as %s, got %+v", SkipUndecodable, snap.Skipped)
	}
	if !bytes.Contains(buf.Bytes(), []byte("cr-bad")) {
		t.Error("Expected the skip to be logged")
	}
}

func TestRefreshCiphertextRoundTrip(t *testing.T) {
	env := newViewEnv(t)

	cipher := []byte{0x00, 0xff, 0x10, 0x7f, 0x42, 0x00}
	rec := &schema.Record{
		ID:          "cr-opaque",
		Ciphertext:  cipher,
		Submitter:   "agencyA",
		CrimeType:   "C2 Server",
		ThreatLevel: schema.ThreatHigh,
		Status:      schema.StatusPending,
		CreatedAt:   1755801600,
	}
	ctx := context.Background()
	if err := env.store.Put(ctx, rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := env.index.Append(ctx, rec.ID); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	snap, err := env.builder.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	got, ok := snap.Get("cr-opaque")
	if !ok {
		t.Fatal("Expected cr-opaque in snapshot")
	}
	if !bytes.Equal(got.Ciphertext, cipher) {
		t.Errorf("Ciphertext changed in flight: %v != %v", got.Ciphertext, cipher)
	}
}

func TestRefreshFailsOnlyWhenIndexUnreadable(t *testing.T) {
	env := newViewEnv(t)

	env.seed(t, "cr-1", 1755801600, schema.StatusPending)
	env.client.SetAvailable(false)

	if _, err := env.builder.Refresh(context.Background()); err == nil {
		t.Error("Expected refresh to fail when the index cannot be read at all")
	}
}

func TestSnapshotStats(t *testing.T) {
	env := newViewEnv(t)
	ctx := context.Background()

	env.seed(t, "cr-1", 1755801601, schema.StatusPending)
	env.seed(t, "cr-2", 1755801602, schema.StatusAnalyzed)
	env.seed(t, "cr-3", 1755801603, schema.StatusAnalyzed)
	if err := env.index.Append(ctx, "cr-ghost"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	snap, err := env.builder.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	stats := snap.Stats()
	if stats.Total != 3 {
		t.Errorf("Expected total 3, got %d", stats.Total)
	}
	if stats.ByStatus[schema.StatusAnalyzed] != 2 {
		t.Errorf("Expected 2 analyzed, got %d", stats.ByStatus[schema.StatusAnalyzed])
	}
	if stats.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", stats.Skipped)
	}
}

func BenchmarkRefresh(b *testing.B) {
	client := memory.New()
	defer client.Close()
	st := store.New(client, "")

	idxCfg := index.DefaultConfig()
	idxCfg.Logger = log.New(io.Discard, "", 0)
	idx := index.New(client, idxCfg)
	defer idx.Close()

	builder := New(st, idx, Config{Logger: log.New(io.Discard, "", 0)})

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		rec := &schema.Record{
			ID:          fmt.Sprintf("cr-%04d", i),
			Ciphertext:  []byte{byte(i)},
			Submitter:   "agencyA",
			CrimeType:   "Botnet",
			ThreatLevel: schema.ThreatLow,
			Status:      schema.StatusPending,
			CreatedAt:   int64(1755801600 + i),
		}
		if err := st.Put(ctx, rec); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
		if err := idx.Append(ctx, rec.ID); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Refresh(ctx); err != nil {
			b.Fatalf("Refresh failed: %v", err)
		}
	}
}

var _ = time.Now
