package store

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger/memory"
)

func testRecord(id string) *schema.Record {
	return &schema.Record{
		ID:          id,
		Ciphertext:  []byte{0xde, 0xad, 0xbe, 0xef},
		Submitter:   "agencyA",
		CrimeType:   "C2 Server",
		ThreatLevel: schema.ThreatHigh,
		Status:      schema.StatusPending,
		CreatedAt:   1755801600,
	}
}

func TestGetAbsentReturnsNotFound(t *testing.T) {
	client := memory.New()
	defer client.Close()
	s := New(client, "")

	_, err := s.Get(context.Background(), "cr-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
	if errors.Is(err, schema.ErrDecode) {
		t.Error("Absence must not look like a decode failure")
	}
}

func TestPutThenGet(t *testing.T) {
	client := memory.New()
	defer client.Close()
	s := New(client, "")
	ctx := context.Background()

	rec := testRecord("cr-1")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := s.Get(ctx, "cr-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Submitter != "agencyA" || got.Status != schema.StatusPending {
		t.Errorf("Record did not round-trip: %+v", got)
	}
	if !bytes.Equal(got.Ciphertext, rec.Ciphertext) {
		t.Errorf("Ciphertext bytes changed in transit")
	}
}

func TestGetMalformedReturnsDecodeError(t *testing.T) {
	client := memory.New()
	defer client.Close()
	s := New(client, "")
	ctx := context.Background()

	if err := client.SetData(ctx, schema.RecordKey("", "cr-bad"), []byte("{{corrupt")); err != nil {
		t.Fatalf("SetData() failed: %v", err)
	}

	_, err := s.Get(ctx, "cr-bad")
	if !errors.Is(err, schema.ErrDecode) {
		t.Fatalf("Expected ErrDecode, got: %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Damage must not look like absence")
	}
}

func TestGetMisplacedPayload(t *testing.T) {
	client := memory.New()
	defer client.Close()
	s := New(client, "")
	ctx := context.Background()

	// A record encoded for one id written under another id's key.
	data, err := schema.EncodeRecord(testRecord("cr-other"))
	if err != nil {
		t.Fatalf("EncodeRecord() failed: %v", err)
	}
	if err := client.SetData(ctx, schema.RecordKey("", "cr-here"), data); err != nil {
		t.Fatalf("SetData() failed: %v", err)
	}

	_, err = s.Get(ctx, "cr-here")
	if !errors.Is(err, schema.ErrDecode) {
		t.Fatalf("Expected ErrDecode for misplaced payload, got: %v", err)
	}
}

func TestGetUnavailableLedger(t *testing.T) {
	client := memory.New()
	defer client.Close()
	s := New(client, "")

	client.SetAvailable(false)

	_, err := s.Get(context.Background(), "cr-1")
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got: %v", err)
	}
}

func TestPutRejectsInvalidRecord(t *testing.T) {
	client := memory.New()
	defer client.Close()
	s := New(client, "")

	rec := testRecord("cr-1")
	rec.Ciphertext = nil

	if err := s.Put(context.Background(), rec); err == nil {
		t.Error("Expected Put to reject record without ciphertext")
	}

	gets, sets := client.Counts()
	if gets != 0 || sets != 0 {
		t.Errorf("Expected no ledger traffic for invalid record, got %d gets %d sets", gets, sets)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	client := memory.New()
	defer client.Close()
	ctx := context.Background()

	east := New(client, "east")
	west := New(client, "west")

	if err := east.Put(ctx, testRecord("cr-1")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	if _, err := west.Get(ctx, "cr-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected namespaces to be isolated, got: %v", err)
	}
	if _, err := east.Get(ctx, "cr-1"); err != nil {
		t.Errorf("Expected record in its own namespace, got: %v", err)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	client := memory.New()
	defer client.Close()
	s := New(client, "")
	ctx := context.Background()

	if _, err := s.ReadMeta(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before init, got: %v", err)
	}

	meta := &schema.Meta{SchemaVersion: schema.SchemaVersion, CreatedAt: 1755801600}
	if err := s.WriteMeta(ctx, meta); err != nil {
		t.Fatalf("WriteMeta() failed: %v", err)
	}

	got, err := s.ReadMeta(ctx)
	if err != nil {
		t.Fatalf("ReadMeta() failed: %v", err)
	}
	if got.SchemaVersion != schema.SchemaVersion {
		t.Errorf("Expected schema version %s, got %s", schema.SchemaVersion, got.SchemaVersion)
	}
}
