package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

func policyRecord() *schema.Record {
	return &schema.Record{
		ID:          "cr-1",
		Ciphertext:  []byte{0x01},
		Submitter:   "agencyA",
		CrimeType:   "Botnet",
		ThreatLevel: schema.ThreatLow,
		Status:      schema.StatusPending,
		CreatedAt:   1755801600,
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if !p.AnalyzeSubmitterOnly {
		t.Error("Expected analyze to default to submitter-only")
	}
	if p.ActionSubmitterOnly {
		t.Error("Expected action to default to any-actor")
	}
}

func TestPolicyAuthorize(t *testing.T) {
	p := DefaultPolicy()
	rec := policyRecord()

	if err := p.Authorize(rec, schema.StatusAnalyzed, "agencyA"); err != nil {
		t.Errorf("Expected submitter to analyze, got: %v", err)
	}
	if err := p.Authorize(rec, schema.StatusAnalyzed, "agencyB"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected non-submitter analyze to fail, got: %v", err)
	}
	if err := p.Authorize(rec, schema.StatusActioned, "agencyB"); err != nil {
		t.Errorf("Expected any actor to action under default policy, got: %v", err)
	}
	if err := p.Authorize(rec, schema.StatusAnalyzed, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected empty actor to fail, got: %v", err)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.toml")

	content := "analyze_submitter_only = true\naction_submitter_only = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	p, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatalf("LoadPolicyFile() failed: %v", err)
	}
	if !p.ActionSubmitterOnly {
		t.Error("Expected action_submitter_only from file")
	}
}

func TestLoadPolicyFilePartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.toml")

	// Omitted keys keep their defaults.
	if err := os.WriteFile(path, []byte("action_submitter_only = true\n"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	p, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatalf("LoadPolicyFile() failed: %v", err)
	}
	if !p.AnalyzeSubmitterOnly {
		t.Error("Expected omitted analyze key to keep default true")
	}
	if !p.ActionSubmitterOnly {
		t.Error("Expected action_submitter_only from file")
	}
}

func TestLoadPolicyFileMissing(t *testing.T) {
	if _, err := LoadPolicyFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Expected error for missing policy file")
	}
}

func TestPolicyString(t *testing.T) {
	got := DefaultPolicy().String()
	want := "analyze=submitter-only action=any-actor"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
