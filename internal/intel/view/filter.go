package view

import (
	"strings"
	"time"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// Filter selects records from a read model. All supplied criteria
// combine with logical AND; zero-valued criteria match everything. The
// filter never touches the ledger and never mutates its input.
type Filter struct {
	// Query matches case-insensitively as a substring of the crime
	// type or the record id.
	Query string

	// Status, when set, must equal the record's status exactly.
	Status schema.Status

	// ThreatLevel, when set, must equal the record's level exactly.
	ThreatLevel schema.ThreatLevel

	// CreatedSince, when set, excludes records created before it.
	CreatedSince time.Time
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Query == "" && f.Status == "" && f.ThreatLevel == "" && f.CreatedSince.IsZero()
}

// Matches reports whether rec passes every supplied criterion.
func (f Filter) Matches(rec *schema.Record) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		crimeType := strings.ToLower(rec.CrimeType)
		id := strings.ToLower(rec.ID)
		if !strings.Contains(crimeType, q) && !strings.Contains(id, q) {
			return false
		}
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.ThreatLevel != "" && rec.ThreatLevel != f.ThreatLevel {
		return false
	}
	if !f.CreatedSince.IsZero() && rec.CreatedAt < f.CreatedSince.Unix() {
		return false
	}
	return true
}

// Apply returns the records that pass the filter, preserving input
// order. The result is a fresh slice; the input is never modified.
func Apply(records []*schema.Record, f Filter) []*schema.Record {
	out := make([]*schema.Record, 0, len(records))
	for _, rec := range records {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}
