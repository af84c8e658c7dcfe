// Package schema defines the wire model for intelligence records stored
// on the shared ledger.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FormatVersion identifies the payload envelope layout. Decoders reject
// versions they do not know rather than guessing.
const FormatVersion = 1

// MaxCiphertextSize bounds the opaque payload at 256 KiB. The bound is a
// presence check only; the bytes are never parsed.
const MaxCiphertextSize = 256 << 10

// ErrDecode is returned when stored bytes do not parse as a record or
// index payload. It is distinct from absence: an empty ledger value means
// "never written", a non-empty value that fails to decode means damage
// or a foreign writer, and readers must be able to tell the two apart.
var ErrDecode = errors.New("malformed payload")

// ThreatLevel grades the assessed severity of a record.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// IsValid reports whether the level is one of the four known grades.
func (t ThreatLevel) IsValid() bool {
	switch t {
	case ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return true
	}
	return false
}

// Rank orders levels from low (0) to critical (3) for sorting and stats.
func (t ThreatLevel) Rank() int {
	switch t {
	case ThreatLow:
		return 0
	case ThreatMedium:
		return 1
	case ThreatHigh:
		return 2
	case ThreatCritical:
		return 3
	default:
		return -1
	}
}

// ThreatLevels returns the known grades in ascending severity order.
func ThreatLevels() []ThreatLevel {
	return []ThreatLevel{ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical}
}

// Status tracks a record through its workflow.
type Status string

const (
	// StatusPending is assigned at creation.
	StatusPending Status = "pending"

	// StatusAnalyzed means the submitter has completed analysis.
	StatusAnalyzed Status = "analyzed"

	// StatusActioned is terminal; nothing leaves it.
	StatusActioned Status = "actioned"
)

// IsValid reports whether the status is one of the three workflow states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAnalyzed, StatusActioned:
		return true
	}
	return false
}

// Statuses returns the workflow states in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusAnalyzed, StatusActioned}
}

// CommonCrimeTypes lists categories agencies tag most submissions with.
// Free-form values are equally valid; this feeds interactive prompts.
var CommonCrimeTypes = []string{
	"C2 Server",
	"Phishing Domain",
	"Botnet",
	"Ransomware Infrastructure",
	"Money Mule Network",
	"Exploit Kit",
	"Dark Market",
}

// Record is one submitted intelligence item.
//
// The ciphertext is write-once and opaque: no operation in this codebase
// decodes, transforms, or logs it. Everything else is routing metadata
// supplied by the submitter in the clear.
type Record struct {
	// ID is globally unique and immutable once assigned.
	ID string `json:"id"`

	// Ciphertext is the encrypted payload, produced outside this system.
	Ciphertext []byte `json:"ciphertext"`

	// Submitter identifies the agency that created the record.
	Submitter string `json:"submitter"`

	// CrimeType categorizes the infrastructure described by the payload.
	CrimeType string `json:"crime_type"`

	ThreatLevel ThreatLevel `json:"threat_level"`
	Status      Status      `json:"status"`

	// CreatedAt is seconds since the Unix epoch, fixed at submission.
	CreatedAt int64 `json:"created_at"`
}

// Validate checks if the Record has valid field values
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.Submitter == "" {
		return fmt.Errorf("submitter is required")
	}
	if r.CrimeType == "" {
		return fmt.Errorf("crime_type is required")
	}
	if len(r.Ciphertext) == 0 {
		return fmt.Errorf("ciphertext is required")
	}
	if len(r.Ciphertext) > MaxCiphertextSize {
		return fmt.Errorf("ciphertext exceeds %d bytes", MaxCiphertextSize)
	}
	if !r.ThreatLevel.IsValid() {
		return fmt.Errorf("invalid threat_level: %s", r.ThreatLevel)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if r.CreatedAt <= 0 {
		return fmt.Errorf("created_at is required")
	}
	return nil
}

// SetDefaults fills optional fields for a record under construction:
// medium threat, pending status, creation time of now.
func (r *Record) SetDefaults() {
	if r.ThreatLevel == "" {
		r.ThreatLevel = ThreatMedium
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().Unix()
	}
}

// CreatedTime returns CreatedAt as a time.Time in UTC.
func (r *Record) CreatedTime() time.Time {
	return time.Unix(r.CreatedAt, 0).UTC()
}

// Clone returns a deep copy, including the ciphertext bytes.
func (r *Record) Clone() *Record {
	out := *r
	out.Ciphertext = make([]byte, len(r.Ciphertext))
	copy(out.Ciphertext, r.Ciphertext)
	return &out
}

// recordEnvelope is the stored form: a version tag around the record so
// payloads stay self-describing.
type recordEnvelope struct {
	FormatVersion int     `json:"format_version"`
	Record        *Record `json:"record"`
}

// EncodeRecord serializes a validated record into its ledger payload.
func EncodeRecord(r *Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}

	data, err := json.Marshal(recordEnvelope{
		FormatVersion: FormatVersion,
		Record:        r,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a ledger payload back into a record. Any parse,
// version, or validation failure wraps ErrDecode.
func DecodeRecord(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unknown format version %d", ErrDecode, env.FormatVersion)
	}
	if env.Record == nil {
		return nil, fmt.Errorf("%w: envelope carries no record", ErrDecode)
	}
	if err := env.Record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return env.Record, nil
}
