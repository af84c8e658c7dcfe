package schema

import (
	"encoding/json"
	"fmt"
)

// Meta describes a namespace to the clients that share it. It is written
// once by whichever writer touches the namespace first and read by doctor
// to detect schema drift between deployments.
type Meta struct {
	FormatVersion int    `json:"format_version"`
	SchemaVersion string `json:"schema_version"`
	CreatedAt     int64  `json:"created_at"`
}

// EncodeMeta serializes namespace metadata into its ledger payload.
func EncodeMeta(m *Meta) ([]byte, error) {
	if m.SchemaVersion == "" {
		return nil, fmt.Errorf("schema_version is required")
	}
	if m.FormatVersion == 0 {
		m.FormatVersion = FormatVersion
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal meta: %w", err)
	}
	return data, nil
}

// DecodeMeta parses a ledger payload back into namespace metadata.
func DecodeMeta(data []byte) (*Meta, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unknown format version %d", ErrDecode, m.FormatVersion)
	}
	if m.SchemaVersion == "" {
		return nil, fmt.Errorf("%w: meta carries no schema version", ErrDecode)
	}
	return &m, nil
}
