package schema

import (
	"encoding/json"
	"fmt"
)

// indexEnvelope is the stored form of the record index: a version tag
// around the ordered id list.
type indexEnvelope struct {
	FormatVersion int      `json:"format_version"`
	IDs           []string `json:"ids"`
}

// EncodeIndex serializes the ordered id list into its ledger payload.
func EncodeIndex(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}

	data, err := json.Marshal(indexEnvelope{
		FormatVersion: FormatVersion,
		IDs:           ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index: %w", err)
	}
	return data, nil
}

// DecodeIndex parses a ledger payload back into the ordered id list.
// Parse and version failures wrap ErrDecode; callers that read the index
// treat that as "start from empty" with a warning, never a hard stop.
func DecodeIndex(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var env indexEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unknown format version %d", ErrDecode, env.FormatVersion)
	}

	ids := env.IDs
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
