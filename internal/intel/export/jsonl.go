// Package export moves record snapshots in and out of the registry as
// JSONL files.
//
// Export is for backup and offline hand-off between agencies; import
// replays records through the store and index so a namespace can be
// rebuilt, merged, or seeded. One JSON object per line, full record
// envelopes, ciphertext as base64 exactly as it rides the ledger.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/index"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/store"
)

// Line is one exported record with provenance for the receiving side.
type Line struct {
	FormatVersion int            `json:"format_version"`
	Record        *schema.Record `json:"record"`
}

// WriteSnapshot writes records to w as JSONL, oldest first so a replayed
// import rebuilds the index in creation order.
func WriteSnapshot(w io.Writer, records []*schema.Record) error {
	ordered := make([]*schema.Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt != ordered[j].CreatedAt {
			return ordered[i].CreatedAt < ordered[j].CreatedAt
		}
		return ordered[i].ID < ordered[j].ID
	})

	enc := json.NewEncoder(w)
	for _, rec := range ordered {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("refusing to export invalid record %s: %w", rec.ID, err)
		}
		if err := enc.Encode(Line{FormatVersion: schema.FormatVersion, Record: rec}); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// WriteSnapshotFile writes records to path atomically: the JSONL is
// staged in a temp file and renamed into place, so readers never see a
// half-written export.
func WriteSnapshotFile(path string, records []*schema.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := WriteSnapshot(tmp, records); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp export file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}

// ReadSnapshot parses a JSONL export. A malformed line fails the whole
// read with its line number; imports must not half-apply a damaged file.
func ReadSnapshot(r io.Reader) ([]*schema.Record, error) {
	var records []*schema.Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), schema.MaxCiphertextSize*2)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line Line
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}
		if line.FormatVersion != schema.FormatVersion {
			return nil, fmt.Errorf("line %d: unknown format version %d", lineNum, line.FormatVersion)
		}
		if line.Record == nil {
			return nil, fmt.Errorf("line %d: no record", lineNum)
		}
		if err := line.Record.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: invalid record: %w", lineNum, err)
		}

		records = append(records, line.Record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	return records, nil
}

// ReadSnapshotFile parses the JSONL export at path.
func ReadSnapshotFile(path string) ([]*schema.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// ImportOptions configures Import.
type ImportOptions struct {
	// DryRun parses and counts without writing anything.
	DryRun bool

	// Overwrite replaces records whose id already exists in the store.
	// Without it existing ids are skipped, which keeps re-imports of
	// the same file idempotent.
	Overwrite bool
}

// ImportResult reports what an import did.
type ImportResult struct {
	// Imported is the number of records written and indexed.
	Imported int

	// Skipped is the number of records left alone because their id
	// already exists.
	Skipped int

	// Errors lists per-record failures. The import continues past
	// individual failures; the caller decides whether any are fatal.
	Errors []string
}

// Import replays records into the store and index. Each record is one
// store write plus one idempotent index append, in file order.
func Import(ctx context.Context, st *store.Store, idx *index.Manager, records []*schema.Record, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	for _, rec := range records {
		if !opts.Overwrite {
			_, err := st.Get(ctx, rec.ID)
			switch {
			case err == nil:
				result.Skipped++
				continue
			case errors.Is(err, store.ErrNotFound):
				// New id, proceed.
			case errors.Is(err, schema.ErrDecode):
				// Damaged payload under this id; the import has a good
				// copy, replace it.
			default:
				return result, fmt.Errorf("failed to check record %s: %w", rec.ID, err)
			}
		}

		if opts.DryRun {
			result.Imported++
			continue
		}

		if err := st.Put(ctx, rec); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %s: %v", rec.ID, err))
			continue
		}
		if err := idx.Append(ctx, rec.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %s written but not indexed: %v", rec.ID, err))
			continue
		}
		result.Imported++
	}

	return result, nil
}
