package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// IngestFile is a dropped intel file awaiting submission. Agencies write
// these into the ingest directory; the daemon seals the plaintext and
// submits the result. Plaintext lives only between the file read and the
// Seal call and is never logged or persisted by the daemon.
type IngestFile struct {
	// Submitter is the agency the record is attributed to. Falls back
	// to the daemon's own actor when empty.
	Submitter string `json:"submitter" yaml:"submitter"`

	// CrimeType categorizes the infrastructure. Required.
	CrimeType string `json:"crime_type" yaml:"crime_type"`

	// ThreatLevel defaults to medium when empty.
	ThreatLevel schema.ThreatLevel `json:"threat_level" yaml:"threat_level"`

	// Plaintext is the unencrypted intelligence to seal and submit.
	Plaintext string `json:"plaintext" yaml:"plaintext"`
}

// ReadIngestFile parses a dropped .json or .yaml intel file.
func ReadIngestFile(path string) (*IngestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingest file: %w", err)
	}

	var in IngestFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported ingest file type %s", filepath.Ext(path))
	}

	if in.CrimeType == "" {
		return nil, fmt.Errorf("%s: crime_type is required", filepath.Base(path))
	}
	if in.Plaintext == "" {
		return nil, fmt.Errorf("%s: plaintext is required", filepath.Base(path))
	}
	if in.ThreatLevel != "" && !in.ThreatLevel.IsValid() {
		return nil, fmt.Errorf("%s: invalid threat_level %q", filepath.Base(path), in.ThreatLevel)
	}

	return &in, nil
}

// isIngestFile reports whether path looks like a droppable intel file.
func isIngestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// archive moves a processed ingest file into the archive directory,
// tagging rejected files so operators can find and fix them.
func archive(path, archiveDir string, rejected bool) error {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := filepath.Base(path)
	if rejected {
		name += ".rejected"
	}

	dest := filepath.Join(archiveDir, name)
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("failed to archive %s: %w", filepath.Base(path), err)
	}
	return nil
}
