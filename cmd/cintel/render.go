package main

import (
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// jsonRecord is the --json output shape. Like the dashboard API it
// carries the ciphertext size, never the ciphertext; the full payload
// only leaves through export.
type jsonRecord struct {
	ID             string             `json:"id"`
	CrimeType      string             `json:"crime_type"`
	ThreatLevel    schema.ThreatLevel `json:"threat_level"`
	Status         schema.Status      `json:"status"`
	Submitter      string             `json:"submitter"`
	CreatedAt      int64              `json:"created_at"`
	CiphertextSize int                `json:"ciphertext_size"`
}

func toJSONRecord(rec *schema.Record) jsonRecord {
	return jsonRecord{
		ID:             rec.ID,
		CrimeType:      rec.CrimeType,
		ThreatLevel:    rec.ThreatLevel,
		Status:         rec.Status,
		Submitter:      rec.Submitter,
		CreatedAt:      rec.CreatedAt,
		CiphertextSize: len(rec.Ciphertext),
	}
}

func toJSONRecords(records []*schema.Record) []jsonRecord {
	out := make([]jsonRecord, len(records))
	for i, rec := range records {
		out[i] = toJSONRecord(rec)
	}
	return out
}
