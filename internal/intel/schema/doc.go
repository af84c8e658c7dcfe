// Package schema defines the wire model for intelligence records stored
// on the shared ledger.
//
// # Overview
//
// This package provides the Record and index payload formats that every
// client reads and writes against the key-value substrate. The substrate
// cannot enumerate keys, so discoverability comes entirely from the index
// payload; the payloads themselves are self-describing JSON envelopes so
// a reader can always tell a damaged value from a missing one.
//
// # Record Payloads
//
// Records are stored one per key under {ns}/record/{id}:
//
//	{
//	  "format_version": 1,
//	  "record": {
//	    "id": "cr-1755801600-9f3a2b1c",
//	    "ciphertext": "bDUyM...",
//	    "submitter": "agencyA",
//	    "crime_type": "C2 Server",
//	    "threat_level": "high",
//	    "status": "pending",
//	    "created_at": 1755801600
//	  }
//	}
//
// The ciphertext field is base64 on the wire (standard Go []byte JSON
// encoding) and is never parsed, transformed, or logged by any package
// in this repository.
//
// # Index Payload
//
// The index is one ordered id list under the single key {ns}/index:
//
//	{
//	  "format_version": 1,
//	  "ids": ["cr-1755801600-9f3a2b1c", "cr-1755801612-04cc81d7"]
//	}
//
// Because every submitter rewrites this one value, all index writes must
// go through the serializing coordinator in internal/intel/index; see
// that package for the lost-update hazard this avoids.
//
// # Key Layout
//
//	{ns}/record/{id}   one record payload
//	{ns}/index         the ordered id list
//	{ns}/meta          namespace metadata (schema version)
//
// # Design Principles
//
//   - Flat JSON structure, one value per key, full-value overwrites only
//   - Version tag on every payload (decoders reject unknown versions)
//   - Empty value means absent; malformed value means ErrDecode
//   - Opaque ciphertext with a size bound, no structural validation
package schema
