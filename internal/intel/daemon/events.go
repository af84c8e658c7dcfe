package daemon

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// RecordEvent is the NATS fanout payload. Metadata only; the ciphertext
// never crosses the event bus.
type RecordEvent struct {
	Action      string             `json:"action"` // submitted, transitioned
	ID          string             `json:"id"`
	Submitter   string             `json:"submitter"`
	CrimeType   string             `json:"crime_type"`
	ThreatLevel schema.ThreatLevel `json:"threat_level"`
	Status      schema.Status      `json:"status"`
	CreatedAt   int64              `json:"created_at"`
	EmittedAt   time.Time          `json:"emitted_at"`
}

// Publisher republishes record events to NATS so downstream consumers
// (alerting, long-term analytics) can react without polling the ledger.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *log.Logger
}

// NewPublisher connects to the NATS server at url. Publishing is
// fire-and-forget: the registry's correctness never depends on the bus.
func NewPublisher(url, subject string, logger *log.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("cintel-daemon"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Publish emits one record event. Failures are logged, not propagated;
// a dead bus must not stall ingestion.
func (p *Publisher) Publish(event RecordEvent) {
	if p == nil {
		return
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Printf("failed to marshal record event: %v", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Printf("failed to publish record event for %s: %v", event.ID, err)
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Printf("failed to drain NATS connection: %v", err)
	}
}

// eventFromRecord builds the fanout payload for a record.
func eventFromRecord(action string, rec *schema.Record) RecordEvent {
	return RecordEvent{
		Action:      action,
		ID:          rec.ID,
		Submitter:   rec.Submitter,
		CrimeType:   rec.CrimeType,
		ThreatLevel: rec.ThreatLevel,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
	}
}
