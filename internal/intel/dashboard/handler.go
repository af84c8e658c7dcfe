package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
)

// RecordEventData describes a record change on the WebSocket feed. Like
// the REST API it carries metadata only, never payload bytes.
type RecordEventData struct {
	Action string    `json:"action"` // submitted, transitioned
	Record apiRecord `json:"record"`

	// From is the previous status on a transition.
	From schema.Status `json:"from,omitempty"`
}

// RefreshEventData describes a completed view refresh.
type RefreshEventData struct {
	Records  int           `json:"records"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Handler translates registry events into dashboard broadcasts. The
// daemon calls it; it formats and fans out.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates a Handler bound to a server.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, logger: logger}
}

// OnRecordSubmitted broadcasts a new record.
func (h *Handler) OnRecordSubmitted(rec *schema.Record) {
	h.broadcastRecord(RecordEventData{Action: "submitted", Record: toAPIRecord(rec)})
}

// OnRecordTransitioned broadcasts a status change.
func (h *Handler) OnRecordTransitioned(rec *schema.Record, from schema.Status) {
	h.broadcastRecord(RecordEventData{Action: "transitioned", Record: toAPIRecord(rec), From: from})
}

// OnRefreshComplete installs the snapshot for the REST endpoints and
// broadcasts refresh and stats frames.
func (h *Handler) OnRefreshComplete(snap *view.Snapshot, duration time.Duration) {
	h.server.SetSnapshot(snap)

	refresh := RefreshEventData{
		Records:  len(snap.Records),
		Skipped:  len(snap.Skipped),
		Duration: duration,
	}
	if data, err := json.Marshal(refresh); err == nil {
		h.server.Broadcast(Message{Type: MessageTypeRefresh, Data: data})
	}

	if data, err := json.Marshal(snap.Stats()); err == nil {
		h.server.Broadcast(Message{Type: MessageTypeStats, Data: data})
	}
}

func (h *Handler) broadcastRecord(event RecordEventData) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Printf("failed to marshal record event: %v", err)
		return
	}
	h.server.Broadcast(Message{Type: MessageTypeRecord, Data: data})
}
