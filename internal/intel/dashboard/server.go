// Package dashboard serves a live view of the registry over HTTP and
// WebSocket.
//
// The server broadcasts record events (submissions, transitions, refresh
// completions) to connected WebSocket clients and answers REST queries
// from the latest snapshot. It also exposes POST /api/submit: routing
// remote submissions through the one daemon that owns the index
// coordinator is what extends the single-writer guarantee across a whole
// site. Record ciphertext never leaves this server; API payloads carry
// metadata and a byte count only.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/workflow"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

// Submitter accepts remote submissions. The workflow Engine satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req workflow.SubmitRequest) (string, error)
}

// MessageType labels a WebSocket broadcast.
type MessageType string

const (
	// MessageTypeRecord announces a submitted or transitioned record.
	MessageTypeRecord MessageType = "record"

	// MessageTypeRefresh announces a completed view refresh.
	MessageTypeRefresh MessageType = "refresh"

	// MessageTypeStats carries updated registry statistics.
	MessageTypeStats MessageType = "stats"
)

// Message is one WebSocket broadcast frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Config holds server settings.
type Config struct {
	// Port to listen on. Port 0 picks a free one (tests).
	Port int

	// Logger receives connection and error lines. Defaults to the
	// standard logger.
	Logger *log.Logger
}

// Server manages WebSocket clients and the HTTP API.
type Server struct {
	addr      string
	listener  net.Listener
	server    *http.Server
	submitter Submitter

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	snapshot   *view.Snapshot
	snapshotMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewServer creates a dashboard server. The submitter may be nil, which
// disables POST /api/submit with 503.
func NewServer(cfg Config, submitter Submitter) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", cfg.Port),
		submitter: submitter,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    cfg.Logger,
	}
}

// Start begins listening and serving. It returns once the listener is
// bound; serving continues in the background until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/records", s.handleRecords)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/submit", s.handleSubmit)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("dashboard server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the server down, closing every client connection.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// SetSnapshot installs the latest read view for the REST endpoints.
func (s *Server) SetSnapshot(snap *view.Snapshot) {
	s.snapshotMu.Lock()
	s.snapshot = snap
	s.snapshotMu.Unlock()
}

// Snapshot returns the currently installed read view, or nil.
func (s *Server) Snapshot() *view.Snapshot {
	s.snapshotMu.RLock()
	defer s.snapshotMu.RUnlock()
	return s.snapshot
}

// Broadcast queues a message for every connected client. A full queue
// drops the message rather than blocking the caller.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("failed to marshal broadcast: %v", err)
				continue
			}

			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("dashboard client connected (total: %d)", count)

	// Greet with current stats so new clients render immediately.
	if snap := s.Snapshot(); snap != nil {
		if data, err := json.Marshal(snap.Stats()); err == nil {
			ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
			_ = conn.Write(ctx, websocket.MessageText, mustMarshalMessage(MessageTypeStats, data))
			cancel()
		}
	}

	go s.readLoop(conn)
}

func mustMarshalMessage(t MessageType, data json.RawMessage) []byte {
	out, _ := json.Marshal(Message{Type: t, Timestamp: time.Now(), Data: data})
	return out
}

// readLoop drains client frames; clients only listen, so the first read
// error is the disconnect signal.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, conn)
	count := len(s.clients)
	s.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Printf("dashboard client disconnected (total: %d)", count)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

// apiRecord is the REST shape of a record: full metadata, no payload
// bytes. The ciphertext stays inside the registry.
type apiRecord struct {
	ID             string             `json:"id"`
	Submitter      string             `json:"submitter"`
	CrimeType      string             `json:"crime_type"`
	ThreatLevel    schema.ThreatLevel `json:"threat_level"`
	Status         schema.Status      `json:"status"`
	CreatedAt      int64              `json:"created_at"`
	CiphertextSize int                `json:"ciphertext_size"`
}

func toAPIRecord(rec *schema.Record) apiRecord {
	return apiRecord{
		ID:             rec.ID,
		Submitter:      rec.Submitter,
		CrimeType:      rec.CrimeType,
		ThreatLevel:    rec.ThreatLevel,
		Status:         rec.Status,
		CreatedAt:      rec.CreatedAt,
		CiphertextSize: len(rec.Ciphertext),
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	f := view.Filter{
		Query:       r.URL.Query().Get("query"),
		Status:      schema.Status(r.URL.Query().Get("status")),
		ThreatLevel: schema.ThreatLevel(r.URL.Query().Get("threat_level")),
	}

	records := snap.Filter(f)
	out := make([]apiRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, toAPIRecord(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"records":      out,
		"skipped":      snap.Skipped,
		"refreshed_at": snap.RefreshedAt,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap.Stats())
}

// submitRequest is the remote submission body. Ciphertext arrives
// base64-encoded, already sealed by the submitting agency; the daemon
// never sees plaintext through this door.
type submitRequest struct {
	Actor       string             `json:"actor"`
	CrimeType   string             `json:"crime_type"`
	ThreatLevel schema.ThreatLevel `json:"threat_level,omitempty"`
	Ciphertext  []byte             `json:"ciphertext"`
}

type submitResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.submitter == nil {
		http.Error(w, "submissions are not enabled on this daemon", http.StatusServiceUnavailable)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, int64(schema.MaxCiphertextSize)*2)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}

	ctx := identity.WithActor(r.Context(), req.Actor)
	id, err := s.submitter.Submit(ctx, workflow.SubmitRequest{
		CrimeType:   req.CrimeType,
		Ciphertext:  req.Ciphertext,
		ThreatLevel: req.ThreatLevel,
	})
	if err != nil {
		http.Error(w, err.Error(), submitStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(submitResponse{ID: id})
}

// submitStatus maps workflow error kinds to HTTP statuses so remote
// callers can tell "try again" from "not allowed".
func submitStatus(err error) int {
	switch {
	case errors.Is(err, workflow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>cintel Dashboard</title>
</head>
<body>
    <h1>cintel Registry Dashboard</h1>
    <p>WebSocket feed: <code>ws://%s/ws</code></p>
    <p>Records: <a href="/api/records">/api/records</a></p>
    <p>Stats: <a href="/api/stats">/api/stats</a></p>
    <p>Health: <a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}
