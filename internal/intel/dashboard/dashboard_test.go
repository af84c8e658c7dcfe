package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/workflow"
)

func startTestServer(t *testing.T, submitter Submitter) *Server {
	t.Helper()

	s := NewServer(Config{Port: 0, Logger: log.New(io.Discard, "", 0)}, submitter)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func testSnapshot() *view.Snapshot {
	return &view.Snapshot{
		Records: []*schema.Record{
			{
				ID:          "cr-1755801612-04cc81d7",
				Ciphertext:  []byte{0x01, 0x02, 0x03},
				Submitter:   "agencyB",
				CrimeType:   "Botnet",
				ThreatLevel: schema.ThreatHigh,
				Status:      schema.StatusAnalyzed,
				CreatedAt:   1755801612,
			},
			{
				ID:          "cr-1755801600-9f3a2b1c",
				Ciphertext:  []byte{0x04},
				Submitter:   "agencyA",
				CrimeType:   "C2 Server",
				ThreatLevel: schema.ThreatCritical,
				Status:      schema.StatusPending,
				CreatedAt:   1755801600,
			},
		},
		Skipped:     []view.SkippedRecord{{ID: "cr-ghost", Reason: view.SkipAbsent}},
		RefreshedAt: time.Unix(1755801700, 0),
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t, nil)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestRecordsEndpointHidesCiphertext(t *testing.T) {
	s := startTestServer(t, nil)
	s.SetSnapshot(testSnapshot())

	resp, err := http.Get("http://" + s.Addr() + "/api/records")
	if err != nil {
		t.Fatalf("GET /api/records failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	var body struct {
		Records []apiRecord          `json:"records"`
		Skipped []view.SkippedRecord `json:"skipped"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("Failed to decode records body: %v", err)
	}
	if len(body.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(body.Records))
	}
	if body.Records[0].CiphertextSize != 3 {
		t.Errorf("Expected ciphertext size 3, got %d", body.Records[0].CiphertextSize)
	}
	if len(body.Skipped) != 1 {
		t.Errorf("Expected skip list in response, got %v", body.Skipped)
	}

	// The payload bytes themselves must never appear on the wire.
	if strings.Contains(string(raw), "\"ciphertext\"") {
		t.Error("API response leaks ciphertext field")
	}
}

func TestRecordsEndpointFilters(t *testing.T) {
	s := startTestServer(t, nil)
	s.SetSnapshot(testSnapshot())

	resp, err := http.Get("http://" + s.Addr() + "/api/records?status=pending")
	if err != nil {
		t.Fatalf("GET /api/records failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Records []apiRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Records) != 1 || body.Records[0].Status != schema.StatusPending {
		t.Errorf("Status filter failed: %+v", body.Records)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := startTestServer(t, nil)

	// Before any refresh the endpoint degrades with 503, not a crash.
	resp, err := http.Get("http://" + s.Addr() + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before first snapshot, got %d", resp.StatusCode)
	}

	s.SetSnapshot(testSnapshot())

	resp, err = http.Get("http://" + s.Addr() + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats failed: %v", err)
	}
	defer resp.Body.Close()

	var stats view.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Total != 2 || stats.ByStatus[schema.StatusPending] != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

type fakeSubmitter struct {
	lastActor string
	lastReq   workflow.SubmitRequest
	err       error
}

func (f *fakeSubmitter) Submit(ctx context.Context, req workflow.SubmitRequest) (string, error) {
	f.lastActor = identity.FromContext(ctx)
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return "cr-1755801600-deadbeef", nil
}

func TestSubmitEndpoint(t *testing.T) {
	sub := &fakeSubmitter{}
	s := startTestServer(t, sub)

	body := `{"actor":"agencyA","crime_type":"C2 Server","threat_level":"high","ciphertext":"wgAB"}`
	resp, err := http.Post("http://"+s.Addr()+"/api/submit", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/submit failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, raw)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode submit response: %v", err)
	}
	if out.ID == "" {
		t.Error("Expected record id in response")
	}
	if sub.lastActor != "agencyA" {
		t.Errorf("Actor not carried to submitter: %q", sub.lastActor)
	}
	if sub.lastReq.CrimeType != "C2 Server" || len(sub.lastReq.Ciphertext) != 3 {
		t.Errorf("Request not carried to submitter: %+v", sub.lastReq)
	}
}

func TestSubmitEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		submitter  Submitter
		body       string
		wantStatus int
	}{
		{
			name:       "missing actor",
			submitter:  &fakeSubmitter{},
			body:       `{"crime_type":"C2 Server","ciphertext":"wgAB"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unauthorized",
			submitter:  &fakeSubmitter{err: fmt.Errorf("nope: %w", workflow.ErrUnauthorized)},
			body:       `{"actor":"x","crime_type":"C2 Server","ciphertext":"wgAB"}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no submitter wired",
			submitter:  nil,
			body:       `{"actor":"x","crime_type":"C2 Server","ciphertext":"wgAB"}`,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startTestServer(t, tt.submitter)
			resp, err := http.Post("http://"+s.Addr()+"/api/submit", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	s := startTestServer(t, nil)
	handler := NewHandler(s, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the client registration to land before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := testSnapshot().Records[0]
	handler.OnRecordSubmitted(rec)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("websocket read failed: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if msg.Type != MessageTypeRecord {
		t.Fatalf("Expected record frame, got %s", msg.Type)
	}

	var event RecordEventData
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if event.Action != "submitted" || event.Record.ID != rec.ID {
		t.Errorf("Unexpected event: %+v", event)
	}
	if strings.Contains(string(data), "\"ciphertext\"") {
		t.Error("WebSocket frame leaks ciphertext")
	}
}

func TestRefreshInstallsSnapshot(t *testing.T) {
	s := startTestServer(t, nil)
	handler := NewHandler(s, log.New(io.Discard, "", 0))

	snap := testSnapshot()
	handler.OnRefreshComplete(snap, 42*time.Millisecond)

	if s.Snapshot() != snap {
		t.Error("OnRefreshComplete must install the snapshot for REST queries")
	}
}
