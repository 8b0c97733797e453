//go:build integration

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// END-TO-END TEST SUITE
//
// These tests validate the service end-to-end:
//
//   Client → HTTP API → Validator → Store → Aggregation → Response
//
// The service must already be running (for example via docker compose).
// Run with: go test -tags integration ./internal/httpserver/
//
// Optional environment overrides:
//
//   BASE_URL  default http://localhost:3000
//   API_KEY   sent on read requests when the service has API_KEYS set
//
////////////////////////////////////////////////////////////////////////////////

func baseURL() string {
	if v := os.Getenv("BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:3000"
}

func apiKey() string {
	return os.Getenv("API_KEY")
}

// unique generates a unique string so tests never collide with previous runs.
func unique(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

////////////////////////////////////////////////////////////////////////////////
// SERVICE READINESS HELPER
//
// waitReady polls /ready until the store and server are ready.
// Prevents flaky failures when containers are still booting.
////////////////////////////////////////////////////////////////////////////////

func waitReady(t *testing.T) {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL() + "/ready")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(300 * time.Millisecond)
	}

	t.Fatalf("service not ready after 30s")
}

////////////////////////////////////////////////////////////////////////////////
// GENERIC HTTP HELPERS
////////////////////////////////////////////////////////////////////////////////

// httpGet performs a GET request, sending API_KEY when set.
func httpGet(t *testing.T, path string) (int, envelope) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, baseURL()+path, nil)
	if k := apiKey(); k != "" {
		req.Header.Set("X-API-Key", k)
	}
	return do(t, req)
}

// postJSON performs a POST with a raw JSON body.
func postJSON(t *testing.T, path, body string) (int, envelope) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodPost, baseURL()+path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var env envelope
	if len(b) > 0 {
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("invalid JSON from %s: %v", req.URL.Path, err)
		}
	}
	return resp.StatusCode, env
}

////////////////////////////////////////////////////////////////////////////////
// HEALTH & READINESS TESTS
////////////////////////////////////////////////////////////////////////////////

// Health endpoint = liveness check (server process running).
func TestHealth_ReturnsOK(t *testing.T) {
	resp, err := http.Get(baseURL() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health expected 200 got %d", resp.StatusCode)
	}
}

// Ready endpoint = dependency readiness (store reachable).
func TestReady_ReturnsOK(t *testing.T) {
	waitReady(t)
}

////////////////////////////////////////////////////////////////////////////////
// INGESTION CONTRACT TESTS
////////////////////////////////////////////////////////////////////////////////

// Extra fields reject the whole event and nothing is stored.
func TestEvents_BadRequestOnExtraField(t *testing.T) {
	waitReady(t)

	session := unique("extra")
	s, env := postJSON(t, "/api/events",
		`{"session_id":"`+session+`","event_type":"page_view","page_url":"/","utm":"x"}`)
	if s != http.StatusBadRequest || env.Success {
		t.Fatalf("expected 400 got %d", s)
	}

	s, _ = httpGet(t, "/api/events/session/"+session)
	if s != http.StatusNotFound {
		t.Fatalf("rejected event was persisted, status %d", s)
	}
}

// Clicks must carry coordinates.
func TestEvents_BadRequestOnClickWithoutCoordinates(t *testing.T) {
	waitReady(t)

	s, _ := postJSON(t, "/api/events", `{"session_id":"x","event_type":"click","page_url":"/"}`)
	if s != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", s)
	}
}

////////////////////////////////////////////////////////////////////////////////
// AGGREGATION BEHAVIOR TESTS
////////////////////////////////////////////////////////////////////////////////

// A stored click shows up in its session and in the page heatmap.
func TestClickAppearsInSessionAndHeatmap(t *testing.T) {
	waitReady(t)

	session := unique("s")
	page := "/" + unique("page")

	s, _ := postJSON(t, "/api/events",
		`{"session_id":"`+session+`","event_type":"click","page_url":"`+page+`","click_coordinates":{"x":10.7,"y":3.2}}`)
	if s != http.StatusCreated {
		t.Fatalf("expected 201 got %d", s)
	}

	s, env := httpGet(t, "/api/events/session/"+session)
	if s != http.StatusOK {
		t.Fatalf("session detail expected 200 got %d", s)
	}
	var detail struct {
		TotalEvents int    `json:"total_events"`
		Clicks      int    `json:"clicks"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("invalid session detail: %v", err)
	}
	if detail.TotalEvents != 1 || detail.Clicks != 1 || detail.Status != "Active" {
		t.Fatalf("unexpected session detail %+v", detail)
	}

	s, env = httpGet(t, "/api/events/clicks/heatmap?page_url="+url.QueryEscape(page))
	if s != http.StatusOK {
		t.Fatalf("heatmap expected 200 got %d", s)
	}
	var buckets []struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Count int     `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &buckets); err != nil {
		t.Fatalf("invalid heatmap: %v", err)
	}
	if len(buckets) != 1 || buckets[0].X != 10 || buckets[0].Y != 3 || buckets[0].Count != 1 {
		t.Fatalf("unexpected heatmap %+v", buckets)
	}
}

// Unknown sessions are a 404 with success=false.
func TestSessionDetail_NotFound(t *testing.T) {
	waitReady(t)

	s, env := httpGet(t, "/api/events/session/"+unique("missing"))
	if s != http.StatusNotFound || env.Success {
		t.Fatalf("expected 404 got %d", s)
	}
}

// Dashboard counters grow with ingestion.
func TestDashboard_CountsNewSession(t *testing.T) {
	waitReady(t)

	type stats struct {
		TotalSessions int `json:"total_sessions"`
		TotalEvents   int `json:"total_events"`
	}
	read := func() stats {
		s, env := httpGet(t, "/api/events/dashboard")
		if s != http.StatusOK {
			t.Fatalf("dashboard expected 200 got %d", s)
		}
		var st stats
		if err := json.Unmarshal(env.Data, &st); err != nil {
			t.Fatalf("invalid dashboard: %v", err)
		}
		return st
	}

	before := read()
	postJSON(t, "/api/events", `{"session_id":"`+unique("dash")+`","event_type":"page_view","page_url":"/"}`)
	after := read()

	if after.TotalSessions < before.TotalSessions+1 || after.TotalEvents < before.TotalEvents+1 {
		t.Fatalf("dashboard did not count new session: before %+v after %+v", before, after)
	}
}
