package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/clearway-labs/regent/internal/domain/citation"
	"github.com/clearway-labs/regent/internal/port/websearch"
	"github.com/clearway-labs/regent/internal/service"
)

type stubRetriever struct {
	records []citation.Record
	err     error
	ready   bool
}

func (s *stubRetriever) Search(_ context.Context, _ string) ([]citation.Record, error) {
	return s.records, s.err
}

func (s *stubRetriever) Ready() bool { return s.ready }

type stubSearcher struct {
	analysis *websearch.Analysis
	err      error
	ready    bool
}

func (s *stubSearcher) Search(_ context.Context, _ string) (*websearch.Analysis, error) {
	return s.analysis, s.err
}

func (s *stubSearcher) Ready() bool { return s.ready }

func testRouter(ret *stubRetriever, sea *stubSearcher) http.Handler {
	orch := service.NewOrchestrator(ret, sea, nil, service.Features{
		Retrieval:      true,
		CitationSearch: true,
		Hints:          true,
	})
	h := &Handlers{
		Orchestrator: orch,
		Documents:    service.NewDocumentService(),
		Retriever:    ret,
		Searcher:     sea,
	}
	r := chi.NewRouter()
	MountRoutes(r, h)
	return r
}

func sseLines(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, chunk := range strings.Split(body, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if !strings.HasPrefix(chunk, "data: ") {
			t.Fatalf("malformed SSE chunk: %q", chunk)
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &ev); err != nil {
			t.Fatalf("unmarshal SSE chunk %q: %v", chunk, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestChatStreamsEvents(t *testing.T) {
	ret := &stubRetriever{ready: true, records: []citation.Record{{Title: "internal"}}}
	sea := &stubSearcher{ready: true, analysis: &websearch.Analysis{
		CitationsFound: 1,
		Citations:      []citation.Record{{Title: "external"}},
	}}
	router := testRouter(ret, sea)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"gdpr breach"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	events := sseLines(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %v", len(events), events)
	}
	if events[0]["status"] != "Internal citations retrieved" || events[0]["count"] != float64(1) {
		t.Errorf("events[0] = %v", events[0])
	}
	if events[1]["status"] != "External citations retrieved" {
		t.Errorf("events[1] = %v", events[1])
	}
	if events[2]["status"] != "completed" {
		t.Errorf("terminal = %v", events[2])
	}
	if events[2]["query"] != "gdpr breach" {
		t.Errorf("terminal query = %v", events[2]["query"])
	}
}

func TestChatStreamsTaskError(t *testing.T) {
	ret := &stubRetriever{ready: true, err: errors.New("index offline")}
	sea := &stubSearcher{ready: true, analysis: &websearch.Analysis{}}
	router := testRouter(ret, sea)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"q"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	events := sseLines(t, rec.Body.String())
	if events[0]["error"] != "rag module error" {
		t.Errorf("events[0] = %v", events[0])
	}
	last := events[len(events)-1]
	if last["status"] != "completed" {
		t.Errorf("stream must still complete: %v", last)
	}
}

func TestChatRejectsEmptyQuery(t *testing.T) {
	router := testRouter(&stubRetriever{ready: true}, &stubSearcher{ready: true})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestQuerySyncShape(t *testing.T) {
	ret := &stubRetriever{ready: true, records: []citation.Record{{Title: "internal"}}}
	sea := &stubSearcher{ready: true, analysis: &websearch.Analysis{
		CitationsFound: 2,
		Citations:      []citation.Record{{Title: "a"}, {Title: "b"}},
	}}
	router := testRouter(ret, sea)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"text":"sox controls"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"query", "internal_citations", "external_citations", "hints", "summary"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("response missing %q: %v", key, resp)
		}
	}
	summary := resp["summary"].(map[string]any)
	if summary["total_citations"] != float64(3) {
		t.Errorf("total_citations = %v", summary["total_citations"])
	}
	// Hints service absent: null, not an empty object.
	if resp["hints"] != nil {
		t.Errorf("hints = %v, want null", resp["hints"])
	}
}

func TestQueryRequestFlagDisablesTask(t *testing.T) {
	ret := &stubRetriever{ready: true, records: []citation.Record{{Title: "internal"}}}
	sea := &stubSearcher{ready: true, analysis: &websearch.Analysis{CitationsFound: 1, Citations: []citation.Record{{Title: "x"}}}}
	router := testRouter(ret, sea)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"text":"q","use_sonar":false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ext := resp["external_citations"].([]any); len(ext) != 0 {
		t.Errorf("external_citations = %v, want empty", ext)
	}
}

func TestHealth(t *testing.T) {
	router := testRouter(&stubRetriever{ready: true}, &stubSearcher{ready: false})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status  string          `json:"status"`
		Modules map[string]bool `json:"modules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if !resp.Modules["rag"] || resp.Modules["sonar"] {
		t.Errorf("modules = %v", resp.Modules)
	}
}

func TestDocumentsEndpoints(t *testing.T) {
	router := testRouter(&stubRetriever{}, &stubSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents",
		strings.NewReader(`{"title":"GDPR Article 33","standard":"GDPR"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body)
	}

	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("list status = %d", rec.Code)
	}
}
