package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"taskcal/internal/config"
	"taskcal/internal/db"
	"taskcal/internal/domain"
	"taskcal/internal/engine"
	"taskcal/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":      "Ship release",
		"start_date": "2024-03-10",
		"start_time": "10:00",
		"priority":   "high",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created TaskResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.StartDateTime == nil || *created.StartDateTime != "2024-03-10T10:00:00" {
		t.Fatalf("combined timestamp = %v", created.StartDateTime)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/tasks/"+created.ID, map[string]any{
		"description": "final cut",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/toggle", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle status %d: %s", res.StatusCode, string(data))
	}
	var toggled TaskResponse
	if err := json.Unmarshal(data, &toggled); err != nil || !toggled.Completed {
		t.Fatalf("toggle result: %v %s", err, string(data))
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/tasks/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}

func TestRecurrenceRuleInResponse(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":               "weekly sync",
		"start_date":          "2024-01-01",
		"recurrence_type":     "weekly",
		"recurrence_interval": 2,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created TaskResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(created.RecurrenceRule, "FREQ=WEEKLY") || !strings.Contains(created.RecurrenceRule, "INTERVAL=2") {
		t.Fatalf("recurrence rule = %q", created.RecurrenceRule)
	}
}

func TestOccurrencesAndMove(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":               "standup",
		"start_date":          "2024-01-01",
		"recurrence_type":     "weekly",
		"recurrence_interval": 2,
		"recurrence_end_date": "2024-01-20",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created TaskResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/occurrences?from=2024-01-01&to=2024-01-31", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("occurrences status %d: %s", res.StatusCode, string(data))
	}
	var occs []domain.Occurrence
	if err := json.Unmarshal(data, &occs); err != nil {
		t.Fatalf("unmarshal occurrences: %v", err)
	}
	if len(occs) != 2 {
		t.Fatalf("got %d occurrences: %s", len(occs), string(data))
	}
	if occs[1].ID != created.ID+"_1" {
		t.Fatalf("instance id = %s", occs[1].ID)
	}

	// Dragging the second instance rewrites the series anchor.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/occurrences/"+occs[1].ID+"/move", map[string]any{
		"start":   "2024-02-05",
		"all_day": true,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("move status %d: %s", res.StatusCode, string(data))
	}
	var moved TaskResponse
	if err := json.Unmarshal(data, &moved); err != nil {
		t.Fatalf("unmarshal moved: %v", err)
	}
	if moved.StartDate == nil || *moved.StartDate != "2024-02-05" {
		t.Fatalf("anchor start = %v", moved.StartDate)
	}

	// Resizing an instance has no stored representation.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/occurrences/"+created.ID+"_1/resize", map[string]any{
		"end": "2024-02-20",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("instance resize status %d: %s", res.StatusCode, string(data))
	}
}

func TestBadWindowRejected(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/occurrences?from=yesterday", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestSettingsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/settings", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get settings status %d: %s", res.StatusCode, string(data))
	}
	var s domain.Settings
	if err := json.Unmarshal(data, &s); err != nil || s.MaxOccurrences != 100 {
		t.Fatalf("settings: %v %s", err, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/settings", map[string]any{
		"dark_mode":       true,
		"max_occurrences": 50,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch settings status %d: %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &s); err != nil || !s.DarkMode || s.MaxOccurrences != 50 {
		t.Fatalf("patched settings: %v %s", err, string(data))
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: "test-secret"})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d: %s", res.StatusCode, string(data))
	}
	// Health stays open.
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status %d", res.StatusCode)
	}
}

func TestCalendarFeed(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":      "conference",
		"start_date": "2024-03-10",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/calendar.ics", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("feed status %d: %s", res.StatusCode, string(data))
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %s", ct)
	}
	feed := string(data)
	if !strings.Contains(feed, "BEGIN:VCALENDAR") || !strings.Contains(feed, "SUMMARY:conference") {
		t.Fatalf("feed payload:\n%s", feed)
	}
}
