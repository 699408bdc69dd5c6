package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"archivarr/internal/broadcast"
	"archivarr/internal/database"
	"archivarr/internal/jobs"
	"archivarr/internal/models"
	"archivarr/internal/repo"
	"archivarr/internal/scheduler"
)

// The router injects package-level components, so these tests share
// state and must not run in parallel.
type serverFixture struct {
	store   *repo.Store
	hub     *broadcast.Hub
	handler http.Handler
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	s := repo.InitStores(db)
	h := broadcast.NewHub()
	m := jobs.NewManager(s, h, nil, nil, t.TempDir(), "")
	sc := scheduler.New(s, m)

	return &serverFixture{
		store:   s,
		hub:     h,
		handler: NewRouter(s, h, m, sc),
	}
}

func (fx *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestSyncStartValidation(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/sync/start", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("start without channel_id = %d, want 400", rec.Code)
	}

	rec = fx.do(t, http.MethodPost, "/api/v1/sync/start", map[string]any{"channel_id": 99})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("start with unknown channel = %d, want 400", rec.Code)
	}

	rec = fx.do(t, http.MethodPost, "/api/v1/sync/start", map[string]any{
		"channel_id": 1, "job_type": "everything",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("start with unknown job type = %d, want 400", rec.Code)
	}
}

func TestSyncStatus(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Running  bool            `json:"running"`
		Snapshot models.Snapshot `json:"snapshot"`
		Storage  json.RawMessage `json:"storage"`
	}
	decodeInto(t, rec, &resp)
	if resp.Running {
		t.Error("fresh system reports a running job")
	}
	if resp.Snapshot.Sync.JobID != 0 {
		t.Errorf("fresh snapshot not idle: %+v", resp.Snapshot.Sync)
	}
	if len(resp.Storage) == 0 {
		t.Error("status response missing storage stats")
	}
}

func TestChannelLifecycle(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/channels/", map[string]any{
		"remote_channel_id": "UC-http", "title": "HTTP Channel",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Channel
	decodeInto(t, rec, &created)
	if created.ID == 0 || created.RemoteID != "UC-http" {
		t.Fatalf("created channel malformed: %+v", created)
	}

	rec = fx.do(t, http.MethodGet, "/api/v1/channels/", nil)
	var channels []models.Channel
	decodeInto(t, rec, &channels)
	if len(channels) != 1 {
		t.Fatalf("list returned %d channels, want 1", len(channels))
	}

	rec = fx.do(t, http.MethodPut, "/api/v1/channels/1", map[string]any{"api_key": "override"})
	if rec.Code != http.StatusOK {
		t.Errorf("update = %d: %s", rec.Code, rec.Body.String())
	}

	rec = fx.do(t, http.MethodGet, "/api/v1/channels/1/videos", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("list videos = %d: %s", rec.Code, rec.Body.String())
	}

	rec = fx.do(t, http.MethodDelete, "/api/v1/channels/1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete = %d: %s", rec.Code, rec.Body.String())
	}
	rec = fx.do(t, http.MethodGet, "/api/v1/channels/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}

	// Missing remote ID is rejected.
	rec = fx.do(t, http.MethodPost, "/api/v1/channels/", map[string]any{"title": "No ID"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create without remote ID = %d, want 400", rec.Code)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/sync/config", nil)
	var cfg models.SyncConfig
	decodeInto(t, rec, &cfg)
	if cfg.AutoSyncEnabled {
		t.Error("auto-sync enabled by default")
	}

	rec = fx.do(t, http.MethodPut, "/api/v1/sync/config", map[string]any{
		"auto_sync_enabled": true, "auto_sync_time": "half past three",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad auto_sync_time = %d, want 400", rec.Code)
	}

	rec = fx.do(t, http.MethodPut, "/api/v1/sync/config", map[string]any{
		"auto_sync_enabled": true, "auto_sync_time": "03:30", "sync_comments": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update config = %d: %s", rec.Code, rec.Body.String())
	}

	saved, err := fx.store.ConfigStore().Get()
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if !saved.AutoSyncEnabled || saved.AutoSyncTime != "03:30" {
		t.Errorf("config not persisted: %+v", saved)
	}
	if saved.MaxVideoQuality != models.DefaultSyncConfig.MaxVideoQuality {
		t.Errorf("quality not defaulted: %q", saved.MaxVideoQuality)
	}
}

func TestErrorLogEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	if err := fx.store.ErrorLogStore().Add(&models.ErrorLog{
		ErrorType: "sync", ErrorMessage: "catalog request failed",
	}); err != nil {
		t.Fatalf("failed to seed error log: %v", err)
	}

	rec := fx.do(t, http.MethodGet, "/api/v1/errors/", nil)
	var entries []models.ErrorLog
	decodeInto(t, rec, &entries)
	if len(entries) != 1 {
		t.Fatalf("listed %d errors, want 1", len(entries))
	}

	rec = fx.do(t, http.MethodDelete, "/api/v1/errors/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear = %d: %s", rec.Code, rec.Body.String())
	}

	rec = fx.do(t, http.MethodGet, "/api/v1/errors/", nil)
	decodeInto(t, rec, &entries)
	if len(entries) != 0 {
		t.Errorf("errors survived clear: %+v", entries)
	}
}

func TestQueueEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/queue/", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("list = %d: %s", rec.Code, rec.Body.String())
	}

	rec = fx.do(t, http.MethodDelete, "/api/v1/queue/99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete unknown item = %d, want 404", rec.Code)
	}
}

func TestEventPing(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/events/nobody/ping", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("ping unknown subscriber = %d, want 404", rec.Code)
	}

	id, events := fx.hub.Subscribe()
	defer fx.hub.Unsubscribe(id)
	rec = fx.do(t, http.MethodPost, "/api/v1/events/"+id+"/ping", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ping = %d: %s", rec.Code, rec.Body.String())
	}

	// The pong answer rides the subscriber's own stream.
	select {
	case ev := <-events:
		if ev.Type != "connected" {
			t.Fatalf("first event = %q, want connected", ev.Type)
		}
	default:
		t.Fatal("snapshot replay missing")
	}
	select {
	case ev := <-events:
		if ev.Type != "pong" {
			t.Errorf("expected pong, got %q", ev.Type)
		}
	default:
		t.Error("pong never arrived")
	}
}

func TestEventStreamHandshake(t *testing.T) {
	fx := newServerFixture(t)

	srv := httptest.NewServer(fx.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/events/")
	if err != nil {
		t.Fatalf("failed to open event stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var sawSubscriber, sawConnected bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: subscriber") {
			sawSubscriber = true
		}
		if strings.HasPrefix(line, "event: connected") {
			sawConnected = true
			break
		}
	}
	if !sawSubscriber || !sawConnected {
		t.Errorf("handshake incomplete: subscriber=%v connected=%v", sawSubscriber, sawConnected)
	}
}
