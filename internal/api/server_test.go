package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
	"github.com/nerrad567/pulsegrid-core/internal/compiler"
	"github.com/nerrad567/pulsegrid-core/internal/executor"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/config"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/logging"
	"github.com/nerrad567/pulsegrid-core/internal/runlog"
)

const testDeviceID = "dsp-test"

// fakeConn is an in-memory controller connection. RunActions completes
// runs immediately by firing the done callback from a goroutine, the
// way the gateway's notification path does.
type fakeConn struct {
	mu        sync.Mutex
	digital   uint32
	positions [actiontable.AnalogChannels]float64
	onDone    func(deviceID string)

	loadCalls    int
	runCalls     int
	abortCalls   int
	writeHistory []uint32
}

func (f *fakeConn) ReadDigital(context.Context) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.digital, nil
}

func (f *fakeConn) WriteDigital(_ context.Context, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digital = value
	f.writeHistory = append(f.writeHistory, value)
	return nil
}

func (f *fakeConn) ReadPosition(_ context.Context, channel int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positions[channel], nil
}

func (f *fakeConn) MoveAbsolute(_ context.Context, channel int, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[channel] = value
	return nil
}

func (f *fakeConn) PrepareActions(context.Context, []compiler.RelativeAction, int) error {
	return nil
}

func (f *fakeConn) LoadProfile(context.Context, *compiler.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	return nil
}

func (f *fakeConn) DownloadProfile(context.Context) error { return nil }

func (f *fakeConn) InitProfile(context.Context, int) error { return nil }

func (f *fakeConn) RunActions(context.Context) error {
	f.mu.Lock()
	f.runCalls++
	done := f.onDone
	f.mu.Unlock()
	if done != nil {
		go done(testDeviceID)
	}
	return nil
}

func (f *fakeConn) Abort(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abortCalls++
	return nil
}

func (f *fakeConn) RegisterNotificationTarget(context.Context, string) error { return nil }

func (f *fakeConn) SetOnDone(fn func(deviceID string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDone = fn
}

// setupRunLog creates a run log store backed by a temporary database.
func setupRunLog(t *testing.T) *runlog.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "api-test.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			generation TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			rows INTEGER NOT NULL,
			num_reps INTEGER NOT NULL,
			digital_events INTEGER NOT NULL DEFAULT 0,
			analog_events INTEGER NOT NULL DEFAULT 0,
			violations INTEGER NOT NULL DEFAULT 0,
			aborted INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE device_states (
			device_id TEXT PRIMARY KEY,
			digital INTEGER NOT NULL,
			baseline_0 REAL NOT NULL DEFAULT 0,
			baseline_1 REAL NOT NULL DEFAULT 0,
			baseline_2 REAL NOT NULL DEFAULT 0,
			baseline_3 REAL NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}

	return runlog.NewStore(db)
}

// testServer creates a Server wired to a fake controller connection and
// a real run log backed by temporary SQLite.
func testServer(t *testing.T) (*Server, *fakeConn) {
	t.Helper()

	conn := &fakeConn{}
	runs := setupRunLog(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	exec, err := executor.New(executor.Options{
		Connection: conn,
		DeviceID:   testDeviceID,
		Generation: executor.GenerationLegacy,
		TickRate:   10,
		Recorder:   runs,
		States:     runs,
	})
	if err != nil {
		t.Fatalf("executor.New: %v", err)
	}
	if err := exec.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:         "test-secret-key-at-least-32-characters-long",
				AccessTokenTTL: 15,
			},
		},
		Logger:  log,
		Exec:    exec,
		Runs:    runs,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, conn
}

// loginToken obtains a dev JWT through the login endpoint.
func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()

	body := strings.NewReader(`{"username":"admin","password":"admin"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	return resp.AccessToken
}

// authedRequest builds a request carrying a bearer token.
func authedRequest(method, target, token string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// ─── Health and Auth ───────────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"username":"admin","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestWSTicket_SingleUse(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/auth/ws-ticket", token, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("ws-ticket status = %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ticket, _ := resp["ticket"].(string)
	if ticket == "" {
		t.Fatal("empty ticket")
	}

	if _, ok := validateTicket(ticket); !ok {
		t.Error("first validation should succeed")
	}
	if _, ok := validateTicket(ticket); ok {
		t.Error("second validation should fail (single-use)")
	}
}

// ─── Status and Outputs ────────────────────────────────────────────

func TestStatus(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/status", token, ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["device_id"] != testDeviceID {
		t.Errorf("device_id = %v, want %s", resp["device_id"], testDeviceID)
	}
	if resp["generation"] != "legacy" {
		t.Errorf("generation = %v, want legacy", resp["generation"])
	}
	if resp["busy"] != false {
		t.Errorf("busy = %v, want false", resp["busy"])
	}
}

func TestGetOutputs(t *testing.T) {
	srv, conn := testServer(t)
	conn.digital = 0xAB
	conn.positions = [actiontable.AnalogChannels]float64{1.5, -2.25, 0, 10}

	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/outputs", token, ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Digital uint32    `json:"digital"`
		Analog  []float64 `json:"analog"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Digital != 0xAB {
		t.Errorf("digital = %#x, want 0xAB", resp.Digital)
	}
	if len(resp.Analog) != actiontable.AnalogChannels || resp.Analog[1] != -2.25 {
		t.Errorf("analog = %v", resp.Analog)
	}
}

func TestSetDigital(t *testing.T) {
	srv, conn := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPut, "/api/v1/outputs/digital", token, `{"value":12}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if conn.digital != 12 {
		t.Errorf("controller digital = %d, want 12", conn.digital)
	}
}

func TestMoveAnalog(t *testing.T) {
	srv, conn := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPut, "/api/v1/outputs/analog/2", token, `{"value":3.75}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if conn.positions[2] != 3.75 {
		t.Errorf("channel 2 position = %v, want 3.75", conn.positions[2])
	}
}

func TestMoveAnalog_InvalidChannel(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	for _, channel := range []string{"-1", "4", "nope"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodPut, "/api/v1/outputs/analog/"+channel, token, `{"value":1}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("channel %q: status = %d, want %d", channel, w.Code, http.StatusBadRequest)
		}
	}
}

func TestTrigger(t *testing.T) {
	srv, conn := testServer(t)
	conn.digital = 0b0100
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/outputs/trigger", token, `{"lines":1,"duration_ms":1}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// Pulse writes the XORed mask, then restores the original.
	conn.mu.Lock()
	history := append([]uint32(nil), conn.writeHistory...)
	conn.mu.Unlock()
	if len(history) != 2 || history[0] != 0b0101 || history[1] != 0b0100 {
		t.Errorf("write history = %v, want [5 4]", history)
	}
}

func TestTrigger_ZeroLines(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/outputs/trigger", token, `{"lines":0,"duration_ms":1}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Runs ──────────────────────────────────────────────────────────

func runBody(t *testing.T, req runRequest) string {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal run request: %v", err)
	}
	return string(data)
}

func TestExecuteRun(t *testing.T) {
	srv, conn := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	body := runBody(t, runRequest{
		Table: []runRow{
			{TimeMillis: 0, Digital: 1},
			{TimeMillis: 10, Digital: 0},
		},
		NumReps: 2,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/runs", token, body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if conn.loadCalls != 1 || conn.runCalls != 1 {
		t.Errorf("loadCalls = %d, runCalls = %d, want 1 and 1", conn.loadCalls, conn.runCalls)
	}

	// The run must appear in the history.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/runs", token, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}

	var list struct {
		Runs  []runSummary `json:"runs"`
		Count int          `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("count = %d, want 1", list.Count)
	}
	rec := list.Runs[0]
	if rec.DeviceID != testDeviceID || rec.Generation != "legacy" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Rows != 2 || rec.NumReps != 2 {
		t.Errorf("rows = %d, num_reps = %d, want 2 and 2", rec.Rows, rec.NumReps)
	}
	if rec.Aborted {
		t.Error("run should not be marked aborted")
	}
}

func TestExecuteRun_EmptyTable(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/runs", token, `{"table":[]}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestExecuteRun_BadSelection(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	body := runBody(t, runRequest{
		Table: []runRow{
			{TimeMillis: 0, Digital: 1},
		},
		Stop: func() *int { n := 5; return &n }(),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/runs", token, body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d, body = %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestExecuteRun_ReportsViolations(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	// Both rows land on the same tick at 10 ticks/ms with different
	// digital values; the run completes but the clash must be surfaced.
	body := runBody(t, runRequest{
		Table: []runRow{
			{TimeMillis: 10.01, Digital: 1},
			{TimeMillis: 10.04, Digital: 2},
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/runs", token, body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status     string `json:"status"`
		RunID      string `json:"run_id"`
		Violations int    `json:"violations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "complete" {
		t.Errorf("status = %q, want %q", resp.Status, "complete")
	}
	if resp.RunID == "" {
		t.Error("response has no run_id")
	}
	if resp.Violations != 1 {
		t.Errorf("violations = %d, want 1", resp.Violations)
	}
}

func TestExecuteRun_UnorderedTable(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	body := runBody(t, runRequest{
		Table: []runRow{
			{TimeMillis: 10, Digital: 1},
			{TimeMillis: 0, Digital: 0},
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/runs", token, body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPrepare(t *testing.T) {
	srv, conn := testServer(t)
	conn.digital = 0x3
	conn.positions = [actiontable.AnalogChannels]float64{0.5, 1.5, 2.5, 3.5}

	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/prepare", token, ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	state := srv.exec.State()
	if state.Digital != 0x3 {
		t.Errorf("carried digital = %#x, want 0x3", state.Digital)
	}
	if state.Baselines != conn.positions {
		t.Errorf("baselines = %v, want %v", state.Baselines, conn.positions)
	}
}

func TestAbort(t *testing.T) {
	srv, conn := testServer(t)
	router := srv.buildRouter()
	token := loginToken(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/abort", token, ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	// Initialize issues one abort; the endpoint issues the second.
	if conn.abortCalls != 2 {
		t.Errorf("abortCalls = %d, want 2", conn.abortCalls)
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────

func TestWebSocketRunStatus(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	ts := httptest.NewServer(router)
	defer ts.Close()

	// Obtain a ticket directly; the HTTP path is covered above.
	ticket := generateTicket()
	wsTickets.mu.Lock()
	wsTickets.tickets[ticket] = ticketEntry{subject: "admin", expiresAt: time.Now().Add(ticketTTL)}
	wsTickets.mu.Unlock()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?ticket=" + ticket
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Subscribe to run status events
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{WSChannelRunStatus}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read subscribe ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %s, want %s", ack.Type, WSTypeResponse)
	}

	// Publish a status event through the executor-facing broadcaster.
	broadcaster := NewStatusBroadcaster(srv.hub)
	broadcaster.PublishWaiting(testDeviceID, "experiment running", executor.ColorBusy)

	//nolint:errcheck // Deadline is best-effort; failure surfaces as a read error
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != WSChannelRunStatus {
		t.Errorf("event = %+v", event)
	}

	payload, _ := event.Payload.(map[string]any)
	if payload["device_id"] != testDeviceID || payload["status"] != "waiting" {
		t.Errorf("payload = %v", payload)
	}
}

func TestWebSocket_RequiresTicket(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/ws", ts.URL))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
