package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"usersbox-bot/internal/bot"
	"usersbox-bot/internal/database"
	"usersbox-bot/internal/dedupe"
	"usersbox-bot/internal/journal"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/usersbox"
)

type fakeDispatcher struct {
	mu  sync.Mutex
	got []bot.Incoming
	err error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, in bot.Incoming) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, in)
	return d.err
}

type fakeIncoming struct {
	chats []int64
	raw   []string
}

func (f *fakeIncoming) LogIncoming(_ context.Context, chatID int64, _ string, update []byte) error {
	f.chats = append(f.chats, chatID)
	f.raw = append(f.raw, string(update))
	return nil
}

const textUpdate = `{"update_id":1001,"message":{"message_id":5,"date":1700000000,` +
	`"chat":{"id":42,"type":"private"},"from":{"id":42,"is_bot":false,"first_name":"Ivan","username":"ivan"},` +
	`"text":"/search test"}}`

func postWebhook(t *testing.T, h http.Handler, body, secret, remote string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK && rec.Code != http.StatusForbidden && rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	out := map[string]any{"code": float64(rec.Code)}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestWebhookDispatchesTextMessage(t *testing.T) {
	d := &fakeDispatcher{}
	j := &fakeIncoming{}
	router := NewRouter(zap.NewNop(), NewWebhookController(d, j, nil, "", nil, zap.NewNop()))

	resp := postWebhook(t, router, textUpdate, "", "")

	if resp["status"] != "ok" {
		t.Fatalf("response = %v", resp)
	}
	if len(d.got) != 1 {
		t.Fatalf("dispatched = %d", len(d.got))
	}
	want := bot.Incoming{ChatID: 42, Text: "/search test", Username: "ivan", FirstName: "Ivan"}
	if d.got[0] != want {
		t.Fatalf("incoming = %+v, want %+v", d.got[0], want)
	}
	if len(j.raw) != 1 || j.raw[0] != textUpdate {
		t.Fatalf("raw update not journaled: %v", j.raw)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		dispatch   error
		wantStatus string
		wantCalls  int
	}{
		{"no message", `{"update_id":1,"edited_message":null}`, nil, "ok", 0},
		{"no text", `{"update_id":2,"message":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`, nil, "ok", 0},
		{"no chat", `{"update_id":3,"message":{"message_id":1,"date":0,"chat":{"type":"private"},"text":"/start"}}`, nil, "ok", 0},
		{"malformed", `{not json`, nil, "error", 0},
		{"dispatch failure", textUpdate, errors.New("database is locked"), "error", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tc.dispatch}
			router := NewRouter(zap.NewNop(), NewWebhookController(d, &fakeIncoming{}, nil, "", nil, zap.NewNop()))

			resp := postWebhook(t, router, tc.body, "", "")

			if resp["code"] != float64(http.StatusOK) || resp["status"] != tc.wantStatus {
				t.Fatalf("response = %v, want 200 %s", resp, tc.wantStatus)
			}
			if len(d.got) != tc.wantCalls {
				t.Fatalf("dispatch calls = %d, want %d", len(d.got), tc.wantCalls)
			}
		})
	}
}

func TestWebhookSkipsRedeliveredUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	d := &fakeDispatcher{}
	router := NewRouter(zap.NewNop(), NewWebhookController(d, &fakeIncoming{}, dedupe.NewGuard(rdb, 0), "", nil, zap.NewNop()))

	for i := 0; i < 3; i++ {
		if resp := postWebhook(t, router, textUpdate, "", ""); resp["status"] != "ok" {
			t.Fatalf("response = %v", resp)
		}
	}
	if len(d.got) != 1 {
		t.Fatalf("dispatched = %d, want 1", len(d.got))
	}
}

func TestWebhookDedupeFailureStillDispatches(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	d := &fakeDispatcher{}
	router := NewRouter(zap.NewNop(), NewWebhookController(d, &fakeIncoming{}, dedupe.NewGuard(rdb, 0), "", nil, zap.NewNop()))

	postWebhook(t, router, textUpdate, "", "")
	if len(d.got) != 1 {
		t.Fatalf("dispatched = %d, want 1", len(d.got))
	}
}

func TestWebhookSecretAndAllowList(t *testing.T) {
	prefixes := []netip.Prefix{netip.MustParsePrefix("149.154.160.0/20")}
	d := &fakeDispatcher{}
	router := NewRouter(zap.NewNop(), NewWebhookController(d, &fakeIncoming{}, nil, "s3cret", prefixes, zap.NewNop()))

	if resp := postWebhook(t, router, textUpdate, "s3cret", "8.8.8.8:443"); resp["code"] != float64(http.StatusForbidden) {
		t.Fatalf("foreign address: %v", resp)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(textUpdate))
	req.RemoteAddr = "8.8.8.8:443"
	req.Header.Set("X-Forwarded-For", "149.154.167.1")
	req.Header.Set("X-Real-IP", "149.154.167.1")
	req.Header.Set(secretTokenHeader, "s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forwarded header from foreign address: code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp := postWebhook(t, router, textUpdate, "wrong", "149.154.167.1:443"); resp["code"] != float64(http.StatusUnauthorized) {
		t.Fatalf("bad secret: %v", resp)
	}
	if len(d.got) != 0 {
		t.Fatalf("rejected requests were dispatched")
	}
	if resp := postWebhook(t, router, textUpdate, "s3cret", "149.154.167.1:443"); resp["status"] != "ok" {
		t.Fatalf("valid request: %v", resp)
	}
	if len(d.got) != 1 {
		t.Fatalf("dispatched = %d, want 1", len(d.got))
	}
}

type fakeAppInfo struct {
	err error
}

func (f fakeAppInfo) GetAppInfo(context.Context) (*usersbox.AppInfoResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usersbox.AppInfoResponse{Status: usersbox.StatusSuccess, Data: usersbox.AppInfo{Title: "bot", IsActive: true}}, nil
}

type fakeRegistrar struct {
	url, secret string
}

func (f *fakeRegistrar) SetWebhook(_ context.Context, url, secret string) error {
	f.url, f.secret = url, secret
	return nil
}

func newAPIRouter(t *testing.T, provider AppInfoProvider, registrar WebhookRegistrar, webhookURL string) (http.Handler, *journal.Journal) {
	t.Helper()
	db, err := database.ConnectSQLite(filepath.Join(t.TempDir(), "api.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("ConnectSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}

	j := journal.New(db)
	router := NewRouter(zap.NewNop(),
		&APIController{Stats: j, Provider: provider, Registrar: registrar, WebhookURL: webhookURL, WebhookSecret: "s", Log: zap.NewNop()},
		&HealthController{DB: sqlDB, Log: zap.NewNop()},
	)
	return router, j
}

func doJSON(t *testing.T, h http.Handler, method, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestStatsEndpoints(t *testing.T) {
	router, j := newAPIRouter(t, fakeAppInfo{}, &fakeRegistrar{}, "")
	ctx := context.Background()

	for chat := int64(1); chat <= 3; chat++ {
		for i := int64(0); i < chat; i++ {
			if err := j.LogSearch(ctx, chat, "q", "q", 1); err != nil {
				t.Fatalf("LogSearch() error = %v", err)
			}
		}
	}
	if err := j.LogIncoming(ctx, 1, "/start", []byte(`{"update_id":1}`)); err != nil {
		t.Fatalf("LogIncoming() error = %v", err)
	}
	j.DB.Create(&models.User{UserID: 1, ReferralCode: "AAAA1111"})

	var root map[string]any
	if code := doJSON(t, router, http.MethodGet, "/api/", &root); code != http.StatusOK || root["status"] != "running" {
		t.Fatalf("GET /api/ = %d %v", code, root)
	}

	var stats journal.Stats
	if code := doJSON(t, router, http.MethodGet, "/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("GET /api/stats = %d", code)
	}
	if stats.TotalSearches != 6 || stats.TotalMessages != 1 || stats.TotalUsers != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.TopUsers) != 3 || stats.TopUsers[0] != (journal.TopUser{ChatID: 3, Searches: 3}) {
		t.Fatalf("top users = %+v", stats.TopUsers)
	}

	var users []models.User
	if code := doJSON(t, router, http.MethodGet, "/api/users", &users); code != http.StatusOK || len(users) != 1 {
		t.Fatalf("GET /api/users = %d %v", code, users)
	}
	var refs []models.ReferralRecord
	if code := doJSON(t, router, http.MethodGet, "/api/referrals", &refs); code != http.StatusOK || len(refs) != 0 {
		t.Fatalf("GET /api/referrals = %d %v", code, refs)
	}

	var health map[string]any
	if code := doJSON(t, router, http.MethodGet, "/healthz", &health); code != http.StatusOK {
		t.Fatalf("GET /healthz = %d %v", code, health)
	}
}

func TestProviderCheck(t *testing.T) {
	router, _ := newAPIRouter(t, fakeAppInfo{err: &usersbox.APIError{Endpoint: "/getMe", StatusCode: 401}}, &fakeRegistrar{}, "")

	var resp map[string]any
	doJSON(t, router, http.MethodPost, "/api/test-provider", &resp)
	if resp["status"] != "error" || resp["status_code"] != float64(401) {
		t.Fatalf("response = %v", resp)
	}

	router, _ = newAPIRouter(t, fakeAppInfo{}, &fakeRegistrar{}, "")
	doJSON(t, router, http.MethodPost, "/api/test-provider", &resp)
	if resp["status"] != "success" {
		t.Fatalf("response = %v", resp)
	}
}

func TestSetWebhookEndpoint(t *testing.T) {
	router, _ := newAPIRouter(t, fakeAppInfo{}, &fakeRegistrar{}, "")
	if code := doJSON(t, router, http.MethodPost, "/api/set-webhook", nil); code != http.StatusBadRequest {
		t.Fatalf("unconfigured url: code = %d", code)
	}

	reg := &fakeRegistrar{}
	router, _ = newAPIRouter(t, fakeAppInfo{}, reg, "https://bot.example.com/api/webhook")
	var resp map[string]any
	if code := doJSON(t, router, http.MethodPost, "/api/set-webhook", &resp); code != http.StatusOK {
		t.Fatalf("code = %d %v", code, resp)
	}
	if reg.url != "https://bot.example.com/api/webhook" || reg.secret != "s" {
		t.Fatalf("registrar got %q %q", reg.url, reg.secret)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newAPIRouter(t, fakeAppInfo{}, &fakeRegistrar{}, "")
	doJSON(t, router, http.MethodGet, "/api/", nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics = %d", rec.Code)
	}
}
