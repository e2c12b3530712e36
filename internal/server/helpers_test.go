package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/luckydraw/internal/database"
	"github.com/playperu/luckydraw/internal/handler/health"
	"github.com/playperu/luckydraw/internal/luckydraw"
	"github.com/playperu/luckydraw/internal/migrations"
)

const (
	testAdminPassword = "admin@lucky"
	testResetPIN      = "2026"
)

func testRules() luckydraw.Rules {
	return luckydraw.Rules{
		Members: luckydraw.Roster{
			{Name: "Ánh", Password: "anh123"},
			{Name: "Đức", Password: "duc123"},
			{Name: "Thành", Password: "thanh123"},
		},
		TotalBoxes: 18,
		MaxDraws:   3,
		Policy:     luckydraw.PolicySequence,
		Sequence:   []int64{20000, 10000, 50000},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sqliteStore(t *testing.T) *DocStore {
	t.Helper()
	return sqliteStoreAt(t, filepath.Join(t.TempDir(), "test.db"))
}

// sqliteStoreAt opens its own pool on path, like a second server process
// sharing the database file would.
func sqliteStoreAt(t *testing.T, path string) *DocStore {
	t.Helper()
	db, err := database.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db, migrations.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db, testRules())
}

func boxID(n int) *int { return &n }

type testEnv struct {
	handler http.Handler
	game    *Game
	store   Store
	broker  *Broker
}

func newTestEnv(t *testing.T, store Store) *testEnv {
	t.Helper()
	return newTestEnvWithRules(t, store, testRules())
}

func newTestEnvWithRules(t *testing.T, store Store, rules luckydraw.Rules) *testEnv {
	t.Helper()
	logger := discardLogger()

	creds, err := NewCredentials(rules.Members, testAdminPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	broker := NewBroker()
	game := NewGame(store, rules, testResetPIN, broker, logger)

	checks := map[string]health.Checker{
		"store": health.CheckFunc(func(ctx context.Context) error {
			_, err := store.Load(ctx)
			return err
		}),
	}

	srv := New(":0", Deps{
		Logger:       logger,
		Game:         game,
		Sessions:     store,
		Credentials:  creds,
		Broker:       broker,
		Health:       health.NewHandler(logger, checks).Routes(),
		BaseURL:      "https://lucky.example/",
		PollInterval: 3 * time.Second,
	})
	return &testEnv{handler: srv.Handler(), game: game, store: store, broker: broker}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if s, ok := body.(string); ok {
		rd = bytes.NewBufferString(s)
	} else if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for _, m := range mods {
		m(req)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookies(cookies []*http.Cookie) func(*http.Request) {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

// login signs member in and returns the bearer token.
func (e *testEnv) login(t *testing.T, member, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/login", LoginRequest{Member: member, Password: password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", member, w.Code, w.Body.String())
	}
	var resp LoginResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token == "" {
		t.Fatalf("login %s: expected a token", member)
	}
	return resp.Token
}

func (e *testEnv) adminLogin(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Password: testAdminPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Error
}
