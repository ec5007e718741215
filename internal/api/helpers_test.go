package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sraza0098/wisp-backend/internal/auth"
	"github.com/sraza0098/wisp-backend/internal/config"
	"github.com/sraza0098/wisp-backend/internal/presence"
	"github.com/sraza0098/wisp-backend/internal/relay"
	"github.com/sraza0098/wisp-backend/internal/store/gormstore"
)

type memoryRevoker struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (m *memoryRevoker) Revoke(_ context.Context, jti string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = make(map[string]struct{})
	}
	m.ids[jti] = struct{}{}
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[jti]
	return ok, nil
}

type nopConn struct{ id string }

func (c nopConn) ID() string        { return c.id }
func (c nopConn) Send([]byte) error { return nil }
func (c nopConn) Close() error      { return nil }

type harness struct {
	app    *fiber.App
	store  *gormstore.Store
	relay  *relay.Relay
	typing *presence.Typing
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, CORSOrigins: "http://localhost:3000", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			TokenTTLDays:    1,
			RateLimitMax:    100,
			RateLimitWindow: 60,
		},
	}
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	st, err := gormstore.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	require.NoError(t, err)
	svc := auth.NewService(st, auth.NewHasher(bcrypt.MinCost), tokens, &memoryRevoker{}, zap.NewNop())

	typing := presence.NewTyping(3 * time.Second)
	r := relay.New(zap.NewNop(), relay.WithObserver(typing))

	app := New(Deps{
		Config: cfg,
		Store:  st,
		Auth:   svc,
		Relay:  r,
		Typing: typing,
		Log:    zap.NewNop(),
	})
	return &harness{app: app, store: st, relay: r, typing: typing}
}

type response struct {
	Code    int
	Body    map[string]any
	Cookies []*http.Cookie
}

// data returns body.data.<key> as a map.
func (r response) data(key string) map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	v, _ := d[key].(map[string]any)
	return v
}

func (h *harness) do(t *testing.T, method, path string, body any, token string) response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.send(t, req)
}

func (h *harness) send(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{Code: resp.StatusCode, Cookies: resp.Cookies()}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

// signup creates an account and returns its id and token.
func (h *harness) signup(t *testing.T, first, email string) (string, string) {
	t.Helper()
	res := h.do(t, http.MethodPost, "/api/users/signup", map[string]string{
		"firstName":       first,
		"lastName":        "Tester",
		"email":           email,
		"password":        "correct-horse",
		"passwordConfirm": "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	token, _ := res.Body["token"].(string)
	require.NotEmpty(t, token)
	return res.data("user")["id"].(string), token
}
