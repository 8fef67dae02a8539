package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"docreview/internal/config"
	"docreview/internal/db"
	"docreview/internal/lifecycle"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:           "development",
		BaseURL:       "http://localhost:3000",
		SessionSecret: "test-secret-that-is-long-enough-for-production",
		MaxUploadSize: 1 << 20,
		SiteTitle:     "DocReview",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	srv := New(testConfig())
	database := &db.DB{}
	deps := Deps{
		DB:     database,
		Engine: lifecycle.NewEngine(database, database, nil),
	}
	if err := srv.RegisterRoutes(context.Background(), deps); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}
	return srv
}

// The encrypted session cookie must survive repeated replays through the
// full production middleware stack.
func TestSessionCookieRoundTrip(t *testing.T) {
	srv := New(testConfig())
	srv.App.Post("/session-set", func(c fiber.Ctx) error {
		session.FromContext(c).Set("user_id", "alice")
		return c.SendString("ok")
	})
	srv.App.Get("/session-get", func(c fiber.Ctx) error {
		val, _ := session.FromContext(c).Get("user_id").(string)
		return c.SendString(val)
	})

	req, _ := http.NewRequest(fiber.MethodPost, "/session-set", nil)
	resp, err := srv.App.Test(req)
	if err != nil {
		t.Fatalf("set request failed: %v", err)
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		t.Fatal("set request returned no cookies")
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(fiber.MethodGet, "/session-get", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		resp, err := srv.App.Test(req)
		if err != nil {
			t.Fatalf("get request %d failed: %v", i+1, err)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "alice" {
			t.Errorf("get request %d body = %q, want %q", i+1, body, "alice")
		}
		if next := resp.Cookies(); len(next) > 0 {
			cookies = next
		}
	}
}

func TestRegisterRoutes(t *testing.T) {
	srv := newTestServer(t)

	registered := make(map[string]bool)
	for _, r := range srv.App.GetRoutes(true) {
		registered[r.Method+" "+strings.TrimSuffix(r.Path, "/")] = true
	}

	want := []string{
		"POST /api/auth/register",
		"POST /api/auth/login",
		"POST /api/auth/logout",
		"GET /api/auth/me",
		"POST /api/submissions",
		"GET /api/submissions/my-submissions",
		"GET /api/submissions/all",
		"GET /api/submissions/:id",
		"GET /api/submissions/:id/attachments/:attachmentID",
		"GET /api/reviews/pending",
		"POST /api/reviews/:id",
		"GET /api/dashboard/summary",
		"GET /api/dashboard/submissions",
		"GET /api/users/preferences",
		"PATCH /api/users/preferences",
		"GET /api/admin/users",
		"POST /api/admin/users",
		"PATCH /api/admin/users/:id/role",
		"POST /api/admin/users/:id/reset-password",
		"DELETE /api/admin/users/:id",
		"GET /api",
		"GET /healthz",
		"GET /metrics",
	}
	for _, route := range want {
		if !registered[route] {
			t.Errorf("route %q not registered", route)
		}
	}
	if registered["GET /auth/login"] {
		t.Error("OIDC routes registered without OIDC_ISSUER")
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{fiber.MethodGet, "/api/auth/me"},
		{fiber.MethodGet, "/api/submissions/my-submissions"},
		{fiber.MethodGet, "/api/reviews/pending"},
		{fiber.MethodGet, "/api/admin/users"},
		{fiber.MethodPatch, "/api/users/preferences"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, tt.path, nil)
			resp, err := srv.App.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}

func TestErrorHandler_JSONEnvelope(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(fiber.MethodGet, "/no-such-route", nil)
	resp, err := srv.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status != "error" || body.Error == "" {
		t.Errorf("body = %+v, want error envelope", body)
	}
}

func TestAPIIndex(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(fiber.MethodGet, "/api", nil)
	resp, err := srv.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"DocReview API", "/api/reviews/pending", "/api/admin/users/:id/role"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

func TestDeriveEncryptionKey(t *testing.T) {
	key := deriveEncryptionKey("secret")
	if key != deriveEncryptionKey("secret") {
		t.Error("deriveEncryptionKey() is not deterministic")
	}
	if key == deriveEncryptionKey("other") {
		t.Error("deriveEncryptionKey() returned the same key for different secrets")
	}
	if len(key) != 44 {
		t.Errorf("len(deriveEncryptionKey()) = %d, want 44", len(key))
	}
}
