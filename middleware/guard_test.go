package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/store/memory"
)

type fixture struct {
	engine *webAuth.Engine
	store  *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := webAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	store := memory.New()
	engine, err := webAuth.New().WithConfig(cfg).WithCredentialStore(store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return &fixture{engine: engine, store: store}
}

func (f *fixture) token(t *testing.T, email string, role webAuth.Role, perms ...webAuth.Permission) string {
	t.Helper()

	ctx := context.Background()
	res, err := f.engine.Register(ctx, webAuth.RegisterRequest{Email: email, Password: "correct-password"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := f.store.UpdateUser(ctx, res.Session.UserID, webAuth.UserUpdate{Role: &role}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if err := f.store.Grant(res.Session.UserID, perms...); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	res, err = f.engine.Login(ctx, email, "correct-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res.Token
}

func serve(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: webAuth.DefaultConfig().Session.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler(t *testing.T, wantSession bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := SessionFromContext(r.Context())
		if ok != wantSession {
			t.Errorf("session in context = %v, want %v", ok, wantSession)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardRedirects(t *testing.T) {
	f := newFixture(t)
	user := f.token(t, "user@example.com", webAuth.RoleUser)
	admin := f.token(t, "admin@example.com", webAuth.RoleAdmin)

	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
		session  bool
	}{
		{name: "anonymous admin page", path: "/dashboard/users", status: http.StatusTemporaryRedirect, location: "/login"},
		{name: "user on admin page", path: "/dashboard/users", token: user, status: http.StatusTemporaryRedirect, location: "/unauthorized"},
		{name: "admin on admin page", path: "/dashboard/users", token: admin, status: http.StatusOK, session: true},
		{name: "user on login page", path: "/login", token: user, status: http.StatusTemporaryRedirect, location: "/dashboard"},
		{name: "anonymous public page", path: "/", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(Guard(f.engine)(okHandler(t, tt.session)), tt.path, tt.token)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Fatalf("location = %q, want %q", got, tt.location)
			}
		})
	}
}

func TestGuardClearsCorruptCookie(t *testing.T) {
	f := newFixture(t)

	rec := serve(Guard(f.engine)(okHandler(t, false)), "/profile", "corrupt")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/login" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "session" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected session cookie deletion, got %+v", cookies)
	}
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	editor := f.token(t, "editor@example.com", webAuth.RoleEditor)

	h := Guard(f.engine)(RequireRole(f.engine, webAuth.RoleAdmin, webAuth.RoleSuperAdmin)(okHandler(t, true)))
	if rec := serve(h, "/reports", editor); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	h = Guard(f.engine)(RequireRole(f.engine, webAuth.RoleEditor)(okHandler(t, true)))
	if rec := serve(h, "/reports", editor); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if rec := serve(h, "/reports", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	f := newFixture(t)
	writer := f.token(t, "writer@example.com", webAuth.RoleEditor, "posts.write")
	reader := f.token(t, "reader@example.com", webAuth.RoleUser, "posts.read")
	root := f.token(t, "root@example.com", webAuth.RoleSuperAdmin)

	h := Guard(f.engine)(RequirePermission(f.engine, "posts.write")(okHandler(t, true)))
	if rec := serve(h, "/api/posts", writer); rec.Code != http.StatusOK {
		t.Fatalf("writer status = %d, want 200", rec.Code)
	}
	if rec := serve(h, "/api/posts", reader); rec.Code != http.StatusForbidden {
		t.Fatalf("reader status = %d, want 403", rec.Code)
	}
	if rec := serve(h, "/api/posts", root); rec.Code != http.StatusOK {
		t.Fatalf("super admin status = %d, want 200", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:4321"
	if got := ClientIP(req); got != "2001:db8::1" {
		t.Fatalf("ClientIP = %q", got)
	}
	req.RemoteAddr = "unix"
	if got := ClientIP(req); got != "unix" {
		t.Fatalf("ClientIP = %q", got)
	}
}
