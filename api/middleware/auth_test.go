package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/mercaline/tienda-backend/pkg/auth"
	"github.com/mercaline/tienda-backend/pkg/config"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "tienda",
	ExpirationMinutes: 30,
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	mw := Auth(testJWTConfig, "", nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsUserContext(t *testing.T) {
	token, err := pkgauth.MintAccessToken(testJWTConfig, time.Now(), "user-9")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	mw := Auth(testJWTConfig, "", nil)
	var gotUser string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotUser != "user-9" {
		t.Fatalf("expected user-9 in context, got %q", gotUser)
	}
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	token, err := pkgauth.MintAccessToken(testJWTConfig, time.Now(), "user-9")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	mw := Auth(testJWTConfig, "", nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAcceptsAdminToken(t *testing.T) {
	mw := Auth(testJWTConfig, "svc-secret", nil)
	var admin bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin = IsAdminContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set(adminTokenHeader, "svc-secret")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !admin {
		t.Fatal("expected admin context")
	}
}

func TestAdminOnlyRejectsWrongToken(t *testing.T) {
	mw := AdminOnly("svc-secret", nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/1/resync", nil)
	req.Header.Set(adminTokenHeader, "wrong")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAdminOnlyRejectsWhenUnconfigured(t *testing.T) {
	mw := AdminOnly("", nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/1/resync", nil)
	req.Header.Set(adminTokenHeader, "anything")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
